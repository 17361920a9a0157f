// Package formula keeps a dependency-graph recalculation engine seeded from a
// whole workbook and reports, for a single cell edit, every cell whose
// computed value changed.
package formula

import (
	"context"
	"fmt"
	"sync"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/logger"
)

// Address locates a cell inside the engine. Row and Col are 0-based.
type Address struct {
	Sheet     int    `json:"sheet"`
	SheetName string `json:"sheetName"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
}

// Change is one recomputed value. Changes of named expressions carry no
// address and are not tied to a cell.
type Change struct {
	Address  *Address    `json:"address,omitempty"`
	NewValue interface{} `json:"newValue"`
}

// Backend is the recalculation engine behind Engine.
type Backend interface {
	SheetID(name string) (int, bool)
	SetCellContents(addr Address, value interface{}) ([]Change, error)
	Close() error
}

// Builder seeds a Backend from the cells of every sheet, in sheet order.
type Builder func(ctx context.Context, sheetNames []string, sheets map[string][][]*cell.Cell) (Backend, error)

// Option configures an Engine.
type Option func(*config)

type config struct {
	builder Builder
}

// WithBuilder replaces the default excelize backed engine.
func WithBuilder(b Builder) Option {
	return func(c *config) {
		if b != nil {
			c.builder = b
		}
	}
}

// Engine owns one backend and the sheet name mapping. The zero value is not
// usable; call New. Methods are safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	builder  Builder
	backend  Backend
	sheetIDs map[string]int
}

// Default is the process-wide engine used by callers that do not own one.
var Default = New()

func New(opts ...Option) *Engine {
	cfg := &config{builder: BuildWorkbook}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Engine{builder: cfg.builder}
}

// Initialize replaces any previous state with an engine built from sheets.
// On failure the engine is left uninitialized.
func (e *Engine) Initialize(ctx context.Context, sheetNames []string, sheets map[string][][]*cell.Cell) (err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.destroyLocked(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("formula engine build panicked: %v", r)
			logger.ErrorLog(ctx, err, "formula engine build failed")
		}
	}()

	backend, err := e.builder(ctx, sheetNames, sheets)
	if err != nil {
		logger.ErrorLog(ctx, err, "formula engine build failed")
		return fmt.Errorf("build formula engine: %w", err)
	}

	ids := make(map[string]int, len(sheetNames))
	for _, name := range sheetNames {
		if id, ok := backend.SheetID(name); ok {
			ids[name] = id
		}
	}
	e.backend = backend
	e.sheetIDs = ids
	logger.DebugLog(ctx, "formula engine initialized with %d sheets", len(ids))
	return nil
}

// Initialized reports whether Initialize succeeded and Destroy was not called.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.backend != nil
}

// SheetID returns the engine id of a sheet name.
func (e *Engine) SheetID(name string) (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.sheetIDs[name]
	return id, ok
}

// SetCellValue feeds one edit into the engine and returns every cell whose
// value changed, the edited cell included. A value starting with "=" is a
// formula. An uninitialized engine, an unknown sheet or an engine failure
// yields an empty change set.
func (e *Engine) SetCellValue(ctx context.Context, sheetName string, row, col int, value interface{}) (changes []Change) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.backend == nil {
		logger.WarnLog(ctx, "formula engine not initialized, edit of %s R%dC%d ignored", sheetName, row, col)
		return []Change{}
	}
	id, ok := e.sheetIDs[sheetName]
	if !ok {
		logger.WarnLog(ctx, "formula engine has no sheet %q, edit ignored", sheetName)
		return []Change{}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.ErrorLog(ctx, nil, "formula engine panicked on %s R%dC%d: %v", sheetName, row, col, r)
			changes = []Change{}
		}
	}()

	out, err := e.backend.SetCellContents(Address{Sheet: id, SheetName: sheetName, Row: row, Col: col}, value)
	if err != nil {
		logger.ErrorLog(ctx, err, "formula engine rejected edit")
		return []Change{}
	}
	if out == nil {
		out = []Change{}
	}
	return out
}

// Destroy tears down the backend and the sheet mapping.
func (e *Engine) Destroy(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.destroyLocked(ctx)
}

func (e *Engine) destroyLocked(ctx context.Context) {
	if e.backend != nil {
		if err := e.backend.Close(); err != nil {
			logger.WarnLog(ctx, "closing formula engine: %v", err)
		}
	}
	e.backend = nil
	e.sheetIDs = nil
}
