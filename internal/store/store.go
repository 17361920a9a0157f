// Package store owns the state of one loaded workbook: its raw sheets, the
// sheets built from them, the selected sheet and the formula engine. All
// changes go through command methods that notify subscribed observers.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/formula"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/internal/reader"
	"github.com/locvowork/sheetlens/internal/service"
)

// Source is a workbook the store can load.
type Source interface {
	SheetNames() []string
	RawData(ctx context.Context, name string) (domain.DataMatrix, error)
}

type worksheetSource interface {
	Worksheet(name string) (reader.Worksheet, bool)
}

// State is a read-only snapshot of what is loaded.
type State struct {
	FileName     string   `json:"fileName"`
	SheetNames   []string `json:"sheetNames"`
	CurrentSheet string   `json:"currentSheet"`
	Loaded       bool     `json:"loaded"`
}

type Option func(*Store)

// WithEngine makes the store use e instead of a private engine.
func WithEngine(e *formula.Engine) Option {
	return func(s *Store) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithDefaultStyles applies preset styles to every section built and to
// every card created without an explicit style.
func WithDefaultStyles(section *domain.SectionStyleConfig, card *domain.CardStyleConfig) Option {
	return func(s *Store) {
		s.sectionStyle = section
		s.cardStyle = card
	}
}

// Store is safe for concurrent use. Observers run after the lock is
// released, in subscription order.
type Store struct {
	mu         sync.RWMutex
	engine     *formula.Engine
	fileName   string
	names      []string
	raw        map[string]domain.DataMatrix
	worksheets map[string]domain.WorksheetRef
	sheets     map[string]domain.Sheet
	current    string

	sectionStyle *domain.SectionStyleConfig
	cardStyle    *domain.CardStyleConfig

	obsMu     sync.Mutex
	observers []subscription
	nextObs   int
}

func New(opts ...Option) *Store {
	s := &Store{engine: formula.New()}
	s.reset()
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) reset() {
	s.fileName = ""
	s.names = nil
	s.raw = map[string]domain.DataMatrix{}
	s.worksheets = map[string]domain.WorksheetRef{}
	s.sheets = map[string]domain.Sheet{}
	s.current = ""
}

// ==================== Workbook lifecycle ====================

// LoadWorkbook replaces the loaded workbook with src, reads every sheet and
// seeds the formula engine. The first sheet is selected. An engine that
// cannot be built leaves editing inert but the workbook readable.
func (s *Store) LoadWorkbook(ctx context.Context, src Source, fileName string) error {
	names := src.SheetNames()
	raw := make(map[string]domain.DataMatrix, len(names))
	for _, name := range names {
		m, err := src.RawData(ctx, name)
		if err != nil {
			return fmt.Errorf("load %s: %w", fileName, err)
		}
		raw[name] = m
	}

	worksheets := map[string]domain.WorksheetRef{}
	if ws, ok := src.(worksheetSource); ok {
		for _, name := range names {
			if w, ok := ws.Worksheet(name); ok {
				worksheets[name] = w
			}
		}
	}

	s.mu.Lock()
	s.engine.Destroy(ctx)
	s.reset()
	s.fileName = fileName
	s.names = make([]string, len(names))
	copy(s.names, names)
	s.raw = raw
	s.worksheets = worksheets

	grids := make(map[string][][]*cell.Cell, len(raw))
	for name, m := range raw {
		grids[name] = m.Cells()
	}
	if err := s.engine.Initialize(ctx, s.names, grids); err != nil {
		logger.ErrorLog(ctx, err, "store: formula engine unavailable for %s", fileName)
	}
	if len(s.names) > 0 {
		s.current = s.names[0]
		s.buildLocked(s.current)
	}
	current := s.current
	s.mu.Unlock()

	logger.InfoLog(ctx, "store: loaded %s with %d sheets", fileName, len(names))
	s.notify(Event{Kind: EventWorkbookLoaded, Sheet: current, Section: -1})
	return nil
}

// ClearWorkbook drops everything and tears down the formula engine.
func (s *Store) ClearWorkbook(ctx context.Context) bool {
	s.mu.Lock()
	if s.names == nil {
		s.mu.Unlock()
		return false
	}
	s.engine.Destroy(ctx)
	s.reset()
	s.mu.Unlock()

	s.notify(Event{Kind: EventWorkbookCleared, Section: -1})
	return true
}

// SelectSheet makes name current, building it on first use.
func (s *Store) SelectSheet(ctx context.Context, name string) error {
	s.mu.Lock()
	if _, ok := s.raw[name]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("select %q: %w", name, domain.ErrSheetNotFound)
	}
	if s.current == name {
		s.mu.Unlock()
		return nil
	}
	s.current = name
	s.buildLocked(name)
	s.mu.Unlock()

	logger.DebugLog(ctx, "store: selected sheet %s", name)
	s.notify(Event{Kind: EventSheetSelected, Sheet: name, Section: -1})
	return nil
}

// buildLocked parses a sheet once and caches it.
func (s *Store) buildLocked(name string) (domain.Sheet, bool) {
	if sheet, ok := s.sheets[name]; ok {
		return sheet, true
	}
	raw, ok := s.raw[name]
	if !ok {
		return domain.Sheet{}, false
	}
	sheet := service.BuildSheet(name, s.worksheets[name], raw)
	if s.sectionStyle != nil {
		style := *s.sectionStyle
		sheet = sheet.UpdateSections(func(_ int, sec domain.Section) domain.Section {
			return sec.WithFullStyle(style)
		})
	}
	s.sheets[name] = sheet
	return sheet, true
}

// Close releases the formula engine.
func (s *Store) Close(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.engine.Destroy(ctx)
}

// ==================== Reads ====================

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		FileName:     s.fileName,
		SheetNames:   append([]string(nil), s.names...),
		CurrentSheet: s.current,
		Loaded:       s.names != nil,
	}
}

// CurrentSheet returns the selected sheet.
func (s *Store) CurrentSheet() (domain.Sheet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sheet, ok := s.sheets[s.current]
	return sheet, ok
}

// Sheet returns a sheet by name, building it if it was never selected.
func (s *Store) Sheet(name string) (domain.Sheet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildLocked(name)
}

// RawData returns the raw matrix of a sheet.
func (s *Store) RawData(name string) (domain.DataMatrix, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.raw[name]
	return m, ok
}
