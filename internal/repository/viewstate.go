package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/locvowork/sheetlens/internal/domain"
)

// encodeSections is the stored payload of a view state, shared by every
// backend.
func encodeSections(vs *domain.ViewState) ([]byte, error) {
	sections := vs.Sections
	if sections == nil {
		sections = []domain.SectionState{}
	}
	payload, err := json.Marshal(sections)
	if err != nil {
		return nil, fmt.Errorf("encode view state: %w", err)
	}
	return payload, nil
}

func decodeViewState(fileName, sheetName string, payload []byte, updatedAt time.Time) (*domain.ViewState, error) {
	vs := &domain.ViewState{FileName: fileName, SheetName: sheetName, UpdatedAt: updatedAt.UTC()}
	if err := json.Unmarshal(payload, &vs.Sections); err != nil {
		return nil, fmt.Errorf("decode view state %s/%s: %w", fileName, sheetName, err)
	}
	return vs, nil
}

func notFound(fileName, sheetName string) error {
	return fmt.Errorf("%s/%s: %w", fileName, sheetName, domain.ErrViewStateNotFound)
}

// ==================== Memory ====================

type viewStateKey struct{ file, sheet string }

type memoryEntry struct {
	payload   []byte
	updatedAt time.Time
}

// MemoryViewStateRepository keeps encoded states in memory, so callers
// never share section state with the repository.
type MemoryViewStateRepository struct {
	mu     sync.RWMutex
	states map[viewStateKey]memoryEntry
	now    func() time.Time
}

func NewMemoryViewStateRepository() *MemoryViewStateRepository {
	return &MemoryViewStateRepository{
		states: map[viewStateKey]memoryEntry{},
		now:    time.Now,
	}
}

func (r *MemoryViewStateRepository) Save(_ context.Context, vs *domain.ViewState) error {
	payload, err := encodeSections(vs)
	if err != nil {
		return err
	}
	vs.UpdatedAt = r.now().UTC()
	r.mu.Lock()
	r.states[viewStateKey{vs.FileName, vs.SheetName}] = memoryEntry{payload: payload, updatedAt: vs.UpdatedAt}
	r.mu.Unlock()
	return nil
}

func (r *MemoryViewStateRepository) Get(_ context.Context, fileName, sheetName string) (*domain.ViewState, error) {
	r.mu.RLock()
	e, ok := r.states[viewStateKey{fileName, sheetName}]
	r.mu.RUnlock()
	if !ok {
		return nil, notFound(fileName, sheetName)
	}
	return decodeViewState(fileName, sheetName, e.payload, e.updatedAt)
}

func (r *MemoryViewStateRepository) List(_ context.Context, fileName string) ([]domain.ViewState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []domain.ViewState{}
	for k, e := range r.states {
		if k.file != fileName {
			continue
		}
		vs, err := decodeViewState(k.file, k.sheet, e.payload, e.updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, *vs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SheetName < out[j].SheetName })
	return out, nil
}

func (r *MemoryViewStateRepository) Delete(_ context.Context, fileName, sheetName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := viewStateKey{fileName, sheetName}
	if _, ok := r.states[k]; !ok {
		return notFound(fileName, sheetName)
	}
	delete(r.states, k)
	return nil
}
