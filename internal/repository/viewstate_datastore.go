package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/datastore"

	"github.com/locvowork/sheetlens/internal/domain"
)

const viewStateKind = "ViewState"

// EntityStore is the part of database.DatastoreClient the repository uses.
type EntityStore interface {
	Put(ctx context.Context, kind, name string, src interface{}) error
	Get(ctx context.Context, kind, name string, dst interface{}) error
	GetAllWhere(ctx context.Context, kind, field string, value interface{}, dst interface{}) error
	Delete(ctx context.Context, kind, name string) error
}

type viewStateEntity struct {
	FileName  string
	SheetName string
	Payload   []byte `datastore:",noindex"`
	UpdatedAt time.Time
}

type datastoreViewStateRepository struct {
	store EntityStore
	now   func() time.Time
}

// NewDatastoreViewStateRepository stores one ViewState entity per file and
// sheet.
func NewDatastoreViewStateRepository(store EntityStore) domain.ViewStateRepository {
	return &datastoreViewStateRepository{store: store, now: time.Now}
}

func viewStateName(fileName, sheetName string) string {
	return fmt.Sprintf("%s::%s", fileName, sheetName)
}

func (r *datastoreViewStateRepository) Save(ctx context.Context, vs *domain.ViewState) error {
	payload, err := encodeSections(vs)
	if err != nil {
		return err
	}
	e := viewStateEntity{
		FileName:  vs.FileName,
		SheetName: vs.SheetName,
		Payload:   payload,
		UpdatedAt: r.now().UTC(),
	}
	if err := r.store.Put(ctx, viewStateKind, viewStateName(vs.FileName, vs.SheetName), &e); err != nil {
		return fmt.Errorf("save view state %s/%s: %w", vs.FileName, vs.SheetName, err)
	}
	vs.UpdatedAt = e.UpdatedAt
	return nil
}

func (r *datastoreViewStateRepository) Get(ctx context.Context, fileName, sheetName string) (*domain.ViewState, error) {
	var e viewStateEntity
	err := r.store.Get(ctx, viewStateKind, viewStateName(fileName, sheetName), &e)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, notFound(fileName, sheetName)
	}
	if err != nil {
		return nil, fmt.Errorf("get view state %s/%s: %w", fileName, sheetName, err)
	}
	return decodeViewState(e.FileName, e.SheetName, e.Payload, e.UpdatedAt)
}

func (r *datastoreViewStateRepository) List(ctx context.Context, fileName string) ([]domain.ViewState, error) {
	var entities []viewStateEntity
	if err := r.store.GetAllWhere(ctx, viewStateKind, "FileName", fileName, &entities); err != nil {
		return nil, fmt.Errorf("list view states of %s: %w", fileName, err)
	}
	states := make([]domain.ViewState, 0, len(entities))
	for _, e := range entities {
		vs, err := decodeViewState(e.FileName, e.SheetName, e.Payload, e.UpdatedAt)
		if err != nil {
			return nil, err
		}
		states = append(states, *vs)
	}
	sort.Slice(states, func(i, j int) bool { return states[i].SheetName < states[j].SheetName })
	return states, nil
}

func (r *datastoreViewStateRepository) Delete(ctx context.Context, fileName, sheetName string) error {
	name := viewStateName(fileName, sheetName)
	var e viewStateEntity
	err := r.store.Get(ctx, viewStateKind, name, &e)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return notFound(fileName, sheetName)
	}
	if err != nil {
		return fmt.Errorf("delete view state %s/%s: %w", fileName, sheetName, err)
	}
	if err := r.store.Delete(ctx, viewStateKind, name); err != nil {
		return fmt.Errorf("delete view state %s/%s: %w", fileName, sheetName, err)
	}
	return nil
}
