package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/domain"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func sampleState() *domain.ViewState {
	return &domain.ViewState{
		FileName:  "budget.xlsx",
		SheetName: "Budget",
		Sections: []domain.SectionState{{
			Index:      0,
			SearchText: "rent",
			Sort:       &domain.SortConfig{ColumnIndex: 1, Direction: domain.SortDesc},
			Charts: []domain.ChartConfig{
				domain.NewChart(1, 0, domain.ChartTypePie).ToConfig(),
			},
			Card: &domain.CardState{RowIndex: 2, ColIndex: 1, Unit: "€"},
		}},
	}
}

// exerciseRepository runs the behaviour every backend shares.
func exerciseRepository(t *testing.T, repo domain.ViewStateRepository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.Get(ctx, "budget.xlsx", "Budget")
	assert.True(t, errors.Is(err, domain.ErrViewStateNotFound))

	vs := sampleState()
	require.NoError(t, repo.Save(ctx, vs))
	assert.Equal(t, fixedNow, vs.UpdatedAt)

	got, err := repo.Get(ctx, "budget.xlsx", "Budget")
	require.NoError(t, err)
	assert.Equal(t, vs, got)

	got.Sections[0].SearchText = "changed"
	again, err := repo.Get(ctx, "budget.xlsx", "Budget")
	require.NoError(t, err)
	assert.Equal(t, "rent", again.Sections[0].SearchText, "stored state is not shared")

	require.NoError(t, repo.Save(ctx, &domain.ViewState{FileName: "budget.xlsx", SheetName: "Annex"}))
	require.NoError(t, repo.Save(ctx, &domain.ViewState{FileName: "other.xlsx", SheetName: "Budget"}))

	list, err := repo.List(ctx, "budget.xlsx")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Annex", list[0].SheetName)
	assert.Equal(t, []domain.SectionState{}, list[0].Sections)
	assert.Equal(t, "Budget", list[1].SheetName)

	require.NoError(t, repo.Delete(ctx, "budget.xlsx", "Budget"))
	assert.True(t, errors.Is(repo.Delete(ctx, "budget.xlsx", "Budget"), domain.ErrViewStateNotFound))
}

func TestMemoryViewStateRepository(t *testing.T) {
	repo := NewMemoryViewStateRepository()
	repo.now = func() time.Time { return fixedNow }
	exerciseRepository(t, repo)
}

// ==================== Datastore ====================

type fakeEntityStore struct {
	entities map[string]viewStateEntity
}

func (f *fakeEntityStore) Put(_ context.Context, _, name string, src interface{}) error {
	f.entities[name] = *src.(*viewStateEntity)
	return nil
}

func (f *fakeEntityStore) Get(_ context.Context, _, name string, dst interface{}) error {
	e, ok := f.entities[name]
	if !ok {
		return datastore.ErrNoSuchEntity
	}
	*dst.(*viewStateEntity) = e
	return nil
}

func (f *fakeEntityStore) GetAllWhere(_ context.Context, _, field string, value interface{}, dst interface{}) error {
	out := dst.(*[]viewStateEntity)
	for _, e := range f.entities {
		if field == "FileName" && e.FileName == value {
			*out = append(*out, e)
		}
	}
	return nil
}

func (f *fakeEntityStore) Delete(_ context.Context, _, name string) error {
	delete(f.entities, name)
	return nil
}

func TestDatastoreViewStateRepository(t *testing.T) {
	store := &fakeEntityStore{entities: map[string]viewStateEntity{}}
	repo := NewDatastoreViewStateRepository(store).(*datastoreViewStateRepository)
	repo.now = func() time.Time { return fixedNow }
	exerciseRepository(t, repo)

	_, ok := store.entities["budget.xlsx::Annex"]
	assert.True(t, ok)
}

// ==================== Postgres ====================

const (
	upsertQuery = "INSERT INTO view_states (file_name, sheet_name, payload, updated_at) VALUES ($1, $2, $3, $4) " +
		"ON CONFLICT (file_name, sheet_name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at"
	getQuery    = "SELECT payload, updated_at FROM view_states WHERE file_name = $1 AND sheet_name = $2"
	listQuery   = "SELECT sheet_name, payload, updated_at FROM view_states WHERE file_name = $1 ORDER BY sheet_name ASC"
	deleteQuery = "DELETE FROM view_states WHERE file_name = $1 AND sheet_name = $2"
)

func newMockRepository(t *testing.T) (*viewStateRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := NewViewStateRepository(db).(*viewStateRepository)
	repo.now = func() time.Time { return fixedNow }
	return repo, mock
}

func TestPostgresSaveAndGet(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()
	vs := sampleState()
	payload, err := encodeSections(vs)
	require.NoError(t, err)

	mock.ExpectExec(upsertQuery).
		WithArgs("budget.xlsx", "Budget", string(payload), fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Save(ctx, vs))
	assert.Equal(t, fixedNow, vs.UpdatedAt)

	mock.ExpectQuery(getQuery).
		WithArgs("budget.xlsx", "Budget").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "updated_at"}).AddRow(payload, fixedNow))
	got, err := repo.Get(ctx, "budget.xlsx", "Budget")
	require.NoError(t, err)
	assert.Equal(t, vs, got)

	mock.ExpectQuery(getQuery).
		WithArgs("budget.xlsx", "Nope").
		WillReturnRows(sqlmock.NewRows([]string{"payload", "updated_at"}))
	_, err = repo.Get(ctx, "budget.xlsx", "Nope")
	assert.True(t, errors.Is(err, domain.ErrViewStateNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAndDelete(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()

	mock.ExpectQuery(listQuery).
		WithArgs("budget.xlsx").
		WillReturnRows(sqlmock.NewRows([]string{"sheet_name", "payload", "updated_at"}).
			AddRow("Annex", []byte(`[]`), fixedNow).
			AddRow("Budget", []byte(`[{"index":0,"searchText":"rent","applyFiltersToCharts":false}]`), fixedNow))
	list, err := repo.List(ctx, "budget.xlsx")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "rent", list[1].Sections[0].SearchText)

	mock.ExpectExec(deleteQuery).WithArgs("budget.xlsx", "Budget").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(ctx, "budget.xlsx", "Budget"))

	mock.ExpectExec(deleteQuery).WithArgs("budget.xlsx", "Budget").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.True(t, errors.Is(repo.Delete(ctx, "budget.xlsx", "Budget"), domain.ErrViewStateNotFound))

	mock.ExpectExec(deleteQuery).WithArgs("budget.xlsx", "Budget").WillReturnError(errors.New("connection reset"))
	err = repo.Delete(ctx, "budget.xlsx", "Budget")
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrViewStateNotFound))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrateViewStates(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(createViewStatesTable).WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, MigrateViewStates(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
