package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/repository/builder"
)

const viewStatesTable = "view_states"

const createViewStatesTable = `CREATE TABLE IF NOT EXISTS view_states (
	file_name  TEXT        NOT NULL,
	sheet_name TEXT        NOT NULL,
	payload    JSONB       NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (file_name, sheet_name)
)`

type viewStateRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewViewStateRepository stores view states in postgres.
func NewViewStateRepository(db *sql.DB) domain.ViewStateRepository {
	return &viewStateRepository{db: db, now: time.Now}
}

// MigrateViewStates creates the view_states table when missing.
func MigrateViewStates(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createViewStatesTable); err != nil {
		return fmt.Errorf("create view_states: %w", err)
	}
	return nil
}

func (r *viewStateRepository) Save(ctx context.Context, vs *domain.ViewState) error {
	payload, err := encodeSections(vs)
	if err != nil {
		return err
	}
	updatedAt := r.now().UTC()

	query, args := builder.NewSQLBuilder().
		Insert(viewStatesTable, "file_name", "sheet_name", "payload", "updated_at").
		Values(vs.FileName, vs.SheetName, string(payload), updatedAt).
		OnConflict("file_name", "sheet_name").
		DoUpdate("payload", "updated_at").
		Build()

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save view state %s/%s: %w", vs.FileName, vs.SheetName, err)
	}
	vs.UpdatedAt = updatedAt
	return nil
}

func (r *viewStateRepository) Get(ctx context.Context, fileName, sheetName string) (*domain.ViewState, error) {
	query, args := builder.NewSQLBuilder().
		Select("payload", "updated_at").
		From(viewStatesTable).
		Where("file_name = ?", fileName).
		Where("sheet_name = ?", sheetName).
		Build()

	var (
		payload   []byte
		updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(fileName, sheetName)
	}
	if err != nil {
		return nil, fmt.Errorf("get view state %s/%s: %w", fileName, sheetName, err)
	}
	return decodeViewState(fileName, sheetName, payload, updatedAt)
}

func (r *viewStateRepository) List(ctx context.Context, fileName string) ([]domain.ViewState, error) {
	query, args := builder.NewSQLBuilder().
		Select("sheet_name", "payload", "updated_at").
		From(viewStatesTable).
		Where("file_name = ?", fileName).
		OrderBy("sheet_name ASC").
		Build()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list view states of %s: %w", fileName, err)
	}
	defer rows.Close()

	states := []domain.ViewState{}
	for rows.Next() {
		var (
			sheetName string
			payload   []byte
			updatedAt time.Time
		)
		if err := rows.Scan(&sheetName, &payload, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan view state: %w", err)
		}
		vs, err := decodeViewState(fileName, sheetName, payload, updatedAt)
		if err != nil {
			return nil, err
		}
		states = append(states, *vs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	return states, nil
}

func (r *viewStateRepository) Delete(ctx context.Context, fileName, sheetName string) error {
	query, args := builder.NewSQLBuilder().
		Delete(viewStatesTable).
		Where("file_name = ?", fileName).
		Where("sheet_name = ?", sheetName).
		Build()

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete view state %s/%s: %w", fileName, sheetName, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete view state %s/%s: %w", fileName, sheetName, err)
	}
	if n == 0 {
		return notFound(fileName, sheetName)
	}
	return nil
}
