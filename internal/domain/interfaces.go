package domain

import "context"

// ViewStateRepository persists view states keyed by file and sheet name.
type ViewStateRepository interface {
	Save(ctx context.Context, vs *ViewState) error
	Get(ctx context.Context, fileName, sheetName string) (*ViewState, error)
	List(ctx context.Context, fileName string) ([]ViewState, error)
	Delete(ctx context.Context, fileName, sheetName string) error
}
