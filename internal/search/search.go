// Package search indexes the data rows of loaded workbooks so they can be
// searched across sheets.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/olivere/elastic/v7"

	"github.com/locvowork/sheetlens/internal/cell"
	"github.com/locvowork/sheetlens/internal/database"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/logger"
	"github.com/locvowork/sheetlens/pkg/dataflow"
)

const (
	defaultSize  = 100
	indexWorkers = 4
	indexRetries = 3
)

// RowDoc is one indexed data row.
type RowDoc struct {
	WorkbookID string   `json:"workbook_id"`
	FileName   string   `json:"file_name"`
	Sheet      string   `json:"sheet"`
	Section    int      `json:"section"`
	Title      string   `json:"title"`
	RowIndex   int      `json:"row_index"`
	Values     []string `json:"values"`
	Text       string   `json:"text"`
}

// ID is stable per workbook, sheet and row so re-indexing overwrites.
func (d RowDoc) ID() string {
	return fmt.Sprintf("%s:%s:%d", d.WorkbookID, d.Sheet, d.RowIndex)
}

type Indexer interface {
	IndexSheet(ctx context.Context, workbookID, fileName string, sheet domain.Sheet) error
	Search(ctx context.Context, workbookID, query string) ([]RowDoc, error)
	DeleteWorkbook(ctx context.Context, workbookID string) error
}

// Documents flattens the sections of sheet into row documents ordered by
// section and row. Rows without any text are left out.
func Documents(ctx context.Context, workbookID, fileName string, sheet domain.Sheet) ([]RowDoc, error) {
	sections := sheet.Sections()
	streams := make([]dataflow.Stream[RowDoc], len(sections))
	for i, section := range sections {
		title := section.TitleText()
		rows := dataflow.From[domain.Row](ctx, section.Data()...)
		streams[i] = dataflow.Map(ctx, rows, func(row domain.Row) (RowDoc, error) {
			values := make([]string, len(row.Cells))
			for c, cl := range row.Cells {
				values[c] = cell.String(cl)
			}
			return RowDoc{
				WorkbookID: workbookID,
				FileName:   fileName,
				Sheet:      sheet.Name(),
				Section:    i,
				Title:      title,
				RowIndex:   row.Index,
				Values:     values,
				Text:       strings.TrimSpace(strings.Join(values, " ")),
			}, nil
		})
	}

	filled := dataflow.Filter(ctx, dataflow.FanIn(ctx, streams...), func(d RowDoc) bool { return d.Text != "" })
	docs, err := dataflow.Collect(ctx, filled)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(a, b int) bool {
		if docs[a].Section != docs[b].Section {
			return docs[a].Section < docs[b].Section
		}
		return docs[a].RowIndex < docs[b].RowIndex
	})
	return docs, nil
}

// IndexWorkbook indexes sheets concurrently and retries each failing sheet
// with exponential backoff. opts override the defaults. Every sheet is
// tried; the first lasting failure is returned.
func IndexWorkbook(ctx context.Context, ix Indexer, workbookID, fileName string, sheets []domain.Sheet, opts ...dataflow.Option) error {
	defaults := []dataflow.Option{
		dataflow.WithWorkers(indexWorkers),
		dataflow.WithRetry(indexRetries, dataflow.ExponentialBackoff(100*time.Millisecond, 2*time.Second)),
		dataflow.WithErrorHandler(func(err error) bool {
			logger.ErrorLog(ctx, err, "search: indexing %s failed", workbookID)
			return false
		}),
	}
	return dataflow.ForEach(ctx, dataflow.From(ctx, sheets...), func(sheet domain.Sheet) error {
		return ix.IndexSheet(ctx, workbookID, fileName, sheet)
	}, append(defaults, opts...)...)
}

// ==================== Elasticsearch ====================

type ElasticIndexer struct {
	es *database.ElasticSearchClient
}

func NewElasticIndexer(es *database.ElasticSearchClient) *ElasticIndexer {
	return &ElasticIndexer{es: es}
}

func (ix *ElasticIndexer) IndexSheet(ctx context.Context, workbookID, fileName string, sheet domain.Sheet) error {
	docs, err := Documents(ctx, workbookID, fileName, sheet)
	if err != nil {
		return err
	}
	batch := make(map[string]interface{}, len(docs))
	for _, d := range docs {
		batch[d.ID()] = d
	}
	if err := ix.es.BulkIndex(ctx, batch); err != nil {
		return fmt.Errorf("index sheet %s: %w", sheet.Name(), err)
	}
	logger.DebugLog(ctx, "search: indexed %d rows of %s", len(docs), sheet.Name())
	return nil
}

// Search matches query against the row text of one workbook, or of every
// workbook when workbookID is empty.
func (ix *ElasticIndexer) Search(ctx context.Context, workbookID, query string) ([]RowDoc, error) {
	q := elastic.NewBoolQuery().Must(elastic.NewMatchQuery("text", query).Operator("and"))
	if workbookID != "" {
		q = q.Filter(elastic.NewTermQuery("workbook_id", workbookID))
	}
	sources, err := ix.es.Search(ctx, q, defaultSize)
	if err != nil {
		return nil, err
	}

	docs := make([]RowDoc, 0, len(sources))
	for _, src := range sources {
		var d RowDoc
		if err := json.Unmarshal(src, &d); err != nil {
			logger.WarnLog(ctx, "search: skipping malformed hit: %v", err)
			continue
		}
		docs = append(docs, d)
	}
	return docs, nil
}

func (ix *ElasticIndexer) DeleteWorkbook(ctx context.Context, workbookID string) error {
	n, err := ix.es.DeleteByQuery(ctx, elastic.NewTermQuery("workbook_id", workbookID))
	if err != nil {
		return fmt.Errorf("delete workbook %s: %w", workbookID, err)
	}
	logger.DebugLog(ctx, "search: removed %d rows of %s", n, workbookID)
	return nil
}

// ==================== Disabled ====================

// NopIndexer is used when no search backend is configured.
type NopIndexer struct{}

func (NopIndexer) IndexSheet(context.Context, string, string, domain.Sheet) error { return nil }
func (NopIndexer) Search(context.Context, string, string) ([]RowDoc, error)     { return nil, nil }
func (NopIndexer) DeleteWorkbook(context.Context, string) error                 { return nil }
