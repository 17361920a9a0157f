package search

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/locvowork/sheetlens/internal/database"
	"github.com/locvowork/sheetlens/internal/domain"
	"github.com/locvowork/sheetlens/internal/service"
	"github.com/locvowork/sheetlens/pkg/dataflow"
)

func inventorySheet() domain.Sheet {
	raw := domain.MatrixFromValues([][]interface{}{
		{"Inventory"},
		{"Stock"},
		{"Item", "Qty"},
		{"Bolts", 40},
		{"Nuts", 12},
	})
	return service.BuildSheet("Inventory", nil, raw)
}

func TestDocuments(t *testing.T) {
	docs, err := Documents(context.Background(), "wb-1", "inv.xlsx", inventorySheet())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, RowDoc{
		WorkbookID: "wb-1",
		FileName:   "inv.xlsx",
		Sheet:      "Inventory",
		Section:    0,
		Title:      "Stock",
		RowIndex:   3,
		Values:     []string{"Bolts", "40"},
		Text:       "Bolts 40",
	}, docs[0])
	assert.Equal(t, "wb-1:Inventory:4", docs[1].ID())
}

func TestDocumentsAcrossSections(t *testing.T) {
	raw := domain.MatrixFromValues([][]interface{}{
		{"Inventory"},
		{"Stock"},
		{"Item", "Qty"},
		{"Bolts", 40},
		{"Nuts", 12},
		{"Washers", 7},
		{},
		{"Orders"},
		{"Item", "Qty"},
		{"Bolts", 5},
		{"Screws", 9},
	})
	sheet := service.BuildSheet("Inventory", nil, raw)
	require.Equal(t, 2, sheet.SectionCount())

	docs, err := Documents(context.Background(), "wb-1", "inv.xlsx", sheet)
	require.NoError(t, err)
	require.Len(t, docs, 5)
	var order []string
	for _, d := range docs {
		order = append(order, d.Title+"/"+d.Values[0])
	}
	assert.Equal(t, []string{"Stock/Bolts", "Stock/Nuts", "Stock/Washers", "Orders/Bolts", "Orders/Screws"}, order)
	assert.Equal(t, 1, docs[3].Section)
}

type fakeElastic struct {
	mu       sync.Mutex
	requests map[string]string
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests[r.URL.Path] = string(body)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		_, _ = io.WriteString(w, `{"took":1,"errors":false,"items":[]}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_, _ = io.WriteString(w, `{"took":1,"timed_out":false,"hits":{"total":{"value":2,"relation":"eq"},"hits":[
			{"_index":"rows","_id":"wb-1:Inventory:3","_source":{"workbook_id":"wb-1","sheet":"Inventory","row_index":3,"text":"Bolts 40"}},
			{"_index":"rows","_id":"broken","_source":{"row_index":"x"}}]}}`)
	case strings.HasSuffix(r.URL.Path, "/_delete_by_query"):
		_, _ = io.WriteString(w, `{"took":1,"deleted":2}`)
	default:
		_, _ = io.WriteString(w, `{"version":{"number":"7.17.0"}}`)
	}
}

func (f *fakeElastic) body(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[path]
}

func TestElasticIndexer(t *testing.T) {
	fake := &fakeElastic{requests: map[string]string{}}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	es, err := database.NewElasticSearchClient(srv.URL, "rows")
	require.NoError(t, err)
	defer es.Stop()
	ix := NewElasticIndexer(es)
	ctx := context.Background()

	require.NoError(t, ix.IndexSheet(ctx, "wb-1", "inv.xlsx", inventorySheet()))
	bulk := fake.body("/_bulk")
	assert.Contains(t, bulk, `"_id":"wb-1:Inventory:3"`)
	assert.Contains(t, bulk, `"text":"Nuts 12"`)

	hits, err := ix.Search(ctx, "wb-1", "bolts")
	require.NoError(t, err)
	require.Len(t, hits, 1, "malformed hits are skipped")
	assert.Equal(t, "Bolts 40", hits[0].Text)
	assert.Equal(t, 3, hits[0].RowIndex)
	query := fake.body("/rows/_search")
	assert.Contains(t, query, `"workbook_id":"wb-1"`)
	assert.Contains(t, query, `"bolts"`)

	require.NoError(t, ix.DeleteWorkbook(ctx, "wb-1"))
	assert.Contains(t, fake.body("/rows/_delete_by_query"), `"workbook_id":"wb-1"`)
}

func TestNopIndexer(t *testing.T) {
	var ix Indexer = NopIndexer{}
	require.NoError(t, ix.IndexSheet(context.Background(), "x", "x.xlsx", inventorySheet()))
	hits, err := ix.Search(context.Background(), "x", "bolts")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

type flakyIndexer struct {
	NopIndexer
	mu       sync.Mutex
	failures map[string]int
	indexed  []string
}

func (f *flakyIndexer) IndexSheet(_ context.Context, _, _ string, sheet domain.Sheet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures[sheet.Name()] > 0 {
		f.failures[sheet.Name()]--
		return errors.New("es unavailable")
	}
	f.indexed = append(f.indexed, sheet.Name())
	return nil
}

func TestIndexWorkbookRetries(t *testing.T) {
	other := service.BuildSheet("Archive", nil, domain.MatrixFromValues([][]interface{}{{"Archive"}, {"Item"}, {"Old"}}))
	ix := &flakyIndexer{failures: map[string]int{"Inventory": 2, "Archive": 9}}
	noWait := dataflow.WithRetry(2, func(int) time.Duration { return 0 })

	err := IndexWorkbook(context.Background(), ix, "wb-1", "inv.xlsx", []domain.Sheet{inventorySheet(), other}, noWait)
	require.Error(t, err, "Archive keeps failing")
	assert.Equal(t, []string{"Inventory"}, ix.indexed)
}
