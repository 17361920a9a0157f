package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/olivere/elastic/v7"
)

// ElasticSearchClient wraps olivere/elastic client for one index.
type ElasticSearchClient struct {
	client *elastic.Client
	index  string
}

// NewElasticSearchClient creates a new client for Elasticsearch 7.x.
func NewElasticSearchClient(url, index string) (*ElasticSearchClient, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false), // Essential when using Docker or cloud
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	return &ElasticSearchClient{client: client, index: index}, nil
}

func (es *ElasticSearchClient) Index() string { return es.index }

// BulkIndex indexes docs keyed by document id.
func (es *ElasticSearchClient) BulkIndex(ctx context.Context, docs map[string]interface{}) error {
	bulkRequest := es.client.Bulk()

	for id, doc := range docs {
		req := elastic.NewBulkIndexRequest().
			Index(es.index).
			Id(id).
			Doc(doc)
		bulkRequest = bulkRequest.Add(req)
	}

	if bulkRequest.NumberOfActions() == 0 {
		return nil
	}

	bulkResponse, err := bulkRequest.Refresh("true").Do(ctx)
	if err != nil {
		return fmt.Errorf("bulk index failed: %w", err)
	}

	if bulkResponse.Errors {
		for _, item := range bulkResponse.Items {
			for _, op := range item {
				if op.Error != nil {
					return fmt.Errorf("bulk item failed: %s", op.Error.Reason)
				}
			}
		}
	}

	return nil
}

// Search runs query and returns the raw sources of the hits.
func (es *ElasticSearchClient) Search(ctx context.Context, query elastic.Query, size int) ([]json.RawMessage, error) {
	searchResult, err := es.client.Search().
		Index(es.index).
		Query(query).
		Size(size).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	sources := make([]json.RawMessage, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		sources = append(sources, hit.Source)
	}
	return sources, nil
}

// DeleteByQuery removes every document matching query.
func (es *ElasticSearchClient) DeleteByQuery(ctx context.Context, query elastic.Query) (int64, error) {
	res, err := es.client.DeleteByQuery(es.index).
		Query(query).
		Refresh("true").
		Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete by query failed: %w", err)
	}
	return res.Deleted, nil
}

func (es *ElasticSearchClient) Stop() { es.client.Stop() }
