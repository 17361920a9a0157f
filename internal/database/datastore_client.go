package database

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/datastore"
)

// DatastoreClient wraps the cloud datastore client
type DatastoreClient struct {
	client *datastore.Client
}

// NewDatastoreClient connects to projectID. DATASTORE_EMULATOR_HOST is
// honoured by the underlying client.
func NewDatastoreClient(ctx context.Context, projectID string) (*DatastoreClient, error) {
	client, err := datastore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create datastore client: %w", err)
	}
	return &DatastoreClient{client: client}, nil
}

var errNilDatastore = errors.New("datastore client is nil")

// Put saves src under kind/name.
func (dc *DatastoreClient) Put(ctx context.Context, kind, name string, src interface{}) error {
	if dc == nil || dc.client == nil {
		return errNilDatastore
	}
	_, err := dc.client.Put(ctx, datastore.NameKey(kind, name, nil), src)
	return err
}

// Get loads kind/name into dst. A missing entity returns
// datastore.ErrNoSuchEntity.
func (dc *DatastoreClient) Get(ctx context.Context, kind, name string, dst interface{}) error {
	if dc == nil || dc.client == nil {
		return errNilDatastore
	}
	return dc.client.Get(ctx, datastore.NameKey(kind, name, nil), dst)
}

// GetAllWhere loads every kind entity whose field equals value into dst, a
// pointer to a slice.
func (dc *DatastoreClient) GetAllWhere(ctx context.Context, kind, field string, value interface{}, dst interface{}) error {
	if dc == nil || dc.client == nil {
		return errNilDatastore
	}
	q := datastore.NewQuery(kind).FilterField(field, "=", value)
	_, err := dc.client.GetAll(ctx, q, dst)
	return err
}

// Delete removes kind/name.
func (dc *DatastoreClient) Delete(ctx context.Context, kind, name string) error {
	if dc == nil || dc.client == nil {
		return errNilDatastore
	}
	return dc.client.Delete(ctx, datastore.NameKey(kind, name, nil))
}

func (dc *DatastoreClient) Close() error {
	if dc == nil || dc.client == nil {
		return nil
	}
	return dc.client.Close()
}
