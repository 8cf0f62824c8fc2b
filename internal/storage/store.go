// Package storage provides the dataset cache abstraction.
package storage

import (
	"context"
	"errors"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// Store is the dataset cache. Datasets are stored whole and replaced whole;
// there is no eviction and no expiry.
type Store interface {
	// Datasets
	PutDataset(ctx context.Context, ds *dataset.Dataset) error
	GetDataset(ctx context.Context, id string) (*dataset.Dataset, error)
	ListDatasets(ctx context.Context) ([]dataset.Summary, error)
	DeleteDataset(ctx context.Context, id string) error

	// Configuration
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// Lifecycle
	Close() error
}

// ErrNotFound is returned when a record is not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e ErrNotFound) Error() string {
	return e.Resource + " not found: " + e.ID
}

// IsNotFound checks if an error is, or wraps, a not found error.
func IsNotFound(err error) bool {
	var nf ErrNotFound
	return errors.As(err, &nf)
}

// ErrEmptyID is returned when a dataset without an id is stored.
var ErrEmptyID = errors.New("dataset id is empty")
