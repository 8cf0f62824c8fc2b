// Package memory provides an in-process implementation of storage.Store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/storage"
)

// Store keeps datasets in a map. Stored datasets are never mutated, so
// readers share pointers.
type Store struct {
	mu       sync.RWMutex
	datasets map[string]*dataset.Dataset
	config   map[string]string
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		datasets: map[string]*dataset.Dataset{},
		config:   map[string]string{},
	}
}

func (s *Store) PutDataset(_ context.Context, ds *dataset.Dataset) error {
	if ds == nil || ds.ID == "" {
		return storage.ErrEmptyID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets[ds.ID] = ds
	return nil
}

func (s *Store) GetDataset(_ context.Context, id string) (*dataset.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, storage.ErrNotFound{Resource: "dataset", ID: id}
	}
	return ds, nil
}

func (s *Store) ListDatasets(_ context.Context) ([]dataset.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dataset.Summary, 0, len(s.datasets))
	for _, ds := range s.datasets {
		out = append(out, ds.Summarize())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteDataset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.datasets, id)
	return nil
}

func (s *Store) GetConfig(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.config[key]
	if !ok {
		return "", storage.ErrNotFound{Resource: "config", ID: key}
	}
	return v, nil
}

func (s *Store) SetConfig(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Verify interface compliance
var _ storage.Store = (*Store)(nil)
