package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"genomap/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	manifests   map[string]model.Manifest
	rows        map[string][]model.Row
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.manifests = make(map[string]model.Manifest)
	s.rows = make(map[string][]model.Row)
	return nil
}

func (s *MemoryStore) checkInit() error {
	if !s.initialized {
		return errors.New("store is not initialized")
	}
	return nil
}

func (s *MemoryStore) SaveManifest(_ context.Context, manifest model.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return err
	}
	if manifest.ID == "" {
		return errors.New("manifest id is required")
	}
	if prev, ok := s.manifests[manifest.ID]; ok {
		manifest.NumRows = prev.NumRows
	} else {
		manifest.NumRows = 0
	}
	s.manifests[manifest.ID] = manifest
	return nil
}

func (s *MemoryStore) GetManifest(_ context.Context, id string) (model.Manifest, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return model.Manifest{}, false, err
	}
	manifest, ok := s.manifests[id]
	return manifest, ok, nil
}

func (s *MemoryStore) ListManifests(_ context.Context) ([]model.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, err
	}
	out := make([]model.Manifest, 0, len(s.manifests))
	for _, m := range s.manifests {
		out = append(out, m)
	}
	sortManifests(out)
	return out, nil
}

func (s *MemoryStore) AppendRows(_ context.Context, datasetID string, rows []model.Row) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkInit(); err != nil {
		return 0, err
	}
	manifest, ok := s.manifests[datasetID]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	s.rows[datasetID] = append(s.rows[datasetID], stamp(rows, manifest.NumRows)...)
	manifest.NumRows += len(rows)
	s.manifests[datasetID] = manifest
	return manifest.NumRows, nil
}

func (s *MemoryStore) GetRows(_ context.Context, datasetID string, offset, limit int) ([]model.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.checkInit(); err != nil {
		return nil, err
	}
	if _, ok := s.manifests[datasetID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, datasetID)
	}
	rows := s.rows[datasetID]
	from, to := window(len(rows), offset, limit)
	return append([]model.Row(nil), rows[from:to]...), nil
}

// sortManifests orders datasets by creation time, then ID.
func sortManifests(ms []model.Manifest) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].CreatedAt.Equal(ms[j].CreatedAt) {
			return ms[i].CreatedAt.Before(ms[j].CreatedAt)
		}
		return ms[i].ID < ms[j].ID
	})
}
