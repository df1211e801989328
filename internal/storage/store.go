package storage

import (
	"context"
	"errors"

	"genomap/internal/model"
)

var ErrDatasetNotFound = errors.New("dataset not found")

// Store persists dataset manifests and their mapped rows.
type Store interface {
	Init(ctx context.Context) error
	SaveManifest(ctx context.Context, manifest model.Manifest) error
	GetManifest(ctx context.Context, id string) (model.Manifest, bool, error)
	ListManifests(ctx context.Context) ([]model.Manifest, error)
	// AppendRows numbers rows after the ones already stored and returns the
	// new row count of the dataset.
	AppendRows(ctx context.Context, datasetID string, rows []model.Row) (int, error)
	GetRows(ctx context.Context, datasetID string, offset, limit int) ([]model.Row, error)
}
