// Package genomap maps genomic site records into fixed-width feature and
// label rows and stores them as datasets.
package genomap

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"genomap/internal/domain"
	"genomap/internal/logging"
	"genomap/internal/model"
	"genomap/internal/pipeline"
	"genomap/internal/record"
	"genomap/internal/storage"
)

const (
	defaultDBPath    = "genomap.db"
	defaultBatchSize = 256
)

var ErrDatasetNotFound = storage.ErrDatasetNotFound

type Options struct {
	StoreKind string
	DBPath    string
	Workers   int
	Logger    *zap.Logger
}

type Client struct {
	store   storage.Store
	workers int
	logger  *zap.Logger
}

// Description summarizes what a domain produces per record.
type Description struct {
	FeatureNames []string
	Shape        domain.Shape
	Outputs      []model.OutputShape
}

type MapRequest struct {
	Config    domain.Config
	Name      string
	Input     io.Reader
	BatchSize int
}

type MapSummary struct {
	DatasetID string
	Rows      int
	Batches   int
}

type RowsRequest struct {
	DatasetID string
	Offset    int
	Limit     int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	return &Client{
		store:   store,
		workers: opts.Workers,
		logger:  logging.OrNop(opts.Logger),
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Describe builds the domain of cfg without mapping anything.
func (c *Client) Describe(cfg domain.Config) (Description, error) {
	d, err := domain.New(cfg)
	if err != nil {
		return Description{}, err
	}
	return Description{
		FeatureNames: d.FeatureNames(),
		Shape:        d.Shape(),
		Outputs:      outputShapes(d),
	}, nil
}

// Map reads JSON-lines records from req.Input, maps them through the domain
// of req.Config and stores the rows as a new dataset. Rows of batches that
// completed before a failure stay in the store.
func (c *Client) Map(ctx context.Context, req MapRequest) (MapSummary, error) {
	if req.Input == nil {
		return MapSummary{}, errors.New("map: input is required")
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	d, err := domain.New(req.Config)
	if err != nil {
		return MapSummary{}, err
	}

	manifest := storage.NewManifest(req.Name)
	manifest.FeatureNames = d.FeatureNames()
	shape := d.Shape()
	manifest.InputShape = shape.Input.Sizes()
	manifest.InputMask = shape.InputMask
	manifest.Outputs = outputShapes(d)
	manifest.Properties = d.Properties()
	if err := c.store.SaveManifest(ctx, manifest); err != nil {
		return MapSummary{}, fmt.Errorf("save manifest: %w", err)
	}

	logger := c.logger.With(zap.String("dataset", manifest.ID))
	mapper := pipeline.New(d, pipeline.WithWorkers(c.workers), pipeline.WithLogger(logger))
	summary := MapSummary{DatasetID: manifest.ID}
	err = mapper.Run(ctx, record.NewJSONStream(req.Input), batchSize, func(b *pipeline.Batch) error {
		n, err := c.store.AppendRows(ctx, manifest.ID, batchRows(b))
		if err != nil {
			return fmt.Errorf("append rows: %w", err)
		}
		summary.Rows = n
		summary.Batches++
		return nil
	})
	if err != nil {
		return summary, err
	}
	logger.Info("dataset mapped", zap.Int("rows", summary.Rows), zap.Int("batches", summary.Batches))
	return summary, nil
}

func (c *Client) Rows(ctx context.Context, req RowsRequest) ([]model.Row, error) {
	if req.DatasetID == "" {
		return nil, errors.New("rows: dataset id is required")
	}
	return c.store.GetRows(ctx, req.DatasetID, req.Offset, req.Limit)
}

func (c *Client) Dataset(ctx context.Context, id string) (model.Manifest, error) {
	manifest, ok, err := c.store.GetManifest(ctx, id)
	if err != nil {
		return model.Manifest{}, err
	}
	if !ok {
		return model.Manifest{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, id)
	}
	return manifest, nil
}

func (c *Client) Datasets(ctx context.Context) ([]model.Manifest, error) {
	return c.store.ListManifests(ctx)
}

func outputShapes(d *domain.Domain) []model.OutputShape {
	outs := d.Outputs()
	shapes := make([]model.OutputShape, len(outs))
	for i, out := range outs {
		shapes[i] = model.OutputShape{Name: out.Name, NumLabels: out.NumLabels(), Virtual: out.Virtual}
	}
	return shapes
}

func batchRows(b *pipeline.Batch) []model.Row {
	rows := make([]model.Row, b.Size)
	for i := range rows {
		features, mask, labels := b.Row(i)
		rows[i] = model.Row{
			Features: features,
			Mask:     mask,
			Labels:   labels,
		}
		if i < len(b.Records) && b.Records[i] != nil {
			rows[i].ReferenceID = b.Records[i].ReferenceID
			rows[i].Position = b.Records[i].Position
		}
	}
	return rows
}
