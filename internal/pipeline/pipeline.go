// Package pipeline maps records into dense feature, mask and label
// matrices, spreading a batch over workers that each own their scratch
// state.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"genomap/internal/domain"
	"genomap/internal/logging"
	"genomap/internal/mapper"
	"genomap/internal/record"
)

// Batch holds the mapped rows of consecutive records. Row i of every matrix
// belongs to record Offset+i of the stream.
type Batch struct {
	Offset   int
	Size     int
	Records  []*record.Record
	Features *mat.Dense
	// Mask is nil when the input tree never masks.
	Mask   *mat.Dense
	Labels map[string]*mat.Dense
}

type Mapper struct {
	domain  *domain.Domain
	workers int
	logger  *zap.Logger
}

type Option func(*Mapper)

// WithWorkers bounds the number of goroutines per batch. Values below one
// select GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(m *Mapper) { m.workers = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

func New(d *domain.Domain, opts ...Option) *Mapper {
	m := &Mapper{domain: d}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = logging.OrNop(m.logger)
	if m.workers < 1 {
		m.workers = runtime.GOMAXPROCS(0)
	}
	return m
}

func (m *Mapper) Domain() *domain.Domain { return m.domain }

func newDense(r, c int) *mat.Dense {
	if r == 0 || c == 0 {
		return nil
	}
	return mat.NewDense(r, c, nil)
}

func (m *Mapper) allocate(n int) (*Batch, domain.Sinks) {
	d := m.domain
	b := &Batch{
		Size:     n,
		Features: newDense(n, d.NumInputs()),
		Labels:   make(map[string]*mat.Dense),
	}
	if d.Input().HasMask() {
		b.Mask = newDense(n, d.NumInputs())
	}

	var sinks domain.Sinks
	if b.Features != nil {
		sinks.Features = b.Features
	}
	if b.Mask != nil {
		sinks.Mask = b.Mask
	}
	for _, out := range d.Outputs() {
		dense := newDense(n, out.NumLabels())
		b.Labels[out.Name] = dense
		var sink mapper.Sink
		if dense != nil {
			sink = dense
		}
		sinks.Labels = append(sinks.Labels, sink)
	}
	return b, sinks
}

// MapBatch maps recs into a new batch. Each record is written to the row
// matching its position in recs, whichever worker handles it. The first
// failing record fails the whole batch.
func (m *Mapper) MapBatch(ctx context.Context, recs []*record.Record) (*Batch, error) {
	b, sinks := m.allocate(len(recs))
	b.Records = recs
	if len(recs) == 0 {
		return b, nil
	}

	workers := min(m.workers, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			worker := m.domain.NewWorker()
			for row := w; row < len(recs); row += workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				rec := recs[row]
				if rec == nil {
					return fmt.Errorf("record %d is nil", row)
				}
				if err := worker.Map(m.domain.NewFrame(rec), sinks, row); err != nil {
					return fmt.Errorf("record %d (%s:%d): %w", row, rec.ReferenceID, rec.Position, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return b, nil
}

// Run reads stream to the end and hands each mapped batch to fn. Batches
// are mapped one at a time; fn may keep the batch.
func (m *Mapper) Run(ctx context.Context, stream record.Stream, batchSize int, fn func(*Batch) error) error {
	if batchSize < 1 {
		return fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	offset := 0
	recs := make([]*record.Record, 0, batchSize)
	flush := func() error {
		if len(recs) == 0 {
			return nil
		}
		b, err := m.MapBatch(ctx, recs)
		if err != nil {
			return fmt.Errorf("batch at %d: %w", offset, err)
		}
		b.Offset = offset
		m.logger.Debug("mapped batch", zap.Int("offset", offset), zap.Int("records", b.Size))
		offset += len(recs)
		recs = make([]*record.Record, 0, batchSize)
		return fn(b)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		if len(recs) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	m.logger.Info("mapping finished", zap.Int("records", offset))
	return nil
}

// Row copies row i of every matrix of the batch.
func (b *Batch) Row(i int) (features, mask []float64, labels map[string][]float64) {
	if b.Features != nil {
		features = append([]float64(nil), b.Features.RawRowView(i)...)
	}
	if b.Mask != nil {
		mask = append([]float64(nil), b.Mask.RawRowView(i)...)
	}
	labels = make(map[string][]float64, len(b.Labels))
	for name, dense := range b.Labels {
		if dense != nil {
			labels[name] = append([]float64(nil), dense.RawRowView(i)...)
		}
	}
	return features, mask, labels
}
