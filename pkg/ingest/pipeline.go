// Package ingest advances a corpus checkpoint by embedding and storing new
// papers in the vector index and the record store.
//
// A batch reads the checkpoint once, streams the corpus from that line, and
// writes the checkpoint once at the end, so a crashed batch is repeated from
// scratch: papers it already stored are found in the record store and
// skipped. Batches against the same checkpoint must not run concurrently.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/papers/pkg/checkpoint"
	"github.com/papercomputeco/papers/pkg/corpus"
	"github.com/papercomputeco/papers/pkg/embeddings"
	"github.com/papercomputeco/papers/pkg/eventstream"
	"github.com/papercomputeco/papers/pkg/eventstream/nop"
	"github.com/papercomputeco/papers/pkg/records"
	"github.com/papercomputeco/papers/pkg/vector"
)

// ErrInvalidTarget is returned when a batch is asked for fewer than one paper.
var ErrInvalidTarget = errors.New("target count must be positive")

// Config is the configuration for an ingestion Pipeline.
type Config struct {
	Source      corpus.Source
	Checkpoints checkpoint.Store
	Records     records.Driver
	Vectors     vector.Driver
	Embedder    embeddings.Embedder

	// Publisher receives ingestion events. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// CheckpointName defaults to checkpoint.DefaultName.
	CheckpointName string

	// Concurrency is the number of abstracts embedded in parallel.
	// Writes and checkpoint advancement stay in corpus order. Defaults to 1.
	Concurrency uint

	Logger *slog.Logger
}

// Pipeline runs ingestion batches.
type Pipeline struct {
	source         corpus.Source
	checkpoints    checkpoint.Store
	records        records.Driver
	vectors        vector.Driver
	embedder       embeddings.Embedder
	publisher      eventstream.Publisher
	checkpointName string
	concurrency    int
	logger         *slog.Logger
}

// NewPipeline validates c and creates a Pipeline.
func NewPipeline(c *Config) (*Pipeline, error) {
	switch {
	case c.Source == nil:
		return nil, errors.New("corpus source is required")
	case c.Checkpoints == nil:
		return nil, errors.New("checkpoint store is required")
	case c.Records == nil:
		return nil, errors.New("record store is required")
	case c.Vectors == nil:
		return nil, errors.New("vector driver is required")
	case c.Embedder == nil:
		return nil, errors.New("embedder is required")
	}

	p := &Pipeline{
		source:         c.Source,
		checkpoints:    c.Checkpoints,
		records:        c.Records,
		vectors:        c.Vectors,
		embedder:       c.Embedder,
		publisher:      c.Publisher,
		checkpointName: c.CheckpointName,
		concurrency:    int(c.Concurrency),
		logger:         c.Logger,
	}

	if p.publisher == nil {
		p.publisher = nop.NewPublisher()
	}
	if p.checkpointName == "" {
		p.checkpointName = checkpoint.DefaultName
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p, nil
}

// RunBatch ingests up to targetCount new papers, starting at the stored
// checkpoint, and persists the new checkpoint.
//
// Failing to open the corpus or to persist the checkpoint is an error and
// leaves the stored checkpoint untouched. When ctx is cancelled or the corpus
// stream breaks mid-batch, the contiguous prefix handled so far is persisted
// and returned together with the error.
func (p *Pipeline) RunBatch(ctx context.Context, targetCount int) (*Summary, error) {
	if targetCount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTarget, targetCount)
	}

	started := time.Now()
	start := p.loadCheckpoint(ctx)

	rc, err := p.source.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening corpus %s: %w", p.source, err)
	}
	defer rc.Close()

	reader := corpus.NewReader(rc)
	skipped, err := reader.Skip(start)
	if err != nil {
		return nil, err
	}
	if skipped < start {
		p.logger.Warn("corpus ended before checkpoint",
			"checkpoint", start,
			"lines", skipped,
		)
	}

	b := newBatch(p, start, targetCount)
	runErr := b.run(ctx, reader)

	summary := b.summary
	summary.LinesConsumed = summary.NewCheckpoint - summary.StartCheckpoint

	// A cancelled batch still records the prefix it finished.
	if err := checkpoint.Save(context.WithoutCancel(ctx), p.checkpoints, p.checkpointName, summary.NewCheckpoint); err != nil {
		return nil, fmt.Errorf("persisting checkpoint: %w", err)
	}
	summary.Duration = time.Since(started)

	p.logger.Info(summary.Message(),
		"duplicates", summary.Duplicates,
		"skipped", summary.Skipped,
		"malformed", summary.Malformed,
		"failed", summary.Failed,
		"start_checkpoint", summary.StartCheckpoint,
		"duration", summary.Duration,
	)

	p.publish(context.WithoutCancel(ctx), eventstream.NewBatchCompletedEvent(p.source.String(), eventstream.BatchCompleted{
		ItemsProcessed:  summary.ItemsProcessed,
		Duplicates:      summary.Duplicates,
		Skipped:         summary.Skipped,
		Malformed:       summary.Malformed,
		Failed:          summary.Failed,
		StartCheckpoint: summary.StartCheckpoint,
		NewCheckpoint:   summary.NewCheckpoint,
		DurationMs:      summary.Duration.Milliseconds(),
	}))

	return summary, runErr
}

// loadCheckpoint reads the stored position. Missing or unreadable
// checkpoints start at the beginning of the corpus.
func (p *Pipeline) loadCheckpoint(ctx context.Context) int {
	pos, found, err := checkpoint.Load(ctx, p.checkpoints, p.checkpointName)
	switch {
	case err != nil:
		p.logger.Warn("could not read checkpoint, starting from 0",
			"name", p.checkpointName,
			"error", err,
		)
		return 0
	case !found:
		p.logger.Info("no checkpoint found, starting from 0", "name", p.checkpointName)
		return 0
	default:
		return pos
	}
}

// Checkpoint returns the stored checkpoint position.
func (p *Pipeline) Checkpoint(ctx context.Context) (int, bool, error) {
	return checkpoint.Load(ctx, p.checkpoints, p.checkpointName)
}

// ResetCheckpoint overwrites the stored checkpoint. Moving it backwards is
// safe: already stored papers are skipped as duplicates.
func (p *Pipeline) ResetCheckpoint(ctx context.Context, position int) error {
	if err := checkpoint.Save(ctx, p.checkpoints, p.checkpointName, position); err != nil {
		return fmt.Errorf("resetting checkpoint: %w", err)
	}
	p.logger.Info("checkpoint reset", "name", p.checkpointName, "position", position)
	return nil
}

// Status describes the current ingestion progress.
type Status struct {
	CheckpointName string `json:"checkpoint_name"`
	Checkpoint     int    `json:"checkpoint"`
	Found          bool   `json:"found"`
	Records        int    `json:"records"`
	Source         string `json:"source"`
}

// Status reports the stored checkpoint and the record count.
func (p *Pipeline) Status(ctx context.Context) (*Status, error) {
	pos, found, err := p.Checkpoint(ctx)
	if err != nil {
		return nil, err
	}

	n, err := p.records.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Status{
		CheckpointName: p.checkpointName,
		Checkpoint:     pos,
		Found:          found,
		Records:        n,
		Source:         p.source.String(),
	}, nil
}

// publish sends an event. Publishing is best-effort and never fails a batch.
func (p *Pipeline) publish(ctx context.Context, event *eventstream.Event) {
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.logger.Warn("failed to publish event",
			"event_type", event.EventType,
			"error", err,
		)
	}
}
