package ingest

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/papers/pkg/corpus"
	"github.com/papercomputeco/papers/pkg/eventstream"
	"github.com/papercomputeco/papers/pkg/paper"
	"github.com/papercomputeco/papers/pkg/vector"
)

type outcome int

const (
	outcomeNew outcome = iota
	outcomeDuplicate
	outcomeSkipped
	outcomeMalformed
)

// item is one corpus line on its way through a batch.
type item struct {
	line    int
	outcome outcome

	// Only set for outcomeNew.
	id        string
	entry     *corpus.Entry
	embedding []float32
	embedErr  error
}

// batch holds the loop state of a single RunBatch call. Lines are classified
// as they are read, new entries are collected into a window that is embedded
// in parallel, and the window is then applied strictly in line order.
type batch struct {
	p       *Pipeline
	target  int
	summary *Summary

	window []*item
	queued map[string]bool
	fresh  int
}

func newBatch(p *Pipeline, start, target int) *batch {
	return &batch{
		p:      p,
		target: target,
		summary: &Summary{
			StartCheckpoint: start,
			NewCheckpoint:   start,
		},
		queued: make(map[string]bool),
	}
}

// remaining is the number of papers still needed for the target.
func (b *batch) remaining() int {
	return b.target - b.summary.ItemsProcessed
}

func (b *batch) run(ctx context.Context, reader *corpus.Reader) error {
	for b.remaining() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, ok := reader.Next()
		if !ok {
			break
		}

		it := b.classify(ctx, line)

		// A repeated id inside the window is settled by applying the window
		// first, so it is judged exactly as a sequential run would judge it.
		// This includes repeats without an abstract, which a sequential run
		// would count as duplicates once the first copy is stored.
		if it.outcome != outcomeMalformed && b.queued[it.id] {
			if stopped, err := b.flush(ctx); stopped {
				return err
			}
			if b.remaining() == 0 {
				return nil
			}
			it = b.classify(ctx, line)
		}

		b.window = append(b.window, it)
		if it.outcome == outcomeNew {
			b.queued[it.id] = true
			b.fresh++
		}

		if b.fresh == 0 || b.fresh >= min(b.p.concurrency, b.remaining()) {
			if stopped, err := b.flush(ctx); stopped {
				return err
			}
		}
	}

	if stopped, err := b.flush(ctx); stopped {
		return err
	}

	return reader.Err()
}

// classify parses a line and decides whether it is new work.
func (b *batch) classify(ctx context.Context, line corpus.Line) *item {
	log := b.p.logger

	if line.TooLong {
		log.Warn("skipping oversized corpus line", "line", line.Index, "max_bytes", corpus.MaxLineCapacity)
		return &item{line: line.Index, outcome: outcomeMalformed}
	}

	entry, err := corpus.Parse(line.Data)
	if err != nil {
		log.Warn("skipping malformed corpus line", "line", line.Index, "error", err)
		return &item{line: line.Index, outcome: outcomeMalformed}
	}

	id := entry.ID()
	if id == "" {
		id = paper.NewID()
		log.Debug("corpus entry has no id, generated one", "line", line.Index, "id", id)
	}

	exists, err := b.p.records.Exists(ctx, id)
	if err != nil {
		log.Warn("existence check failed, treating entry as new",
			"line", line.Index,
			"id", id,
			"error", err,
		)
	}
	if exists {
		log.Debug("skipping duplicate paper", "line", line.Index, "id", id)
		return &item{line: line.Index, outcome: outcomeDuplicate, id: id}
	}

	if !entry.HasAbstract() {
		log.Debug("skipping paper without abstract", "line", line.Index, "id", id)
		return &item{line: line.Index, outcome: outcomeSkipped, id: id}
	}

	return &item{line: line.Index, outcome: outcomeNew, id: id, entry: entry}
}

// flush embeds the new entries of the window and applies the window in
// order. stopped is true when ctx ended before the window was fully applied.
func (b *batch) flush(ctx context.Context) (stopped bool, err error) {
	if len(b.window) == 0 {
		return false, nil
	}

	b.embedWindow(ctx)

	for _, it := range b.window {
		if !b.apply(ctx, it) {
			b.resetWindow()
			return true, ctx.Err()
		}
	}

	b.resetWindow()
	return false, nil
}

func (b *batch) resetWindow() {
	b.window = b.window[:0]
	clear(b.queued)
	b.fresh = 0
}

func (b *batch) embedWindow(ctx context.Context) {
	if b.fresh == 1 {
		for _, it := range b.window {
			if it.outcome == outcomeNew {
				it.embedding, it.embedErr = b.p.embedder.Embed(ctx, it.entry.Abstract)
			}
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(b.p.concurrency)
	for _, it := range b.window {
		if it.outcome != outcomeNew {
			continue
		}
		g.Go(func() error {
			it.embedding, it.embedErr = b.p.embedder.Embed(ctx, it.entry.Abstract)
			return nil
		})
	}
	_ = g.Wait()
}

// apply records the outcome of one line and advances the checkpoint past
// it. It returns false, without advancing, when the line was interrupted by
// ctx ending so that the line is retried by the next batch.
func (b *batch) apply(ctx context.Context, it *item) bool {
	s := b.summary

	switch it.outcome {
	case outcomeDuplicate:
		s.Duplicates++
	case outcomeSkipped:
		s.Skipped++
	case outcomeMalformed:
		s.Malformed++
	case outcomeNew:
		if it.embedErr != nil {
			if ctx.Err() != nil {
				return false
			}
			b.p.logger.Warn("embedding failed, dropping paper",
				"line", it.line,
				"id", it.id,
				"error", it.embedErr,
			)
			s.Failed++
			break
		}

		if err := b.store(ctx, it); err != nil {
			if ctx.Err() != nil {
				return false
			}
			b.p.logger.Warn("storing paper failed, dropping it",
				"line", it.line,
				"id", it.id,
				"error", err,
			)
			s.Failed++
		}
	}

	s.NewCheckpoint = it.line + 1
	return true
}

// store writes the vector and then the record. The two writes are not
// atomic: a failure between them leaves a vector without a record, which
// retrieval skips.
func (b *batch) store(ctx context.Context, it *item) error {
	rec := it.entry.Record(it.id)

	err := b.p.vectors.Upsert(ctx, []vector.Record{{
		Key:       it.id,
		Embedding: it.embedding,
		Metadata:  rec.Metadata(),
	}})
	if err != nil {
		return fmt.Errorf("upserting vector: %w", err)
	}

	inserted, err := b.p.records.Put(ctx, rec)
	if err != nil {
		return fmt.Errorf("storing record: %w", err)
	}

	if !inserted {
		// Only reachable when the existence check failed earlier.
		b.summary.Duplicates++
		return nil
	}

	b.summary.ItemsProcessed++
	b.p.logger.Info("ingested paper",
		"line", it.line,
		"id", it.id,
		"title", rec.Title,
	)

	meta := rec.Metadata()
	b.p.publish(ctx, eventstream.NewPaperIngestedEvent(b.p.source.String(), eventstream.PaperIngested{
		ID:         it.id,
		Title:      rec.Title,
		Category:   meta[paper.MetadataCategory],
		Year:       meta[paper.MetadataYear],
		LineIndex:  it.line,
		Dimensions: len(it.embedding),
	}))

	return nil
}
