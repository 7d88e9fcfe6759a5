// Package pipeline streams candidates through the validator in fixed-size
// batches and writes each completed batch to the sink before reading on.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"

	"github.com/tbckr/mailprobe/internal/input"
	"github.com/tbckr/mailprobe/internal/services/verify"
	"github.com/tbckr/mailprobe/internal/worker"
)

// DefaultBatchSize is the number of candidates dispatched together.
const DefaultBatchSize = 50

// Validator produces one result per address. *verify.Service satisfies it.
type Validator interface {
	Validate(ctx context.Context, address string) verify.Result
}

// Pipeline drives batches strictly in input order.
type Pipeline struct {
	validator Validator
	batchSize int
	observer  Observer
	logger    *slog.Logger
}

// New creates a Pipeline. A non-positive batchSize selects DefaultBatchSize;
// a nil observer discards events.
func New(v Validator, batchSize int, observer Observer, logger *slog.Logger) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Pipeline{validator: v, batchSize: batchSize, observer: observer, logger: logger}
}

// Run writes the header, then reads, validates, writes, and flushes one
// batch at a time. On cancellation the in-flight batch is dropped and the
// summary covers the batches already flushed.
func (p *Pipeline) Run(ctx context.Context, src input.Source, sink *Sink) (Summary, error) {
	summary := newSummary()
	if err := sink.WriteHeader(); err != nil {
		return summary, err
	}
	if err := sink.Flush(); err != nil {
		return summary, err
	}

	batch := make([]input.Candidate, 0, p.batchSize)
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		c, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Rows read before the failure still get their results.
			if len(batch) > 0 {
				if berr := p.runBatch(ctx, batch, sink, &summary); berr != nil {
					return summary, berr
				}
			}
			return summary, err
		}
		batch = append(batch, c)
		if len(batch) < p.batchSize {
			continue
		}
		if err := p.runBatch(ctx, batch, sink, &summary); err != nil {
			return summary, err
		}
		batch = batch[:0]
	}
	if len(batch) > 0 {
		if err := p.runBatch(ctx, batch, sink, &summary); err != nil {
			return summary, err
		}
	}
	return summary, nil
}

func (p *Pipeline) runBatch(ctx context.Context, batch []input.Candidate, sink *Sink, summary *Summary) error {
	results := worker.Run(ctx, batch, 0, func(ctx context.Context, c input.Candidate) verify.Result {
		return p.validator.Validate(ctx, c.Address)
	})
	if err := ctx.Err(); err != nil {
		p.logger.Debug("batch discarded", "batch", summary.Batches+1, "size", len(batch), "error", err)
		return err
	}

	next := *summary
	next.Statuses = maps.Clone(summary.Statuses)
	for i, res := range results {
		if err := sink.Write(batch[i], res); err != nil {
			return err
		}
		next.add(res)
	}
	if err := sink.Flush(); err != nil {
		return fmt.Errorf("batch %d: %w", summary.Batches+1, err)
	}
	next.Batches++
	*summary = next

	p.logger.Debug("batch flushed", "batch", summary.Batches, "size", len(batch), "processed", summary.Total)
	p.observer.BatchDone(Progress{Batch: summary.Batches, Processed: summary.Total, Valid: summary.Valid})
	return nil
}
