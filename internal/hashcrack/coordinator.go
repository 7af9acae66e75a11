package hashcrack

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/ykhdr/crackserver/internal/hashcrack/hasher"
	"golang.org/x/sync/errgroup"
)

type Coordinator struct {
	l      zerolog.Logger
	hasher hasher.Hasher
}

func NewCoordinator(h hasher.Hasher) *Coordinator {
	return &Coordinator{
		hasher: h,
		l: log.With().
			Str("domain", "hashcrack").
			Str("type", "coordinator").
			Logger(),
	}
}

// Crack scans job.Words with one worker per slice and resolves the result in
// slice order: the lowest slice holding a match wins, no matter which worker
// finishes first. All workers have returned by the time Crack does.
//
// If ctx ends before the result is known, the context error is returned.
func (c *Coordinator) Crack(ctx context.Context, job *Job) (Result, error) {
	start := time.Now()
	slices := Partition(len(job.Words), job.Threads)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := &worker{
		l:      c.l,
		hasher: c.hasher,
		words:  job.Words,
		salt:   job.Salt,
		target: job.Ciphertext,
	}
	results := make([]Result, len(slices))
	done := make([]chan struct{}, len(slices))
	var g errgroup.Group
	for i, slice := range slices {
		done[i] = make(chan struct{})
		g.Go(func() error {
			defer close(done[i])
			results[i] = w.scan(ctx, slice)
			return nil
		})
	}

	result, idx, err := awaitInOrder(ctx, done, results)
	cancel()
	_ = g.Wait()

	c.l.Debug().
		Int("dictionary-size", len(job.Words)).
		Int("threads", len(slices)).
		Bool("found", result.Found).
		Int("slice", idx).
		Dur("elapsed", time.Since(start)).
		Err(err).
		Msg("crack finished")
	return result, err
}

// awaitInOrder waits for slice 0, then slice 1, and so on, stopping at the
// first one that reports a match.
func awaitInOrder(ctx context.Context, done []chan struct{}, results []Result) (Result, int, error) {
	for i := range done {
		select {
		case <-done[i]:
			if results[i].Found {
				return results[i], i, nil
			}
			// A cancelled worker reports a miss it never proved.
			if err := ctx.Err(); err != nil {
				return NotFound, -1, err
			}
		case <-ctx.Done():
			return NotFound, -1, ctx.Err()
		}
	}
	return NotFound, -1, nil
}
