package montecarlo

import (
	"context"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called as trials complete.
type ProgressFunc func(done, total int)

// BatchOptions controls how a batch executes.
type BatchOptions struct {
	Seed            uint64
	Workers         int // 0 means GOMAXPROCS
	RetainHistories bool
	Progress        ProgressFunc
}

// Batch is the raw output of RunBatch. Finals is unsorted and index-aligned
// with Histories when histories were retained.
type Batch struct {
	Finals    []float64
	Histories [][]float64
}

// RunBatch executes p.Trials independent trials on a bounded worker pool.
// Each trial draws from its own stream seeded by (opts.Seed, trial index), so
// the output does not depend on the worker count. The context is checked
// between trials; on cancellation RunBatch returns ctx.Err() and no batch.
// The caller validates p.
func RunBatch(ctx context.Context, p Params, opts BatchOptions) (*Batch, error) {
	n := p.Trials
	in := p.pathInput()

	b := &Batch{Finals: make([]float64, n)}
	if opts.RetainHistories {
		b.Histories = make([][]float64, n)
	}

	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > n {
		numWorkers = n
	}

	work := make(chan int, n)
	for i := range n {
		work <- i
	}
	close(work)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range numWorkers {
		g.Go(func() error {
			for i := range work {
				if err := gctx.Err(); err != nil {
					return err
				}
				normal := NewNormal(NewSource(trialSeed(opts.Seed, i)))
				var history []float64
				if opts.RetainHistories {
					history = make([]float64, in.Months+1)
					b.Histories[i] = history
				}
				b.Finals[i] = SimulatePath(in, normal, history)

				c := done.Add(1)
				if opts.Progress != nil {
					opts.Progress(int(c), n)
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	// A cancellation that lands after the last trial still aborts the run.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b, nil
}
