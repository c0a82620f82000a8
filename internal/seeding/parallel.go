package seeding

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// FitParallel fits chains on up to workers goroutines (GOMAXPROCS when
// workers <= 0). Results are merged in input order, so the records equal
// those of Fit. If ctx is cancelled no further chains are started and
// ctx.Err() is returned.
func (f *Fitter) FitParallel(ctx context.Context, chains [][]HitKey, workers int) (Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	recs := make([]TrackRecord, len(chains))
	errs := make([]error, len(chains))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range chains {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs[i], errs[i] = f.FitChain(i, chains[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := newResult(len(chains))
	for i := range chains {
		res.add(recs[i], errs[i])
	}
	f.logSummary(res.Summary)
	return res, nil
}
