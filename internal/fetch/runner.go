package fetch

import (
	"context"
	"sync"
	"time"

	"github.com/evcatalyst/nys-district-dashboard/internal/config"
)

// Summary reports a completed fetch run for operator visibility.
type Summary struct {
	Districts        int
	DistrictsFailed  int
	SourcesTotal     int
	SourcesSucceeded int
	SourcesFailed    int
	SourcesReused    int
	Duration         time.Duration
}

// Run executes the full fetch stage: the shared workbook first, then one
// workflow per district across a bounded worker pool. A panic inside one
// district's workflow is contained at the dispatch boundary; siblings run
// to completion and the run itself still succeeds. The caller persists
// the source log only after all workflows have joined.
func (f *Fetcher) Run(ctx context.Context, districts []config.District, workers int) Summary {
	start := f.now()
	if workers <= 0 {
		workers = 4
	}

	f.FetchFiscalProfiles(ctx)

	f.logger.Info("starting parallel fetch",
		"districts", len(districts),
		"workers", workers,
	)

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	failed := 0

	for _, d := range districts {
		wg.Add(1)
		sem <- struct{}{}

		go func(d config.District) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("district workflow failed",
						"district", d.Name,
						"panic", r,
					)
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}()

			f.FetchDistrict(ctx, d)
		}(d)
	}

	wg.Wait()

	total, succeeded, sourcesFailed, reused := f.log.Counts()
	summary := Summary{
		Districts:        len(districts),
		DistrictsFailed:  failed,
		SourcesTotal:     total,
		SourcesSucceeded: succeeded,
		SourcesFailed:    sourcesFailed,
		SourcesReused:    reused,
		Duration:         f.now().Sub(start),
	}

	f.logger.Info("fetch complete",
		"districts", summary.Districts,
		"districts_failed", summary.DistrictsFailed,
		"sources", summary.SourcesTotal,
		"succeeded", summary.SourcesSucceeded,
		"failed", summary.SourcesFailed,
		"reused", summary.SourcesReused,
		"duration", summary.Duration,
	)
	return summary
}
