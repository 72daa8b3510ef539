package job

import (
	"context"
	"sync"

	"github.com/xxxsen/szurutag/internal/model"
	"github.com/xxxsen/szurutag/internal/tagger"
)

// AutoTagJob runs tagging passes. The cron schedule and the upload webhook
// share one job, the mutex keeps their runs from overlapping.
type AutoTagJob struct {
	deps  tagger.Deps
	cfg   tagger.Config
	query string
	stats *model.AtomicStats
	mu    sync.Mutex
}

func NewAutoTagJob(deps tagger.Deps, cfg tagger.Config, query string, stats *model.AtomicStats) *AutoTagJob {
	return &AutoTagJob{
		deps:  deps,
		cfg:   cfg,
		query: query,
		stats: stats,
	}
}

func (j *AutoTagJob) Name() string {
	return "auto_tag"
}

// Run executes the scheduled pass over the configured query.
func (j *AutoTagJob) Run(ctx context.Context) error {
	_, err := j.RunWith(ctx, tagger.Options{Mode: tagger.ModeStandalone, Query: j.query})
	return err
}

// RunWith executes a pass with explicit options, used by the webhook to tag
// a single uploaded post.
func (j *AutoTagJob) RunWith(ctx context.Context, opts tagger.Options) (*tagger.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	res, err := tagger.NewRunner(j.deps, j.cfg).Run(ctx, opts)
	if res != nil && j.stats != nil {
		j.stats.Add(res.Stats)
	}
	return res, err
}
