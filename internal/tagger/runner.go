package tagger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/szurutag/internal/history"
	"github.com/xxxsen/szurutag/internal/model"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
	"github.com/xxxsen/szurutag/internal/saucenao"
	"github.com/xxxsen/szurutag/internal/scrape"
	"go.uber.org/zap"
)

// PostIterator walks a post listing one post at a time.
type PostIterator interface {
	Next(ctx context.Context) (*model.Post, bool, error)
}

// PostSource is the board side of a run: listing, reading and patching posts.
type PostSource interface {
	ListPosts(ctx context.Context, query string) (PostIterator, int, error)
	GetPost(ctx context.Context, id int) (*model.Post, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	AbsoluteContentURL(post *model.Post) string
	Public() bool
}

// ReverseSearcher finds tags and sources for a media file or URL.
type ReverseSearcher interface {
	Search(ctx context.Context, req saucenao.SearchRequest) (*saucenao.Result, error)
}

// Classifier tags a local media file.
type Classifier interface {
	TagImage(ctx context.Context, path string, threshold float32) ([]string, model.Safety, error)
}

// Scraper extracts tags from a booru page.
type Scraper interface {
	ScrapePost(ctx context.Context, pageURL string) (*scrape.SankakuResult, error)
}

// MediaFetcher stages post media on the local filesystem.
type MediaFetcher interface {
	Fetch(ctx context.Context, contentURL string, existing string) (string, error)
	Cleanup(path string) error
}

// History records run outcomes. All calls are best effort: a broken history
// store never fails a run.
type History interface {
	StartRun(ctx context.Context, mode string, query string) (string, error)
	FinishRun(ctx context.Context, runID string, stats model.Stats) error
	RecordPost(ctx context.Context, runID string, postID int, outcome string) error
	IsPostProcessed(ctx context.Context, postID int) (bool, error)
}

// Deps carries the collaborators of a Runner. Board and Fetcher are required,
// the rest enable features when non-nil.
type Deps struct {
	Board      PostSource
	Searcher   ReverseSearcher
	Classifier Classifier
	Scraper    Scraper
	Fetcher    MediaFetcher
	History    History
}

// Config are the per-runner knobs taken from the auto tagger configuration.
type Config struct {
	Forced        bool
	Threshold     float32
	HideProgress  bool
	SkipProcessed bool
}

// shortQuotaBackoff is how long to wait once the short-period search quota
// hits zero while long-period quota remains.
const shortQuotaBackoff = 35 * time.Second

// Runner drives one tagging run over all posts matching a query.
type Runner struct {
	deps  Deps
	cfg   Config
	sleep func(ctx context.Context, d time.Duration)
}

func NewRunner(deps Deps, cfg Config) *Runner {
	return &Runner{
		deps:  deps,
		cfg:   cfg,
		sleep: sleepContext,
	}
}

// Run processes every post matching opts.Query. The returned Result carries
// counters even when the run aborted halfway.
func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := logutil.GetLogger(ctx)
	query, err := normalizeQuery(opts)
	if err != nil {
		return nil, err
	}
	if strings.Contains(query, "'") {
		logger.Warn("query contains single quotes, double quotes are usually what you want",
			zap.String("query", query))
	}
	if r.deps.Searcher == nil && r.deps.Classifier == nil && opts.SankakuURL == "" {
		logger.Info("nothing to do, search and classifier are both disabled")
		return &Result{}, nil
	}

	runID := r.startHistory(ctx, opts.Mode, query)
	res := &Result{}

	if opts.SankakuURL != "" {
		err := r.runSankaku(ctx, opts, query, runID, res)
		r.finishHistory(ctx, runID, res.Stats)
		return res, err
	}

	iter, total, err := r.deps.Board.ListPosts(ctx, query)
	if err != nil {
		r.finishHistory(ctx, runID, res.Stats)
		return nil, fmt.Errorf("list posts: %w", err)
	}
	res.Total = total
	showProgress := !r.cfg.HideProgress && opts.Mode == ModeStandalone
	searchEnabled := r.deps.Searcher != nil

	index := -1
	for {
		post, ok, err := iter.Next(ctx)
		if err != nil {
			r.finishHistory(ctx, runID, res.Stats)
			return res, fmt.Errorf("fetch next post: %w", err)
		}
		if !ok {
			break
		}
		index++
		if showProgress {
			logger.Info("tagging progress",
				zap.Int("current", index+1),
				zap.Int("total", total),
				zap.Int("post_id", post.ID))
		}
		outcome := r.processPost(ctx, post, opts, searchEnabled, res)
		r.recordHistory(ctx, runID, post.ID, outcome)
		if res.QuotaExhausted && searchEnabled {
			if r.deps.Classifier != nil {
				searchEnabled = false
				res.SearchDisabled = true
				logger.Warn("search quota exhausted, continuing with classifier only")
				continue
			}
			remaining := total - index - 1
			if remaining > 0 {
				res.Stats.Untagged += remaining
			}
			logger.Warn("search quota exhausted, aborting run", zap.Int("remaining", remaining))
			break
		}
	}
	r.finishHistory(ctx, runID, res.Stats)
	return res, nil
}

// processPost runs the per-post pipeline and returns the history outcome.
func (r *Runner) processPost(ctx context.Context, post *model.Post, opts Options, searchEnabled bool, res *Result) string {
	logger := logutil.GetLogger(ctx).With(zap.Int("post_id", post.ID))

	if r.cfg.SkipProcessed && r.deps.History != nil {
		done, err := r.deps.History.IsPostProcessed(ctx, post.ID)
		if err != nil {
			logger.Warn("history lookup failed", zap.Error(err))
		} else if done {
			res.Stats.Skipped++
			return history.OutcomeSkipped
		}
	}

	var mediaPath string
	if !r.deps.Board.Public() || r.deps.Classifier != nil {
		path, err := r.deps.Fetcher.Fetch(ctx, r.deps.Board.AbsoluteContentURL(post), opts.MediaPath)
		if err != nil {
			logger.Error("fetch media failed", zap.Error(err))
			res.Stats.Untagged++
			return history.OutcomeUntagged
		}
		mediaPath = path
		if opts.MediaPath == "" {
			defer func() {
				_ = r.deps.Fetcher.Cleanup(path)
			}()
		}
	}

	searchFound := false
	if searchEnabled {
		req := saucenao.SearchRequest{FilePath: mediaPath}
		if mediaPath == "" {
			req.URL = r.deps.Board.AbsoluteContentURL(post)
		}
		result, err := r.searchWithBackoff(ctx, req)
		if err != nil {
			logger.Error("reverse search failed", zap.Error(err))
		} else {
			if len(result.Tags) > 0 {
				post.AddTags(result.Tags...)
				searchFound = true
				if result.Safety != model.SafetyUnrated {
					post.Safety = result.Safety
				}
			}
			if len(result.Sources) > 0 {
				post.Source = result.Sources.Merge(post.Source...)
			}
			if result.LongRemaining == 0 {
				res.QuotaExhausted = true
			}
		}
	}

	classifierWanted := r.deps.Classifier != nil && (r.cfg.Forced || !searchFound)
	classifierFound := false
	if classifierWanted {
		tags, safety, err := r.deps.Classifier.TagImage(ctx, mediaPath, r.cfg.Threshold)
		if err != nil {
			logger.Error("classify media failed", zap.Error(err))
		} else {
			if len(post.Relations) > 0 {
				r.copyRelatedTags(ctx, post, logger)
			}
			if len(tags) > 0 {
				post.AddTags(tags...)
				classifierFound = true
				if safety != model.SafetyUnrated {
					post.Safety = safety
				}
			}
			post.Source = post.Source.Ensure(model.ClassifierSourceMarker)
		}
	}

	if searchFound || classifierFound {
		post.AddTags(opts.AddTags...)
		post.RemoveTags(opts.RemoveTags...)
		post.StripPlaceholders()
		if err := r.deps.Board.UpdatePost(ctx, post); err != nil {
			logger.Error("update post failed", zap.Error(err))
			res.Stats.Untagged++
			return history.OutcomeUntagged
		}
	}

	// The search and classifier lanes count separately, so a forced
	// classifier run can raise two counters for one post.
	outcome := history.OutcomeUntagged
	if searchFound {
		res.Stats.Tagged++
		outcome = history.OutcomeTagged
	}
	if classifierWanted {
		if classifierFound {
			res.Stats.TaggedClassifier++
			outcome = history.OutcomeTaggedClassifier
		} else {
			res.Stats.Untagged++
		}
	} else if !searchFound {
		res.Stats.Untagged++
	}
	return outcome
}

// runSankaku tags the single post named by query with tags scraped from a
// sankaku page, replacing whatever the post carried before.
func (r *Runner) runSankaku(ctx context.Context, opts Options, query string, runID string, res *Result) error {
	logger := logutil.GetLogger(ctx).With(zap.String("page", opts.SankakuURL))
	iter, total, err := r.deps.Board.ListPosts(ctx, query)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	res.Total = total
	post, ok, err := iter.Next(ctx)
	if err != nil {
		return fmt.Errorf("fetch post: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: no post matches %s", errs.ErrNotFound, query)
	}

	scraped, err := r.deps.Scraper.ScrapePost(ctx, opts.SankakuURL)
	if err != nil {
		logger.Error("scrape sankaku page failed", zap.Error(err))
		res.Stats.Untagged++
		r.recordHistory(ctx, runID, post.ID, history.OutcomeUntagged)
		return nil
	}

	post.Tags = nil
	post.AddTags(scraped.Tags...)
	if scraped.Safety != model.SafetyUnrated {
		post.Safety = scraped.Safety
	}
	post.Source = model.SourceList{opts.SankakuURL}
	if err := r.deps.Board.UpdatePost(ctx, post); err != nil {
		logger.Error("update post failed", zap.Error(err))
		res.Stats.Untagged++
		r.recordHistory(ctx, runID, post.ID, history.OutcomeUntagged)
		return nil
	}
	res.Stats.Tagged++
	r.recordHistory(ctx, runID, post.ID, history.OutcomeTagged)
	return nil
}

// searchWithBackoff retries a search that came back empty because the
// short-period quota hit zero. The long-period quota running out is not
// retried, the caller decides what to do with the run.
func (r *Runner) searchWithBackoff(ctx context.Context, req saucenao.SearchRequest) (*saucenao.Result, error) {
	for {
		result, err := r.deps.Searcher.Search(ctx, req)
		if err != nil {
			return nil, err
		}
		if result.ShortRemaining == 0 && result.LongRemaining != 0 {
			logutil.GetLogger(ctx).Warn("short search quota exhausted, backing off",
				zap.Duration("wait", shortQuotaBackoff))
			r.sleep(ctx, shortQuotaBackoff)
			if len(result.Tags) == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				continue
			}
		}
		return result, nil
	}
}

// copyRelatedTags pulls over tags from related posts, skipping the default
// and meta categories so only artist, character and series tags travel.
func (r *Runner) copyRelatedTags(ctx context.Context, post *model.Post, logger *zap.Logger) {
	for _, id := range post.Relations {
		related, err := r.deps.Board.GetPost(ctx, id)
		if err != nil {
			logger.Warn("fetch related post failed", zap.Int("related_id", id), zap.Error(err))
			continue
		}
		for _, tag := range related.Tags {
			if tag.Category == model.CategoryDefault || tag.Category == model.CategoryMeta {
				continue
			}
			post.AddTag(tag)
		}
	}
}

func (r *Runner) startHistory(ctx context.Context, mode string, query string) string {
	if r.deps.History == nil {
		return ""
	}
	id, err := r.deps.History.StartRun(ctx, mode, query)
	if err != nil {
		logutil.GetLogger(ctx).Warn("start history run failed", zap.Error(err))
		return ""
	}
	return id
}

func (r *Runner) recordHistory(ctx context.Context, runID string, postID int, outcome string) {
	if r.deps.History == nil || runID == "" {
		return
	}
	if err := r.deps.History.RecordPost(ctx, runID, postID, outcome); err != nil && !errs.IsConflict(err) {
		logutil.GetLogger(ctx).Warn("record post outcome failed", zap.Int("post_id", postID), zap.Error(err))
	}
}

func (r *Runner) finishHistory(ctx context.Context, runID string, stats model.Stats) {
	if r.deps.History == nil || runID == "" {
		return
	}
	if err := r.deps.History.FinishRun(ctx, runID, stats); err != nil {
		logutil.GetLogger(ctx).Warn("finish history run failed", zap.Error(err))
	}
}

// normalizeQuery validates the run options and rewrites a bare numeric query
// into an id: token.
func normalizeQuery(opts Options) (string, error) {
	if opts.Mode != ModeStandalone && opts.Mode != ModeFromUpload {
		return "", fmt.Errorf("%w: unknown mode %q", errs.ErrUsage, opts.Mode)
	}
	query := strings.TrimSpace(opts.Query)
	if query == "" {
		return "", fmt.Errorf("%w: query is required", errs.ErrUsage)
	}
	if strings.Contains(query, "type:") {
		return "", fmt.Errorf("%w: type: tokens are not allowed in the query", errs.ErrUsage)
	}
	if opts.SankakuURL != "" && !isNumeric(query) {
		return "", fmt.Errorf("%w: sankaku tagging needs a single post id as query", errs.ErrUsage)
	}
	if isNumeric(query) {
		query = "id:" + query
	}
	return query, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
