package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/szurutag/internal/classify"
	"github.com/xxxsen/szurutag/internal/config"
	"github.com/xxxsen/szurutag/internal/handler"
	"github.com/xxxsen/szurutag/internal/history"
	"github.com/xxxsen/szurutag/internal/job"
	"github.com/xxxsen/szurutag/internal/media"
	"github.com/xxxsen/szurutag/internal/middleware"
	"github.com/xxxsen/szurutag/internal/model"
	errs "github.com/xxxsen/szurutag/internal/pkg/errors"
	"github.com/xxxsen/szurutag/internal/saucenao"
	"github.com/xxxsen/szurutag/internal/schedule"
	"github.com/xxxsen/szurutag/internal/scrape"
	"github.com/xxxsen/szurutag/internal/szuru"
	"github.com/xxxsen/szurutag/internal/tagger"
)

func main() {
	var (
		configPath string
		addTags    string
		removeTags string
		sankakuURL string
	)

	rootCmd := &cobra.Command{
		Use:   "szurutag",
		Short: "auto tagger for szurubooru boards",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	tagCmd := &cobra.Command{
		Use:   "tag <query>",
		Short: "tag every post matching a szurubooru query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			opts := tagger.Options{
				Mode:       tagger.ModeStandalone,
				Query:      strings.Join(args, " "),
				SankakuURL: sankakuURL,
				AddTags:    splitTags(addTags),
				RemoveTags: splitTags(removeTags),
			}
			return runTag(cfg, opts)
		},
	}
	tagCmd.Flags().StringVar(&addTags, "add-tags", "", "comma separated tags added to every patched post")
	tagCmd.Flags().StringVar(&removeTags, "remove-tags", "", "comma separated tags stripped from every patched post")
	tagCmd.Flags().StringVar(&sankakuURL, "sankaku_url", "", "tag a single post from this sankaku page instead of searching")
	rootCmd.AddCommand(tagCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve the upload webhook and stats api",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}
	rootCmd.AddCommand(serveCmd)

	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "periodically tag the configured query on a cron schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runDaemon(cfg)
		},
	}
	rootCmd.AddCommand(daemonCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Error("command failed", zap.Error(err))
		if errs.IsUsage(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func setup(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("%w: --config is required", errs.ErrUsage)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

type appDeps struct {
	tag     tagger.Deps
	history *history.Store
	closers []func()
}

func (d *appDeps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(cfg *config.Config) (*appDeps, error) {
	client, err := szuru.New(cfg.Szurubooru)
	if err != nil {
		return nil, fmt.Errorf("init board client: %w", err)
	}
	deps := &appDeps{
		tag: tagger.Deps{
			Board:   tagger.NewBoardSource(client),
			Scraper: scrape.NewSankaku(),
			Fetcher: media.NewFetcher(cfg.AutoTagger.TmpPath),
		},
	}
	if cfg.AutoTagger.SauceNao.Enabled {
		deps.tag.Searcher = saucenao.New(cfg.AutoTagger.SauceNao)
	}
	if cfg.AutoTagger.Tagger.Enabled {
		provider, err := classify.New(cfg.AutoTagger.Tagger.Provider, cfg.AutoTagger.Tagger.Data)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("init tagger provider: %w", err)
		}
		deps.tag.Classifier = provider
		deps.closers = append(deps.closers, func() {
			_ = provider.Close()
		})
	}
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			deps.close()
			return nil, fmt.Errorf("open history store: %w", err)
		}
		deps.history = store
		deps.tag.History = store
		deps.closers = append(deps.closers, func() {
			_ = store.Close()
		})
	}
	return deps, nil
}

func runnerConfig(cfg *config.Config) tagger.Config {
	return tagger.Config{
		Forced:        cfg.AutoTagger.Tagger.Forced,
		Threshold:     cfg.AutoTagger.Tagger.Threshold,
		HideProgress:  cfg.AutoTagger.HideProgress,
		SkipProcessed: cfg.AutoTagger.SkipProcessed,
	}
}

func runTag(cfg *config.Config, opts tagger.Options) error {
	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := tagger.NewRunner(deps.tag, runnerConfig(cfg)).Run(ctx, opts)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("tagging finished",
		zap.Int("total", res.Total),
		zap.Int("tagged", res.Stats.Tagged),
		zap.Int("tagged_classifier", res.Stats.TaggedClassifier),
		zap.Int("untagged", res.Stats.Untagged),
		zap.Int("skipped", res.Stats.Skipped))
	return nil
}

func runServe(cfg *config.Config) error {
	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	stats := &model.AtomicStats{}
	autoJob := job.NewAutoTagJob(deps.tag, runnerConfig(cfg), cfg.Daemon.Query, stats)
	routerDeps := handler.RouterDeps{
		Webhook: handler.NewWebhookHandler(autoJob),
		Stats:   handler.NewStatsHandler(stats, deps.history),
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Serve.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, routerDeps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(nil),
			gzip.Gzip(gzip.DefaultCompression),
			middleware.RateLimit(time.Duration(cfg.Serve.RateLimitMS)*time.Millisecond),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}
	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runDaemon(cfg *config.Config) error {
	deps, err := buildDeps(cfg)
	if err != nil {
		return err
	}
	defer deps.close()

	stats := &model.AtomicStats{}
	autoJob := job.NewAutoTagJob(deps.tag, runnerConfig(cfg), cfg.Daemon.Query, stats)
	sched := schedule.NewCronScheduler()
	if err := sched.AddJob(autoJob, cfg.Daemon.Schedule); err != nil {
		return fmt.Errorf("schedule auto tag job: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched.Start(ctx)
	logutil.GetLogger(ctx).Info("daemon started",
		zap.String("schedule", cfg.Daemon.Schedule),
		zap.String("query", cfg.Daemon.Query))

	<-ctx.Done()
	sched.Stop()
	logutil.GetLogger(context.Background()).Info("daemon stopping...")
	return nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
