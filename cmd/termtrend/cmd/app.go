package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/api"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/dictionary"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/exporter"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/feed"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/post"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/store/csvstore"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/store/redisstore"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/internal/store/sqlstore"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Term-Trend-Analytics/pkg/resilience"
)

// app holds every component built from one Config.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	archive  post.Store
	sql      *sqlstore.Store
	ranks    *csvstore.RankDir
	cache    *redisstore.RankCache
	exporter *exporter.Sequencer
	pipeline *pipeline.Pipeline
	checker  *health.Checker
	closers  []func() error
}

// buildOptions selects the optional parts of the app.
type buildOptions struct {
	// withSource builds the feed source; only the polling loop needs it.
	withSource bool
}

func newApp(ctx context.Context, cfg *config.Config, opts buildOptions) (_ *app, err error) {
	a := &app{
		cfg:     cfg,
		metrics: metrics.New(),
		checker: health.NewChecker(),
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	builder, allow, err := loadDictionaries(cfg)
	if err != nil {
		return nil, err
	}
	if err := a.openArchive(ctx); err != nil {
		return nil, err
	}
	a.ranks = csvstore.NewRankDir(cfg.Storage.RankDir)

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(ctx, cfg.Redis)
		switch {
		case err != nil && cfg.Storage.WatermarkBackend == config.BackendRedis:
			return nil, fmt.Errorf("redis holds the watermark: %w", err)
		case err != nil:
			slog.Warn("redis unavailable, rank caching disabled", "error", err)
			redisClient = nil
		default:
			a.closers = append(a.closers, redisClient.Close)
			a.cache = redisstore.NewRankCache(redisClient, cfg.Redis.CacheTTL)
			slog.Info("rank cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	if cfg.Redis.Enabled {
		a.checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: "unavailable at startup"}
			}
			return health.PingCheck(redisClient.Ping, health.StatusDegraded)(ctx)
		})
	}

	mode, err := exporter.ParseMode(cfg.Export.Mode)
	if err != nil {
		return nil, err
	}
	seqCfg := exporter.Config{
		Mode:       mode,
		Cumulative: cfg.Export.Cumulative,
		Window:     cfg.Export.Window,
		TopN:       cfg.Ranking.TopN,
		Builder:    builder,
		Allow:      allow,
		Ranks:      a.ranks,
		Observer:   a.metrics,
	}
	if cfg.Storage.WatermarkBackend == config.BackendRedis {
		seqCfg.Watermark = redisstore.NewWatermark(redisClient)
	} else {
		seqCfg.Watermark = csvstore.NewWatermarkFile(cfg.Storage.WatermarkFile)
	}
	if cfg.Kafka.Enabled && cfg.Kafka.Topics.RankEvents != "" {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RankEvents)
		a.closers = append(a.closers, producer.Close)
		seqCfg.Publisher = pipeline.NewKafkaPublisher(producer)
		slog.Info("publishing window rankings", "topic", cfg.Kafka.Topics.RankEvents)
	}
	if a.exporter, err = exporter.NewSequencer(seqCfg); err != nil {
		return nil, err
	}

	deps := pipeline.Deps{
		Community:  cfg.Feed.Community,
		Limit:      cfg.Feed.Limit,
		Archive:    a.archive,
		Exporter:   a.exporter,
		Ranks:      a.ranks,
		PruneAfter: time.Duration(cfg.Storage.PruneAfterDays) * 24 * time.Hour,
		Plot: pipeline.PlotConfig{
			Enabled: cfg.Plot.Enabled,
			Dir:     cfg.Plot.Dir,
			Width:   cfg.Plot.Width,
			Height:  cfg.Plot.Height,
		},
		Metrics: a.metrics,
	}
	if a.sql != nil {
		deps.Runs = a.sql
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	if opts.withSource {
		if deps.Source, err = a.newSource(); err != nil {
			return nil, err
		}
	}
	if a.pipeline, err = pipeline.New(deps); err != nil {
		return nil, err
	}
	return a, nil
}

func loadDictionaries(cfg *config.Config) (*index.Builder, dictionary.Set, error) {
	allow, err := dictionary.LoadFile(cfg.Dictionary.AllowFile, dictionary.Options{FirstColumn: cfg.Dictionary.FirstColumn})
	if err != nil {
		return nil, nil, fmt.Errorf("loading allow-list: %w", err)
	}
	deny, err := dictionary.LoadFile(cfg.Dictionary.DenyFile, dictionary.Options{})
	if err != nil {
		return nil, nil, fmt.Errorf("loading deny-list: %w", err)
	}
	slog.Info("dictionaries loaded", "allow", len(allow), "deny", len(deny))
	return index.NewBuilder(deny, cfg.Indexer.Markers), allow, nil
}

func (a *app) openArchive(ctx context.Context) error {
	cfg := a.cfg
	switch cfg.Storage.ArchiveBackend {
	case config.BackendSQLite:
		db, err := sqlstore.OpenSQLite(cfg.Storage.SQLitePath)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, db.Close)
		a.sql = sqlstore.New(db, sqlstore.SQLite)
	case config.BackendPostgres:
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		a.sql = sqlstore.New(pg.DB, sqlstore.Postgres)
	default:
		a.archive = csvstore.NewArchiveFile(cfg.Storage.ArchiveFile)
		slog.Info("archive opened", "backend", config.BackendCSV, "path", cfg.Storage.ArchiveFile)
		return nil
	}

	version, err := a.sql.Migrate()
	if err != nil {
		return err
	}
	a.archive = a.sql
	a.checker.Register("archive", health.PingCheck(a.sql.Ping, health.StatusDown))
	slog.Info("archive opened", "backend", cfg.Storage.ArchiveBackend, "schema_version", version)
	return nil
}

func (a *app) newSource() (feed.Source, error) {
	cfg := a.cfg
	if cfg.Feed.Source == config.SourceKafka {
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Posts)
		a.closers = append(a.closers, consumer.Close)
		slog.Info("reading posts from kafka", "topic", cfg.Kafka.Topics.Posts)
		return feed.NewKafkaSource(consumer, cfg.Feed.IdleTimeout), nil
	}

	creds, err := feed.LoadCredentials(cfg.Feed.CredentialsFile)
	if err != nil {
		return nil, err
	}
	breaker := resilience.NewCircuitBreaker("reddit", resilience.CircuitBreakerConfig{
		OnStateChange: func(name string, from, to resilience.State) {
			a.metrics.BreakerStateChanged(name, int(to))
		},
	})
	slog.Info("reading posts from reddit", "community", cfg.Feed.Community, "limit", cfg.Feed.Limit)
	return feed.NewReddit(creds, feed.RedditConfig{
		BaseURL:  cfg.Feed.BaseURL,
		TokenURL: cfg.Feed.TokenURL,
		Timeout:  cfg.Feed.Timeout,
		Policy: resilience.Policy{
			Name:    "reddit-fetch",
			Retry:   resilience.RetryConfig{MaxAttempts: cfg.Feed.MaxAttempts},
			Timeout: cfg.Feed.Timeout,
			Breaker: breaker,
		},
	}), nil
}

// apiHandler builds the read API over the app's stores.
func (a *app) apiHandler() *api.Handler {
	deps := api.Deps{
		Archive: a.archive,
		Ranker:  a.exporter,
		Series:  a.ranks,
		Metrics: a.metrics,
		TopN:    a.cfg.Ranking.TopN,
		Window:  a.cfg.Export.Window,
	}
	if a.cache != nil {
		deps.Cache = a.cache
	}
	if a.sql != nil {
		deps.Runs = a.sql
	}
	return api.New(deps)
}

// Close releases everything opened by newApp in reverse order.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
