package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/miradorstack/mirador-quality/internal/analysis"
	"github.com/miradorstack/mirador-quality/internal/cache"
	"github.com/miradorstack/mirador-quality/internal/config"
	"github.com/miradorstack/mirador-quality/internal/decision"
	"github.com/miradorstack/mirador-quality/internal/engine"
	"github.com/miradorstack/mirador-quality/internal/forecast"
	"github.com/miradorstack/mirador-quality/internal/learning"
	"github.com/miradorstack/mirador-quality/internal/notify"
	"github.com/miradorstack/mirador-quality/internal/remediation"
	"github.com/miradorstack/mirador-quality/internal/repo"
)

// qualitySource is what both repo adapters provide.
type qualitySource interface {
	analysis.MetricSource
	engine.FeedbackSource
	learning.Store
}

// deps bundles the components built from configuration.
type deps struct {
	cache      cache.Provider
	source     qualitySource
	remediator *remediation.Orchestrator
	components engine.Components
	options    engine.Options
}

func (r *deps) Close() error {
	return r.cache.Close()
}

func newCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) cache.Provider {
	switch cfg.Mode {
	case "redis":
		provider, err := cache.NewRedisProvider(ctx, cache.RedisConfig{
			URL:          cfg.URL,
			Addr:         cfg.Addr,
			Username:     cfg.Username,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			MaxRetries:   cfg.MaxRetries,
			TLS:          cfg.TLS,
		})
		if err != nil {
			logger.Warn("redis cache unavailable, falling back to memory", slog.Any("error", err))
			return cache.NewMemoryProvider()
		}
		return provider
	case "memory":
		return cache.NewMemoryProvider()
	default:
		return cache.NoopProvider{}
	}
}

func newSource(cfg *config.Config, cacheProvider cache.Provider, logger *slog.Logger) (qualitySource, error) {
	if cfg.Source.SnapshotPath != "" {
		src, err := repo.LoadSnapshot(cfg.Source.SnapshotPath)
		if err != nil {
			return nil, err
		}
		logger.Info("using snapshot source", slog.String("path", cfg.Source.SnapshotPath))
		return src, nil
	}
	return repo.NewQualityClient(logger, repo.ClientConfig{
		BaseURL:      cfg.Source.BaseURL,
		MetricsPath:  cfg.Source.MetricsPath,
		HistoryPath:  cfg.Source.HistoryPath,
		FeedbackPath: cfg.Source.FeedbackPath,
		PatternsPath: cfg.Source.PatternsPath,
		Timeout:      cfg.Source.Timeout,
	}, cacheProvider, cfg.Cache.HistoryTTL), nil
}

func newRemediator(cfg *config.Config, logger *slog.Logger) (*remediation.Orchestrator, error) {
	rules, err := remediation.LoadRuleTable(cfg.Rules.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("load rule table: %w", err)
	}
	vopts := remediation.DefaultValidateOptions()
	vopts.AvailableResources = cfg.Orchestrator.Remediation.AvailableResources
	vopts.Constraints = cfg.Orchestrator.Remediation.Constraints
	return remediation.NewOrchestrator(logger, rules, vopts), nil
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		Interval:   cfg.Orchestrator.Interval,
		Dimensions: cfg.DimensionList(),
		Thresholds: engine.Thresholds{
			Critical: cfg.Thresholds.Critical,
			High:     cfg.Thresholds.High,
			Medium:   cfg.Thresholds.Medium,
		},
		AutoRemediation:    cfg.Orchestrator.AutoRemediation,
		LearningEnabled:    cfg.Orchestrator.Learning,
		FeedbackWindow:     cfg.Orchestrator.FeedbackWindow,
		MaxAlerts:          cfg.Orchestrator.MaxAlerts,
		MaxActions:         cfg.Orchestrator.MaxActions,
		RemediationContext: cfg.Orchestrator.Remediation,
	}
}

func buildRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*deps, error) {
	cacheProvider := newCache(ctx, cfg.Cache, logger)

	source, err := newSource(cfg, cacheProvider, logger)
	if err != nil {
		_ = cacheProvider.Close()
		return nil, err
	}
	remediator, err := newRemediator(cfg, logger)
	if err != nil {
		_ = cacheProvider.Close()
		return nil, err
	}

	sinks := []notify.AlertSink{notify.NewLogSink(logger)}
	if cfg.Alerts.WebhookURL != "" {
		sinks = append(sinks, notify.NewWebhookSink(cfg.Alerts.WebhookURL, nil))
	}

	seed := uint64(time.Now().UnixNano())
	comps := engine.Components{
		Analyzer: analysis.NewAnalyzer(logger, source, rand.New(rand.NewPCG(seed, seed>>1)), analysis.Options{
			HistoryWindow: cfg.Orchestrator.HistoryWindow,
			HorizonDays:   cfg.Orchestrator.HorizonDays,
		}),
		Forecaster: forecast.NewForecaster(logger),
		Decisions:  decision.NewEngine(logger),
		Remediator: remediator,
		Learner:    learning.NewLoop(logger, source, learning.Options{Window: cfg.Orchestrator.FeedbackWindow}),
		Feedback:   source,
		Notifier:   notify.NewDispatcher(logger, cfg.Alerts.RatePerMinute, cfg.Alerts.Burst, sinks...),
	}

	return &deps{
		cache:      cacheProvider,
		source:     source,
		remediator: remediator,
		components: comps,
		options:    engineOptions(cfg),
	}, nil
}
