package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/mirador-quality/internal/cache"
	"github.com/miradorstack/mirador-quality/internal/models"
)

// ClientConfig locates the quality-metrics API.
type ClientConfig struct {
	BaseURL      string
	MetricsPath  string
	HistoryPath  string
	FeedbackPath string
	PatternsPath string
	Timeout      time.Duration
}

// QualityClient reads dimension metrics and outcome feedback from the
// quality-metrics API and stores learned patterns back to it.
type QualityClient struct {
	logger       *slog.Logger
	baseURL      string
	metricsPath  string
	historyPath  string
	feedbackPath string
	patternsPath string
	httpClient   *http.Client
	cache        cache.Provider
	historyTTL   time.Duration
}

// NewQualityClient constructs a client. A nil cache disables caching of
// historical windows.
func NewQualityClient(logger *slog.Logger, cfg ClientConfig, cacheProvider cache.Provider, historyTTL time.Duration) *QualityClient {
	if logger == nil {
		logger = slog.Default()
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	return &QualityClient{
		logger:       logger,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		metricsPath:  cfg.MetricsPath,
		historyPath:  cfg.HistoryPath,
		feedbackPath: cfg.FeedbackPath,
		patternsPath: cfg.PatternsPath,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		cache:        cacheProvider,
		historyTTL:   historyTTL,
	}
}

// GetCurrentMetrics fetches the latest snapshot for one dimension.
func (c *QualityClient) GetCurrentMetrics(ctx context.Context, dimension models.Dimension) (models.DimensionMetrics, error) {
	payload := map[string]any{"dimension": dimension}

	var response struct {
		Metrics *models.DimensionMetrics `json:"metrics"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.metricsPath), payload, &response); err != nil {
		return models.DimensionMetrics{}, fmt.Errorf("current %s metrics: %w", dimension, err)
	}
	if response.Metrics == nil {
		return models.DimensionMetrics{}, fmt.Errorf("current %s metrics missing: %w", dimension, models.ErrDataUnavailable)
	}

	m := *response.Metrics
	if m.Dimension == "" {
		m.Dimension = dimension
	}
	return m, nil
}

// GetHistoricalMetrics fetches snapshots inside window, oldest first. Results
// are cached for the configured TTL.
func (c *QualityClient) GetHistoricalMetrics(ctx context.Context, dimension models.Dimension, window time.Duration) ([]models.DimensionMetrics, error) {
	key := fmt.Sprintf("quality:history:%s:%d", dimension, int64(window.Seconds()))

	var history []models.DimensionMetrics
	err := cache.GetJSON(ctx, c.cache, key, &history)
	if err == nil && len(history) > 0 {
		return history, nil
	}
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		c.logger.Warn("history cache read failed", slog.String("key", key), slog.Any("error", err))
	}

	payload := map[string]any{
		"dimension":      dimension,
		"window_seconds": int64(window.Seconds()),
	}
	var response struct {
		History []models.DimensionMetrics `json:"history"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.historyPath), payload, &response); err != nil {
		return nil, fmt.Errorf("%s history: %w", dimension, err)
	}
	if len(response.History) == 0 {
		return nil, fmt.Errorf("%s history empty: %w", dimension, models.ErrDataUnavailable)
	}

	if c.historyTTL > 0 {
		if err := cache.SetJSON(ctx, c.cache, key, response.History, c.historyTTL); err != nil {
			c.logger.Warn("history cache write failed", slog.String("key", key), slog.Any("error", err))
		}
	}
	return response.History, nil
}

// CollectFeedback returns outcome feedback recorded within window. An empty
// list is a valid answer.
func (c *QualityClient) CollectFeedback(ctx context.Context, window time.Duration) ([]models.Feedback, error) {
	payload := map[string]any{"window_seconds": int64(window.Seconds())}

	var response struct {
		Feedback []models.Feedback `json:"feedback"`
	}
	if err := c.postJSON(ctx, c.resolvePath(c.feedbackPath), payload, &response); err != nil {
		return nil, fmt.Errorf("collect feedback: %w", err)
	}
	return response.Feedback, nil
}

// StorePatterns persists learned patterns.
func (c *QualityClient) StorePatterns(ctx context.Context, patterns []models.LearnedPattern) error {
	if len(patterns) == 0 {
		return nil
	}
	payload := map[string]any{"patterns": patterns}
	if err := c.postJSON(ctx, c.resolvePath(c.patternsPath), payload, nil); err != nil {
		return fmt.Errorf("store patterns: %w", err)
	}
	return nil
}

func (c *QualityClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

// postJSON maps unreachable upstreams and missing resources to
// models.ErrDataUnavailable.
func (c *QualityClient) postJSON(ctx context.Context, endpoint string, payload any, out any) error {
	if endpoint == "" {
		return fmt.Errorf("quality API base URL not configured: %w", models.ErrConfiguration)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%v: %w", err, models.ErrDataUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable:
		return fmt.Errorf("quality API returned %s: %w", resp.Status, models.ErrDataUnavailable)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("quality API returned %s", resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
