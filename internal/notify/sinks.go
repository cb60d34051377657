package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/miradorstack/mirador-quality/internal/models"
)

// LogSink writes alerts to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that logs alerts.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, alert models.Alert) error {
	level := slog.LevelInfo
	switch alert.Level {
	case models.SeverityCritical:
		level = slog.LevelError
	case models.SeverityHigh:
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, alert.Message,
		slog.String("alert_id", alert.ID),
		slog.String("level", string(alert.Level)),
		slog.String("component", alert.Component),
		slog.Time("timestamp", alert.Timestamp),
	)
	return nil
}

// WebhookSink POSTs alerts as JSON to an HTTP endpoint.
type WebhookSink struct {
	url        string
	httpClient *http.Client
}

// NewWebhookSink builds a webhook sink. A nil client gets a 5s timeout.
func NewWebhookSink(url string, httpClient *http.Client) *WebhookSink {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookSink{url: url, httpClient: httpClient}
}

func (s *WebhookSink) Name() string { return "webhook" }

func (s *WebhookSink) Send(ctx context.Context, alert models.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode alert: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
