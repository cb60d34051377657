package notify

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/miradorstack/mirador-quality/internal/metrics"
	"github.com/miradorstack/mirador-quality/internal/models"
)

// AlertSink delivers an alert to one destination.
type AlertSink interface {
	Name() string
	Send(ctx context.Context, alert models.Alert) error
}

// Dispatcher fans alerts out to sinks under a shared token bucket. Critical
// alerts bypass the bucket.
type Dispatcher struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	sinks      []AlertSink
	suppressed atomic.Int64
}

// NewDispatcher builds a dispatcher allowing ratePerMinute alerts with the
// given burst. A non-positive rate disables limiting.
func NewDispatcher(logger *slog.Logger, ratePerMinute float64, burst int, sinks ...AlertSink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Limit(ratePerMinute / 60)
	}
	if burst < 1 {
		burst = 1
	}
	return &Dispatcher{
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
		sinks:   sinks,
	}
}

// Dispatch sends alert to every sink. It reports false when the alert was
// rate limited or no sink accepted it.
func (d *Dispatcher) Dispatch(ctx context.Context, alert models.Alert) bool {
	if alert.Level != models.SeverityCritical && !d.limiter.Allow() {
		d.suppressed.Add(1)
		metrics.ObserveSuppressedAlert()
		d.logger.Debug("alert notification suppressed",
			slog.String("alert_id", alert.ID),
			slog.String("component", alert.Component),
		)
		return false
	}

	delivered := false
	for _, sink := range d.sinks {
		if err := sink.Send(ctx, alert); err != nil {
			d.logger.Warn("alert sink failed",
				slog.String("sink", sink.Name()),
				slog.String("alert_id", alert.ID),
				slog.Any("error", err),
			)
			continue
		}
		delivered = true
	}
	return delivered
}

// Suppressed returns how many notifications the rate limit has dropped.
func (d *Dispatcher) Suppressed() int64 {
	return d.suppressed.Load()
}
