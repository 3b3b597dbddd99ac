package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// MetricsReporter periodically logs a counters snapshot. It stands in
// for an external metrics pipeline.
type MetricsReporter struct {
	metrics  *observability.Metrics
	logger   *zap.Logger
	interval time.Duration
}

// NewMetricsReporter constructs the reporter.
func NewMetricsReporter(metrics *observability.Metrics, logger *zap.Logger, interval time.Duration) *MetricsReporter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &MetricsReporter{metrics: metrics, logger: logger, interval: interval}
}

// Run blocks until ctx is cancelled.
func (w *MetricsReporter) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *MetricsReporter) report() {
	requests, errs := w.metrics.Snapshot()
	var totalRequests, totalErrors int64
	for _, v := range requests {
		totalRequests += v
	}
	for _, v := range errs {
		totalErrors += v
	}
	w.logger.Info("metrics snapshot",
		zap.Int64("requests_total", totalRequests),
		zap.Int64("errors_total", totalErrors),
		zap.Int("request_series", len(requests)),
		zap.Int("error_series", len(errs)))
}
