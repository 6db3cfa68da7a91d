package resolver

import (
	"log/slog"
	"sync/atomic"

	"debtgraph/internal/engine/registry"
	"debtgraph/internal/shared/observability"

	"golang.org/x/time/rate"
)

// DropLog reports dropped calls at debug level without flooding the log on
// large crates. It is safe for concurrent use by resolver workers.
type DropLog struct {
	logger     *slog.Logger
	limiter    *rate.Limiter
	enabled    bool
	suppressed atomic.Int64
}

// NewDropLog logs at most perSecond drops per second with the given burst.
// A nil logger uses slog.Default. When enabled is false only metrics are kept.
func NewDropLog(logger *slog.Logger, enabled bool, perSecond float64, burst int) *DropLog {
	if logger == nil {
		logger = slog.Default()
	}
	if burst <= 0 {
		burst = 1
	}
	return &DropLog{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
		enabled: enabled,
	}
}

func (d *DropLog) Log(call registry.UnresolvedCall, reason DropReason) {
	observability.DroppedCallsTotal.WithLabelValues(string(reason)).Inc()
	if d == nil || !d.enabled {
		return
	}
	if !d.limiter.Allow() {
		d.suppressed.Add(1)
		return
	}
	d.logger.Debug("dropped call",
		"caller", call.Caller.String(),
		"callee", call.Callee,
		"kind", string(call.Kind),
		"line", call.Location.Line,
		"reason", string(reason),
	)
}

// Suppressed is the number of drops the limiter kept out of the log.
func (d *DropLog) Suppressed() int64 {
	if d == nil {
		return 0
	}
	return d.suppressed.Load()
}
