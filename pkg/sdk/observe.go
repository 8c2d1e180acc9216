package livetable

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics are the collectors a Client reports to when WithPrometheus is set.
type sdkMetrics struct {
	// calls counts Client and View calls. Writes end "ok" or "error"; evaluations end in
	// the status of the state they return.
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	// openViews is the number of views opened and not yet closed.
	openViews prometheus.Gauge
	// viewStates counts states committed by open views, by status.
	viewStates *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livetable",
			Subsystem: "sdk",
			Name:      "calls_total",
			Help:      "SDK calls by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "livetable",
			Subsystem: "sdk",
			Name:      "call_duration_seconds",
			Help:      "SDK call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		openViews: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "livetable",
			Subsystem: "sdk",
			Name:      "open_views",
			Help:      "Views opened through the SDK and not yet closed.",
		}),
		viewStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "livetable",
			Subsystem: "sdk",
			Name:      "view_states_total",
			Help:      "States committed by SDK views, by status.",
		}, []string{"status"}),
	}
	if err := registerOrReuse(reg, &m.calls); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.openViews); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.viewStates); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses the one a previous Client registered.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("livetable: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("livetable: register metric: %w", err)
	}
	return nil
}

// observer logs and measures SDK calls and the lifecycle of the views they open.
// A nil observer, logger or metrics set is a no-op.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

// call records a write or lifecycle call. Context cancellation ends a call normally.
func (o *observer) call(op string, start time.Time, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		status = "error"
	}
	o.record(op, status, start, err)
}

// evaluation records a call that produced st.
func (o *observer) evaluation(op string, start time.Time, st State) {
	var err error
	if st.Status() == StatusError {
		err = errors.New(st.Error())
	}
	o.record(op, string(st.Status()), start, err)
}

func (o *observer) record(op, status string, start time.Time, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		o.metrics.calls.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
	}

	if o.logger == nil {
		return
	}
	if status == "error" {
		o.logger.Warn("livetable call failed", "op", op, "duration", dur, "error", err)
		return
	}
	o.logger.Debug("livetable call completed", "op", op, "status", status, "duration", dur)
}

// viewOpened counts an open view and returns the listener for its committed states.
func (o *observer) viewOpened(id string) func(State) {
	if o == nil {
		return func(State) {}
	}
	if o.metrics != nil {
		o.metrics.openViews.Inc()
	}
	if o.logger != nil {
		o.logger.Debug("view opened", "view", id)
	}
	return func(st State) {
		if o.metrics != nil {
			o.metrics.viewStates.WithLabelValues(string(st.Status())).Inc()
		}
		if o.logger != nil && st.Status() == StatusError {
			o.logger.Warn("view evaluation failed", "view", id, "version", st.Version(), "error", st.Error())
		}
	}
}

func (o *observer) viewClosed(id string) {
	if o == nil {
		return
	}
	if o.metrics != nil {
		o.metrics.openViews.Dec()
	}
	if o.logger != nil {
		o.logger.Debug("view closed", "view", id)
	}
}
