package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"colonybot/pkg/domain"
)

// PrometheusMetricsRecorder exports registry metrics as Prometheus collectors.
type PrometheusMetricsRecorder struct {
	entities  *prometheus.CounterVec
	durations *prometheus.HistogramVec
	cached    *prometheus.GaugeVec
}

// NewPrometheusMetricsRecorder registers the registry collectors with reg.
// Collectors that are already registered are reused.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	entities := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "colonybot",
		Name:      "entities_total",
		Help:      "Entity cache changes by kind and change type.",
	}, []string{"kind", "change"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "colonybot",
		Name:      "operation_duration_seconds",
		Help:      "Duration of registry operations.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"operation", "status"})
	cached := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "colonybot",
		Name:      "cached_entities",
		Help:      "Entities currently held by the cache.",
	}, []string{"kind"})

	var err error
	if entities, err = registerOrReuse(reg, entities); err != nil {
		return nil, err
	}
	if durations, err = registerOrReuse(reg, durations); err != nil {
		return nil, err
	}
	if cached, err = registerOrReuse(reg, cached); err != nil {
		return nil, err
	}
	return &PrometheusMetricsRecorder{entities: entities, durations: durations, cached: cached}, nil
}

func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// Observe records the duration of a registry operation.
func (p *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	p.durations.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordRefresh adds the churn of one refresh and updates the cache gauges.
func (p *PrometheusMetricsRecorder) RecordRefresh(_ context.Context, stats RefreshStats) {
	p.addChurn(domain.KindUnit, stats.Units)
	p.addChurn(domain.KindStructure, stats.Structures)
	p.entities.WithLabelValues(string(domain.KindGroup), "created").Add(float64(stats.GroupsCreated))
	p.cached.WithLabelValues(string(domain.KindUnit)).Set(float64(stats.CachedUnits))
	p.cached.WithLabelValues(string(domain.KindStructure)).Set(float64(stats.CachedStructs))
	p.cached.WithLabelValues(string(domain.KindGroup)).Set(float64(stats.CachedGroups))
}

func (p *PrometheusMetricsRecorder) addChurn(kind domain.Kind, s KindStats) {
	p.entities.WithLabelValues(string(kind), "created").Add(float64(s.Created))
	p.entities.WithLabelValues(string(kind), "updated").Add(float64(s.Updated))
	p.entities.WithLabelValues(string(kind), "evicted").Add(float64(s.Evicted))
	p.entities.WithLabelValues(string(kind), "skipped").Add(float64(s.Skipped))
}
