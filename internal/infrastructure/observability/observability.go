// Package observability assembles the concrete provider from the zap, OpenTelemetry and
// Prometheus adapters in its subpackages.
package observability

import (
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
)

type provider struct {
	tracer     observability.Tracer
	logger     observability.Logger
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

// New builds the service Observability. Nil pieces, and metric keys that were never registered,
// resolve to no-op instruments so callers never check for nil.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &provider{
		tracer:     tracer,
		logger:     logger,
		counters:   compact(counters),
		histograms: compact(histograms),
	}
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p }

func (p *provider) Counter(name observability.MetricKey) observability.Counter {
	return lookup(p.counters, name, observability.NopCounter())
}

func (p *provider) Histogram(name observability.MetricKey) observability.Histogram {
	return lookup(p.histograms, name, observability.NopHistogram())
}

// compact copies m without nil entries.
func compact[V comparable](m map[observability.MetricKey]V) map[observability.MetricKey]V {
	var zero V
	out := make(map[observability.MetricKey]V, len(m))
	for k, v := range m {
		if v != zero {
			out[k] = v
		}
	}
	return out
}

func lookup[V any](m map[observability.MetricKey]V, name observability.MetricKey, fallback V) V {
	if v, ok := m[name]; ok {
		return v
	}
	return fallback
}
