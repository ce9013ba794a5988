package observability

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-checkout/internal/infrastructure/observability/prometrics"
	obs "github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
)

func TestNewFallsBackToNop(t *testing.T) {
	o := New(nil, nil, nil, nil)

	assert.NotNil(t, o.Tracer())
	assert.NotNil(t, o.Logger())
	assert.NotPanics(t, func() {
		o.Metrics().Counter(obs.MUsecaseRequests).Add(1)
		o.Metrics().Histogram(obs.MUsecaseDuration).Bind().Observe(1)
	})
}

func TestNewResolvesRegisteredInstruments(t *testing.T) {
	counters, histograms := prometrics.Instruments(prometrics.New("", "", prometheus.NewRegistry()))
	o := New(nil, nil, counters, histograms)

	assert.Same(t, counters[obs.MHTTPRequests], o.Metrics().Counter(obs.MHTTPRequests))
	assert.Equal(t, obs.NopCounter(), o.Metrics().Counter("unknown_total"))
}
