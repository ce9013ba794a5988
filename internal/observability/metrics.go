package observability

// MetricKey names a registered instrument. Label sets are fixed per key.
type MetricKey string

const (
	// {use_case, outcome}
	MUsecaseRequests MetricKey = "usecase_requests_total"
	// {use_case}
	MUsecaseDuration MetricKey = "usecase_duration_seconds"

	// {method, route, status}
	MHTTPRequests        MetricKey = "http_requests_total"
	MHTTPRequestDuration MetricKey = "http_request_duration_seconds"

	// Payment gateway, event bus and Kafka calls: {peer, endpoint, outcome} / {peer, endpoint}.
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"

	// Product list cache: {op, result}
	MCacheRequests MetricKey = "cache_requests_total"

	// Bus subscribers: {event, handler, outcome}
	MEventHandled MetricKey = "event_handled_total"
)

// Counter adds to a counter vector.
type Counter interface {
	Add(delta float64, labels ...Label)
	Bind(labels ...Label) BoundCounter
}

type BoundCounter interface {
	Add(delta float64)
}

type Histogram interface {
	Observe(value float64, labels ...Label)
	Bind(labels ...Label) BoundHistogram
}

type BoundHistogram interface {
	Observe(value float64)
}

type Metrics interface {
	Counter(name MetricKey) Counter
	Histogram(name MetricKey) Histogram
}

type Label struct{ Key, Value string }

func L(k, v string) Label { return Label{Key: k, Value: v} }
