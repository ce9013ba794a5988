package httppresentation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	appcart "github.com/Zhima-Mochi/minishop-checkout/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/minishop-checkout/internal/application/catalog"
	"github.com/Zhima-Mochi/minishop-checkout/internal/application/checkout"
	apporder "github.com/Zhima-Mochi/minishop-checkout/internal/application/order"
	apppayment "github.com/Zhima-Mochi/minishop-checkout/internal/application/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	tracerName           = "minishop.checkout.http"
	maxBodyBytes         = 1 << 20
)

// Services are the use cases exposed over HTTP.
type Services struct {
	Checkout *checkout.UseCase
	Payments *apppayment.Service
	Orders   *apporder.Service
	Carts    *appcart.Service
	Catalog  *appcatalog.Service
}

type Options struct {
	// DemoBuyerID is used by the demo checkout when the caller sends no identity.
	DemoBuyerID string
	// Ready reports storage health for /health; nil means always ready.
	Ready func(ctx context.Context) error
}

type Handler struct {
	svc  Services
	opts Options
	log  observability.Logger
	tel  observability.Observability

	reqCounter   observability.Counter   // http_requests_total{method,route,status}
	durHistogram observability.Histogram // http_request_duration_seconds{method,route,status}
}

func NewHandler(svc Services, opts Options, logger observability.Logger, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	if logger == nil {
		logger = tel.Logger()
	}
	return &Handler{
		svc:          svc,
		opts:         opts,
		log:          logger.With(observability.F("component", componentHTTPHandler)),
		tel:          tel,
		reqCounter:   tel.Metrics().Counter(observability.MHTTPRequests),
		durHistogram: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

// Router builds the chi router. Callers may mount extra endpoints such as /metrics on it.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorTag(w, http.StatusNotFound, "NOT_FOUND", "route not found")
	})

	h.handle(r, http.MethodGet, "/health", accessPublic, h.handleHealth)

	h.handle(r, http.MethodPost, "/api/orders/checkout", accessBuyer, h.handleCheckout)
	h.handle(r, http.MethodPost, "/api/demo/checkout", accessPublic, h.handleDemoCheckout)
	h.handle(r, http.MethodGet, "/api/orders/my", accessBuyer, h.handleMyOrders)
	h.handle(r, http.MethodGet, "/api/orders/{orderId}", accessBuyer, h.handleGetOrder)
	h.handle(r, http.MethodGet, "/api/orders", accessAdmin, h.handleAllOrders)
	h.handle(r, http.MethodPut, "/api/orders/{orderId}/status", accessAdmin, h.handleShipmentStatus)

	h.handle(r, http.MethodPost, "/api/payments", accessBuyer, h.handleInitiatePayment)
	h.handle(r, http.MethodPost, "/api/payments/verify", accessBuyer, h.handleVerifyPayment)
	h.handle(r, http.MethodGet, "/api/payments/status/{orderId}", accessBuyer, h.handlePaymentStatus)
	h.handle(r, http.MethodGet, "/api/payments/config", accessPublic, h.handlePaymentConfig)

	h.handle(r, http.MethodGet, "/api/cart", accessBuyer, h.handleGetCart)
	h.handle(r, http.MethodPost, "/api/cart/items", accessBuyer, h.handleAddCartItem)
	h.handle(r, http.MethodDelete, "/api/cart/items/{productId}", accessBuyer, h.handleRemoveCartItem)
	h.handle(r, http.MethodDelete, "/api/cart", accessBuyer, h.handleClearCart)

	h.handle(r, http.MethodGet, "/api/products", accessPublic, h.handleListProducts)
	h.handle(r, http.MethodGet, "/api/products/{productId}", accessPublic, h.handleGetProduct)
	h.handle(r, http.MethodPost, "/api/products", accessAdmin, h.handleCreateProduct)
	h.handle(r, http.MethodPut, "/api/products/{productId}", accessAdmin, h.handleUpdateProduct)
	h.handle(r, http.MethodDelete, "/api/products/{productId}", accessAdmin, h.handleDeleteProduct)

	return r
}

// handle wires a route as Trace → request logger → access log → metrics → identity → handler.
func (h *Handler) handle(r chi.Router, method, route string, level access, fn http.HandlerFunc) {
	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string { return r.Header.Get(headerRequestID) },
			func(r *http.Request) string { return r.Header.Get(headerBuyerID) },
			h.tel,
		)(
			h.withAccessLog(
				h.withHTTPMetrics(withIdentity(level, fn)),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.opts.Ready != nil {
		if err := h.opts.Ready(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// withAccessLog writes a single access log after the handler completes.
// It relies on the request-scoped logger already injected by ObservabilityMiddleware.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeFromContext(r.Context())),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// withTrace creates a server span for the request using OTel and W3C propagation.
func (h *Handler) withTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tracer := otel.Tracer(tracerName)
		parentCtx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		route := routeFromContext(parentCtx)
		if route == "unknown" {
			route = r.URL.Path
		}

		ctx, span := tracer.Start(parentCtx,
			r.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.target", r.URL.Path),
				attribute.String("http.user_agent", r.UserAgent()),
			),
		)
		defer span.End()

		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r.WithContext(ctx))

		span.SetAttributes(attribute.Int("http.status_code", lrw.status))
		if lrw.status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(lrw.status))
		}
	})
}

// withHTTPMetrics records RED metrics on the instruments resolved once in NewHandler.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeFromContext(r.Context())),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		h.reqCounter.Add(1, labels...)
		h.durHistogram.Observe(time.Since(start).Seconds(), labels...)
	})
}

// decodeJSON rejects unknown fields. An empty body decodes to the zero value when optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if optional && err == io.EOF {
			return nil
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

type routeKey struct{}

// contextWithRoute stores the stable route template in the context so downstream
// metrics/logging can rely on low-cardinality values.
func contextWithRoute(ctx context.Context, route string) context.Context {
	if route == "" {
		return ctx
	}
	return context.WithValue(ctx, routeKey{}, route)
}

func routeFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	if route, ok := ctx.Value(routeKey{}).(string); ok && route != "" {
		return route
	}
	return "unknown"
}
