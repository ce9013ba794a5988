// Package gateway talks to a Razorpay-compatible payment provider: it opens remote orders over HTTP
// and verifies the HMAC signature the provider hands the buyer after payment.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability/logctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	peerName         = "payment_gateway"
	endpointCreate   = "create_order"
	createOrderPath  = "/v1/orders"
	maxErrorBodySize = 4 << 10
)

var hundred = decimal.NewFromInt(100)

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  observability.Logger

	extCounter   observability.Counter
	extHistogram observability.Histogram
}

// New builds a client whose transport is traced with otelhttp. Calls are single-shot: no retries.
func New(cfg Config, tel observability.Observability) (*Client, error) {
	if cfg.BaseURL == "" || cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("gateway: base url, key id and key secret are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if tel == nil {
		tel = observability.Nop()
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log:          tel.Logger().With(observability.F("component", peerName)),
		extCounter:   tel.Metrics().Counter(observability.MExternalRequests),
		extHistogram: tel.Metrics().Histogram(observability.MExternalRequestDuration),
	}, nil
}

type createOrderRequest struct {
	Amount         int64          `json:"amount"`
	Currency       string         `json:"currency"`
	Receipt        string         `json:"receipt"`
	PaymentCapture int            `json:"payment_capture"`
	Notes          map[string]any `json:"notes,omitempty"`
}

type createOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// MinorUnits converts a major-unit amount to the provider's integer minor units.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func (c *Client) CreateOrder(ctx context.Context, req payment.GatewayOrderRequest) (ref string, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.extCounter.Add(1,
			observability.L("peer", peerName),
			observability.L("endpoint", endpointCreate),
			observability.L("outcome", outcome),
		)
		c.extHistogram.Observe(time.Since(start).Seconds(),
			observability.L("peer", peerName),
			observability.L("endpoint", endpointCreate),
		)
	}()

	body, err := json.Marshal(createOrderRequest{
		Amount:         MinorUnits(req.Amount),
		Currency:       req.Currency,
		Receipt:        req.Receipt,
		PaymentCapture: 1,
		Notes:          req.Notes,
	})
	if err != nil {
		return "", &payment.GatewayError{Op: endpointCreate, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+createOrderPath, bytes.NewReader(body))
	if err != nil {
		return "", &payment.GatewayError{Op: endpointCreate, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &payment.GatewayError{Op: endpointCreate, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		var e errorResponse
		detail := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error.Description != "" {
			detail = e.Error.Description
		}
		logctx.FromOr(ctx, c.log).Warn("gateway_create_order_rejected",
			observability.F("http_status", resp.StatusCode),
			observability.F("receipt", req.Receipt),
			observability.F("detail", detail),
		)
		return "", &payment.GatewayError{Op: endpointCreate, Err: fmt.Errorf("status %d: %s", resp.StatusCode, detail)}
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &payment.GatewayError{Op: endpointCreate, Err: fmt.Errorf("decode response: %w", err)}
	}
	if out.ID == "" {
		return "", &payment.GatewayError{Op: endpointCreate, Err: errors.New("response carries no order id")}
	}
	return out.ID, nil
}

func (c *Client) VerifySignature(orderRef, paymentID, signature string) bool {
	return Verify(c.cfg.KeySecret, orderRef, paymentID, signature)
}

func (c *Client) PublicKey() string { return c.cfg.KeyID }

// Sign returns hex(HMAC-SHA256(secret, orderRef + "|" + paymentID)).
func Sign(secret, orderRef, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderRef + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify compares in constant time.
func Verify(secret, orderRef, paymentID, signature string) bool {
	expected := Sign(secret, orderRef, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
