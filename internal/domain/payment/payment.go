package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSignatureMismatch    = errors.New("payment: signature verification failed")
	ErrGateway              = errors.New("payment: gateway error")
	ErrDuplicateTransaction = errors.New("payment: transaction already recorded for order")
	ErrNotFound             = errors.New("payment: transaction not found")
)

// Status is the payment axis of an order. It leaves PENDING exactly once.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

func (s Status) Terminal() bool { return s == StatusSuccess || s == StatusFailed }

// Mode labels how a payment was settled.
type Mode string

const (
	ModeDemo    Mode = "DEMO"
	ModeCOD     Mode = "COD"
	ModeGateway Mode = "GATEWAY"
)

// DemoReference is the gateway reference recorded for synchronous demo settlements.
func DemoReference(orderID string) string {
	return "DEMO_TRANSACTION_" + orderID
}

// Transaction is the immutable record of a successful settlement. At most one exists per order.
type Transaction struct {
	ID         string
	OrderID    string
	BuyerID    string
	Amount     decimal.Decimal
	Mode       Mode
	GatewayRef string
	Status     Status
	CreatedAt  time.Time
}

func NewTransaction(id, orderID, buyerID string, amount decimal.Decimal, mode Mode, gatewayRef string) *Transaction {
	return &Transaction{
		ID:         id,
		OrderID:    orderID,
		BuyerID:    buyerID,
		Amount:     amount,
		Mode:       mode,
		GatewayRef: gatewayRef,
		Status:     StatusSuccess,
		CreatedAt:  time.Now().UTC(),
	}
}

type TransactionRepository interface {
	// Insert fails with ErrDuplicateTransaction when the order already has a transaction.
	Insert(ctx context.Context, t *Transaction) error
	GetByOrder(ctx context.Context, orderID string) (*Transaction, error)
}

// GatewayOrderRequest describes the remote order opened before the buyer pays through the gateway.
type GatewayOrderRequest struct {
	Amount   decimal.Decimal
	Currency string
	Receipt  string
	Notes    map[string]any
}

// Gateway is the outbound port to the external payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, req GatewayOrderRequest) (string, error)
	VerifySignature(orderRef, paymentID, signature string) bool
	PublicKey() string
}

// GatewayError wraps a failure reported by, or while talking to, the payment provider.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment: gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() []error { return []error{ErrGateway, e.Err} }
