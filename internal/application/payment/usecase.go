// Package payment settles pending orders, either synchronously or through the external gateway.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domorder "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	dompay "github.com/Zhima-Mochi/minishop-checkout/internal/domain/payment"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService     = "payment-service"
	useCaseInitiate    = "payment.initiate"
	useCasePay         = "payment.pay"
	useCaseGatewayInit = "payment.gateway_initiate"
	useCaseVerify      = "payment.verify"
	useCaseStatus      = "payment.status"

	StatusSucceeded      = "SUCCESS"
	StatusGatewayCreated = "GATEWAY_ORDER_CREATED"
)

// ErrGatewayUnavailable is returned when gateway payment is requested but no gateway is configured.
var ErrGatewayUnavailable = errors.New("payment: gateway not configured")

type Config struct {
	// DemoMode settles every payment synchronously without contacting the gateway.
	DemoMode bool
	Currency string
}

type Service struct {
	store     uow.Store
	gateway   dompay.Gateway
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	cfg       Config
	ins       application.Instruments
}

// NewService wires the payment workflow. gateway may be nil when cfg.DemoMode is set.
func NewService(
	store uow.Store,
	gateway dompay.Gateway,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	cfg Config,
	tel observability.Observability,
) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	return &Service{
		store:     store,
		gateway:   gateway,
		ids:       ids,
		publisher: publisher,
		cfg:       cfg,
		ins:       application.NewInstruments(tel, paymentService),
	}
}

type InitiateInput struct {
	OrderID string
	// BuyerID scopes the lookup to the buyer's own orders; empty means unscoped.
	BuyerID string
	Mode    dompay.Mode
}

type InitiateResult struct {
	Status          string
	Order           *domorder.Order
	GatewayOrderRef string
	PublicKey       string
}

// Initiate settles synchronously in demo mode or for cash on delivery, and opens a gateway order otherwise.
func (s *Service) Initiate(ctx context.Context, cmd InitiateInput) (_ *InitiateResult, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseInitiate, "InitiatePayment",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.mode", string(cmd.Mode)),
		attribute.Bool("payment.demo_mode", s.cfg.DemoMode),
	)
	defer run.Finish(&err)

	switch {
	case s.cfg.DemoMode:
		o, err := s.Pay(ctx, PayInput{OrderID: cmd.OrderID, BuyerID: cmd.BuyerID, Mode: dompay.ModeDemo})
		if err != nil {
			return nil, run.Fail(statusFor(err), err)
		}
		return &InitiateResult{Status: StatusSucceeded, Order: o}, nil
	case cmd.Mode == dompay.ModeCOD:
		o, err := s.Pay(ctx, PayInput{OrderID: cmd.OrderID, BuyerID: cmd.BuyerID, Mode: dompay.ModeCOD})
		if err != nil {
			return nil, run.Fail(statusFor(err), err)
		}
		return &InitiateResult{Status: StatusSucceeded, Order: o}, nil
	case cmd.Mode == "" || cmd.Mode == dompay.ModeGateway:
		res, err := s.InitiateGateway(ctx, GatewayInput{OrderID: cmd.OrderID, BuyerID: cmd.BuyerID})
		if err != nil {
			return nil, run.Fail(statusFor(err), err)
		}
		run.Status(StatusGatewayCreated)
		return res, nil
	default:
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("payment mode %q cannot be initiated", cmd.Mode))
	}
}

type PayInput struct {
	OrderID string
	BuyerID string
	Mode    dompay.Mode
}

// Pay settles a PENDING order immediately: payment SUCCESS, shipment CONFIRMED and a transaction
// are written together.
func (s *Service) Pay(ctx context.Context, cmd PayInput) (_ *domorder.Order, err error) {
	if cmd.Mode == "" {
		cmd.Mode = dompay.ModeDemo
	}
	ctx, run := s.ins.Begin(ctx, useCasePay, "Pay",
		attribute.String("order.id", cmd.OrderID),
		attribute.String("payment.mode", string(cmd.Mode)),
	)
	defer run.Finish(&err)

	if cmd.OrderID == "" {
		return nil, run.Fail("ORDER_ID_REQUIRED", application.Invalid("order id is required"))
	}
	if cmd.Mode == dompay.ModeGateway {
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("gateway payments are settled through verification"))
	}

	if _, err := s.pendingOrder(ctx, cmd.OrderID, cmd.BuyerID); err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	ref := ""
	if cmd.Mode == dompay.ModeDemo {
		ref = dompay.DemoReference(cmd.OrderID)
	}
	paid, err := s.settle(ctx, cmd.OrderID, cmd.Mode, ref)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	run.Field("order_id", paid.ID)
	run.Field("transaction_id", paid.Transaction.ID)
	run.Publish(s.publisher, domorder.NewPaymentSucceededEvent(paid.Transaction))
	return paid, nil
}

type GatewayInput struct {
	OrderID string
	BuyerID string
}

// InitiateGateway opens a remote order for a PENDING order and records its reference.
// A failed remote call changes nothing and is not retried.
func (s *Service) InitiateGateway(ctx context.Context, cmd GatewayInput) (_ *InitiateResult, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseGatewayInit, "InitiateGatewayPayment",
		attribute.String("order.id", cmd.OrderID),
	)
	defer run.Finish(&err)

	if cmd.OrderID == "" {
		return nil, run.Fail("ORDER_ID_REQUIRED", application.Invalid("order id is required"))
	}
	if s.gateway == nil {
		return nil, run.Fail("GATEWAY_NOT_CONFIGURED", ErrGatewayUnavailable)
	}

	o, err := s.pendingOrder(ctx, cmd.OrderID, cmd.BuyerID)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	ref, err := s.gateway.CreateOrder(ctx, dompay.GatewayOrderRequest{
		Amount:   o.TotalAmount,
		Currency: s.cfg.Currency,
		Receipt:  o.ID,
		Notes:    gatewayNotes(o),
	})
	if err != nil {
		var gerr *dompay.GatewayError
		if !errors.As(err, &gerr) {
			err = &dompay.GatewayError{Op: "create_order", Err: err}
		}
		return nil, run.Fail("GATEWAY_ERROR", err)
	}

	// The reference is only stored while payment is still PENDING; a concurrent settlement wins.
	updated, err := s.store.Repositories().Orders.SetGatewayRef(ctx, o.ID, ref)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	run.Field("order_id", updated.ID)
	run.Field("gateway_order_ref", ref)
	run.Publish(s.publisher, domorder.NewPaymentInitiatedEvent(updated))
	return &InitiateResult{
		Status:          StatusGatewayCreated,
		Order:           updated,
		GatewayOrderRef: ref,
		PublicKey:       s.gateway.PublicKey(),
	}, nil
}

type VerifyInput struct {
	GatewayOrderRef  string
	GatewayPaymentID string
	Signature        string
}

// Verify checks the gateway's signature over ref|paymentId. A mismatch fails the payment for good;
// a match settles it with a GATEWAY transaction for the order total.
func (s *Service) Verify(ctx context.Context, cmd VerifyInput) (_ *domorder.Order, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseVerify, "VerifyPayment",
		attribute.String("payment.gateway_order_ref", cmd.GatewayOrderRef),
	)
	defer run.Finish(&err)

	if cmd.GatewayOrderRef == "" || cmd.GatewayPaymentID == "" || cmd.Signature == "" {
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("gateway order ref, payment id and signature are required"))
	}
	if s.gateway == nil {
		return nil, run.Fail("GATEWAY_NOT_CONFIGURED", ErrGatewayUnavailable)
	}

	o, err := s.store.Repositories().Orders.FindByGatewayRef(ctx, cmd.GatewayOrderRef)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	run.Field("order_id", o.ID)
	if o.PaymentStatus != dompay.StatusPending {
		return nil, run.Fail("ORDER_NOT_PENDING", domorder.ErrNotPending)
	}

	if !s.gateway.VerifySignature(cmd.GatewayOrderRef, cmd.GatewayPaymentID, cmd.Signature) {
		if _, ferr := s.store.Repositories().Orders.MarkPaymentFailed(ctx, o.ID); ferr != nil {
			return nil, run.Fail(statusFor(ferr), ferr)
		}
		run.Publish(s.publisher, domorder.NewPaymentFailedEvent(o.ID, "signature_mismatch"))
		return nil, run.Fail("SIGNATURE_MISMATCH", dompay.ErrSignatureMismatch)
	}

	paid, err := s.settle(ctx, o.ID, dompay.ModeGateway, cmd.GatewayPaymentID)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	run.Field("transaction_id", paid.Transaction.ID)
	run.Publish(s.publisher, domorder.NewPaymentSucceededEvent(paid.Transaction))
	return paid, nil
}

type StatusInput struct {
	OrderID string
	BuyerID string
}

type StatusResult struct {
	OrderID         string
	PaymentStatus   dompay.Status
	ShipmentStatus  domorder.ShipmentStatus
	GatewayOrderRef string
	Order           *domorder.Order
}

func (s *Service) Status(ctx context.Context, cmd StatusInput) (_ *StatusResult, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseStatus, "PaymentStatus",
		attribute.String("order.id", cmd.OrderID),
	)
	defer run.Finish(&err)

	o, err := s.ownedOrder(ctx, cmd.OrderID, cmd.BuyerID)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	return &StatusResult{
		OrderID:         o.ID,
		PaymentStatus:   o.PaymentStatus,
		ShipmentStatus:  o.ShipmentStatus,
		GatewayOrderRef: o.GatewayOrderRef,
		Order:           o,
	}, nil
}

type ClientConfig struct {
	PublicKey string
	DemoMode  bool
}

// ClientConfig is what a browser needs to open the gateway checkout.
func (s *Service) ClientConfig() ClientConfig {
	cfg := ClientConfig{DemoMode: s.cfg.DemoMode}
	if s.gateway != nil {
		cfg.PublicKey = s.gateway.PublicKey()
	}
	return cfg
}

// settle flips payment to SUCCESS and records the transaction in one unit of work.
// Losing the compare-and-set surfaces as ErrNotPending.
func (s *Service) settle(ctx context.Context, orderID string, mode dompay.Mode, ref string) (*domorder.Order, error) {
	var paid *domorder.Order
	err := s.store.Do(ctx, func(ctx context.Context, repos uow.Repositories) error {
		o, err := repos.Orders.MarkPaymentSucceeded(ctx, orderID)
		if err != nil {
			return err
		}
		tx := dompay.NewTransaction(s.ids.NewID(), o.ID, o.BuyerID, o.TotalAmount, mode, ref)
		if err := repos.Transactions.Insert(ctx, tx); err != nil {
			if errors.Is(err, dompay.ErrDuplicateTransaction) {
				return domorder.ErrNotPending
			}
			return fmt.Errorf("payment: record transaction: %w", err)
		}
		o.Transaction = tx
		paid = o
		return nil
	})
	return paid, err
}

func (s *Service) pendingOrder(ctx context.Context, orderID, buyerID string) (*domorder.Order, error) {
	o, err := s.ownedOrder(ctx, orderID, buyerID)
	if err != nil {
		return nil, err
	}
	if o.PaymentStatus != dompay.StatusPending {
		return nil, domorder.ErrNotPending
	}
	return o, nil
}

func (s *Service) ownedOrder(ctx context.Context, orderID, buyerID string) (*domorder.Order, error) {
	if orderID == "" {
		return nil, application.Invalid("order id is required")
	}
	o, err := s.store.Repositories().Orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if buyerID != "" && o.BuyerID != buyerID {
		return nil, domorder.ErrNotFound
	}
	return o, nil
}

func gatewayNotes(o *domorder.Order) map[string]any {
	items := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, fmt.Sprintf("%s (Qty: %d, Price: %s, Subtotal: %s)",
			l.ProductName, l.Quantity, l.PriceAtPurchase.StringFixed(2), l.Subtotal.StringFixed(2)))
	}
	return map[string]any{
		"order_id":     o.ID,
		"total_amount": o.TotalAmount.StringFixed(2),
		"items":        items,
	}
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, domorder.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domorder.ErrNotPending):
		return "ORDER_NOT_PENDING"
	case errors.Is(err, dompay.ErrSignatureMismatch):
		return "SIGNATURE_MISMATCH"
	case errors.Is(err, dompay.ErrGateway):
		return "GATEWAY_ERROR"
	case errors.Is(err, ErrGatewayUnavailable):
		return "GATEWAY_NOT_CONFIGURED"
	case errors.Is(err, application.ErrValidation):
		return "VALIDATION_FAILED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	default:
		return "PAYMENT_FAILED"
	}
}
