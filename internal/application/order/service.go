// Package order answers order queries and applies administrative shipment changes.
package order

import (
	"context"
	"errors"

	"github.com/Zhima-Mochi/minishop-checkout/internal/application"
	domain "github.com/Zhima-Mochi/minishop-checkout/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/minishop-checkout/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-checkout/internal/domain/uow"
	"github.com/Zhima-Mochi/minishop-checkout/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	orderService         = "order-service"
	useCaseOrderGet      = "order.get"
	useCaseOrderListMine = "order.list_mine"
	useCaseOrderListAll  = "order.list_all"
	useCaseOrderShipment = "order.update_shipment"
)

// Viewer is the caller an order query runs for.
type Viewer struct {
	BuyerID string
	Admin   bool
}

type Service struct {
	repo      domain.Repository
	publisher domoutbox.Publisher
	ins       application.Instruments
}

func NewService(store uow.Store, publisher domoutbox.Publisher, tel observability.Observability) *Service {
	return &Service{
		repo:      store.Repositories().Orders,
		publisher: publisher,
		ins:       application.NewInstruments(tel, orderService),
	}
}

// Get returns the order when the viewer owns it or is an admin. Anyone else gets ErrNotFound.
func (s *Service) Get(ctx context.Context, v Viewer, id string) (_ *domain.Order, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseOrderGet, "GetOrder", attribute.String("order.id", id))
	defer run.Finish(&err)

	if id == "" {
		return nil, run.Fail("ORDER_ID_REQUIRED", application.Invalid("order id is required"))
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	if !v.Admin && o.BuyerID != v.BuyerID {
		return nil, run.Fail("ORDER_NOT_FOUND", domain.ErrNotFound)
	}
	return o, nil
}

// ListForBuyer returns the buyer's orders, newest first.
func (s *Service) ListForBuyer(ctx context.Context, buyerID string) (_ []*domain.Order, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseOrderListMine, "ListBuyerOrders", attribute.String("order.buyer_id", buyerID))
	defer run.Finish(&err)

	if buyerID == "" {
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("buyer id is required"))
	}
	orders, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	run.Field("count", len(orders))
	return orders, nil
}

func (s *Service) ListAll(ctx context.Context) (_ []*domain.Order, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseOrderListAll, "ListOrders")
	defer run.Finish(&err)

	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	run.Field("count", len(orders))
	return orders, nil
}

// UpdateShipmentStatus moves the order one step along the shipment lifecycle. The write is guarded on
// the status read here, so a concurrent change makes it fail with ErrInvalidTransition.
func (s *Service) UpdateShipmentStatus(ctx context.Context, id string, to domain.ShipmentStatus) (_ *domain.Order, err error) {
	ctx, run := s.ins.Begin(ctx, useCaseOrderShipment, "UpdateShipmentStatus",
		attribute.String("order.id", id),
		attribute.String("order.shipment_to", string(to)),
	)
	defer run.Finish(&err)

	if _, ok := domain.ParseShipmentStatus(string(to)); !ok {
		return nil, run.Fail("VALIDATION_FAILED", application.Invalid("unknown shipment status %q", to))
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}
	from := current.ShipmentStatus
	if _, err := domain.NextShipment(from, to); err != nil {
		return nil, run.Fail("INVALID_TRANSITION", err)
	}

	updated, err := s.repo.UpdateShipmentStatus(ctx, id, from, to)
	if err != nil {
		return nil, run.Fail(statusFor(err), err)
	}

	run.Field("from", string(from))
	run.Field("to", string(to))
	run.Publish(s.publisher, domain.NewShipmentStatusChangedEvent(id, from, to))
	return updated, nil
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidTransition):
		return "INVALID_TRANSITION"
	default:
		return "REPOSITORY_FAILED"
	}
}
