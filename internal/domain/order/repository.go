package order

import "context"

// Repository persists orders. The Mark*/Update* methods are compare-and-set writes:
// they apply only while the stored order is still in the expected state and report
// ErrNotPending or ErrInvalidTransition otherwise.
type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	FindByGatewayRef(ctx context.Context, ref string) (*Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*Order, error)
	List(ctx context.Context) ([]*Order, error)

	SetGatewayRef(ctx context.Context, id, ref string) (*Order, error)
	MarkPaymentSucceeded(ctx context.Context, id string) (*Order, error)
	MarkPaymentFailed(ctx context.Context, id string) (*Order, error)
	UpdateShipmentStatus(ctx context.Context, id string, from, to ShipmentStatus) (*Order, error)
}
