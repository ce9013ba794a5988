package order

// ShipmentState implements the state pattern for shipment transitions.
// Each handler returns the next state or ErrInvalidTransition.
type ShipmentState interface {
	Status() ShipmentStatus
	OnConfirm() (ShipmentState, error)
	OnShip() (ShipmentState, error)
	OnDeliver() (ShipmentState, error)
	OnCancel() (ShipmentState, error)
}

func stateOf(s ShipmentStatus) ShipmentState {
	switch s {
	case ShipmentConfirmed:
		return confirmedState{}
	case ShipmentShipped:
		return shippedState{}
	case ShipmentDelivered:
		return deliveredState{}
	case ShipmentCancelled:
		return cancelledState{}
	default:
		return pendingState{}
	}
}

// NextShipment validates the move from -> to without touching any order.
func NextShipment(from, to ShipmentStatus) (ShipmentStatus, error) {
	cur := stateOf(from)
	var (
		next ShipmentState
		err  error
	)
	switch to {
	case ShipmentConfirmed:
		next, err = cur.OnConfirm()
	case ShipmentShipped:
		next, err = cur.OnShip()
	case ShipmentDelivered:
		next, err = cur.OnDeliver()
	case ShipmentCancelled:
		next, err = cur.OnCancel()
	default:
		return from, ErrInvalidTransition
	}
	if err != nil {
		return from, err
	}
	return next.Status(), nil
}

// TransitionShipment applies an administrative shipment change.
func (o *Order) TransitionShipment(to ShipmentStatus) error {
	next, err := NextShipment(o.ShipmentStatus, to)
	if err != nil {
		return err
	}
	o.ShipmentStatus = next
	o.touch()
	return nil
}

type pendingState struct{}

func (pendingState) Status() ShipmentStatus            { return ShipmentPending }
func (pendingState) OnConfirm() (ShipmentState, error) { return confirmedState{}, nil }
func (pendingState) OnShip() (ShipmentState, error)    { return nil, ErrInvalidTransition }
func (pendingState) OnDeliver() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (pendingState) OnCancel() (ShipmentState, error)  { return cancelledState{}, nil }

type confirmedState struct{}

func (confirmedState) Status() ShipmentStatus            { return ShipmentConfirmed }
func (confirmedState) OnConfirm() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (confirmedState) OnShip() (ShipmentState, error)    { return shippedState{}, nil }
func (confirmedState) OnDeliver() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (confirmedState) OnCancel() (ShipmentState, error)  { return cancelledState{}, nil }

type shippedState struct{}

func (shippedState) Status() ShipmentStatus            { return ShipmentShipped }
func (shippedState) OnConfirm() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (shippedState) OnShip() (ShipmentState, error)    { return nil, ErrInvalidTransition }
func (shippedState) OnDeliver() (ShipmentState, error) { return deliveredState{}, nil }
func (shippedState) OnCancel() (ShipmentState, error)  { return nil, ErrInvalidTransition }

type deliveredState struct{}

func (deliveredState) Status() ShipmentStatus            { return ShipmentDelivered }
func (deliveredState) OnConfirm() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (deliveredState) OnShip() (ShipmentState, error)    { return nil, ErrInvalidTransition }
func (deliveredState) OnDeliver() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (deliveredState) OnCancel() (ShipmentState, error)  { return nil, ErrInvalidTransition }

type cancelledState struct{}

func (cancelledState) Status() ShipmentStatus            { return ShipmentCancelled }
func (cancelledState) OnConfirm() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (cancelledState) OnShip() (ShipmentState, error)    { return nil, ErrInvalidTransition }
func (cancelledState) OnDeliver() (ShipmentState, error) { return nil, ErrInvalidTransition }
func (cancelledState) OnCancel() (ShipmentState, error)  { return nil, ErrInvalidTransition }
