package shipment

import "fmt"

// ShipmentStatus represents the current state of a shipment in its lifecycle.
type ShipmentStatus string

const (
	StatusCreated   ShipmentStatus = "created"
	StatusPaid      ShipmentStatus = "paid"
	StatusPickedUp  ShipmentStatus = "picked_up"
	StatusInTransit ShipmentStatus = "in_transit"
	StatusDelivered ShipmentStatus = "delivered"
	StatusCancelled ShipmentStatus = "cancelled"
)

// created -> picked_up is only legal when the recipient pays on delivery; the aggregate enforces that.
var validTransitions = map[ShipmentStatus][]ShipmentStatus{
	StatusCreated:   {StatusPaid, StatusPickedUp, StatusCancelled},
	StatusPaid:      {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit},
	StatusInTransit: {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// IsValid returns true if the status is a recognized shipment status.
func (s ShipmentStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s ShipmentStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// CanBeCancelled returns true if the shipment can be cancelled from this status.
func (s ShipmentStatus) CanBeCancelled() bool {
	return s.CanTransitionTo(StatusCancelled)
}

func (s ShipmentStatus) String() string {
	return string(s)
}

// ParseShipmentStatus converts a string to a ShipmentStatus, returning an error if invalid.
func ParseShipmentStatus(s string) (ShipmentStatus, error) {
	status := ShipmentStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid shipment status: %s", s)
	}
	return status, nil
}
