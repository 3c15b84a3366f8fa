package orders

type Status string

const (
	StatusPending   Status = "Pending"
	StatusShipped   Status = "Shipped"
	StatusDelivered Status = "Delivered"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

// Transitions are forward-only; skipping Shipped is allowed.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusShipped: true, StatusDelivered: true},
	StatusShipped:   {StatusDelivered: true},
	StatusDelivered: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
