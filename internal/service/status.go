package service

type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	MethodOnline         PaymentMethod = "online"
	MethodCashOnDelivery PaymentMethod = "cash_on_delivery"
)

func (m PaymentMethod) Valid() bool {
	return m == MethodOnline || m == MethodCashOnDelivery
}

// validNext is the full order status transition table. completed and
// cancelled are terminal; failed is reachable only from pending.
var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusPaid: true, StatusCancelled: true, StatusFailed: true},
	StatusPaid:      {StatusShipped: true, StatusCancelled: true},
	StatusShipped:   {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusFailed:    {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Actor identifies who is driving a status transition.
type Actor int

const (
	ActorMerchant Actor = iota
	ActorStaff
	// ActorReconciler is the webhook settlement path. It is the only actor
	// allowed to move pending -> paid from an external payment event.
	ActorReconciler
)

var merchantStatuses = map[Status]bool{
	StatusShipped:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}

var staffStatuses = map[Status]bool{
	StatusPending:   true,
	StatusPaid:      true,
	StatusShipped:   true,
	StatusCompleted: true,
	StatusCancelled: true,
}

// MayDrive reports whether the actor is allowed to request the target
// status at all, before the transition table is consulted.
func MayDrive(actor Actor, to Status) bool {
	switch actor {
	case ActorMerchant:
		return merchantStatuses[to]
	case ActorStaff:
		return staffStatuses[to]
	case ActorReconciler:
		return to == StatusPaid || to == StatusFailed
	}
	return false
}
