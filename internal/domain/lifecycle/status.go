package lifecycle

// Status is a transaction lifecycle state. Every persisted status value is
// one of these constants; nothing outside this package invents new ones.
type Status string

const (
	StatusInitiated         Status = "INITIATED"
	StatusPaid              Status = "PAID"
	StatusInEscrow          Status = "IN_ESCROW"
	StatusAwaitingShipment  Status = "AWAITING_SHIPMENT"
	StatusShipped           Status = "SHIPPED"
	StatusInTransit         Status = "IN_TRANSIT"
	StatusDelivered         Status = "DELIVERED"
	StatusDeliveryConfirmed Status = "DELIVERY_CONFIRMED"
	StatusBuyerConfirmed    Status = "BUYER_CONFIRMED"
	StatusCancelRequested   Status = "CANCEL_REQUESTED"
	StatusCancelled         Status = "CANCELLED"
	StatusRefundPending     Status = "REFUND_PENDING"
	StatusRefunded          Status = "REFUNDED"
	StatusDispute           Status = "DISPUTE"
)

// Initial is the status every new transaction starts in.
const Initial = StatusInitiated

// Role is the actor class permitted to fire a transition.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleSystem Role = "system"
	RoleAdmin  Role = "admin"
)

// Condition tags an edge's required precondition. Presence and truth are
// checked against the caller-supplied condition map.
const (
	CondPaymentCompleted        = "payment_completed"
	CondShippingAddressProvided = "shipping_address_provided"
	CondTrackingNumberProvided  = "tracking_number_provided"
	CondCourierDelivered        = "courier_delivered"
	CondCancelApproved          = "cancel_approved"
	CondDisputeOpened           = "dispute_opened"
	CondAdminResolution         = "admin_resolution"
	CondRefundCompleted         = "refund_completed"
)

var terminal = map[Status]bool{
	StatusBuyerConfirmed: true,
	StatusRefunded:       true,
	StatusCancelled:      true,
}

// Terminal reports whether s accepts no further triggers. The DISPUTE
// self-loop keeps DISPUTE non-terminal.
func Terminal(s Status) bool {
	return terminal[s]
}

// Valid reports whether s is a known lifecycle status. Used at the store
// boundary when decoding documents.
func Valid(s Status) bool {
	switch s {
	case StatusInitiated, StatusPaid, StatusInEscrow, StatusAwaitingShipment,
		StatusShipped, StatusInTransit, StatusDelivered, StatusDeliveryConfirmed,
		StatusBuyerConfirmed, StatusCancelRequested, StatusCancelled,
		StatusRefundPending, StatusRefunded, StatusDispute:
		return true
	}
	return false
}
