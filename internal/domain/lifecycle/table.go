package lifecycle

import (
	"time"

	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

// Edge is a single allowed transition in the escrow lifecycle.
// Conditions must all be present and truthy in the condition map supplied
// at validation time. Auto edges are fired by the timeout scheduler once
// Timeout has elapsed in the From state.
type Edge struct {
	From       Status
	To         Status
	Action     string
	Roles      []Role
	Conditions []string
	Auto       bool
	Timeout    time.Duration
}

// transitionTable is the single source of truth for legal transitions.
// AllowedActions and Validate both read it, so UI-offered actions and
// machine-accepted actions cannot diverge.
var transitionTable = []Edge{
	{From: StatusInitiated, To: StatusPaid, Action: "pay", Roles: []Role{RoleBuyer}, Conditions: []string{CondPaymentCompleted}},
	{From: StatusInitiated, To: StatusCancelled, Action: "cancel", Roles: []Role{RoleBuyer, RoleSeller}},

	{From: StatusPaid, To: StatusInEscrow, Action: "hold_escrow", Roles: []Role{RoleSystem}, Conditions: []string{CondPaymentCompleted}},
	{From: StatusPaid, To: StatusCancelRequested, Action: "request_cancel", Roles: []Role{RoleBuyer}},

	{From: StatusInEscrow, To: StatusAwaitingShipment, Action: "provide_address", Roles: []Role{RoleBuyer}, Conditions: []string{CondShippingAddressProvided}},
	{From: StatusInEscrow, To: StatusCancelRequested, Action: "request_cancel", Roles: []Role{RoleBuyer}},

	{From: StatusAwaitingShipment, To: StatusShipped, Action: "register_shipment", Roles: []Role{RoleSeller}, Conditions: []string{CondTrackingNumberProvided}},
	{From: StatusAwaitingShipment, To: StatusCancelRequested, Action: "request_cancel", Roles: []Role{RoleBuyer}},
	{From: StatusAwaitingShipment, To: StatusDispute, Action: "open_dispute", Roles: []Role{RoleBuyer}, Conditions: []string{CondDisputeOpened}},

	{From: StatusShipped, To: StatusInTransit, Action: "mark_in_transit", Roles: []Role{RoleSystem}},
	{From: StatusShipped, To: StatusDispute, Action: "open_dispute", Roles: []Role{RoleBuyer}, Conditions: []string{CondDisputeOpened}},

	{From: StatusInTransit, To: StatusDelivered, Action: "mark_delivered", Roles: []Role{RoleSystem}, Conditions: []string{CondCourierDelivered}},
	{From: StatusInTransit, To: StatusDispute, Action: "open_dispute", Roles: []Role{RoleBuyer}, Conditions: []string{CondDisputeOpened}},

	{From: StatusDelivered, To: StatusDeliveryConfirmed, Action: "confirm_delivery", Roles: []Role{RoleBuyer}},
	{From: StatusDelivered, To: StatusDispute, Action: "open_dispute", Roles: []Role{RoleBuyer}, Conditions: []string{CondDisputeOpened}},
	// Buyer silence implies acceptance.
	{From: StatusDelivered, To: StatusBuyerConfirmed, Action: "auto_confirm", Roles: []Role{RoleSystem}, Auto: true, Timeout: 72 * time.Hour},

	{From: StatusDeliveryConfirmed, To: StatusBuyerConfirmed, Action: "confirm_receipt", Roles: []Role{RoleBuyer}},
	{From: StatusDeliveryConfirmed, To: StatusDispute, Action: "open_dispute", Roles: []Role{RoleBuyer}, Conditions: []string{CondDisputeOpened}},

	{From: StatusCancelRequested, To: StatusCancelled, Action: "approve_cancel", Roles: []Role{RoleSeller}, Conditions: []string{CondCancelApproved}},
	{From: StatusCancelRequested, To: StatusAwaitingShipment, Action: "reject_cancel", Roles: []Role{RoleSeller}},
	// Seller silence implies approval; the scheduler pre-satisfies cancel_approved.
	{From: StatusCancelRequested, To: StatusCancelled, Action: "auto_cancel", Roles: []Role{RoleSystem}, Conditions: []string{CondCancelApproved}, Auto: true, Timeout: 24 * time.Hour},

	// Self-loop so evidence upload shows up in AllowedActions without
	// changing state.
	{From: StatusDispute, To: StatusDispute, Action: "upload_evidence", Roles: []Role{RoleBuyer, RoleSeller}},
	{From: StatusDispute, To: StatusBuyerConfirmed, Action: "resolve_dispute", Roles: []Role{RoleAdmin}, Conditions: []string{CondAdminResolution}},
	{From: StatusDispute, To: StatusRefundPending, Action: "resolve_dispute", Roles: []Role{RoleAdmin}, Conditions: []string{CondAdminResolution}},

	{From: StatusRefundPending, To: StatusRefunded, Action: "complete_refund", Roles: []Role{RoleSystem}, Conditions: []string{CondRefundCompleted}},
}

// Find returns the edge matching (from, to, action) exactly.
func Find(from, to Status, action string) (Edge, bool) {
	for _, e := range transitionTable {
		if e.From == from && e.To == to && e.Action == action {
			return e, true
		}
	}
	return Edge{}, false
}

// CanTransition reports whether an edge matches (from, to, action) exactly.
func CanTransition(from, to Status, action string) bool {
	_, ok := Find(from, to, action)
	return ok
}

// Validate checks the edge exists, the actor role may fire it, and every
// required condition is present and truthy. A missing condition yields a
// descriptive rejection, never a silent no-op.
func Validate(from, to Status, action string, role Role, conditions map[string]bool) error {
	if Terminal(from) {
		return errors.InvalidTransition(string(from), string(to), action)
	}

	edge, ok := Find(from, to, action)
	if !ok {
		return errors.InvalidTransition(string(from), string(to), action)
	}

	if !edge.Allows(role) {
		return errors.Unauthorized("role "+string(role)+" may not trigger "+action, nil)
	}

	for _, cond := range edge.Conditions {
		if !conditions[cond] {
			return errors.ConditionNotMet(cond)
		}
	}

	return nil
}

// Allows reports whether role may fire this edge.
func (e Edge) Allows(role Role) bool {
	for _, r := range e.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AllowedActions returns the distinct action names a role may fire from
// status, derived purely from the table.
func AllowedActions(status Status, role Role) []string {
	var actions []string
	seen := make(map[string]bool)
	for _, e := range transitionTable {
		if e.From != status || e.Auto || !e.Allows(role) {
			continue
		}
		if seen[e.Action] {
			continue
		}
		seen[e.Action] = true
		actions = append(actions, e.Action)
	}
	return actions
}

// AutoEdges returns every timeout-gated edge fired by the scheduler.
func AutoEdges() []Edge {
	var edges []Edge
	for _, e := range transitionTable {
		if e.Auto {
			edges = append(edges, e)
		}
	}
	return edges
}

// Edges returns a copy of the full table, for audit tooling and tests.
func Edges() []Edge {
	out := make([]Edge, len(transitionTable))
	copy(out, transitionTable)
	return out
}
