package entity

import (
	"time"

	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
)

// Transaction is one escrow attempt for one product between one buyer and
// one seller. Status moves only through the lifecycle table; Version backs
// the optimistic compare-and-swap on every status write.
type Transaction struct {
	ID            string           `json:"id" firestore:"id"`
	ProductID     string           `json:"product_id" firestore:"productId"`
	BuyerID       string           `json:"buyer_id" firestore:"buyerId"`
	SellerID      string           `json:"seller_id" firestore:"sellerId"`
	Amount        float64          `json:"amount" firestore:"amount"`
	Status        lifecycle.Status `json:"status" firestore:"status"`
	PaymentMethod string           `json:"payment_method,omitempty" firestore:"paymentMethod,omitempty"`

	CancelReason string     `json:"cancel_reason,omitempty" firestore:"cancelReason,omitempty"`
	CancelledBy  string     `json:"cancelled_by,omitempty" firestore:"cancelledBy,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty" firestore:"cancelledAt,omitempty"`

	Version int64 `json:"version" firestore:"version"`

	// StatusChangedAt is the wall-clock anchor for timeout auto-transitions.
	StatusChangedAt time.Time `json:"status_changed_at" firestore:"statusChangedAt"`
	CreatedAt       time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time `json:"updated_at" firestore:"updatedAt"`
}

// RoleOf maps an actor uid to the role it holds on this transaction.
// Admin actors are resolved by the caller from auth claims, not from the
// record.
func (t *Transaction) RoleOf(uid string) (lifecycle.Role, bool) {
	switch uid {
	case t.BuyerID:
		return lifecycle.RoleBuyer, true
	case t.SellerID:
		return lifecycle.RoleSeller, true
	}
	return "", false
}

// TransitionLog is one audit entry per applied transition.
type TransitionLog struct {
	ID            string           `json:"id" firestore:"id"`
	TransactionID string           `json:"transaction_id" firestore:"transactionId"`
	From          lifecycle.Status `json:"from" firestore:"from"`
	To            lifecycle.Status `json:"to" firestore:"to"`
	Action        string           `json:"action" firestore:"action"`
	Role          lifecycle.Role   `json:"role" firestore:"role"`
	Notes         string           `json:"notes,omitempty" firestore:"notes,omitempty"`
	CreatedBy     string           `json:"created_by" firestore:"createdBy"`
	CreatedAt     time.Time        `json:"created_at" firestore:"createdAt"`
}
