package entity

import (
	"fmt"
	"time"
)

// SystemSender is the sentinel sender uid for lifecycle system messages.
const SystemSender = "system"

// ChatThread is the aggregate for one buyer/seller conversation about one
// item. The unread counters and last-message cache are mutated only inside
// the same atomic unit as the triggering message append, never separately.
type ChatThread struct {
	ID          string `json:"id" firestore:"id"`
	ItemID      string `json:"item_id" firestore:"itemId"`
	BuyerUID    string `json:"buyer_uid" firestore:"buyerUid"`
	SellerUID   string `json:"seller_uid" firestore:"sellerUid"`
	LastMessage string `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`

	BuyerUnreadCount  int `json:"buyer_unread_count" firestore:"buyerUnreadCount"`
	SellerUnreadCount int `json:"seller_unread_count" firestore:"sellerUnreadCount"`

	DeletedByBuyer  bool `json:"deleted_by_buyer" firestore:"deletedByBuyer"`
	DeletedBySeller bool `json:"deleted_by_seller" firestore:"deletedBySeller"`

	BuyerLastReadAt  *time.Time `json:"buyer_last_read_at,omitempty" firestore:"buyerLastReadAt,omitempty"`
	SellerLastReadAt *time.Time `json:"seller_last_read_at,omitempty" firestore:"sellerLastReadAt,omitempty"`

	// LastSeq is the insertion sequence of the newest message; it breaks
	// createdAt ties so messages stay totally ordered per chat.
	LastSeq int64 `json:"last_seq" firestore:"lastSeq"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ThreadID builds the deterministic composite key for a thread.
func ThreadID(buyerUID, sellerUID, itemID string) string {
	return fmt.Sprintf("%s_%s_%s", buyerUID, sellerUID, itemID)
}

// IsParticipant reports whether uid is one of the two parties.
func (t *ChatThread) IsParticipant(uid string) bool {
	return uid == t.BuyerUID || uid == t.SellerUID
}

// OtherParty returns the counterpart of uid in the thread.
func (t *ChatThread) OtherParty(uid string) string {
	if uid == t.BuyerUID {
		return t.SellerUID
	}
	return t.BuyerUID
}

// DeletedBy reports the party's soft-delete flag.
func (t *ChatThread) DeletedBy(uid string) bool {
	if uid == t.BuyerUID {
		return t.DeletedByBuyer
	}
	if uid == t.SellerUID {
		return t.DeletedBySeller
	}
	return false
}

// Reapable reports whether both parties have soft-deleted the thread.
func (t *ChatThread) Reapable() bool {
	return t.DeletedByBuyer && t.DeletedBySeller
}
