package entity

import "time"

// Message is an immutable ledger entry once written; only ReadBy grows.
// Seq is assigned inside the same atomic unit as the thread counter update
// and orders messages within a chat when createdAt ties.
type Message struct {
	ID        string    `json:"id" firestore:"id"`
	ChatID    string    `json:"chat_id" firestore:"chatId"`
	SenderUID string    `json:"sender_uid" firestore:"senderUid"`
	Content   string    `json:"content" firestore:"content"`
	ImageURL  string    `json:"image_url,omitempty" firestore:"imageUrl,omitempty"`
	Seq       int64     `json:"seq" firestore:"seq"`
	ReadBy    []string  `json:"read_by" firestore:"readBy"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}

// IsSystem reports whether the message was produced by a lifecycle event.
func (m *Message) IsSystem() bool {
	return m.SenderUID == SystemSender
}

// ReadByUser reports whether uid appears in the best-effort readBy set.
func (m *Message) ReadByUser(uid string) bool {
	for _, r := range m.ReadBy {
		if r == uid {
			return true
		}
	}
	return false
}
