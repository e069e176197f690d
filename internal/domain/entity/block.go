package entity

import "time"

// BlockRelation records that blocker no longer accepts contact from
// blocked. A relation in either direction suppresses message delivery and
// hides shared threads.
type BlockRelation struct {
	ID         string    `json:"id" firestore:"id"`
	BlockerUID string    `json:"blocker_uid" firestore:"blockerUid"`
	BlockedUID string    `json:"blocked_uid" firestore:"blockedUid"`
	CreatedAt  time.Time `json:"created_at" firestore:"createdAt"`
}
