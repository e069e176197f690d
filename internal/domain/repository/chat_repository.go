package repository

import (
	"context"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
)

// ChatRepository persists threads and their append-only message ledgers.
// AppendMessage and UpdateThread run their mutation closure inside the
// store's atomic unit, so counter updates can never drift from the message
// append that caused them.
type ChatRepository interface {
	// CreateThread fails with CONFLICT when the thread already exists;
	// an existing thread's counters and seq generator are never touched.
	CreateThread(ctx context.Context, thread *entity.ChatThread) error
	GetByID(ctx context.Context, chatID string) (*entity.ChatThread, error)
	ListByUserID(ctx context.Context, uid string) ([]*entity.ChatThread, error)

	// AppendMessage assigns the message id, seq and timestamp, applies the
	// thread mutation, and commits both as one atomic unit.
	AppendMessage(ctx context.Context, message *entity.Message, mutate func(thread *entity.ChatThread) error) error

	// AppendSystemMessage behaves like AppendMessage but aborts with
	// DUPLICATE_SYSTEM_MESSAGE if a system message with identical content
	// already exists in the chat. The duplicate check happens inside the
	// same atomic unit as the append.
	AppendSystemMessage(ctx context.Context, message *entity.Message, mutate func(thread *entity.ChatThread) error) error

	// UpdateThread applies the mutation atomically against the stored thread.
	UpdateThread(ctx context.Context, chatID string, mutate func(thread *entity.ChatThread) error) (*entity.ChatThread, error)

	// ListMessages returns the ledger in (createdAt, seq) order.
	ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error)

	// MarkMessageRead grows the best-effort readBy set; the thread counters
	// remain authoritative for unread badges.
	MarkMessageRead(ctx context.Context, chatID, messageID, uid string) error

	// DeleteThread reaps a thread and its messages once both parties have
	// soft-deleted it.
	DeleteThread(ctx context.Context, chatID string) error
}
