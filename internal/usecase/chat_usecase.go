package usecase

import (
	"context"
	"time"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/notification"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/ratelimit"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	blockRepo   repository.BlockRepository
	dispatcher  *notification.Dispatcher
	rateLimiter *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	blockRepo repository.BlockRepository,
	dispatcher *notification.Dispatcher,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		blockRepo:   blockRepo,
		dispatcher:  dispatcher,
		rateLimiter: ratelimit.NewRateLimiter(),
	}
}

type CreateThreadInput struct {
	SellerUID string `json:"seller_uid" validate:"required"`
	ItemID    string `json:"item_id" validate:"required"`
}

type SendMessageInput struct {
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"image_url"`
}

// GetOrCreateThread returns the deterministic thread between buyer and
// seller about an item, creating it on first contact.
func (uc *ChatUseCase) GetOrCreateThread(ctx context.Context, buyerUID string, input CreateThreadInput) (*entity.ChatThread, error) {
	if buyerUID == input.SellerUID {
		return nil, errors.BadRequest("Cannot open a chat with yourself", nil)
	}

	blocked, err := uc.blockRepo.Exists(ctx, buyerUID, input.SellerUID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, errors.Blocked("Cannot open a chat with a blocked user")
	}

	chatID := entity.ThreadID(buyerUID, input.SellerUID, input.ItemID)
	thread, err := uc.chatRepo.GetByID(ctx, chatID)
	if err == nil {
		return thread, nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		return nil, err
	}

	// Only an actual creation spends a rate-limit token; re-opening an
	// existing chat is free.
	if !uc.rateLimiter.Allow(buyerUID, "create_thread") {
		return nil, errors.TooManyRequests("Too many new chats, slow down", nil)
	}

	now := time.Now()
	thread = &entity.ChatThread{
		ID:        chatID,
		ItemID:    input.ItemID,
		BuyerUID:  buyerUID,
		SellerUID: input.SellerUID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.chatRepo.CreateThread(ctx, thread); err != nil {
		if errors.Is(err, "CONFLICT") {
			// Lost a first-contact race; return the winner's thread.
			return uc.chatRepo.GetByID(ctx, chatID)
		}
		return nil, err
	}

	logger.Info("Chat thread created: id=%s", chatID)
	return thread, nil
}

// SendMessage appends a message and bumps the recipient's unread counter
// in one atomic unit, then notifies the recipient best-effort.
func (uc *ChatUseCase) SendMessage(ctx context.Context, senderUID, chatID string, input SendMessageInput) (*entity.Message, error) {
	if !uc.rateLimiter.Allow(senderUID, "send_message") {
		return nil, errors.TooManyRequests("Too many messages, slow down", nil)
	}

	thread, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !thread.IsParticipant(senderUID) {
		return nil, errors.Forbidden("Not a participant in this chat", nil)
	}

	recipient := thread.OtherParty(senderUID)
	blocked, err := uc.blockRepo.Exists(ctx, senderUID, recipient)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, errors.Blocked("Messages between blocked users are not delivered")
	}

	message := &entity.Message{
		ChatID:    chatID,
		SenderUID: senderUID,
		Content:   input.Content,
		ImageURL:  input.ImageURL,
	}
	err = uc.chatRepo.AppendMessage(ctx, message, func(t *entity.ChatThread) error {
		if senderUID == t.BuyerUID {
			t.SellerUnreadCount++
		} else {
			t.BuyerUnreadCount++
		}
		t.LastMessage = input.Content
		t.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.dispatcher.Notify(recipient, notification.KindNewMessage, map[string]interface{}{
		"chat_id":    chatID,
		"message_id": message.ID,
		"sender_uid": senderUID,
		"preview":    input.Content,
	})

	return message, nil
}

// appendLifecycleMessage is the single writer for system messages: both
// unread counters bump in the same atomic unit as the append, and a
// duplicate (chatId, content) pair is reported back instead of re-appended.
func appendLifecycleMessage(ctx context.Context, chatRepo repository.ChatRepository, chatID, content string) (*entity.Message, bool, error) {
	message := &entity.Message{
		ChatID:    chatID,
		SenderUID: entity.SystemSender,
		Content:   content,
	}
	err := chatRepo.AppendSystemMessage(ctx, message, func(t *entity.ChatThread) error {
		t.BuyerUnreadCount++
		t.SellerUnreadCount++
		t.LastMessage = content
		t.UpdatedAt = time.Now()
		return nil
	})
	if errors.Is(err, "DUPLICATE_SYSTEM_MESSAGE") {
		return nil, true, nil
	}
	if err != nil {
		return nil, false, err
	}
	return message, false, nil
}

// SendSystemMessage appends a lifecycle message, incrementing both unread
// counters atomically. An identical (chatId, content) pair is absorbed as
// an idempotent no-op; both parties are notified on a real append.
func (uc *ChatUseCase) SendSystemMessage(ctx context.Context, chatID, content string) (*entity.Message, error) {
	thread, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}

	message, duplicate, err := appendLifecycleMessage(ctx, uc.chatRepo, chatID, content)
	if err != nil {
		return nil, err
	}
	if duplicate {
		logger.Debug("Duplicate system message absorbed: chat=%s", chatID)
		return nil, nil
	}

	payload := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": message.ID,
		"sender_uid": entity.SystemSender,
		"preview":    content,
	}
	uc.dispatcher.Notify(thread.BuyerUID, notification.KindNewMessage, payload)
	uc.dispatcher.Notify(thread.SellerUID, notification.KindNewMessage, payload)

	return message, nil
}

// MarkRead zeroes the caller's unread counter and stamps their last-read
// time. Historical per-message readBy sets are left alone; the counter is
// what UI badges trust.
func (uc *ChatUseCase) MarkRead(ctx context.Context, uid, chatID string) (*entity.ChatThread, error) {
	return uc.chatRepo.UpdateThread(ctx, chatID, func(t *entity.ChatThread) error {
		if !t.IsParticipant(uid) {
			return errors.Forbidden("Not a participant in this chat", nil)
		}
		now := time.Now()
		if uid == t.BuyerUID {
			t.BuyerUnreadCount = 0
			t.BuyerLastReadAt = &now
		} else {
			t.SellerUnreadCount = 0
			t.SellerLastReadAt = &now
		}
		return nil
	})
}

// MarkMessageRead grows the best-effort readBy set on one message.
func (uc *ChatUseCase) MarkMessageRead(ctx context.Context, uid, chatID, messageID string) error {
	thread, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !thread.IsParticipant(uid) {
		return errors.Forbidden("Not a participant in this chat", nil)
	}
	return uc.chatRepo.MarkMessageRead(ctx, chatID, messageID, uid)
}

// ListThreads returns the caller's visible threads, newest activity first,
// excluding ones they have soft-deleted.
func (uc *ChatUseCase) ListThreads(ctx context.Context, uid string, limit, offset int) ([]*entity.ChatThread, int64, error) {
	threads, err := uc.chatRepo.ListByUserID(ctx, uid)
	if err != nil {
		return nil, 0, err
	}

	visible := make([]*entity.ChatThread, 0, len(threads))
	for _, t := range threads {
		if t.DeletedBy(uid) {
			continue
		}
		visible = append(visible, t)
	}

	total := int64(len(visible))
	if offset >= len(visible) {
		return []*entity.ChatThread{}, total, nil
	}
	end := offset + limit
	if end > len(visible) {
		end = len(visible)
	}
	return visible[offset:end], total, nil
}

func (uc *ChatUseCase) ListMessages(ctx context.Context, uid, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	thread, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, 0, err
	}
	if !thread.IsParticipant(uid) {
		return nil, 0, errors.Forbidden("Not a participant in this chat", nil)
	}
	return uc.chatRepo.ListMessages(ctx, chatID, limit, offset)
}

// SoftDelete hides the thread from the caller's listing. The other party
// keeps full access; once both have deleted, the thread and its ledger
// are reaped.
func (uc *ChatUseCase) SoftDelete(ctx context.Context, uid, chatID string) error {
	thread, err := uc.chatRepo.UpdateThread(ctx, chatID, func(t *entity.ChatThread) error {
		if !t.IsParticipant(uid) {
			return errors.Forbidden("Not a participant in this chat", nil)
		}
		if uid == t.BuyerUID {
			t.DeletedByBuyer = true
		} else {
			t.DeletedBySeller = true
		}
		return nil
	})
	if err != nil {
		return err
	}

	if thread.Reapable() {
		logger.Info("Reaping chat thread deleted by both parties: id=%s", chatID)
		return uc.chatRepo.DeleteThread(ctx, chatID)
	}
	return nil
}
