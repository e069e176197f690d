package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) CreateThread(ctx context.Context, thread *entity.ChatThread) error {
	if thread.ID == "" {
		thread.ID = entity.ThreadID(thread.BuyerUID, thread.SellerUID, thread.ItemID)
	}

	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now

	_, err := r.client.Collection("chats").Doc(thread.ID).Create(ctx, thread)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return errors.Conflict("Chat thread already exists")
		}
		return errors.Internal("Failed to create chat thread", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, chatID string) (*entity.ChatThread, error) {
	doc, err := r.client.Collection("chats").Doc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat thread", err)
		}
		return nil, errors.Internal("Failed to get chat thread", err)
	}

	var thread entity.ChatThread
	if err := doc.DataTo(&thread); err != nil {
		return nil, errors.Internal("Failed to parse chat thread data", err)
	}

	return &thread, nil
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, uid string) ([]*entity.ChatThread, error) {
	var threads []*entity.ChatThread

	for _, field := range []string{"buyerUid", "sellerUid"} {
		iter := r.client.Collection("chats").
			Where(field, "==", uid).
			OrderBy("updatedAt", firestore.Desc).
			Documents(ctx)

		for {
			doc, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return nil, errors.Internal("Failed to iterate chat threads", err)
			}

			var thread entity.ChatThread
			if err := doc.DataTo(&thread); err != nil {
				continue
			}
			threads = append(threads, &thread)
		}
	}

	return threads, nil
}

// appendInTx is the shared atomic unit: thread read, seq assignment,
// caller mutation, thread write and message write commit together.
func (r *firestoreChatRepository) appendInTx(ctx context.Context, message *entity.Message, dedupeSystem bool, mutate func(thread *entity.ChatThread) error) error {
	threadRef := r.client.Collection("chats").Doc(message.ChatID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(threadRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Chat thread", err)
			}
			return errors.Internal("Failed to get chat thread", err)
		}

		var thread entity.ChatThread
		if err := doc.DataTo(&thread); err != nil {
			return errors.Internal("Failed to parse chat thread data", err)
		}

		if dedupeSystem {
			dupQuery := r.client.Collection("messages").
				Where("chatId", "==", message.ChatID).
				Where("senderUid", "==", entity.SystemSender).
				Where("content", "==", message.Content).
				Limit(1)
			dupIter := tx.Documents(dupQuery)
			if _, err := dupIter.Next(); err != iterator.Done {
				if err != nil {
					return errors.Internal("Failed to check duplicate system message", err)
				}
				return errors.DuplicateSystemMessage(message.ChatID)
			}
		}

		if message.ID == "" {
			message.ID = uuid.New().String()
		}
		message.CreatedAt = time.Now()
		thread.LastSeq++
		message.Seq = thread.LastSeq

		if err := mutate(&thread); err != nil {
			return err
		}
		thread.UpdatedAt = message.CreatedAt

		if err := tx.Set(threadRef, &thread); err != nil {
			return errors.Internal("Failed to update chat thread", err)
		}
		msgRef := r.client.Collection("messages").Doc(message.ID)
		return tx.Set(msgRef, message)
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.Internal("Failed to append message", err)
	}

	return nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, message *entity.Message, mutate func(thread *entity.ChatThread) error) error {
	return r.appendInTx(ctx, message, false, mutate)
}

func (r *firestoreChatRepository) AppendSystemMessage(ctx context.Context, message *entity.Message, mutate func(thread *entity.ChatThread) error) error {
	return r.appendInTx(ctx, message, true, mutate)
}

func (r *firestoreChatRepository) UpdateThread(ctx context.Context, chatID string, mutate func(thread *entity.ChatThread) error) (*entity.ChatThread, error) {
	threadRef := r.client.Collection("chats").Doc(chatID)

	var updated entity.ChatThread
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(threadRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Chat thread", err)
			}
			return errors.Internal("Failed to get chat thread", err)
		}

		var thread entity.ChatThread
		if err := doc.DataTo(&thread); err != nil {
			return errors.Internal("Failed to parse chat thread data", err)
		}

		if err := mutate(&thread); err != nil {
			return err
		}
		thread.UpdatedAt = time.Now()
		updated = thread

		return tx.Set(threadRef, &thread)
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return nil, err
		}
		return nil, errors.Internal("Failed to update chat thread", err)
	}

	return &updated, nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	query := r.client.Collection("messages").
		Where("chatId", "==", chatID).
		OrderBy("seq", firestore.Asc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count messages", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			return nil, 0, errors.Internal("Failed to parse message data", err)
		}
		messages = append(messages, &message)
	}

	return messages, total, nil
}

func (r *firestoreChatRepository) MarkMessageRead(ctx context.Context, chatID, messageID, uid string) error {
	docRef := r.client.Collection("messages").Doc(messageID)
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			// Best-effort metadata; an old or reaped message is skipped.
			return nil
		}
		return errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return errors.Internal("Failed to parse message data", err)
	}
	if message.ChatID != chatID || message.ReadByUser(uid) {
		return nil
	}

	message.ReadBy = append(message.ReadBy, uid)
	if _, err := docRef.Set(ctx, &message); err != nil {
		return errors.Internal("Failed to update message read status", err)
	}

	return nil
}

func (r *firestoreChatRepository) DeleteThread(ctx context.Context, chatID string) error {
	iter := r.client.Collection("messages").Where("chatId", "==", chatID).Documents(ctx)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to iterate messages for deletion", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return errors.Internal("Failed to delete message", err)
		}
	}

	if _, err := r.client.Collection("chats").Doc(chatID).Delete(ctx); err != nil {
		return errors.Internal("Failed to delete chat thread", err)
	}

	return nil
}
