package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

type memoryChatRepository struct {
	mu       sync.Mutex
	threads  map[string]*entity.ChatThread
	messages map[string][]*entity.Message // chatID -> ledger in seq order
}

func NewMemoryChatRepository() repository.ChatRepository {
	return &memoryChatRepository{
		threads:  make(map[string]*entity.ChatThread),
		messages: make(map[string][]*entity.Message),
	}
}

func (r *memoryChatRepository) CreateThread(ctx context.Context, thread *entity.ChatThread) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if thread.ID == "" {
		thread.ID = entity.ThreadID(thread.BuyerUID, thread.SellerUID, thread.ItemID)
	}

	// Create-if-absent: a duplicate create must not reset counters or
	// the seq generator of a live thread.
	if _, ok := r.threads[thread.ID]; ok {
		return errors.Conflict("Chat thread already exists")
	}

	now := time.Now()
	thread.CreatedAt = now
	thread.UpdatedAt = now

	cp := *thread
	r.threads[thread.ID] = &cp
	return nil
}

func (r *memoryChatRepository) GetByID(ctx context.Context, chatID string) (*entity.ChatThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(chatID)
}

func (r *memoryChatRepository) getLocked(chatID string) (*entity.ChatThread, error) {
	stored, ok := r.threads[chatID]
	if !ok {
		return nil, errors.NotFound("Chat thread", nil)
	}
	cp := *stored
	return &cp, nil
}

func (r *memoryChatRepository) ListByUserID(ctx context.Context, uid string) ([]*entity.ChatThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var threads []*entity.ChatThread
	for _, t := range r.threads {
		if t.BuyerUID == uid || t.SellerUID == uid {
			cp := *t
			threads = append(threads, &cp)
		}
	}
	sort.Slice(threads, func(i, j int) bool {
		return threads[i].UpdatedAt.After(threads[j].UpdatedAt)
	})
	return threads, nil
}

func (r *memoryChatRepository) AppendMessage(ctx context.Context, message *entity.Message, mutate func(thread *entity.ChatThread) error) error {
	return r.append(message, false, mutate)
}

func (r *memoryChatRepository) AppendSystemMessage(ctx context.Context, message *entity.Message, mutate func(thread *entity.ChatThread) error) error {
	return r.append(message, true, mutate)
}

func (r *memoryChatRepository) append(message *entity.Message, dedupeSystem bool, mutate func(thread *entity.ChatThread) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, err := r.getLocked(message.ChatID)
	if err != nil {
		return err
	}

	if dedupeSystem {
		for _, m := range r.messages[message.ChatID] {
			if m.SenderUID == entity.SystemSender && m.Content == message.Content {
				return errors.DuplicateSystemMessage(message.ChatID)
			}
		}
	}

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.CreatedAt = time.Now()
	thread.LastSeq++
	message.Seq = thread.LastSeq

	if err := mutate(thread); err != nil {
		return err
	}
	thread.UpdatedAt = message.CreatedAt

	threadCp := *thread
	r.threads[thread.ID] = &threadCp
	msgCp := *message
	r.messages[message.ChatID] = append(r.messages[message.ChatID], &msgCp)
	return nil
}

func (r *memoryChatRepository) UpdateThread(ctx context.Context, chatID string, mutate func(thread *entity.ChatThread) error) (*entity.ChatThread, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thread, err := r.getLocked(chatID)
	if err != nil {
		return nil, err
	}

	if err := mutate(thread); err != nil {
		return nil, err
	}
	thread.UpdatedAt = time.Now()

	cp := *thread
	r.threads[chatID] = &cp
	out := *thread
	return &out, nil
}

func (r *memoryChatRepository) ListMessages(ctx context.Context, chatID string, limit, offset int) ([]*entity.Message, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ledger := r.messages[chatID]
	total := int64(len(ledger))

	out := make([]*entity.Message, 0, len(ledger))
	for _, m := range ledger {
		cp := *m
		out = append(out, &cp)
	}
	out = paginate(out, limit, offset)
	return out, total, nil
}

func (r *memoryChatRepository) MarkMessageRead(ctx context.Context, chatID, messageID, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.messages[chatID] {
		if m.ID != messageID {
			continue
		}
		if !m.ReadByUser(uid) {
			m.ReadBy = append(m.ReadBy, uid)
		}
		return nil
	}
	// Best-effort metadata; missing messages are skipped.
	return nil
}

func (r *memoryChatRepository) DeleteThread(ctx context.Context, chatID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.threads, chatID)
	delete(r.messages, chatID)
	return nil
}
