package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

// memoryTransactionRepository backs local development and tests. A single
// mutex stands in for the store's atomic unit.
type memoryTransactionRepository struct {
	mu           sync.Mutex
	transactions map[string]*entity.Transaction
	logs         map[string][]*entity.TransitionLog
}

func NewMemoryTransactionRepository() repository.TransactionRepository {
	return &memoryTransactionRepository{
		transactions: make(map[string]*entity.Transaction),
		logs:         make(map[string][]*entity.TransitionLog),
	}
}

func (r *memoryTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	now := time.Now()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now
	transaction.StatusChangedAt = now

	cp := *transaction
	r.transactions[transaction.ID] = &cp
	return nil
}

func (r *memoryTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.transactions[id]
	if !ok {
		return nil, errors.NotFound("Transaction", nil)
	}
	cp := *stored
	return &cp, nil
}

func (r *memoryTransactionRepository) UpdateStatusCAS(ctx context.Context, transaction *entity.Transaction, expectedStatus lifecycle.Status, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.transactions[transaction.ID]
	if !ok {
		return errors.NotFound("Transaction", nil)
	}

	if stored.Status != expectedStatus || stored.Version != expectedVersion {
		return errors.ConcurrentModification("transaction " + transaction.ID)
	}

	transaction.Version = expectedVersion + 1
	transaction.UpdatedAt = time.Now()
	cp := *transaction
	r.transactions[transaction.ID] = &cp
	return nil
}

func (r *memoryTransactionRepository) ListByStatus(ctx context.Context, st lifecycle.Status) ([]*entity.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.Transaction
	for _, t := range r.transactions {
		if t.Status == st {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StatusChangedAt.Before(out[j].StatusChangedAt)
	})
	return out, nil
}

func (r *memoryTransactionRepository) ListByUserID(ctx context.Context, userID string, role string, statusFilter string, limit, offset int) ([]*entity.Transaction, int64, error) {
	if role != "buyer" && role != "seller" {
		return nil, 0, errors.BadRequest("Invalid role", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*entity.Transaction
	for _, t := range r.transactions {
		if role == "buyer" && t.BuyerID != userID {
			continue
		}
		if role == "seller" && t.SellerID != userID {
			continue
		}
		if statusFilter != "" && string(t.Status) != statusFilter {
			continue
		}
		cp := *t
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	matched = paginate(matched, limit, offset)
	return matched, total, nil
}

func (r *memoryTransactionRepository) HasActiveForProduct(ctx context.Context, productID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.transactions {
		if t.ProductID == productID && !lifecycle.Terminal(t.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryTransactionRepository) CreateLog(ctx context.Context, log *entity.TransitionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.CreatedAt = time.Now()

	cp := *log
	r.logs[log.TransactionID] = append(r.logs[log.TransactionID], &cp)
	return nil
}

func (r *memoryTransactionRepository) ListLogsByTransactionID(ctx context.Context, transactionID string) ([]*entity.TransitionLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs := r.logs[transactionID]
	out := make([]*entity.TransitionLog, 0, len(logs))
	for _, l := range logs {
		cp := *l
		out = append(out, &cp)
	}
	return out, nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
