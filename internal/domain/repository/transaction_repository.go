package repository

import (
	"context"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *entity.Transaction) error
	GetByID(ctx context.Context, id string) (*entity.Transaction, error)

	// UpdateStatusCAS writes the transaction's status and related fields only
	// if the stored record still carries expectedStatus and expectedVersion;
	// otherwise it returns CONCURRENT_MODIFICATION and writes nothing. The
	// implementation bumps Version and UpdatedAt on success.
	UpdateStatusCAS(ctx context.Context, transaction *entity.Transaction, expectedStatus lifecycle.Status, expectedVersion int64) error

	// ListByStatus is the scheduler's scan over candidate auto-transitions.
	ListByStatus(ctx context.Context, status lifecycle.Status) ([]*entity.Transaction, error)

	ListByUserID(ctx context.Context, userID string, role string, status string, limit, offset int) ([]*entity.Transaction, int64, error)

	// HasActiveForProduct reports whether a non-terminal transaction already
	// exists for the product. A cancelled attempt never blocks a fresh one.
	HasActiveForProduct(ctx context.Context, productID string) (bool, error)

	CreateLog(ctx context.Context, log *entity.TransitionLog) error
	ListLogsByTransactionID(ctx context.Context, transactionID string) ([]*entity.TransitionLog, error)
}
