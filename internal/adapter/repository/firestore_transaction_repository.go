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
	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

type firestoreTransactionRepository struct {
	client *firestore.Client
}

func NewFirestoreTransactionRepository(client *firestore.Client) repository.TransactionRepository {
	return &firestoreTransactionRepository{
		client: client,
	}
}

func (r *firestoreTransactionRepository) Create(ctx context.Context, transaction *entity.Transaction) error {
	if transaction.ID == "" {
		transaction.ID = uuid.New().String()
	}

	now := time.Now()
	transaction.CreatedAt = now
	transaction.UpdatedAt = now
	transaction.StatusChangedAt = now

	_, err := r.client.Collection("transactions").Doc(transaction.ID).Set(ctx, transaction)
	if err != nil {
		return errors.Internal("Failed to create transaction", err)
	}

	return nil
}

func (r *firestoreTransactionRepository) GetByID(ctx context.Context, id string) (*entity.Transaction, error) {
	doc, err := r.client.Collection("transactions").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Transaction", err)
		}
		return nil, errors.Internal("Failed to get transaction", err)
	}

	var transaction entity.Transaction
	if err := doc.DataTo(&transaction); err != nil {
		return nil, errors.Internal("Failed to parse transaction data", err)
	}

	return &transaction, nil
}

// UpdateStatusCAS re-reads the document inside a Firestore transaction and
// commits only if status and version still match what the caller saw.
func (r *firestoreTransactionRepository) UpdateStatusCAS(ctx context.Context, transaction *entity.Transaction, expectedStatus lifecycle.Status, expectedVersion int64) error {
	docRef := r.client.Collection("transactions").Doc(transaction.ID)

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return errors.NotFound("Transaction", err)
			}
			return errors.Internal("Failed to get transaction", err)
		}

		var current entity.Transaction
		if err := doc.DataTo(&current); err != nil {
			return errors.Internal("Failed to parse transaction data", err)
		}

		if current.Status != expectedStatus || current.Version != expectedVersion {
			return errors.ConcurrentModification("transaction " + transaction.ID)
		}

		transaction.Version = expectedVersion + 1
		transaction.UpdatedAt = time.Now()
		return tx.Set(docRef, transaction)
	})
	if err != nil {
		if _, ok := err.(*errors.AppError); ok {
			return err
		}
		return errors.Internal("Failed to update transaction status", err)
	}

	return nil
}

func (r *firestoreTransactionRepository) ListByStatus(ctx context.Context, st lifecycle.Status) ([]*entity.Transaction, error) {
	iter := r.client.Collection("transactions").
		Where("status", "==", string(st)).
		OrderBy("statusChangedAt", firestore.Asc).
		Documents(ctx)

	var transactions []*entity.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate transactions", err)
		}

		var transaction entity.Transaction
		if err := doc.DataTo(&transaction); err != nil {
			return nil, errors.Internal("Failed to parse transaction data", err)
		}
		transactions = append(transactions, &transaction)
	}

	return transactions, nil
}

func (r *firestoreTransactionRepository) ListByUserID(ctx context.Context, userID string, role string, statusFilter string, limit, offset int) ([]*entity.Transaction, int64, error) {
	var field string
	if role == "buyer" {
		field = "buyerId"
	} else if role == "seller" {
		field = "sellerId"
	} else {
		return nil, 0, errors.BadRequest("Invalid role", nil)
	}

	query := r.client.Collection("transactions").Where(field, "==", userID)
	if statusFilter != "" {
		query = query.Where("status", "==", statusFilter)
	}
	query = query.OrderBy("createdAt", firestore.Desc)

	countDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, errors.Internal("Failed to count transactions", err)
	}
	total := int64(len(countDocs))

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	iter := query.Documents(ctx)
	var transactions []*entity.Transaction
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, 0, errors.Internal("Failed to iterate transactions", err)
		}

		var transaction entity.Transaction
		if err := doc.DataTo(&transaction); err != nil {
			return nil, 0, errors.Internal("Failed to parse transaction data", err)
		}
		transactions = append(transactions, &transaction)
	}

	return transactions, total, nil
}

func (r *firestoreTransactionRepository) HasActiveForProduct(ctx context.Context, productID string) (bool, error) {
	iter := r.client.Collection("transactions").
		Where("productId", "==", productID).
		Documents(ctx)

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return false, errors.Internal("Failed to iterate transactions", err)
		}

		var transaction entity.Transaction
		if err := doc.DataTo(&transaction); err != nil {
			continue
		}
		if !lifecycle.Terminal(transaction.Status) {
			return true, nil
		}
	}

	return false, nil
}

func (r *firestoreTransactionRepository) CreateLog(ctx context.Context, log *entity.TransitionLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	log.CreatedAt = time.Now()

	_, err := r.client.Collection("transition_logs").Doc(log.ID).Set(ctx, log)
	if err != nil {
		return errors.Internal("Failed to create transition log", err)
	}

	return nil
}

func (r *firestoreTransactionRepository) ListLogsByTransactionID(ctx context.Context, transactionID string) ([]*entity.TransitionLog, error) {
	query := r.client.Collection("transition_logs").
		Where("transactionId", "==", transactionID).
		OrderBy("createdAt", firestore.Asc)

	iter := query.Documents(ctx)
	var logs []*entity.TransitionLog
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate transition logs", err)
		}

		var log entity.TransitionLog
		if err := doc.DataTo(&log); err != nil {
			return nil, errors.Internal("Failed to parse transition log data", err)
		}
		logs = append(logs, &log)
	}

	return logs, nil
}
