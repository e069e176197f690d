package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/notification"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

// Actor identifies who is firing a trigger. System is set only by internal
// callers (scheduler, collaborator endpoints), never from user input.
type Actor struct {
	UID    string
	Admin  bool
	System bool
}

func (a Actor) role(t *entity.Transaction) (lifecycle.Role, error) {
	if a.System {
		return lifecycle.RoleSystem, nil
	}
	if a.Admin {
		return lifecycle.RoleAdmin, nil
	}
	role, ok := t.RoleOf(a.UID)
	if !ok {
		return "", errors.Forbidden("Not a party to this transaction", nil)
	}
	return role, nil
}

type TransactionUseCase struct {
	txRepo     repository.TransactionRepository
	chatRepo   repository.ChatRepository
	dispatcher *notification.Dispatcher
}

func NewTransactionUseCase(
	txRepo repository.TransactionRepository,
	chatRepo repository.ChatRepository,
	dispatcher *notification.Dispatcher,
) *TransactionUseCase {
	return &TransactionUseCase{
		txRepo:     txRepo,
		chatRepo:   chatRepo,
		dispatcher: dispatcher,
	}
}

type CreateTransactionInput struct {
	ProductID     string  `json:"product_id" validate:"required"`
	SellerID      string  `json:"seller_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	PaymentMethod string  `json:"payment_method"`
}

type ApplyTransitionInput struct {
	To         lifecycle.Status `json:"to" validate:"required"`
	Action     string           `json:"action" validate:"required"`
	Conditions map[string]bool  `json:"conditions"`
	Notes      string           `json:"notes"`
}

// CreateTransaction opens a fresh escrow attempt. A product with a live
// (non-terminal) transaction cannot be sold twice; a cancelled attempt
// never blocks a new one.
func (uc *TransactionUseCase) CreateTransaction(ctx context.Context, buyerID string, input CreateTransactionInput) (*entity.Transaction, error) {
	if buyerID == input.SellerID {
		return nil, errors.BadRequest("Cannot open a transaction with yourself", nil)
	}

	active, err := uc.txRepo.HasActiveForProduct(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, errors.Conflict("An active transaction already exists for this product")
	}

	now := time.Now()
	transaction := &entity.Transaction{
		ID:              uuid.New().String(),
		ProductID:       input.ProductID,
		BuyerID:         buyerID,
		SellerID:        input.SellerID,
		Amount:          input.Amount,
		Status:          lifecycle.Initial,
		PaymentMethod:   input.PaymentMethod,
		Version:         1,
		StatusChangedAt: now,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := uc.txRepo.Create(ctx, transaction); err != nil {
		return nil, err
	}

	logger.Info("Transaction created: id=%s product=%s buyer=%s seller=%s",
		transaction.ID, transaction.ProductID, transaction.BuyerID, transaction.SellerID)

	return transaction, nil
}

// ApplyTransition is the single entry point for every status change, user
// or system driven. It loads the record, gates the actor's role against
// the table, validates conditions, and commits through the optimistic
// compare-and-swap so concurrent triggers on the same version resolve to
// exactly one winner.
func (uc *TransactionUseCase) ApplyTransition(ctx context.Context, actor Actor, transactionID string, input ApplyTransitionInput) (*entity.Transaction, error) {
	transaction, err := uc.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	role, err := actor.role(transaction)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.Validate(transaction.Status, input.To, input.Action, role, input.Conditions); err != nil {
		return nil, err
	}

	expectedStatus := transaction.Status
	expectedVersion := transaction.Version
	now := time.Now()

	transaction.Status = input.To
	transaction.StatusChangedAt = now
	if input.To == lifecycle.StatusCancelled {
		transaction.CancelReason = input.Notes
		transaction.CancelledBy = string(role)
		transaction.CancelledAt = &now
	}

	if err := uc.txRepo.UpdateStatusCAS(ctx, transaction, expectedStatus, expectedVersion); err != nil {
		return nil, err
	}

	uc.recordTransition(ctx, transaction, expectedStatus, input, actor, role)
	uc.announceTransition(ctx, transaction, input.Action, actor)

	return transaction, nil
}

// recordTransition writes the audit log entry. Audit failures are logged
// and never roll back the applied transition.
func (uc *TransactionUseCase) recordTransition(ctx context.Context, t *entity.Transaction, from lifecycle.Status, input ApplyTransitionInput, actor Actor, role lifecycle.Role) {
	createdBy := actor.UID
	if actor.System {
		createdBy = entity.SystemSender
	}

	log := &entity.TransitionLog{
		ID:            uuid.New().String(),
		TransactionID: t.ID,
		From:          from,
		To:            t.Status,
		Action:        input.Action,
		Role:          role,
		Notes:         input.Notes,
		CreatedBy:     createdBy,
		CreatedAt:     time.Now(),
	}
	if err := uc.txRepo.CreateLog(ctx, log); err != nil {
		logger.LogTransitionError(t.ID, input.Action, err)
	}
}

// announceTransition appends the lifecycle system message to the parties'
// thread and notifies everyone but the acting party. Both are best-effort:
// the transition has already committed.
func (uc *TransactionUseCase) announceTransition(ctx context.Context, t *entity.Transaction, action string, actor Actor) {
	content := fmt.Sprintf("Transaction status changed to %s (update %d)", t.Status, t.Version)
	if err := uc.appendSystemMessage(ctx, t, content); err != nil {
		logger.Warn("System message for transaction %s not appended: %v", t.ID, err)
	}

	payload := map[string]interface{}{
		"transaction_id": t.ID,
		"status":         t.Status,
		"action":         action,
		"version":        t.Version,
	}
	for _, uid := range []string{t.BuyerID, t.SellerID} {
		if uid == actor.UID {
			continue
		}
		uc.dispatcher.Notify(uid, notification.KindStatusChanged, payload)
	}
}

// appendSystemMessage lazily creates the parties' thread and appends the
// idempotent lifecycle message, incrementing both unread counters in the
// same atomic unit. A duplicate is absorbed silently.
func (uc *TransactionUseCase) appendSystemMessage(ctx context.Context, t *entity.Transaction, content string) error {
	chatID := entity.ThreadID(t.BuyerID, t.SellerID, t.ProductID)

	if _, err := uc.chatRepo.GetByID(ctx, chatID); err != nil {
		if !errors.Is(err, "NOT_FOUND") {
			return err
		}
		now := time.Now()
		thread := &entity.ChatThread{
			ID:        chatID,
			ItemID:    t.ProductID,
			BuyerUID:  t.BuyerID,
			SellerUID: t.SellerID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		// A concurrent first-contact create may win the race; the
		// existing thread serves just as well.
		if err := uc.chatRepo.CreateThread(ctx, thread); err != nil && !errors.Is(err, "CONFLICT") {
			return err
		}
	}

	_, _, err := appendLifecycleMessage(ctx, uc.chatRepo, chatID, content)
	return err
}

// GetAllowedActions returns the triggers the actor may fire from the
// transaction's current status, straight from the table.
func (uc *TransactionUseCase) GetAllowedActions(ctx context.Context, actor Actor, transactionID string) ([]string, error) {
	transaction, err := uc.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	role, err := actor.role(transaction)
	if err != nil {
		return nil, err
	}
	return lifecycle.AllowedActions(transaction.Status, role), nil
}

func (uc *TransactionUseCase) GetTransaction(ctx context.Context, actor Actor, transactionID string) (*entity.Transaction, error) {
	transaction, err := uc.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if _, err := actor.role(transaction); err != nil {
		return nil, err
	}
	return transaction, nil
}

func (uc *TransactionUseCase) ListTransactions(ctx context.Context, userID, role, status string, limit, offset int) ([]*entity.Transaction, int64, error) {
	return uc.txRepo.ListByUserID(ctx, userID, role, status, limit, offset)
}

func (uc *TransactionUseCase) GetTransitionLog(ctx context.Context, actor Actor, transactionID string) ([]*entity.TransitionLog, error) {
	transaction, err := uc.txRepo.GetByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if _, err := actor.role(transaction); err != nil {
		return nil, err
	}
	return uc.txRepo.ListLogsByTransactionID(ctx, transactionID)
}
