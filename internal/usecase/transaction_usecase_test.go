package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxscore/connectone-sub003/internal/adapter/repository"
	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
	domainrepo "github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/notification"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

type testStack struct {
	txRepo    domainrepo.TransactionRepository
	chatRepo  domainrepo.ChatRepository
	blockRepo domainrepo.BlockRepository
	txUC      *TransactionUseCase
	chatUC    *ChatUseCase
	blockUC   *BlockUseCase
}

func newTestStack() *testStack {
	txRepo := repository.NewMemoryTransactionRepository()
	chatRepo := repository.NewMemoryChatRepository()
	blockRepo := repository.NewMemoryBlockRepository()
	dispatcher := notification.NewDispatcher()

	return &testStack{
		txRepo:    txRepo,
		chatRepo:  chatRepo,
		blockRepo: blockRepo,
		txUC:      NewTransactionUseCase(txRepo, chatRepo, dispatcher),
		chatUC:    NewChatUseCase(chatRepo, blockRepo, dispatcher),
		blockUC:   NewBlockUseCase(blockRepo, chatRepo),
	}
}

func createTestTransaction(t *testing.T, s *testStack) *entity.Transaction {
	t.Helper()
	tx, err := s.txUC.CreateTransaction(context.Background(), "buyer-1", CreateTransactionInput{
		ProductID: "guitar-1",
		SellerID:  "seller-1",
		Amount:    450,
	})
	require.NoError(t, err)
	return tx
}

func TestCreateTransaction(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	tx := createTestTransaction(t, s)
	assert.Equal(t, lifecycle.StatusInitiated, tx.Status)
	assert.Equal(t, int64(1), tx.Version)

	// The product already has a live transaction.
	_, err := s.txUC.CreateTransaction(ctx, "buyer-2", CreateTransactionInput{
		ProductID: "guitar-1",
		SellerID:  "seller-1",
		Amount:    450,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "CONFLICT"))

	// Cancelling frees the product for a fresh attempt.
	_, err = s.txUC.ApplyTransition(ctx, Actor{UID: "buyer-1"}, tx.ID, ApplyTransitionInput{
		To:     lifecycle.StatusCancelled,
		Action: "cancel",
	})
	require.NoError(t, err)

	_, err = s.txUC.CreateTransaction(ctx, "buyer-2", CreateTransactionInput{
		ProductID: "guitar-1",
		SellerID:  "seller-1",
		Amount:    450,
	})
	assert.NoError(t, err)
}

func TestCreateTransactionSelfPurchase(t *testing.T) {
	s := newTestStack()

	_, err := s.txUC.CreateTransaction(context.Background(), "user-1", CreateTransactionInput{
		ProductID: "guitar-1",
		SellerID:  "user-1",
		Amount:    100,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestApplyTransitionHappyPath(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	tx := createTestTransaction(t, s)

	buyer := Actor{UID: "buyer-1"}
	seller := Actor{UID: "seller-1"}
	system := Actor{UID: entity.SystemSender, System: true}

	steps := []struct {
		actor      Actor
		to         lifecycle.Status
		action     string
		conditions map[string]bool
	}{
		{buyer, lifecycle.StatusPaid, "pay", map[string]bool{lifecycle.CondPaymentCompleted: true}},
		{system, lifecycle.StatusInEscrow, "hold_escrow", map[string]bool{lifecycle.CondPaymentCompleted: true}},
		{buyer, lifecycle.StatusAwaitingShipment, "provide_address", map[string]bool{lifecycle.CondShippingAddressProvided: true}},
		{seller, lifecycle.StatusShipped, "register_shipment", map[string]bool{lifecycle.CondTrackingNumberProvided: true}},
		{system, lifecycle.StatusInTransit, "mark_in_transit", nil},
		{system, lifecycle.StatusDelivered, "mark_delivered", map[string]bool{lifecycle.CondCourierDelivered: true}},
		{buyer, lifecycle.StatusDeliveryConfirmed, "confirm_delivery", nil},
		{buyer, lifecycle.StatusBuyerConfirmed, "confirm_receipt", nil},
	}

	for i, step := range steps {
		updated, err := s.txUC.ApplyTransition(ctx, step.actor, tx.ID, ApplyTransitionInput{
			To:         step.to,
			Action:     step.action,
			Conditions: step.conditions,
		})
		require.NoError(t, err, "step %d (%s)", i, step.action)
		assert.Equal(t, step.to, updated.Status)
		assert.Equal(t, int64(i+2), updated.Version)
	}

	// Terminal: nothing more may fire.
	_, err := s.txUC.ApplyTransition(ctx, buyer, tx.ID, ApplyTransitionInput{
		To:     lifecycle.StatusDispute,
		Action: "open_dispute",
		Conditions: map[string]bool{
			lifecycle.CondDisputeOpened: true,
		},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, "INVALID_TRANSITION"))

	// One audit entry per applied transition.
	logs, err := s.txUC.GetTransitionLog(ctx, buyer, tx.ID)
	require.NoError(t, err)
	assert.Len(t, logs, len(steps))
	assert.Equal(t, "pay", logs[0].Action)
	assert.Equal(t, lifecycle.StatusInitiated, logs[0].From)

	// The lifecycle left a system message per transition in the lazily
	// created thread, unread by both parties.
	chatID := entity.ThreadID("buyer-1", "seller-1", "guitar-1")
	thread, err := s.chatRepo.GetByID(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, len(steps), thread.BuyerUnreadCount)
	assert.Equal(t, len(steps), thread.SellerUnreadCount)

	messages, total, err := s.chatRepo.ListMessages(ctx, chatID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(len(steps)), total)
	for _, m := range messages {
		assert.True(t, m.IsSystem())
	}
}

func TestApplyTransitionRejections(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	tx := createTestTransaction(t, s)

	// No edge.
	_, err := s.txUC.ApplyTransition(ctx, Actor{UID: "buyer-1"}, tx.ID, ApplyTransitionInput{
		To:     lifecycle.StatusShipped,
		Action: "register_shipment",
	})
	assert.True(t, errors.Is(err, "INVALID_TRANSITION"))

	// Wrong role.
	_, err = s.txUC.ApplyTransition(ctx, Actor{UID: "seller-1"}, tx.ID, ApplyTransitionInput{
		To:         lifecycle.StatusPaid,
		Action:     "pay",
		Conditions: map[string]bool{lifecycle.CondPaymentCompleted: true},
	})
	assert.True(t, errors.Is(err, "UNAUTHORIZED"))

	// Missing condition.
	_, err = s.txUC.ApplyTransition(ctx, Actor{UID: "buyer-1"}, tx.ID, ApplyTransitionInput{
		To:     lifecycle.StatusPaid,
		Action: "pay",
	})
	assert.True(t, errors.Is(err, "CONDITION_NOT_MET"))

	// Outsider.
	_, err = s.txUC.ApplyTransition(ctx, Actor{UID: "stranger"}, tx.ID, ApplyTransitionInput{
		To:     lifecycle.StatusPaid,
		Action: "pay",
	})
	assert.True(t, errors.Is(err, "FORBIDDEN"))

	// Unknown transaction.
	_, err = s.txUC.ApplyTransition(ctx, Actor{UID: "buyer-1"}, "missing", ApplyTransitionInput{
		To:     lifecycle.StatusPaid,
		Action: "pay",
	})
	assert.True(t, errors.Is(err, "NOT_FOUND"))

	// Nothing applied, version untouched.
	current, err := s.txUC.GetTransaction(ctx, Actor{UID: "buyer-1"}, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusInitiated, current.Status)
	assert.Equal(t, int64(1), current.Version)
}

func TestApplyTransitionConcurrency(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	tx := createTestTransaction(t, s)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.txUC.ApplyTransition(ctx, Actor{UID: "buyer-1"}, tx.ID, ApplyTransitionInput{
				To:         lifecycle.StatusPaid,
				Action:     "pay",
				Conditions: map[string]bool{lifecycle.CondPaymentCompleted: true},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		// Losers either lost the swap or reloaded after the winner and hit
		// a state with no matching edge.
		assert.True(t,
			errors.Is(err, "CONCURRENT_MODIFICATION") || errors.Is(err, "INVALID_TRANSITION"),
			"unexpected loser error: %v", err)
	}
	assert.Equal(t, 1, wins)

	current, err := s.txUC.GetTransaction(ctx, Actor{UID: "buyer-1"}, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusPaid, current.Status)
	assert.Equal(t, int64(2), current.Version)
}

func TestCancellationRecordsActor(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	tx := createTestTransaction(t, s)

	updated, err := s.txUC.ApplyTransition(ctx, Actor{UID: "seller-1"}, tx.ID, ApplyTransitionInput{
		To:     lifecycle.StatusCancelled,
		Action: "cancel",
		Notes:  "listed by mistake",
	})
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCancelled, updated.Status)
	assert.Equal(t, "seller", updated.CancelledBy)
	assert.Equal(t, "listed by mistake", updated.CancelReason)
	require.NotNil(t, updated.CancelledAt)
}

func TestGetAllowedActions(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	tx := createTestTransaction(t, s)

	actions, err := s.txUC.GetAllowedActions(ctx, Actor{UID: "buyer-1"}, tx.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pay", "cancel"}, actions)

	actions, err = s.txUC.GetAllowedActions(ctx, Actor{UID: "seller-1"}, tx.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"cancel"}, actions)

	_, err = s.txUC.GetAllowedActions(ctx, Actor{UID: "stranger"}, tx.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestSystemMessageIdempotency(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	tx := createTestTransaction(t, s)

	_, err := s.txUC.ApplyTransition(ctx, Actor{UID: "buyer-1"}, tx.ID, ApplyTransitionInput{
		To:         lifecycle.StatusPaid,
		Action:     "pay",
		Conditions: map[string]bool{lifecycle.CondPaymentCompleted: true},
	})
	require.NoError(t, err)

	chatID := entity.ThreadID("buyer-1", "seller-1", "guitar-1")
	_, total, err := s.chatRepo.ListMessages(ctx, chatID, 100, 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)

	// Replaying the same lifecycle announcement is absorbed.
	msg, err := s.chatUC.SendSystemMessage(ctx, chatID, "Transaction status changed to PAID (update 2)")
	require.NoError(t, err)
	assert.Nil(t, msg)

	_, total, err = s.chatRepo.ListMessages(ctx, chatID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	thread, err := s.chatRepo.GetByID(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, 1, thread.BuyerUnreadCount)
	assert.Equal(t, 1, thread.SellerUnreadCount)
}

func TestListTransactions(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	for _, productID := range []string{"p1", "p2", "p3"} {
		_, err := s.txUC.CreateTransaction(ctx, "buyer-1", CreateTransactionInput{
			ProductID: productID,
			SellerID:  "seller-1",
			Amount:    100,
		})
		require.NoError(t, err)
	}

	txs, total, err := s.txUC.ListTransactions(ctx, "buyer-1", "buyer", "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, txs, 2)

	txs, total, err = s.txUC.ListTransactions(ctx, "seller-1", "seller", string(lifecycle.StatusInitiated), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, txs, 3)

	_, total, err = s.txUC.ListTransactions(ctx, "buyer-1", "buyer", string(lifecycle.StatusPaid), 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
}
