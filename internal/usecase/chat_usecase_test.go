package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxscore/connectone-sub003/internal/adapter/repository"
	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	domainrepo "github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/notification"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

func createTestThread(t *testing.T, s *testStack) *entity.ChatThread {
	t.Helper()
	thread, err := s.chatUC.GetOrCreateThread(context.Background(), "buyer-1", CreateThreadInput{
		SellerUID: "seller-1",
		ItemID:    "guitar-1",
	})
	require.NoError(t, err)
	return thread
}

func TestGetOrCreateThread(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	thread := createTestThread(t, s)
	assert.Equal(t, "buyer-1_seller-1_guitar-1", thread.ID)
	assert.Zero(t, thread.BuyerUnreadCount)
	assert.Zero(t, thread.SellerUnreadCount)

	// Same parties and item resolve to the same thread.
	again, err := s.chatUC.GetOrCreateThread(ctx, "buyer-1", CreateThreadInput{
		SellerUID: "seller-1",
		ItemID:    "guitar-1",
	})
	require.NoError(t, err)
	assert.Equal(t, thread.ID, again.ID)

	_, err = s.chatUC.GetOrCreateThread(ctx, "buyer-1", CreateThreadInput{
		SellerUID: "buyer-1",
		ItemID:    "guitar-1",
	})
	assert.True(t, errors.Is(err, "BAD_REQUEST"))
}

func TestSendMessageUpdatesRecipientCounter(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	msg, err := s.chatUC.SendMessage(ctx, "buyer-1", thread.ID, SendMessageInput{Content: "Is it still available?"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, int64(1), msg.Seq)

	updated, err := s.chatRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.BuyerUnreadCount)
	assert.Equal(t, 1, updated.SellerUnreadCount)
	assert.Equal(t, "Is it still available?", updated.LastMessage)

	_, err = s.chatUC.SendMessage(ctx, "seller-1", thread.ID, SendMessageInput{Content: "Yes"})
	require.NoError(t, err)

	updated, err = s.chatRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.BuyerUnreadCount)
	assert.Equal(t, 1, updated.SellerUnreadCount)

	_, err = s.chatUC.SendMessage(ctx, "stranger", thread.ID, SendMessageInput{Content: "hi"})
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestConcurrentSendsCountExactly(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	const sends = 20
	var wg sync.WaitGroup
	for i := 0; i < sends; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := s.chatUC.SendMessage(ctx, "seller-1", thread.ID, SendMessageInput{
				Content: fmt.Sprintf("message %d", n),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	updated, err := s.chatRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, sends, updated.BuyerUnreadCount)
	assert.Equal(t, 0, updated.SellerUnreadCount)

	// The ledger is totally ordered: seq values are 1..N without gaps.
	messages, total, err := s.chatUC.ListMessages(ctx, "buyer-1", thread.ID, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(sends), total)
	for i, m := range messages {
		assert.Equal(t, int64(i+1), m.Seq)
	}
}

func TestMarkRead(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	for i := 0; i < 3; i++ {
		_, err := s.chatUC.SendMessage(ctx, "seller-1", thread.ID, SendMessageInput{
			Content: fmt.Sprintf("m%d", i),
		})
		require.NoError(t, err)
	}

	updated, err := s.chatUC.MarkRead(ctx, "buyer-1", thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.BuyerUnreadCount)
	require.NotNil(t, updated.BuyerLastReadAt)
	assert.Nil(t, updated.SellerLastReadAt)

	// No further sends: the counter stays down.
	again, err := s.chatRepo.GetByID(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.BuyerUnreadCount)

	_, err = s.chatUC.MarkRead(ctx, "stranger", thread.ID)
	assert.True(t, errors.Is(err, "FORBIDDEN"))
}

func TestMarkMessageReadIsBestEffort(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	msg, err := s.chatUC.SendMessage(ctx, "buyer-1", thread.ID, SendMessageInput{Content: "hello"})
	require.NoError(t, err)

	require.NoError(t, s.chatUC.MarkMessageRead(ctx, "seller-1", thread.ID, msg.ID))

	messages, _, err := s.chatUC.ListMessages(ctx, "seller-1", thread.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.True(t, messages[0].ReadByUser("seller-1"))

	// A missing message is skipped, not an error.
	assert.NoError(t, s.chatUC.MarkMessageRead(ctx, "seller-1", thread.ID, "missing"))
}

func TestSoftDeleteVisibility(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	_, err := s.chatUC.SendMessage(ctx, "buyer-1", thread.ID, SendMessageInput{Content: "hi"})
	require.NoError(t, err)

	require.NoError(t, s.chatUC.SoftDelete(ctx, "buyer-1", thread.ID))

	// Gone from the deleter's listing.
	threads, total, err := s.chatUC.ListThreads(ctx, "buyer-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.Empty(t, threads)

	// Untouched for the other party, history included.
	threads, total, err = s.chatUC.ListThreads(ctx, "seller-1", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, threads, 1)

	messages, _, err := s.chatUC.ListMessages(ctx, "seller-1", thread.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, messages, 1)

	// Second delete reaps the thread and its ledger.
	require.NoError(t, s.chatUC.SoftDelete(ctx, "seller-1", thread.ID))

	_, err = s.chatRepo.GetByID(ctx, thread.ID)
	assert.True(t, errors.Is(err, "NOT_FOUND"))
}

func TestBlockRejectsSends(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	require.NoError(t, s.blockUC.Block(ctx, "buyer-1", "seller-1"))

	// Either direction is suppressed.
	_, err := s.chatUC.SendMessage(ctx, "seller-1", thread.ID, SendMessageInput{Content: "hello?"})
	assert.True(t, errors.Is(err, "BLOCKED"))
	_, err = s.chatUC.SendMessage(ctx, "buyer-1", thread.ID, SendMessageInput{Content: "hello?"})
	assert.True(t, errors.Is(err, "BLOCKED"))

	// New threads between the pair are refused too.
	_, err = s.chatUC.GetOrCreateThread(ctx, "seller-1", CreateThreadInput{
		SellerUID: "buyer-1",
		ItemID:    "amp-1",
	})
	assert.True(t, errors.Is(err, "BLOCKED"))
}

func TestBlockCascadeHidesSharedThreads(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	_, err := s.chatUC.SendMessage(ctx, "buyer-1", thread.ID, SendMessageInput{Content: "offer"})
	require.NoError(t, err)

	require.NoError(t, s.blockUC.Block(ctx, "buyer-1", "seller-1"))

	for _, uid := range []string{"buyer-1", "seller-1"} {
		threads, total, err := s.chatUC.ListThreads(ctx, uid, 10, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total, "thread still listed for %s", uid)
		assert.Empty(t, threads)
	}

	// History survives the cascade for dispute review.
	_, total, err := s.chatRepo.ListMessages(ctx, thread.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestBlockLifecycle(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	require.NoError(t, s.blockUC.Block(ctx, "a", "b"))

	err := s.blockUC.Block(ctx, "a", "b")
	assert.True(t, errors.Is(err, "CONFLICT"))
	err = s.blockUC.Block(ctx, "a", "a")
	assert.True(t, errors.Is(err, "BAD_REQUEST"))

	blocked, err := s.blockUC.IsBlocked(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocks, err := s.blockUC.ListBlocks(ctx, "a")
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, "b", blocks[0].BlockedUID)

	require.NoError(t, s.blockUC.Unblock(ctx, "a", "b"))
	blocked, err = s.blockUC.IsBlocked(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestListThreadsPagination(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.chatUC.GetOrCreateThread(ctx, "buyer-1", CreateThreadInput{
			SellerUID: fmt.Sprintf("seller-%d", i),
			ItemID:    "item",
		})
		require.NoError(t, err)
	}

	threads, total, err := s.chatUC.ListThreads(ctx, "buyer-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, threads, 2)

	threads, _, err = s.chatUC.ListThreads(ctx, "buyer-1", 2, 4)
	require.NoError(t, err)
	assert.Len(t, threads, 1)

	threads, _, err = s.chatUC.ListThreads(ctx, "buyer-1", 2, 10)
	require.NoError(t, err)
	assert.Empty(t, threads)
}

// staleReadChatRepo misses its first GetByID, reproducing the window where
// a first-contact writer reads nothing while a concurrent writer creates
// the thread.
type staleReadChatRepo struct {
	domainrepo.ChatRepository
	missed bool
}

func (r *staleReadChatRepo) GetByID(ctx context.Context, chatID string) (*entity.ChatThread, error) {
	if !r.missed {
		r.missed = true
		return nil, errors.NotFound("Chat thread", nil)
	}
	return r.ChatRepository.GetByID(ctx, chatID)
}

func TestGetOrCreateThreadLosesFirstContactRace(t *testing.T) {
	chatRepo := repository.NewMemoryChatRepository()
	blockRepo := repository.NewMemoryBlockRepository()
	chatUC := NewChatUseCase(&staleReadChatRepo{ChatRepository: chatRepo}, blockRepo, notification.NewDispatcher())
	ctx := context.Background()

	// The winner already created the thread and accrued counters and seqs.
	seed := &entity.ChatThread{
		BuyerUID:          "buyer-1",
		SellerUID:         "seller-1",
		ItemID:            "guitar-1",
		SellerUnreadCount: 2,
		LastSeq:           2,
	}
	require.NoError(t, chatRepo.CreateThread(ctx, seed))

	thread, err := chatUC.GetOrCreateThread(ctx, "buyer-1", CreateThreadInput{
		SellerUID: "seller-1",
		ItemID:    "guitar-1",
	})
	require.NoError(t, err)
	assert.Equal(t, seed.ID, thread.ID)
	assert.Equal(t, 2, thread.SellerUnreadCount)
	assert.Equal(t, int64(2), thread.LastSeq)
}

func TestReopeningThreadDoesNotConsumeCreateBudget(t *testing.T) {
	s := newTestStack()
	ctx := context.Background()
	thread := createTestThread(t, s)

	// Re-opening an existing chat never spends a creation token.
	for i := 0; i < 30; i++ {
		again, err := s.chatUC.GetOrCreateThread(ctx, "buyer-1", CreateThreadInput{
			SellerUID: "seller-1",
			ItemID:    "guitar-1",
		})
		require.NoError(t, err)
		require.Equal(t, thread.ID, again.ID)
	}

	// A genuinely new chat still fits the budget.
	fresh, err := s.chatUC.GetOrCreateThread(ctx, "buyer-1", CreateThreadInput{
		SellerUID: "seller-1",
		ItemID:    "amp-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "buyer-1_seller-1_amp-1", fresh.ID)
}
