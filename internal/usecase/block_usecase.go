package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

type BlockUseCase struct {
	blockRepo repository.BlockRepository
	chatRepo  repository.ChatRepository
}

func NewBlockUseCase(blockRepo repository.BlockRepository, chatRepo repository.ChatRepository) *BlockUseCase {
	return &BlockUseCase{
		blockRepo: blockRepo,
		chatRepo:  chatRepo,
	}
}

// Block records the relation and soft-deletes every thread the two users
// share, from both sides, so neither listing shows them again. Message
// history is retained for dispute resolution; the threads are not reaped.
func (uc *BlockUseCase) Block(ctx context.Context, blockerUID, blockedUID string) error {
	if blockerUID == blockedUID {
		return errors.BadRequest("Cannot block yourself", nil)
	}

	exists, err := uc.blockRepo.Exists(ctx, blockerUID, blockedUID)
	if err != nil {
		return err
	}
	if exists {
		return errors.Conflict("Block relation already exists")
	}

	relation := &entity.BlockRelation{
		ID:         uuid.New().String(),
		BlockerUID: blockerUID,
		BlockedUID: blockedUID,
		CreatedAt:  time.Now(),
	}
	if err := uc.blockRepo.Create(ctx, relation); err != nil {
		return err
	}

	uc.cascadeHideThreads(ctx, blockerUID, blockedUID)

	logger.Info("User blocked: blocker=%s blocked=%s", blockerUID, blockedUID)
	return nil
}

// cascadeHideThreads is best-effort: the block relation itself is already
// committed and enforces delivery suppression even if a hide fails.
func (uc *BlockUseCase) cascadeHideThreads(ctx context.Context, blockerUID, blockedUID string) {
	threads, err := uc.chatRepo.ListByUserID(ctx, blockerUID)
	if err != nil {
		logger.Error("Block cascade listing failed: blocker=%s error=%v", blockerUID, err)
		return
	}

	for _, thread := range threads {
		if thread.OtherParty(blockerUID) != blockedUID {
			continue
		}
		_, err := uc.chatRepo.UpdateThread(ctx, thread.ID, func(t *entity.ChatThread) error {
			t.DeletedByBuyer = true
			t.DeletedBySeller = true
			t.UpdatedAt = time.Now()
			return nil
		})
		if err != nil {
			logger.Error("Block cascade hide failed: chat=%s error=%v", thread.ID, err)
		}
	}
}

func (uc *BlockUseCase) Unblock(ctx context.Context, blockerUID, blockedUID string) error {
	return uc.blockRepo.Delete(ctx, blockerUID, blockedUID)
}

func (uc *BlockUseCase) ListBlocks(ctx context.Context, blockerUID string) ([]*entity.BlockRelation, error) {
	return uc.blockRepo.ListByBlocker(ctx, blockerUID)
}

// IsBlocked reports whether a relation exists in either direction.
func (uc *BlockUseCase) IsBlocked(ctx context.Context, uidA, uidB string) (bool, error) {
	return uc.blockRepo.Exists(ctx, uidA, uidB)
}
