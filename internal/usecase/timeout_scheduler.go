package usecase

import (
	"context"
	"time"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/lifecycle"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
	"github.com/nyxscore/connectone-sub003/pkg/logger"
)

// TimeoutScheduler fires the table's auto edges for transactions that have
// sat in a state past its window. It drives the same ApplyTransition entry
// point as users do, so a manual trigger racing the clock loses or wins
// through the same compare-and-swap; the loser is silently skipped and the
// record is consistent either way.
type TimeoutScheduler struct {
	txUC     *TransactionUseCase
	txRepo   repository.TransactionRepository
	interval time.Duration

	// windows overrides an edge's table timeout per action, so operators
	// can shorten or lengthen the grace periods without a rebuild.
	windows map[string]time.Duration
}

func NewTimeoutScheduler(
	txUC *TransactionUseCase,
	txRepo repository.TransactionRepository,
	interval time.Duration,
	windows map[string]time.Duration,
) *TimeoutScheduler {
	return &TimeoutScheduler{
		txUC:     txUC,
		txRepo:   txRepo,
		interval: interval,
		windows:  windows,
	}
}

// Start runs the scan loop until ctx is cancelled.
func (s *TimeoutScheduler) Start(ctx context.Context) {
	logger.Info("Timeout scheduler started: interval=%v", s.interval)

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx, time.Now())
			case <-ctx.Done():
				logger.Info("Timeout scheduler stopped")
				return
			}
		}
	}()
}

// RunOnce scans every auto edge's source status and applies the expired
// candidates. Store errors are logged and the scan continues; nothing here
// can crash the loop.
func (s *TimeoutScheduler) RunOnce(ctx context.Context, now time.Time) {
	for _, edge := range lifecycle.AutoEdges() {
		window := edge.Timeout
		if w, ok := s.windows[edge.Action]; ok {
			window = w
		}

		candidates, err := s.txRepo.ListByStatus(ctx, edge.From)
		if err != nil {
			logger.Error("Scheduler scan failed: status=%s error=%v", edge.From, err)
			continue
		}

		for _, transaction := range candidates {
			if now.Sub(transaction.StatusChangedAt) < window {
				continue
			}
			s.apply(ctx, transaction, edge)
		}
	}
}

func (s *TimeoutScheduler) apply(ctx context.Context, transaction *entity.Transaction, edge lifecycle.Edge) {
	// Timeout expiry is what satisfies the edge's conditions: buyer
	// silence means acceptance, seller silence means approval.
	conditions := make(map[string]bool, len(edge.Conditions))
	for _, cond := range edge.Conditions {
		conditions[cond] = true
	}

	_, err := s.txUC.ApplyTransition(ctx, Actor{UID: entity.SystemSender, System: true}, transaction.ID, ApplyTransitionInput{
		To:         edge.To,
		Action:     edge.Action,
		Conditions: conditions,
		Notes:      "Applied automatically after timeout",
	})
	switch {
	case err == nil:
		logger.Info("Auto transition applied: transaction=%s action=%s to=%s",
			transaction.ID, edge.Action, edge.To)
	case errors.Is(err, "CONCURRENT_MODIFICATION"), errors.Is(err, "INVALID_TRANSITION"):
		// Someone acted between the scan and the write. Their transition
		// stands; this candidate needs nothing further.
		logger.Debug("Auto transition skipped: transaction=%s action=%s", transaction.ID, edge.Action)
	default:
		logger.Error("Auto transition failed: transaction=%s action=%s error=%v",
			transaction.ID, edge.Action, err)
	}
}
