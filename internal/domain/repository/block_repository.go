package repository

import (
	"context"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
)

type BlockRepository interface {
	Create(ctx context.Context, relation *entity.BlockRelation) error

	// Exists reports whether a relation exists between the two uids in
	// either direction.
	Exists(ctx context.Context, uidA, uidB string) (bool, error)

	Delete(ctx context.Context, blockerUID, blockedUID string) error
	ListByBlocker(ctx context.Context, blockerUID string) ([]*entity.BlockRelation, error)
}
