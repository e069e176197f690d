package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
)

type memoryBlockRepository struct {
	mu        sync.Mutex
	relations map[string]*entity.BlockRelation
}

func NewMemoryBlockRepository() repository.BlockRepository {
	return &memoryBlockRepository{
		relations: make(map[string]*entity.BlockRelation),
	}
}

func (r *memoryBlockRepository) Create(ctx context.Context, relation *entity.BlockRelation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if relation.ID == "" {
		relation.ID = uuid.New().String()
	}
	relation.CreatedAt = time.Now()

	cp := *relation
	r.relations[relation.ID] = &cp
	return nil
}

func (r *memoryBlockRepository) Exists(ctx context.Context, uidA, uidB string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rel := range r.relations {
		if (rel.BlockerUID == uidA && rel.BlockedUID == uidB) ||
			(rel.BlockerUID == uidB && rel.BlockedUID == uidA) {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBlockRepository) Delete(ctx context.Context, blockerUID, blockedUID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rel := range r.relations {
		if rel.BlockerUID == blockerUID && rel.BlockedUID == blockedUID {
			delete(r.relations, id)
		}
	}
	return nil
}

func (r *memoryBlockRepository) ListByBlocker(ctx context.Context, blockerUID string) ([]*entity.BlockRelation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*entity.BlockRelation
	for _, rel := range r.relations {
		if rel.BlockerUID == blockerUID {
			cp := *rel
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
