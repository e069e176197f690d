package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/nyxscore/connectone-sub003/internal/domain/entity"
	"github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/pkg/errors"
)

type firestoreBlockRepository struct {
	client *firestore.Client
}

func NewFirestoreBlockRepository(client *firestore.Client) repository.BlockRepository {
	return &firestoreBlockRepository{
		client: client,
	}
}

func (r *firestoreBlockRepository) Create(ctx context.Context, relation *entity.BlockRelation) error {
	if relation.ID == "" {
		relation.ID = uuid.New().String()
	}
	relation.CreatedAt = time.Now()

	_, err := r.client.Collection("blocks").Doc(relation.ID).Set(ctx, relation)
	if err != nil {
		return errors.Internal("Failed to create block relation", err)
	}

	return nil
}

func (r *firestoreBlockRepository) Exists(ctx context.Context, uidA, uidB string) (bool, error) {
	pairs := [][2]string{{uidA, uidB}, {uidB, uidA}}
	for _, pair := range pairs {
		iter := r.client.Collection("blocks").
			Where("blockerUid", "==", pair[0]).
			Where("blockedUid", "==", pair[1]).
			Limit(1).
			Documents(ctx)

		_, err := iter.Next()
		if err == nil {
			return true, nil
		}
		if err != iterator.Done {
			return false, errors.Internal("Failed to query block relations", err)
		}
	}

	return false, nil
}

func (r *firestoreBlockRepository) Delete(ctx context.Context, blockerUID, blockedUID string) error {
	iter := r.client.Collection("blocks").
		Where("blockerUid", "==", blockerUID).
		Where("blockedUid", "==", blockedUID).
		Documents(ctx)

	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return errors.Internal("Failed to query block relations", err)
		}
		if _, err := doc.Ref.Delete(ctx); err != nil {
			return errors.Internal("Failed to delete block relation", err)
		}
	}

	return nil
}

func (r *firestoreBlockRepository) ListByBlocker(ctx context.Context, blockerUID string) ([]*entity.BlockRelation, error) {
	iter := r.client.Collection("blocks").
		Where("blockerUid", "==", blockerUID).
		OrderBy("createdAt", firestore.Desc).
		Documents(ctx)

	var relations []*entity.BlockRelation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate block relations", err)
		}

		var relation entity.BlockRelation
		if err := doc.DataTo(&relation); err != nil {
			return nil, errors.Internal("Failed to parse block relation data", err)
		}
		relations = append(relations, &relation)
	}

	return relations, nil
}
