package repository

import (
	"context"
	"time"

	"gratitude_chat_service/internal/feed/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// GroupRepository definition group roster access
type GroupRepository interface {
	CreateGroup(ctx context.Context, group *domain.Group) error
	// FindByID read the live roster; never served from a cache because
	// membership can change between an event and its notification
	FindByID(ctx context.Context, groupID string) (*domain.Group, error)
	AddMember(ctx context.Context, groupID, userID string) error
	RemoveMember(ctx context.Context, groupID, userID string) error
}

type groupRepository struct {
	coll *mongo.Collection
}

// NewMongoGroupRepository create a GroupRepository
func NewMongoGroupRepository(db *mongo.Database) GroupRepository {
	return &groupRepository{
		coll: db.Collection("groups"),
	}
}

func (r *groupRepository) CreateGroup(ctx context.Context, group *domain.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	group.CreatedAt = time.Now().UnixMilli()
	_, err := r.coll.InsertOne(ctx, group)
	return err
}

func (r *groupRepository) FindByID(ctx context.Context, groupID string) (*domain.Group, error) {
	var group domain.Group
	if err := r.coll.FindOne(ctx, bson.M{"_id": groupID}).Decode(&group); err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *groupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	update := bson.M{"$addToSet": bson.M{"members": userID}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": groupID}, update)
	return err
}

func (r *groupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	update := bson.M{"$pull": bson.M{"members": userID}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": groupID}, update)
	return err
}
