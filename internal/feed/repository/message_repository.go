package repository

import (
	"context"
	"errors"
	"time"

	"gratitude_chat_service/internal/feed/domain"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageRepository persistence for thread messages
type MessageRepository interface {
	// Insert store a new message; id and created_at are assigned here
	Insert(ctx context.Context, msg *domain.Message) error
	// FindNewest newest page of one thread, created_at descending
	FindNewest(ctx context.Context, threadID string, limit int64) ([]domain.Message, error)
	// FindOlderThan page strictly older than the cursor (exclusive)
	FindOlderThan(ctx context.Context, threadID string, before int64, limit int64) ([]domain.Message, error)
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	// SetLikedBy overwrite the liked_by set of one message
	SetLikedBy(ctx context.Context, id string, likedBy []string) error
	Delete(ctx context.Context, id string) error
}

type messageRepository struct {
	coll *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{
		coll: db.Collection("messages"),
	}
}

func (r *messageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now().UnixMilli()
	msg.Delivery = domain.DeliveryConfirmed
	_, err := r.coll.InsertOne(ctx, msg)
	return err
}

func (r *messageRepository) FindNewest(ctx context.Context, threadID string, limit int64) ([]domain.Message, error) {
	filter := bson.M{"thread_id": threadID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) FindOlderThan(ctx context.Context, threadID string, before int64, limit int64) ([]domain.Message, error) {
	// strict less-than so the boundary row is never fetched twice
	filter := bson.M{
		"thread_id":  threadID,
		"created_at": bson.M{"$lt": before},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var messages []domain.Message
	if err := cur.All(ctx, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// the row was deleted under the caller's feet
			return nil, domain.ErrStaleState
		}
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) SetLikedBy(ctx context.Context, id string, likedBy []string) error {
	update := bson.M{"$set": bson.M{"liked_by": likedBy}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *messageRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
