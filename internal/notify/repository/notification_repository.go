package repository

import (
	"context"

	"gratitude_chat_service/internal/notify/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository persistence for notification records
type NotificationRepository interface {
	// InsertBatch persist one fan-out's records in a single call
	InsertBatch(ctx context.Context, records []domain.NotificationRecord) error
	FindNewest(ctx context.Context, recipientID string, limit int64) ([]domain.NotificationRecord, error)
	FindOlderThan(ctx context.Context, recipientID string, before int64, limit int64) ([]domain.NotificationRecord, error)
	// MarkRead flip is_read true; the transition is one-way per row
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, recipientID string) error
	Delete(ctx context.Context, id string) error
	CountUnread(ctx context.Context, recipientID string) (int64, error)
}

type notificationRepository struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepository create a NotificationRepository
func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &notificationRepository{
		coll: db.Collection("notifications"),
	}
}

func (r *notificationRepository) InsertBatch(ctx context.Context, records []domain.NotificationRecord) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]interface{}, len(records))
	for i := range records {
		docs[i] = records[i]
	}
	_, err := r.coll.InsertMany(ctx, docs)
	return err
}

func (r *notificationRepository) FindNewest(ctx context.Context, recipientID string, limit int64) ([]domain.NotificationRecord, error) {
	filter := bson.M{"recipient_id": recipientID}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var records []domain.NotificationRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *notificationRepository) FindOlderThan(ctx context.Context, recipientID string, before int64, limit int64) ([]domain.NotificationRecord, error) {
	filter := bson.M{
		"recipient_id": recipientID,
		"created_at":   bson.M{"$lt": before},
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetLimit(limit)

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var records []domain.NotificationRecord
	if err := cur.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id string) error {
	update := bson.M{"$set": bson.M{"is_read": true}}
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	filter := bson.M{"recipient_id": recipientID, "is_read": false}
	update := bson.M{"$set": bson.M{"is_read": true}}
	_, err := r.coll.UpdateMany(ctx, filter, update)
	return err
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *notificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"recipient_id": recipientID, "is_read": false})
}
