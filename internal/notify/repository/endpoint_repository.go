package repository

import (
	"context"

	"gratitude_chat_service/internal/notify/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EndpointRepository registry of device push endpoints
type EndpointRepository interface {
	// Register upsert on (recipient_id, token); re-registering is a no-op
	Register(ctx context.Context, endpoint *domain.DeviceEndpoint) error
	FindByRecipient(ctx context.Context, recipientID string) ([]domain.DeviceEndpoint, error)
	// DeleteTokens prune a batch of invalid tokens for one recipient
	DeleteTokens(ctx context.Context, recipientID string, tokens []string) error
}

type endpointRepository struct {
	db *gorm.DB
}

// NewEndpointRepository create an EndpointRepository
func NewEndpointRepository(db *gorm.DB) (EndpointRepository, error) {
	if err := db.AutoMigrate(&domain.DeviceEndpoint{}); err != nil {
		return nil, err
	}
	return &endpointRepository{db: db}, nil
}

func (r *endpointRepository) Register(ctx context.Context, endpoint *domain.DeviceEndpoint) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recipient_id"}, {Name: "token"}},
			DoNothing: true,
		}).
		Create(endpoint).Error
}

func (r *endpointRepository) FindByRecipient(ctx context.Context, recipientID string) ([]domain.DeviceEndpoint, error) {
	var endpoints []domain.DeviceEndpoint
	err := r.db.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Find(&endpoints).Error
	return endpoints, err
}

func (r *endpointRepository) DeleteTokens(ctx context.Context, recipientID string, tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("recipient_id = ? AND token IN ?", recipientID, tokens).
		Delete(&domain.DeviceEndpoint{}).Error
}
