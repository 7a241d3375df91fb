package app

import (
	"context"

	feeddomain "gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/notify/domain"

	"github.com/stretchr/testify/mock"
)

// MockNotificationRepository Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// InsertBatch moke insert records
func (m *MockNotificationRepository) InsertBatch(ctx context.Context, records []domain.NotificationRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// FindNewest moke newest page
func (m *MockNotificationRepository) FindNewest(ctx context.Context, recipientID string, limit int64) ([]domain.NotificationRecord, error) {
	args := m.Called(ctx, recipientID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.NotificationRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindOlderThan moke older page
func (m *MockNotificationRepository) FindOlderThan(ctx context.Context, recipientID string, before int64, limit int64) ([]domain.NotificationRecord, error) {
	args := m.Called(ctx, recipientID, before, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.NotificationRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// MarkRead moke mark one read
func (m *MockNotificationRepository) MarkRead(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MarkAllRead moke mark all read
func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) error {
	args := m.Called(ctx, recipientID)
	return args.Error(0)
}

// Delete moke delete record
func (m *MockNotificationRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// CountUnread moke unread count
func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).(int64), args.Error(1)
}

// MockGroupReader Mock GroupReader
type MockGroupReader struct {
	mock.Mock
}

// FindByID moke live roster lookup
func (m *MockGroupReader) FindByID(ctx context.Context, groupID string) (*feeddomain.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) != nil {
		return args.Get(0).(*feeddomain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockParentAuthorResolver Mock ParentAuthorResolver
type MockParentAuthorResolver struct {
	mock.Mock
}

// AuthorOf moke reply parent author lookup
func (m *MockParentAuthorResolver) AuthorOf(ctx context.Context, recordID string) (string, error) {
	args := m.Called(ctx, recordID)
	return args.String(0), args.Error(1)
}

// MockTriggerQueue Mock TriggerQueue
type MockTriggerQueue struct {
	mock.Mock
}

// Publish moke trigger publish
func (m *MockTriggerQueue) Publish(ctx context.Context, record domain.NotificationRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// Consume moke trigger consume
func (m *MockTriggerQueue) Consume(ctx context.Context, handler func(ctx context.Context, record domain.NotificationRecord)) error {
	args := m.Called(ctx, handler)
	return args.Error(0)
}

// MockEventPublisher Mock EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

// Publish moke realtime publish
func (m *MockEventPublisher) Publish(ctx context.Context, channel string, ev feeddomain.ChangeEvent) error {
	args := m.Called(ctx, channel, ev)
	return args.Error(0)
}

// MockEndpointRepository Mock EndpointRepository
type MockEndpointRepository struct {
	mock.Mock
}

// Register moke endpoint register
func (m *MockEndpointRepository) Register(ctx context.Context, endpoint *domain.DeviceEndpoint) error {
	args := m.Called(ctx, endpoint)
	return args.Error(0)
}

// FindByRecipient moke endpoint lookup
func (m *MockEndpointRepository) FindByRecipient(ctx context.Context, recipientID string) ([]domain.DeviceEndpoint, error) {
	args := m.Called(ctx, recipientID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.DeviceEndpoint), args.Error(1)
	}
	return nil, args.Error(1)
}

// DeleteTokens moke batch prune
func (m *MockEndpointRepository) DeleteTokens(ctx context.Context, recipientID string, tokens []string) error {
	args := m.Called(ctx, recipientID, tokens)
	return args.Error(0)
}

// MockPushSender Mock PushSender
type MockPushSender struct {
	mock.Mock
}

// Send moke one push send
func (m *MockPushSender) Send(ctx context.Context, token string, data domain.PushData) (int, string, error) {
	args := m.Called(ctx, token, data)
	return args.Int(0), args.String(1), args.Error(2)
}
