package app

import (
	"context"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/feed/repository"
	notifydomain "gratitude_chat_service/internal/notify/domain"

	"github.com/stretchr/testify/mock"
)

// MockMessageRepository Mock MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

// Insert moke insert message
func (m *MockMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// FindNewest moke newest page
func (m *MockMessageRepository) FindNewest(ctx context.Context, threadID string, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, threadID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindOlderThan moke older page
func (m *MockMessageRepository) FindOlderThan(ctx context.Context, threadID string, before int64, limit int64) ([]domain.Message, error) {
	args := m.Called(ctx, threadID, before, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindByID moke find message by id
func (m *MockMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// SetLikedBy moke overwrite liked_by
func (m *MockMessageRepository) SetLikedBy(ctx context.Context, id string, likedBy []string) error {
	args := m.Called(ctx, id, likedBy)
	return args.Error(0)
}

// Delete moke delete message
func (m *MockMessageRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockGroupRepository Mock GroupRepository
type MockGroupRepository struct {
	mock.Mock
}

// CreateGroup moke create group
func (m *MockGroupRepository) CreateGroup(ctx context.Context, group *domain.Group) error {
	args := m.Called(ctx, group)
	return args.Error(0)
}

// FindByID moke find group by id
func (m *MockGroupRepository) FindByID(ctx context.Context, groupID string) (*domain.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

// AddMember moke add member
func (m *MockGroupRepository) AddMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

// RemoveMember moke remove member
func (m *MockGroupRepository) RemoveMember(ctx context.Context, groupID, userID string) error {
	args := m.Called(ctx, groupID, userID)
	return args.Error(0)
}

// MockMemberRepository Mock MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

// FindByID moke find member profile
func (m *MockMemberRepository) FindByID(ctx context.Context, userID string) (*domain.Member, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Member), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockFeedPubSub Mock FeedPubSub
type MockFeedPubSub struct {
	mock.Mock
}

// Publish moke publish change event
func (m *MockFeedPubSub) Publish(ctx context.Context, channel string, ev domain.ChangeEvent) error {
	args := m.Called(ctx, channel, ev)
	return args.Error(0)
}

// Subscribe moke subscribe; returns an inert subscription
func (m *MockFeedPubSub) Subscribe(channel string, handler func(ev domain.ChangeEvent)) (*repository.Subscription, error) {
	args := m.Called(channel, handler)
	if args.Get(0) != nil {
		return args.Get(0).(*repository.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotifier Mock Notifier
type MockNotifier struct {
	mock.Mock
}

// NotifyAudience moke fan-out
func (m *MockNotifier) NotifyAudience(ctx context.Context, scope notifydomain.Scope, event notifydomain.Event) {
	m.Called(ctx, scope, event)
}

// MockNotificationRepository Mock NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

// InsertBatch moke insert records
func (m *MockNotificationRepository) InsertBatch(ctx context.Context, records []notifydomain.NotificationRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

// FindNewest moke newest page
func (m *MockNotificationRepository) FindNewest(ctx context.Context, recipientID string, limit int64) ([]notifydomain.NotificationRecord, error) {
	args := m.Called(ctx, recipientID, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]notifydomain.NotificationRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

// FindOlderThan moke older page
func (m *MockNotificationRepository) FindOlderThan(ctx context.Context, recipientID string, before int64, limit int64) ([]notifydomain.NotificationRecord, error) {
	args := m.Called(ctx, recipientID, before, limit)
	if args.Get(0) != nil {
		return args.Get(0).([]notifydomain.NotificationRecord), args.Error(1)
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
