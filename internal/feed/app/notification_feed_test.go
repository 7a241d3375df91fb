package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/feed/repository"
	notifydomain "gratitude_chat_service/internal/notify/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testRecord(id string, createdAt int64, read bool) notifydomain.NotificationRecord {
	return notifydomain.NotificationRecord{
		ID:          id,
		RecipientID: "u1",
		Kind:        notifydomain.KindNewMessage,
		Title:       "family",
		Body:        "Alice: hello",
		IsRead:      read,
		CreatedAt:   createdAt,
	}
}

func loadedNotificationFeed(t *testing.T, repo *MockNotificationRepository, page []notifydomain.NotificationRecord) *NotificationFeedUseCase {
	t.Helper()
	mockPubSub := new(MockFeedPubSub)
	mockPubSub.On("Subscribe", domain.UserChannel("u1"), mock.Anything).Return(&repository.Subscription{}, nil)
	repo.On("FindNewest", mock.Anything, "u1", int64(NotificationPageSize)).Return(page, nil).Once()
	unread := int64(0)
	for _, rec := range page {
		if !rec.IsRead {
			unread++
		}
	}
	repo.On("CountUnread", mock.Anything, "u1").Return(unread, nil).Once()

	uc := NewNotificationFeedUseCase(repo, mockPubSub)
	assert.NoError(t, uc.Load(context.Background(), "u1"))
	return uc
}

func TestNotificationFeed_LoadCountsUnread(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{
		testRecord("n1", 100, false),
		testRecord("n2", 90, true),
		testRecord("n3", 80, false),
	})

	assert.Len(t, uc.Items(), 3)
	assert.Equal(t, 2, uc.UnreadCount())
	assert.False(t, uc.HasMore())
}

func TestNotificationFeed_LoadUsesServerUnreadCount(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	mockPubSub := new(MockFeedPubSub)
	mockPubSub.On("Subscribe", domain.UserChannel("u1"), mock.Anything).Return(&repository.Subscription{}, nil)
	// one unread on the visible page, six more on older pages
	mockRepo.On("FindNewest", mock.Anything, "u1", int64(NotificationPageSize)).
		Return([]notifydomain.NotificationRecord{testRecord("n1", 100, false)}, nil).Once()
	mockRepo.On("CountUnread", mock.Anything, "u1").Return(int64(7), nil).Once()

	uc := NewNotificationFeedUseCase(mockRepo, mockPubSub)
	assert.NoError(t, uc.Load(context.Background(), "u1"))

	assert.Equal(t, 7, uc.UnreadCount())
}

func TestNotificationFeed_LoadFallsBackToLocalCount(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	mockPubSub := new(MockFeedPubSub)
	mockPubSub.On("Subscribe", domain.UserChannel("u1"), mock.Anything).Return(&repository.Subscription{}, nil)
	mockRepo.On("FindNewest", mock.Anything, "u1", int64(NotificationPageSize)).
		Return([]notifydomain.NotificationRecord{
			testRecord("n1", 100, false),
			testRecord("n2", 90, false),
		}, nil).Once()
	mockRepo.On("CountUnread", mock.Anything, "u1").Return(int64(0), errors.New("count failed")).Once()

	uc := NewNotificationFeedUseCase(mockRepo, mockPubSub)
	assert.NoError(t, uc.Load(context.Background(), "u1"))

	assert.Equal(t, 2, uc.UnreadCount())
}

func TestNotificationFeed_LoadMoreKeepsServerBadge(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	mockPubSub := new(MockFeedPubSub)
	mockPubSub.On("Subscribe", domain.UserChannel("u1"), mock.Anything).Return(&repository.Subscription{}, nil)
	page := make([]notifydomain.NotificationRecord, 0, NotificationPageSize)
	for i := 0; i < NotificationPageSize; i++ {
		page = append(page, testRecord(fmt.Sprintf("n%d", i), int64(1000-i), true))
	}
	mockRepo.On("FindNewest", mock.Anything, "u1", int64(NotificationPageSize)).Return(page, nil).Once()
	mockRepo.On("CountUnread", mock.Anything, "u1").Return(int64(5), nil).Once()
	oldest := page[len(page)-1].CreatedAt
	mockRepo.On("FindOlderThan", mock.Anything, "u1", oldest, int64(NotificationPageSize)).
		Return([]notifydomain.NotificationRecord{testRecord("old", oldest-1, false)}, nil).Once()

	uc := NewNotificationFeedUseCase(mockRepo, mockPubSub)
	assert.NoError(t, uc.Load(context.Background(), "u1"))
	assert.NoError(t, uc.LoadMore(context.Background()))

	// the single visible unread must not shrink the five the server counted
	assert.Equal(t, 5, uc.UnreadCount())
}

func TestNotificationFeed_SubscribeFailureSurfacesError(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	mockPubSub := new(MockFeedPubSub)
	mockPubSub.On("Subscribe", domain.UserChannel("u1"), mock.Anything).
		Return((*repository.Subscription)(nil), errors.New("redis down"))

	uc := NewNotificationFeedUseCase(mockRepo, mockPubSub)
	err := uc.Load(context.Background(), "u1")

	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, err, uc.LastError())
	mockRepo.AssertNotCalled(t, "FindNewest", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationFeed_RealtimeInsertBumpsUnread(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{testRecord("n1", 100, true)})

	ev, err := repository.NewInsertEvent(testRecord("n2", 110, false))
	assert.NoError(t, err)
	uc.handleEvent(ev)
	// duplicate delivery of the same record must not double count
	uc.handleEvent(ev)

	assert.Equal(t, 1, uc.UnreadCount())
	assert.Equal(t, "n2", uc.Items()[0].ID)
}

func TestNotificationFeed_RealtimeUpdateAdjustsUnread(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{testRecord("n1", 100, false)})
	assert.Equal(t, 1, uc.UnreadCount())

	ev, _ := repository.NewUpdateEvent(testRecord("n1", 100, false), testRecord("n1", 100, true))
	uc.handleEvent(ev)

	assert.Equal(t, 0, uc.UnreadCount())
}

func TestNotificationFeed_RealtimeDeleteAdjustsUnread(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{
		testRecord("n1", 100, false),
		testRecord("n2", 90, true),
	})

	ev, _ := repository.NewDeleteEvent(testRecord("n1", 100, false))
	uc.handleEvent(ev)

	assert.Equal(t, 0, uc.UnreadCount())
	assert.Len(t, uc.Items(), 1)
}

func TestNotificationFeed_MarkReadOptimistic(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{testRecord("n1", 100, false)})
	mockRepo.On("MarkRead", mock.Anything, "n1").Return(nil)

	assert.NoError(t, uc.MarkRead(context.Background(), "n1"))
	assert.Equal(t, 0, uc.UnreadCount())
	assert.True(t, uc.Items()[0].IsRead)
	mockRepo.AssertExpectations(t)
}

func TestNotificationFeed_MarkReadRevertsOnFailure(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{testRecord("n1", 100, false)})
	mockRepo.On("MarkRead", mock.Anything, "n1").Return(errors.New("write failed"))

	err := uc.MarkRead(context.Background(), "n1")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, 1, uc.UnreadCount())
	assert.False(t, uc.Items()[0].IsRead)
}

func TestNotificationFeed_MarkReadIdempotent(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{testRecord("n1", 100, true)})

	assert.NoError(t, uc.MarkRead(context.Background(), "n1"))
	mockRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything)
}

func TestNotificationFeed_MarkAllRead(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{
		testRecord("n1", 100, false),
		testRecord("n2", 90, false),
		testRecord("n3", 80, true),
	})
	mockRepo.On("MarkAllRead", mock.Anything, "u1").Return(nil)

	assert.NoError(t, uc.MarkAllRead(context.Background()))
	assert.Equal(t, 0, uc.UnreadCount())
	for _, rec := range uc.Items() {
		assert.True(t, rec.IsRead)
	}
	mockRepo.AssertExpectations(t)
}

func TestNotificationFeed_MarkAllReadRefetchesOnFailure(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{
		testRecord("n1", 100, false),
		testRecord("n2", 90, true),
	})
	mockRepo.On("MarkAllRead", mock.Anything, "u1").Return(errors.New("write failed"))
	// authoritative state comes back unchanged
	mockRepo.On("FindNewest", mock.Anything, "u1", int64(NotificationPageSize)).
		Return([]notifydomain.NotificationRecord{
			testRecord("n1", 100, false),
			testRecord("n2", 90, true),
		}, nil).Once()
	mockRepo.On("CountUnread", mock.Anything, "u1").Return(int64(1), nil).Once()

	err := uc.MarkAllRead(context.Background())
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.Equal(t, 1, uc.UnreadCount())
	assert.False(t, uc.Items()[0].IsRead)
	mockRepo.AssertExpectations(t)
}

func TestNotificationFeed_DeleteIsBestEffort(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, []notifydomain.NotificationRecord{testRecord("n1", 100, false)})
	mockRepo.On("Delete", mock.Anything, "n1").Return(errors.New("write failed"))

	err := uc.Delete(context.Background(), "n1")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	// the local removal stands even though the server call failed
	assert.Empty(t, uc.Items())
	assert.Equal(t, 0, uc.UnreadCount())
}

func TestNotificationFeed_LoadMoreLatch(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	page := make([]notifydomain.NotificationRecord, 0, NotificationPageSize)
	for i := 0; i < NotificationPageSize; i++ {
		page = append(page, testRecord(fmt.Sprintf("n%d", i), int64(1000-i), true))
	}
	uc := loadedNotificationFeed(t, mockRepo, page)
	assert.True(t, uc.HasMore())

	oldest := page[len(page)-1].CreatedAt
	mockRepo.On("FindOlderThan", mock.Anything, "u1", oldest, int64(NotificationPageSize)).
		Return([]notifydomain.NotificationRecord{testRecord("old", oldest-1, true)}, nil).Once()

	assert.NoError(t, uc.LoadMore(context.Background()))
	assert.Len(t, uc.Items(), NotificationPageSize+1)
	assert.False(t, uc.HasMore())

	// exhausted: no second fetch
	assert.NoError(t, uc.LoadMore(context.Background()))
	mockRepo.AssertExpectations(t)
}

func TestNotificationFeed_AlertFiresOncePerInsert(t *testing.T) {
	mockRepo := new(MockNotificationRepository)
	uc := loadedNotificationFeed(t, mockRepo, nil)

	var alerts []string
	uc.SetOnAlert(func(rec notifydomain.NotificationRecord) {
		alerts = append(alerts, rec.ID)
	})

	ev, _ := repository.NewInsertEvent(testRecord("n1", 100, false))
	uc.handleEvent(ev)
	uc.handleEvent(ev)

	assert.Equal(t, []string{"n1"}, alerts)
}
