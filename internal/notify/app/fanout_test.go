package app

import (
	"context"
	"errors"
	"sort"
	"testing"

	feeddomain "gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func init() {
	logger.SetNewNop()
}

func fanoutEvent(actorID, content string) domain.Event {
	return domain.Event{
		Kind:      domain.KindNewMessage,
		Title:     "family",
		Body:      "Alice: " + content,
		Content:   content,
		Payload:   map[string]interface{}{"message_id": "m1", "thread_id": "g1"},
		GroupID:   "g1",
		ActorID:   actorID,
		ActorName: "Alice",
		MessageID: "m1",
	}
}

func recipientsOf(records []domain.NotificationRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.RecipientID)
	}
	sort.Strings(out)
	return out
}

func TestFanout_GroupScopeExcludesActor(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroupReader)
	mockQueue := new(MockTriggerQueue)
	mockPub := new(MockEventPublisher)

	mockGroups.On("FindByID", ctx, "g1").
		Return(&feeddomain.Group{ID: "g1", Members: []string{"u1", "u2", "u3", "u4"}}, nil)

	var inserted []domain.NotificationRecord
	mockRepo.On("InsertBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).([]domain.NotificationRecord)
	}).Return(nil)
	mockQueue.On("Publish", ctx, mock.Anything).Return(nil)
	mockPub.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	uc := NewFanoutUseCase(mockRepo, mockGroups, nil, mockQueue, mockPub)
	uc.NotifyAudience(ctx, domain.Scope{GroupID: "g1"}, fanoutEvent("u1", "hello"))

	assert.Equal(t, []string{"u2", "u3", "u4"}, recipientsOf(inserted))
	mockQueue.AssertNumberOfCalls(t, "Publish", 3)
	mockPub.AssertNumberOfCalls(t, "Publish", 3)
	for _, rec := range inserted {
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, inserted[0].CreatedAt, rec.CreatedAt)
		assert.Equal(t, "u1", rec.SenderID)
	}
}

func TestFanout_SingleRecipientScope(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)

	var inserted []domain.NotificationRecord
	mockRepo.On("InsertBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).([]domain.NotificationRecord)
	}).Return(nil)

	uc := NewFanoutUseCase(mockRepo, nil, nil, nil, nil)
	uc.NotifyAudience(ctx, domain.Scope{RecipientID: "u2"}, fanoutEvent("u1", "hello"))

	assert.Equal(t, []string{"u2"}, recipientsOf(inserted))
}

func TestFanout_SelfTargetedEventDropped(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)

	uc := NewFanoutUseCase(mockRepo, nil, nil, nil, nil)
	uc.NotifyAudience(ctx, domain.Scope{RecipientID: "u1"}, fanoutEvent("u1", "hello"))

	mockRepo.AssertNotCalled(t, "InsertBatch", mock.Anything, mock.Anything)
}

func TestFanout_ReplyEmitsCommentForParentAuthor(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroupReader)
	mockParents := new(MockParentAuthorResolver)

	mockGroups.On("FindByID", ctx, "g1").
		Return(&feeddomain.Group{ID: "g1", Members: []string{"u1", "u2"}}, nil)
	mockParents.On("AuthorOf", ctx, "parent-1").Return("u9", nil)

	var inserted []domain.NotificationRecord
	mockRepo.On("InsertBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).([]domain.NotificationRecord)
	}).Return(nil)

	content := domain.EncodeReplyPrefix(domain.ReplyMeta{ParentID: "parent-1", ParentAuthor: "Bob"}, "agreed!")
	uc := NewFanoutUseCase(mockRepo, mockGroups, mockParents, nil, nil)
	uc.NotifyAudience(ctx, domain.Scope{GroupID: "g1"}, fanoutEvent("u1", content))

	assert.Equal(t, []string{"u2", "u9"}, recipientsOf(inserted))
	byRecipient := map[string]domain.NotificationRecord{}
	for _, rec := range inserted {
		byRecipient[rec.RecipientID] = rec
	}
	assert.Equal(t, domain.KindNewMessage, byRecipient["u2"].Kind)
	assert.Equal(t, domain.KindComment, byRecipient["u9"].Kind)
	assert.Equal(t, "Alice replied: agreed!", byRecipient["u9"].Body)
	assert.Equal(t, "parent-1", byRecipient["u9"].Payload["parent_id"])
	assert.Equal(t, "m1", byRecipient["u9"].Payload["message_id"])
}

func TestFanout_ReplyParentInRosterGetsCommentOnly(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroupReader)
	mockParents := new(MockParentAuthorResolver)

	mockGroups.On("FindByID", ctx, "g1").
		Return(&feeddomain.Group{ID: "g1", Members: []string{"u1", "u2"}}, nil)
	mockParents.On("AuthorOf", ctx, "parent-1").Return("u2", nil)

	var inserted []domain.NotificationRecord
	mockRepo.On("InsertBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).([]domain.NotificationRecord)
	}).Return(nil)

	content := domain.EncodeReplyPrefix(domain.ReplyMeta{ParentID: "parent-1", ParentAuthor: "Bob"}, "agreed!")
	uc := NewFanoutUseCase(mockRepo, mockGroups, mockParents, nil, nil)
	uc.NotifyAudience(ctx, domain.Scope{GroupID: "g1"}, fanoutEvent("u1", content))

	assert.Equal(t, []string{"u2"}, recipientsOf(inserted))
	assert.Equal(t, domain.KindComment, inserted[0].Kind)
}

func TestFanout_ReplyByParentAuthorStaysGeneric(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroupReader)
	mockParents := new(MockParentAuthorResolver)

	mockGroups.On("FindByID", ctx, "g1").
		Return(&feeddomain.Group{ID: "g1", Members: []string{"u1", "u2"}}, nil)
	mockParents.On("AuthorOf", ctx, "parent-1").Return("u1", nil)

	var inserted []domain.NotificationRecord
	mockRepo.On("InsertBatch", ctx, mock.Anything).Run(func(args mock.Arguments) {
		inserted = args.Get(1).([]domain.NotificationRecord)
	}).Return(nil)

	content := domain.EncodeReplyPrefix(domain.ReplyMeta{ParentID: "parent-1", ParentAuthor: "Alice"}, "adding on")
	uc := NewFanoutUseCase(mockRepo, mockGroups, mockParents, nil, nil)
	uc.NotifyAudience(ctx, domain.Scope{GroupID: "g1"}, fanoutEvent("u1", content))

	assert.Equal(t, []string{"u2"}, recipientsOf(inserted))
	assert.Equal(t, domain.KindNewMessage, inserted[0].Kind)
}

func TestFanout_InsertFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroupReader)
	mockQueue := new(MockTriggerQueue)

	mockGroups.On("FindByID", ctx, "g1").
		Return(&feeddomain.Group{ID: "g1", Members: []string{"u1", "u2"}}, nil)
	mockRepo.On("InsertBatch", ctx, mock.Anything).Return(errors.New("mongo down"))

	uc := NewFanoutUseCase(mockRepo, mockGroups, nil, mockQueue, nil)
	// must not panic, and no triggers fire for unpersisted records
	uc.NotifyAudience(ctx, domain.Scope{GroupID: "g1"}, fanoutEvent("u1", "hello"))

	mockQueue.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestFanout_TriggerFailureDoesNotStopRealtime(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	mockGroups := new(MockGroupReader)
	mockQueue := new(MockTriggerQueue)
	mockPub := new(MockEventPublisher)

	mockGroups.On("FindByID", ctx, "g1").
		Return(&feeddomain.Group{ID: "g1", Members: []string{"u1", "u2"}}, nil)
	mockRepo.On("InsertBatch", ctx, mock.Anything).Return(nil)
	mockQueue.On("Publish", ctx, mock.Anything).Return(errors.New("kafka down"))
	mockPub.On("Publish", ctx, mock.Anything, mock.Anything).Return(nil)

	uc := NewFanoutUseCase(mockRepo, mockGroups, nil, mockQueue, mockPub)
	uc.NotifyAudience(ctx, domain.Scope{GroupID: "g1"}, fanoutEvent("u1", "hello"))

	mockPub.AssertNumberOfCalls(t, "Publish", 1)
}
