package app

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"gratitude_chat_service/internal/notify/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func pushRecord() domain.NotificationRecord {
	return domain.NotificationRecord{
		ID:          "n1",
		RecipientID: "u1",
		Kind:        domain.KindNewMessage,
		Title:       "family",
		Body:        "Alice: hello",
		Payload:     map[string]interface{}{"message_id": "m1"},
		CreatedAt:   100,
	}
}

func endpoint(token string) domain.DeviceEndpoint {
	return domain.DeviceEndpoint{RecipientID: "u1", Token: token, Platform: "android"}
}

func TestPushBridge_ZeroEndpointsIsSuccess(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)
	mockSender := new(MockPushSender)

	mockEndpoints.On("FindByRecipient", ctx, "u1").Return([]domain.DeviceEndpoint{}, nil)

	uc := NewPushBridgeUseCase(mockEndpoints, mockSender)
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, domain.PushSummary{}, summary)
	mockSender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestPushBridge_EndpointLookupFailure(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)

	mockEndpoints.On("FindByRecipient", ctx, "u1").Return(nil, errors.New("pg down"))

	uc := NewPushBridgeUseCase(mockEndpoints, new(MockPushSender))
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.Sent)
}

func TestPushBridge_SendsDataOnlyPayloadWithDedupeKey(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)
	mockSender := new(MockPushSender)

	mockEndpoints.On("FindByRecipient", ctx, "u1").
		Return([]domain.DeviceEndpoint{endpoint("tok-1")}, nil)

	var sent domain.PushData
	mockSender.On("Send", ctx, "tok-1", mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(2).(domain.PushData)
	}).Return(http.StatusOK, `{"success":1}`, nil)

	uc := NewPushBridgeUseCase(mockEndpoints, mockSender)
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, "new_message:m1", sent.DedupeKey)
	assert.Equal(t, "n1", sent.NotificationID)
}

func TestPushBridge_PrunesInvalidEndpointsInOneBatch(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)
	mockSender := new(MockPushSender)

	mockEndpoints.On("FindByRecipient", ctx, "u1").
		Return([]domain.DeviceEndpoint{endpoint("tok-ok"), endpoint("tok-dead"), endpoint("tok-gone")}, nil)
	mockSender.On("Send", ctx, "tok-ok", mock.Anything).Return(http.StatusOK, `{"success":1}`, nil)
	mockSender.On("Send", ctx, "tok-dead", mock.Anything).Return(http.StatusOK, `{"error":"NotRegistered"}`, nil)
	mockSender.On("Send", ctx, "tok-gone", mock.Anything).Return(http.StatusNotFound, `registration-token-not-registered`, nil)
	mockEndpoints.On("DeleteTokens", ctx, "u1", []string{"tok-dead", "tok-gone"}).Return(nil)

	uc := NewPushBridgeUseCase(mockEndpoints, mockSender)
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.EndpointsRemoved)
	mockEndpoints.AssertExpectations(t)
}

func TestPushBridge_TransientFailureKeepsEndpoint(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)
	mockSender := new(MockPushSender)

	mockEndpoints.On("FindByRecipient", ctx, "u1").
		Return([]domain.DeviceEndpoint{endpoint("tok-1")}, nil)
	mockSender.On("Send", ctx, "tok-1", mock.Anything).
		Return(0, "", errors.New("connection timeout"))

	uc := NewPushBridgeUseCase(mockEndpoints, mockSender)
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.EndpointsRemoved)
	mockEndpoints.AssertNotCalled(t, "DeleteTokens", mock.Anything, mock.Anything, mock.Anything)
}

func TestPushBridge_PruneFailureLeavesSummaryCount(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)
	mockSender := new(MockPushSender)

	mockEndpoints.On("FindByRecipient", ctx, "u1").
		Return([]domain.DeviceEndpoint{endpoint("tok-dead")}, nil)
	mockSender.On("Send", ctx, "tok-dead", mock.Anything).Return(http.StatusOK, "InvalidRegistration", nil)
	mockEndpoints.On("DeleteTokens", ctx, "u1", []string{"tok-dead"}).Return(errors.New("pg down"))

	uc := NewPushBridgeUseCase(mockEndpoints, mockSender)
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 0, summary.EndpointsRemoved)
}

func TestPushBridge_RecoversFromPanic(t *testing.T) {
	ctx := context.Background()
	mockEndpoints := new(MockEndpointRepository)
	mockSender := new(MockPushSender)

	mockEndpoints.On("FindByRecipient", ctx, "u1").
		Return([]domain.DeviceEndpoint{endpoint("tok-1")}, nil)
	mockSender.On("Send", ctx, "tok-1", mock.Anything).Run(func(mock.Arguments) {
		panic("sender bug")
	}).Return(0, "", nil)

	uc := NewPushBridgeUseCase(mockEndpoints, mockSender)
	summary := uc.HandleRecord(ctx, pushRecord())

	assert.Equal(t, 1, summary.Failed)
}
