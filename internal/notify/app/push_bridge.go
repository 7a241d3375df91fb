package app

import (
	"context"
	"fmt"
	"net/http"

	"gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// PushBridgeUseCase reacts to newly persisted notification records: resolve
// the recipient's device endpoints, send one data-only push per endpoint and
// prune endpoints the transport reports as permanently invalid.
type PushBridgeUseCase struct {
	endpoints repository.EndpointRepository
	sender    repository.PushSender
}

// NewPushBridgeUseCase init create push bridge use case
func NewPushBridgeUseCase(endpoints repository.EndpointRepository, sender repository.PushSender) *PushBridgeUseCase {
	return &PushBridgeUseCase{
		endpoints: endpoints,
		sender:    sender,
	}
}

// Run consume triggers until ctx is done
func (uc *PushBridgeUseCase) Run(ctx context.Context, queue repository.TriggerQueue) error {
	return queue.Consume(ctx, func(ctx context.Context, record domain.NotificationRecord) {
		summary := uc.HandleRecord(ctx, record)
		logger.Log.Info("push pass done",
			zap.String("notification_id", record.ID),
			zap.Int("sent", summary.Sent),
			zap.Int("failed", summary.Failed),
			zap.Int("endpoints_removed", summary.EndpointsRemoved),
		)
	})
}

// HandleRecord one delivery pass for one notification record. Never panics
// past its boundary; every failure becomes a logged entry in the summary.
// Transient send failures are not retried here, the next trigger retries
// naturally.
func (uc *PushBridgeUseCase) HandleRecord(ctx context.Context, record domain.NotificationRecord) (summary domain.PushSummary) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Error("push bridge recovered",
				zap.String("notification_id", record.ID),
				zap.String("panic", fmt.Sprint(r)),
			)
			summary.Failed++
		}
	}()

	endpoints, err := uc.endpoints.FindByRecipient(ctx, record.RecipientID)
	if err != nil {
		logger.Log.Error("endpoint lookup failed",
			zap.String("recipient_id", record.RecipientID),
			zap.Error(err),
		)
		summary.Failed++
		return summary
	}
	// zero registered devices is a trivial success
	if len(endpoints) == 0 {
		return summary
	}

	data := domain.PushData{
		Title:          record.Title,
		Body:           record.Body,
		Kind:           string(record.Kind),
		GroupID:        record.GroupID,
		NotificationID: record.ID,
		DedupeKey:      domain.DedupeKey(record.Kind, record.EventID()),
	}
	if record.Payload != nil {
		if photoID, ok := record.Payload["photo_id"].(string); ok {
			data.PhotoID = photoID
		}
	}

	var invalid []string
	for _, endpoint := range endpoints {
		status, body, err := uc.sender.Send(ctx, endpoint.Token, data)
		if err != nil {
			// transient transport failure, leave the endpoint alone
			summary.Failed++
			logger.Log.Warn("push send failed",
				zap.String("recipient_id", record.RecipientID),
				zap.Error(err),
			)
			continue
		}
		if status == http.StatusOK && !domain.IsEndpointInvalid(body) {
			summary.Sent++
			continue
		}
		summary.Failed++
		if domain.IsEndpointInvalid(body) {
			invalid = append(invalid, endpoint.Token)
		}
	}

	// prune all invalid endpoints in one batch after the full pass
	if len(invalid) > 0 {
		if err := uc.endpoints.DeleteTokens(ctx, record.RecipientID, invalid); err != nil {
			logger.Log.Error("endpoint prune failed",
				zap.String("recipient_id", record.RecipientID),
				zap.Error(err),
			)
		} else {
			summary.EndpointsRemoved = len(invalid)
		}
	}
	return summary
}
