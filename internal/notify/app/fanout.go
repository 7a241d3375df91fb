package app

import (
	"context"
	"encoding/json"
	"time"

	feeddomain "gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// GroupReader live group roster lookup
type GroupReader interface {
	FindByID(ctx context.Context, groupID string) (*feeddomain.Group, error)
}

// ParentAuthorResolver resolve the author of the record a reply points at
type ParentAuthorResolver interface {
	AuthorOf(ctx context.Context, recordID string) (string, error)
}

// EventPublisher realtime change publisher, one channel per feed scope
type EventPublisher interface {
	Publish(ctx context.Context, channel string, ev feeddomain.ChangeEvent) error
}

// FanoutUseCase resolves an event's audience and persists one notification
// record per recipient. Delivery is best effort: nothing here may fail the
// primary action that triggered it.
type FanoutUseCase struct {
	notifRepo repository.NotificationRepository
	groups    GroupReader
	parents   ParentAuthorResolver
	queue     repository.TriggerQueue
	pubsub    EventPublisher
}

// NewFanoutUseCase init create fan-out use case
func NewFanoutUseCase(
	notifRepo repository.NotificationRepository,
	groups GroupReader,
	parents ParentAuthorResolver,
	queue repository.TriggerQueue,
	pubsub EventPublisher,
) *FanoutUseCase {
	return &FanoutUseCase{
		notifRepo: notifRepo,
		groups:    groups,
		parents:   parents,
		queue:     queue,
		pubsub:    pubsub,
	}
}

// NotifyAudience fan the event out to its audience. Errors are logged and
// swallowed; the caller's primary write is already durable.
func (uc *FanoutUseCase) NotifyAudience(ctx context.Context, scope domain.Scope, event domain.Event) {
	if err := uc.notify(ctx, scope, event); err != nil {
		logger.Log.Error("fan-out failed",
			zap.String("kind", string(event.Kind)),
			zap.String("group_id", scope.GroupID),
			zap.Error(err),
		)
	}
}

func (uc *FanoutUseCase) notify(ctx context.Context, scope domain.Scope, event domain.Event) error {
	recipients, err := uc.resolveRecipients(ctx, scope, event)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	parentAuthor, commentRec := uc.replyRecord(ctx, event, now)

	records := make([]domain.NotificationRecord, 0, len(recipients)+1)
	for _, recipientID := range recipients {
		// the parent author gets the comment record instead of the
		// generic one
		if recipientID == parentAuthor {
			continue
		}
		records = append(records, domain.NotificationRecord{
			ID:          domain.NewRecordID(),
			RecipientID: recipientID,
			Kind:        event.Kind,
			Title:       event.Title,
			Body:        event.Body,
			Payload:     event.Payload,
			GroupID:     event.GroupID,
			SenderID:    event.ActorID,
			SenderName:  event.ActorName,
			CreatedAt:   now,
		})
	}
	if commentRec != nil {
		records = append(records, *commentRec)
	}
	if len(records) == 0 {
		return nil
	}

	if err := uc.notifRepo.InsertBatch(ctx, records); err != nil {
		return err
	}

	// per-record trigger for the push worker plus the realtime insert for
	// each recipient's notification feed; both best effort
	for _, rec := range records {
		if uc.queue != nil {
			if err := uc.queue.Publish(ctx, rec); err != nil {
				logger.Log.Error("push trigger publish failed",
					zap.String("notification_id", rec.ID),
					zap.Error(err),
				)
			}
		}
		if uc.pubsub != nil {
			ev, err := marshalInsert(rec)
			if err == nil {
				err = uc.pubsub.Publish(ctx, feeddomain.UserChannel(rec.RecipientID), ev)
			}
			if err != nil {
				logger.Log.Error("notification event publish failed",
					zap.String("notification_id", rec.ID),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// resolveRecipients read the audience at call time. Group scope is the live
// roster minus the actor.
func (uc *FanoutUseCase) resolveRecipients(ctx context.Context, scope domain.Scope, event domain.Event) ([]string, error) {
	if scope.RecipientID != "" {
		if scope.RecipientID == event.ActorID {
			return nil, nil
		}
		return []string{scope.RecipientID}, nil
	}

	group, err := uc.groups.FindByID(ctx, scope.GroupID)
	if err != nil {
		return nil, err
	}

	recipients := make([]string, 0, len(group.Members))
	for _, memberID := range group.Members {
		if memberID != event.ActorID {
			recipients = append(recipients, memberID)
		}
	}

	return recipients, nil
}

// replyRecord build the comment notification a reply targets at the parent
// record's author. Returns the author id and the record, or "" and nil when
// the event is not a reply, the lookup fails, or the author is the actor.
func (uc *FanoutUseCase) replyRecord(ctx context.Context, event domain.Event, now int64) (string, *domain.NotificationRecord) {
	meta, text, ok := domain.ParseReplyPrefix(event.Content)
	if !ok || uc.parents == nil {
		return "", nil
	}
	author, err := uc.parents.AuthorOf(ctx, meta.ParentID)
	if err != nil {
		logger.Log.Warn("reply parent author lookup failed",
			zap.String("parent_id", meta.ParentID),
			zap.Error(err),
		)
		return "", nil
	}
	if author == "" || author == event.ActorID {
		return "", nil
	}

	payload := map[string]interface{}{"parent_id": meta.ParentID}
	for k, v := range event.Payload {
		payload[k] = v
	}
	return author, &domain.NotificationRecord{
		ID:          domain.NewRecordID(),
		RecipientID: author,
		Kind:        domain.KindComment,
		Title:       event.Title,
		Body:        event.ActorName + " replied: " + text,
		Payload:     payload,
		GroupID:     event.GroupID,
		SenderID:    event.ActorID,
		SenderName:  event.ActorName,
		CreatedAt:   now,
	}
}

func marshalInsert(rec domain.NotificationRecord) (feeddomain.ChangeEvent, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return feeddomain.ChangeEvent{}, err
	}
	return feeddomain.ChangeEvent{Type: feeddomain.EventInsert, NewRow: data}, nil
}
