package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/internal/feed/repository"
	notifydomain "gratitude_chat_service/internal/notify/domain"
	"gratitude_chat_service/pkg"
	"gratitude_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// MessagePageSize fixed page length for message fetches
const MessagePageSize = 20

// Notifier abstraction over the fan-out pipeline; delivery is best effort
// and must never fail the primary action
type Notifier interface {
	NotifyAudience(ctx context.Context, scope notifydomain.Scope, event notifydomain.Event)
}

// MessageFeedUseCase keeps one thread's ordered, deduplicated message view
// consistent across three concurrent sources: page fetches, realtime change
// events and the caller's own optimistic sends.
type MessageFeedUseCase struct {
	msgRepo  repository.MessageRepository
	groups   repository.GroupRepository
	members  repository.MemberRepository
	pubsub   repository.FeedPubSub
	notifier Notifier
	pageSize int64

	mu             sync.Mutex
	feed           *domain.Feed[domain.Message]
	threadID       string
	userID         string
	sub            *repository.Subscription
	loadingInitial bool
	loadingMore    bool // in-flight latch, set synchronously at call time
	lastError      error
	onChange       func(items []domain.Message, hasMore bool)
}

// NewMessageFeedUseCase init create message feed use case
func NewMessageFeedUseCase(
	msgRepo repository.MessageRepository,
	groups repository.GroupRepository,
	members repository.MemberRepository,
	pubsub repository.FeedPubSub,
	notifier Notifier,
) *MessageFeedUseCase {
	return &MessageFeedUseCase{
		msgRepo:  msgRepo,
		groups:   groups,
		members:  members,
		pubsub:   pubsub,
		notifier: notifier,
		pageSize: MessagePageSize,
		feed:     domain.NewFeed[domain.Message](),
	}
}

// SetOnChange register a callback fired after every applied mutation with a
// snapshot of the fresh view. The callback runs with the feed lock held and
// must not call back into the use case.
func (uc *MessageFeedUseCase) SetOnChange(fn func(items []domain.Message, hasMore bool)) {
	uc.mu.Lock()
	uc.onChange = fn
	uc.mu.Unlock()
}

// Load fetch the newest page for one thread and (re)establish the realtime
// subscription. Selecting a different thread tears the old scope down first;
// late events for it are dropped, never applied to the new state.
func (uc *MessageFeedUseCase) Load(ctx context.Context, threadID, userID string) error {
	uc.mu.Lock()
	var oldSub *repository.Subscription
	scopeChanged := uc.threadID != threadID
	if scopeChanged {
		oldSub = uc.sub
		uc.sub = nil
		uc.feed = domain.NewFeed[domain.Message]()
		uc.lastError = nil
	}
	uc.threadID = threadID
	uc.userID = userID
	uc.loadingInitial = true
	needSub := uc.sub == nil
	uc.mu.Unlock()

	if oldSub != nil {
		oldSub.Close()
	}
	if needSub && uc.pubsub != nil {
		sub, err := uc.pubsub.Subscribe(domain.ThreadChannel(threadID), uc.handleEvent)
		if err != nil {
			loadErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
			uc.mu.Lock()
			uc.loadingInitial = false
			uc.lastError = loadErr
			uc.mu.Unlock()
			return loadErr
		}
		uc.mu.Lock()
		uc.sub = sub
		uc.mu.Unlock()
	}

	page, err := uc.msgRepo.FindNewest(ctx, threadID, uc.pageSize)

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.loadingInitial = false
	if err != nil {
		// keep the stale view, stale-but-present beats empty
		loadErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.lastError = loadErr
		return loadErr
	}
	if uc.threadID != threadID {
		// thread switched while the fetch was in flight
		return nil
	}
	uc.feed.ReplaceAll(page)
	uc.feed.SetHasMore(int64(len(page)) == uc.pageSize)
	uc.lastError = nil
	uc.notifyChangeLocked()
	return nil
}

// LoadMore fetch the page strictly older than the current oldest item.
// Guarded by an in-flight latch: concurrent triggers before the first
// completes are no-ops.
func (uc *MessageFeedUseCase) LoadMore(ctx context.Context) error {
	uc.mu.Lock()
	if !uc.feed.HasMore() || uc.loadingMore || uc.loadingInitial {
		uc.mu.Unlock()
		return nil
	}
	before, ok := uc.feed.OldestCreatedAt()
	if !ok {
		uc.mu.Unlock()
		return nil
	}
	uc.loadingMore = true
	threadID := uc.threadID
	uc.mu.Unlock()

	page, err := uc.msgRepo.FindOlderThan(ctx, threadID, before, uc.pageSize)

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.loadingMore = false
	if err != nil {
		loadErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.lastError = loadErr
		return loadErr
	}
	if uc.threadID != threadID {
		return nil
	}
	uc.feed.AppendOlder(page)
	uc.feed.SetHasMore(int64(len(page)) == uc.pageSize)
	uc.lastError = nil
	uc.notifyChangeLocked()
	return nil
}

// Send optimistic send: a temp-id entry appears at the head immediately, is
// swapped for the server row on success and removed on failure. On success
// the thread's audience is notified, best effort.
func (uc *MessageFeedUseCase) Send(ctx context.Context, content, imageURL, replyTo string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" && imageURL == "" {
		return domain.Message{}, domain.ErrValidation
	}

	uc.mu.Lock()
	threadID := uc.threadID
	userID := uc.userID
	uc.mu.Unlock()

	group, err := uc.groups.FindByID(ctx, threadID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	if !pkg.Contains(group.Members, userID) {
		return domain.Message{}, domain.ErrPermission
	}

	temp := domain.Message{
		ID:               domain.NewPendingID(),
		ThreadID:         threadID,
		SenderID:         userID,
		Content:          content,
		ImageURL:         imageURL,
		ReplyToMessageID: replyTo,
		CreatedAt:        time.Now().UnixMilli(),
		Delivery:         domain.DeliveryPending,
	}

	uc.mu.Lock()
	uc.feed.ApplyInsert(temp, time.Now())
	uc.notifyChangeLocked()
	uc.mu.Unlock()

	persisted := temp
	persisted.ID = ""
	if err := uc.msgRepo.Insert(ctx, &persisted); err != nil {
		// rollback: the view returns to its pre-send state
		sendErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.mu.Lock()
		uc.feed.ApplyDelete(temp.ID)
		uc.lastError = sendErr
		uc.notifyChangeLocked()
		uc.mu.Unlock()
		return domain.Message{}, sendErr
	}

	uc.mu.Lock()
	uc.feed.Swap(temp.ID, persisted)
	uc.lastError = nil
	uc.notifyChangeLocked()
	uc.mu.Unlock()

	uc.publishThreadEvent(ctx, threadID, domain.EventInsert, nil, persisted)
	uc.fanOutNewMessage(ctx, group, persisted)
	return persisted, nil
}

// ToggleLike toggle the caller's membership in a message's likedBy set.
// Deliberately not optimistic: the set is read and written server-side and
// the realtime update event carries the final state back. Concurrent taps
// therefore cannot double-toggle the local view.
func (uc *MessageFeedUseCase) ToggleLike(ctx context.Context, messageID string) error {
	uc.mu.Lock()
	threadID := uc.threadID
	userID := uc.userID
	uc.mu.Unlock()

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrStaleState) {
			return domain.ErrStaleState
		}
		uc.setLastError(fmt.Errorf("%w: %v", domain.ErrNetwork, err))
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	var likedBy []string
	liked := pkg.Contains(msg.LikedBy, userID)
	if liked {
		likedBy = pkg.Remove(append([]string(nil), msg.LikedBy...), userID)
	} else {
		likedBy = append(append([]string(nil), msg.LikedBy...), userID)
	}

	if err := uc.msgRepo.SetLikedBy(ctx, messageID, likedBy); err != nil {
		uc.setLastError(fmt.Errorf("%w: %v", domain.ErrNetwork, err))
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}

	updated := *msg
	updated.LikedBy = likedBy
	uc.publishThreadEvent(ctx, threadID, domain.EventUpdate, msg, updated)

	// notify the author on a fresh like, not on an un-like
	if !liked && msg.SenderID != userID && uc.notifier != nil {
		actorName := uc.displayName(ctx, userID)
		uc.notifier.NotifyAudience(ctx,
			notifydomain.Scope{RecipientID: msg.SenderID},
			notifydomain.Event{
				Kind:      notifydomain.KindLike,
				Title:     "New like",
				Body:      actorName + " liked your message",
				Payload:   map[string]interface{}{"message_id": msg.ID, "thread_id": threadID},
				GroupID:   threadID,
				ActorID:   userID,
				ActorName: actorName,
				MessageID: msg.ID,
			})
	}
	return nil
}

// DeleteMessage remove the caller's own message. Server-authoritative like
// ToggleLike: the local removal happens after the write and the delete
// event fans back to every viewer.
func (uc *MessageFeedUseCase) DeleteMessage(ctx context.Context, messageID string) error {
	uc.mu.Lock()
	threadID := uc.threadID
	userID := uc.userID
	uc.mu.Unlock()

	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, domain.ErrStaleState) {
			return domain.ErrStaleState
		}
		fetchErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.setLastError(fetchErr)
		return fetchErr
	}
	if msg.SenderID != userID {
		return domain.ErrPermission
	}
	if err := uc.msgRepo.Delete(ctx, messageID); err != nil {
		delErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.setLastError(delErr)
		return delErr
	}

	uc.mu.Lock()
	uc.feed.ApplyDelete(messageID)
	uc.notifyChangeLocked()
	uc.mu.Unlock()

	uc.publishThreadEvent(ctx, threadID, domain.EventDelete, nil, *msg)
	return nil
}

// Close tear down the realtime subscription for the current scope
func (uc *MessageFeedUseCase) Close() {
	uc.mu.Lock()
	sub := uc.sub
	uc.sub = nil
	uc.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// Items current ordered view, newest first
func (uc *MessageFeedUseCase) Items() []domain.Message {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.feed.Items()
}

// HasMore whether an older page may exist
func (uc *MessageFeedUseCase) HasMore() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.feed.HasMore()
}

// IsLoading whether an initial or incremental fetch is in flight
func (uc *MessageFeedUseCase) IsLoading() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.loadingInitial || uc.loadingMore
}

// LastError last surfaced operation error, nil after a successful fetch
func (uc *MessageFeedUseCase) LastError() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastError
}

// handleEvent realtime reconciliation: id-based dedup, sorted-position
// insert, buffered update-before-insert
func (uc *MessageFeedUseCase) handleEvent(ev domain.ChangeEvent) {
	now := time.Now()
	switch ev.Type {
	case domain.EventInsert:
		msg, err := domain.DecodeRow[domain.Message](ev.NewRow)
		if err != nil {
			logger.Log.Error("message insert decode failed", zap.Error(err))
			return
		}
		msg.Delivery = domain.DeliveryConfirmed
		uc.mu.Lock()
		uc.feed.ApplyInsert(msg, now)
		uc.notifyChangeLocked()
		uc.mu.Unlock()
	case domain.EventUpdate:
		msg, err := domain.DecodeRow[domain.Message](ev.NewRow)
		if err != nil {
			logger.Log.Error("message update decode failed", zap.Error(err))
			return
		}
		msg.Delivery = domain.DeliveryConfirmed
		uc.mu.Lock()
		uc.feed.ApplyUpdate(msg, now)
		uc.notifyChangeLocked()
		uc.mu.Unlock()
	case domain.EventDelete:
		msg, err := domain.DecodeRow[domain.Message](ev.OldRow)
		if err != nil {
			logger.Log.Error("message delete decode failed", zap.Error(err))
			return
		}
		uc.mu.Lock()
		uc.feed.ApplyDelete(msg.ID)
		uc.notifyChangeLocked()
		uc.mu.Unlock()
	}
}

func (uc *MessageFeedUseCase) publishThreadEvent(ctx context.Context, threadID string, t domain.EventType, oldRow *domain.Message, newRow domain.Message) {
	if uc.pubsub == nil {
		return
	}
	var (
		ev  domain.ChangeEvent
		err error
	)
	switch t {
	case domain.EventInsert:
		ev, err = repository.NewInsertEvent(newRow)
	case domain.EventUpdate:
		ev, err = repository.NewUpdateEvent(oldRow, newRow)
	case domain.EventDelete:
		ev, err = repository.NewDeleteEvent(newRow)
	}
	if err == nil {
		err = uc.pubsub.Publish(ctx, domain.ThreadChannel(threadID), ev)
	}
	if err != nil {
		logger.Log.Error("thread event publish failed",
			zap.String("thread_id", threadID),
			zap.Error(err),
		)
	}
}

func (uc *MessageFeedUseCase) fanOutNewMessage(ctx context.Context, group *domain.Group, msg domain.Message) {
	if uc.notifier == nil {
		return
	}
	actorName := uc.displayName(ctx, msg.SenderID)
	body := msg.Content
	if body == "" {
		body = "sent a photo"
	}
	kind := notifydomain.KindNewMessage
	if msg.ImageURL != "" && msg.Content == "" {
		kind = notifydomain.KindNewPhoto
	}
	uc.notifier.NotifyAudience(ctx,
		notifydomain.Scope{GroupID: group.ID},
		notifydomain.Event{
			Kind:      kind,
			Title:     group.Name,
			Body:      actorName + ": " + body,
			Content:   msg.Content,
			Payload:   map[string]interface{}{"message_id": msg.ID, "thread_id": msg.ThreadID},
			GroupID:   group.ID,
			ActorID:   msg.SenderID,
			ActorName: actorName,
			MessageID: msg.ID,
		})
}

func (uc *MessageFeedUseCase) displayName(ctx context.Context, userID string) string {
	if uc.members == nil {
		return userID
	}
	member, err := uc.members.FindByID(ctx, userID)
	if err != nil {
		return userID
	}
	return member.DisplayName
}

func (uc *MessageFeedUseCase) setLastError(err error) {
	uc.mu.Lock()
	uc.lastError = err
	uc.mu.Unlock()
}

// callers hold uc.mu
func (uc *MessageFeedUseCase) notifyChangeLocked() {
	if uc.onChange != nil {
		uc.onChange(uc.feed.Items(), uc.feed.HasMore())
	}
}
