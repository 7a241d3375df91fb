package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gratitude_chat_service/internal/feed/domain"
	feedrepo "gratitude_chat_service/internal/feed/repository"
	notifydomain "gratitude_chat_service/internal/notify/domain"
	notifyrepo "gratitude_chat_service/internal/notify/repository"
	"gratitude_chat_service/pkg/logger"

	"go.uber.org/zap"
)

// NotificationPageSize fixed page length for notification fetches
const NotificationPageSize = 20

// NotificationFeedUseCase keeps one user's notification list and unread
// badge consistent. The unread count is maintained incrementally from
// applied mutations; a full rescan happens only on (re)load.
type NotificationFeedUseCase struct {
	repo   notifyrepo.NotificationRepository
	pubsub feedrepo.FeedPubSub

	mu             sync.Mutex
	feed           *domain.Feed[notifydomain.NotificationRecord]
	userID         string
	sub            *feedrepo.Subscription
	loadingInitial bool
	loadingMore    bool
	unread         int
	lastError      error
	onChange       func(items []notifydomain.NotificationRecord, unread int, hasMore bool)
	onAlert        func(rec notifydomain.NotificationRecord)
}

// NewNotificationFeedUseCase init create notification feed use case
func NewNotificationFeedUseCase(repo notifyrepo.NotificationRepository, pubsub feedrepo.FeedPubSub) *NotificationFeedUseCase {
	return &NotificationFeedUseCase{
		repo:   repo,
		pubsub: pubsub,
		feed:   domain.NewFeed[notifydomain.NotificationRecord](),
	}
}

// SetOnChange register a snapshot callback, fired after every applied
// mutation with the feed lock held
func (uc *NotificationFeedUseCase) SetOnChange(fn func(items []notifydomain.NotificationRecord, unread int, hasMore bool)) {
	uc.mu.Lock()
	uc.onChange = fn
	uc.mu.Unlock()
}

// SetOnAlert register a callback fired for every freshly inserted realtime
// record, before dedup suppression is applied by the caller
func (uc *NotificationFeedUseCase) SetOnAlert(fn func(rec notifydomain.NotificationRecord)) {
	uc.mu.Lock()
	uc.onAlert = fn
	uc.mu.Unlock()
}

// Load fetch the newest page for one user and establish the realtime
// subscription on the user channel
func (uc *NotificationFeedUseCase) Load(ctx context.Context, userID string) error {
	uc.mu.Lock()
	var oldSub *feedrepo.Subscription
	if uc.userID != userID {
		oldSub = uc.sub
		uc.sub = nil
		uc.feed = domain.NewFeed[notifydomain.NotificationRecord]()
		uc.unread = 0
		uc.lastError = nil
	}
	uc.userID = userID
	uc.loadingInitial = true
	needSub := uc.sub == nil
	uc.mu.Unlock()

	if oldSub != nil {
		oldSub.Close()
	}
	if needSub && uc.pubsub != nil {
		sub, err := uc.pubsub.Subscribe(domain.UserChannel(userID), uc.handleEvent)
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

	page, err := uc.repo.FindNewest(ctx, userID, NotificationPageSize)
	serverUnread := int64(-1)
	if err == nil {
		// authoritative badge: the server count covers unread records
		// beyond the fetched page
		if n, cntErr := uc.repo.CountUnread(ctx, userID); cntErr != nil {
			logger.Log.Warn("unread count fetch failed",
				zap.String("user_id", userID),
				zap.Error(cntErr),
			)
		} else {
			serverUnread = n
		}
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.loadingInitial = false
	if err != nil {
		loadErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.lastError = loadErr
		return loadErr
	}
	if uc.userID != userID {
		return nil
	}
	uc.feed.ReplaceAll(page)
	uc.feed.SetHasMore(len(page) == NotificationPageSize)
	if serverUnread >= 0 {
		uc.unread = int(serverUnread)
	} else {
		uc.unread = uc.countUnreadLocked()
	}
	uc.lastError = nil
	uc.notifyChangeLocked()
	return nil
}

// LoadMore fetch the page strictly older than the current oldest record,
// guarded by an in-flight latch
func (uc *NotificationFeedUseCase) LoadMore(ctx context.Context) error {
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
	userID := uc.userID
	uc.mu.Unlock()

	page, err := uc.repo.FindOlderThan(ctx, userID, before, NotificationPageSize)

	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.loadingMore = false
	if err != nil {
		loadErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.lastError = loadErr
		return loadErr
	}
	if uc.userID != userID {
		return nil
	}
	uc.feed.AppendOlder(page)
	uc.feed.SetHasMore(len(page) == NotificationPageSize)
	// widening the window can only reveal more unread records, never
	// fewer; the load-time server count stays the upper bound
	if n := uc.countUnreadLocked(); n > uc.unread {
		uc.unread = n
	}
	uc.lastError = nil
	uc.notifyChangeLocked()
	return nil
}

// MarkRead optimistic single flip: the record is marked read and the badge
// decremented before persistence, and both are reverted on failure
func (uc *NotificationFeedUseCase) MarkRead(ctx context.Context, id string) error {
	uc.mu.Lock()
	rec, ok := uc.feed.Get(id)
	if !ok || rec.IsRead {
		uc.mu.Unlock()
		return nil
	}
	flipped := rec
	flipped.IsRead = true
	uc.feed.ApplyUpdate(flipped, time.Now())
	uc.unread--
	uc.notifyChangeLocked()
	uc.mu.Unlock()

	if err := uc.repo.MarkRead(ctx, id); err != nil {
		markErr := fmt.Errorf("%w: %v", domain.ErrNetwork, err)
		uc.mu.Lock()
		if cur, ok := uc.feed.Get(id); ok && cur.IsRead {
			reverted := cur
			reverted.IsRead = false
			uc.feed.ApplyUpdate(reverted, time.Now())
			uc.unread++
		}
		uc.lastError = markErr
		uc.notifyChangeLocked()
		uc.mu.Unlock()
		return markErr
	}
	return nil
}

// MarkAllRead optimistic bulk flip. Per-record rollback is not tracked; on
// failure the authoritative state is re-fetched instead.
func (uc *NotificationFeedUseCase) MarkAllRead(ctx context.Context) error {
	uc.mu.Lock()
	if uc.unread == 0 {
		uc.mu.Unlock()
		return nil
	}
	now := time.Now()
	for _, rec := range uc.feed.Items() {
		if rec.IsRead {
			continue
		}
		flipped := rec
		flipped.IsRead = true
		uc.feed.ApplyUpdate(flipped, now)
	}
	uc.unread = 0
	userID := uc.userID
	uc.notifyChangeLocked()
	uc.mu.Unlock()

	if err := uc.repo.MarkAllRead(ctx, userID); err != nil {
		uc.refetch(ctx, userID)
		uc.setLastError(fmt.Errorf("%w: %v", domain.ErrNetwork, err))
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	return nil
}

// Delete remove a record locally and best-effort server-side; the removal
// is not rolled back on failure
func (uc *NotificationFeedUseCase) Delete(ctx context.Context, id string) error {
	uc.mu.Lock()
	removed, ok := uc.feed.ApplyDelete(id)
	if ok && !removed.IsRead {
		uc.unread--
	}
	uc.notifyChangeLocked()
	uc.mu.Unlock()

	if err := uc.repo.Delete(ctx, id); err != nil {
		uc.setLastError(fmt.Errorf("%w: %v", domain.ErrNetwork, err))
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	return nil
}

// Close tear down the realtime subscription
func (uc *NotificationFeedUseCase) Close() {
	uc.mu.Lock()
	sub := uc.sub
	uc.sub = nil
	uc.mu.Unlock()
	if sub != nil {
		sub.Close()
	}
}

// Items current ordered view, newest first
func (uc *NotificationFeedUseCase) Items() []notifydomain.NotificationRecord {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.feed.Items()
}

// UnreadCount current badge value
func (uc *NotificationFeedUseCase) UnreadCount() int {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.unread
}

// HasMore whether an older page may exist
func (uc *NotificationFeedUseCase) HasMore() bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.feed.HasMore()
}

// LastError last surfaced operation error, nil after a successful fetch
func (uc *NotificationFeedUseCase) LastError() error {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastError
}

func (uc *NotificationFeedUseCase) handleEvent(ev domain.ChangeEvent) {
	now := time.Now()
	switch ev.Type {
	case domain.EventInsert:
		rec, err := domain.DecodeRow[notifydomain.NotificationRecord](ev.NewRow)
		if err != nil {
			logger.Log.Error("notification insert decode failed", zap.Error(err))
			return
		}
		uc.mu.Lock()
		applied := uc.feed.ApplyInsert(rec, now)
		var alert func(notifydomain.NotificationRecord)
		if applied {
			// a buffered update may have landed on top of the insert,
			// count from the stored record
			if cur, ok := uc.feed.Get(rec.ID); ok && !cur.IsRead {
				uc.unread++
			}
			alert = uc.onAlert
		}
		uc.notifyChangeLocked()
		uc.mu.Unlock()
		if alert != nil {
			alert(rec)
		}
	case domain.EventUpdate:
		rec, err := domain.DecodeRow[notifydomain.NotificationRecord](ev.NewRow)
		if err != nil {
			logger.Log.Error("notification update decode failed", zap.Error(err))
			return
		}
		uc.mu.Lock()
		prev, applied := uc.feed.ApplyUpdate(rec, now)
		if applied {
			if !prev.IsRead && rec.IsRead {
				uc.unread--
			} else if prev.IsRead && !rec.IsRead {
				uc.unread++
			}
		}
		uc.notifyChangeLocked()
		uc.mu.Unlock()
	case domain.EventDelete:
		rec, err := domain.DecodeRow[notifydomain.NotificationRecord](ev.OldRow)
		if err != nil {
			logger.Log.Error("notification delete decode failed", zap.Error(err))
			return
		}
		uc.mu.Lock()
		removed, ok := uc.feed.ApplyDelete(rec.ID)
		if ok && !removed.IsRead {
			uc.unread--
		}
		uc.notifyChangeLocked()
		uc.mu.Unlock()
	}
}

func (uc *NotificationFeedUseCase) refetch(ctx context.Context, userID string) {
	page, err := uc.repo.FindNewest(ctx, userID, NotificationPageSize)
	if err != nil {
		logger.Log.Error("notification refetch failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return
	}
	serverUnread := int64(-1)
	if n, cntErr := uc.repo.CountUnread(ctx, userID); cntErr == nil {
		serverUnread = n
	}
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.userID != userID {
		return
	}
	uc.feed.ReplaceAll(page)
	uc.feed.SetHasMore(len(page) == NotificationPageSize)
	if serverUnread >= 0 {
		uc.unread = int(serverUnread)
	} else {
		uc.unread = uc.countUnreadLocked()
	}
	uc.notifyChangeLocked()
}

func (uc *NotificationFeedUseCase) countUnreadLocked() int {
	n := 0
	for _, rec := range uc.feed.Items() {
		if !rec.IsRead {
			n++
		}
	}
	return n
}

func (uc *NotificationFeedUseCase) setLastError(err error) {
	uc.mu.Lock()
	uc.lastError = err
	uc.mu.Unlock()
}

func (uc *NotificationFeedUseCase) notifyChangeLocked() {
	if uc.onChange != nil {
		uc.onChange(uc.feed.Items(), uc.unread, uc.feed.HasMore())
	}
}
