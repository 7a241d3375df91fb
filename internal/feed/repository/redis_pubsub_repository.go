package repository

import (
	"context"
	"encoding/json"
	"sync"

	"gratitude_chat_service/internal/feed/domain"
	"gratitude_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// FeedPubSub realtime change channel per feed scope
type FeedPubSub interface {
	Publish(ctx context.Context, channel string, ev domain.ChangeEvent) error
	// Subscribe register handler for one scope channel. The returned
	// Subscription must be closed on scope change; Close guarantees no
	// handler invocation after it returns.
	Subscribe(channel string, handler func(ev domain.ChangeEvent)) (*Subscription, error)
}

// Subscription handle for one active scope subscription
type Subscription struct {
	mu     sync.Mutex
	closed bool
	sub    *redis.PubSub
	done   chan struct{}
}

// Close tear down the subscription. Synchronous: a handler running when
// Close is called finishes first, and no handler runs afterwards.
func (s *Subscription) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	if s.sub != nil {
		s.sub.Close()
	}
	if s.done != nil {
		<-s.done
	}
}

func (s *Subscription) deliver(handler func(ev domain.ChangeEvent), ev domain.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// late event for a torn-down scope, dropped
		return
	}
	handler(ev)
}

// RedisFeedPubSub redis-backed FeedPubSub
type RedisFeedPubSub struct {
	client *redis.Client
}

// NewRedisFeedPubSub create RedisFeedPubSub
func NewRedisFeedPubSub(client *redis.Client) *RedisFeedPubSub {
	return &RedisFeedPubSub{client: client}
}

// Publish serialize the event and publish it on the scope channel
func (r *RedisFeedPubSub) Publish(ctx context.Context, channel string, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe start a reader goroutine for one scope channel
func (r *RedisFeedPubSub) Subscribe(channel string, handler func(ev domain.ChangeEvent)) (*Subscription, error) {
	sub := r.client.Subscribe(context.Background(), channel)
	s := &Subscription{
		sub:  sub,
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		ch := sub.Channel()
		for m := range ch {
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				logger.Log.Error("feed event unmarshal failed",
					zap.String("channel", channel),
					zap.Error(err),
				)
				continue
			}
			s.deliver(handler, ev)
		}
		logger.Log.Info("feed subscription closed", zap.String("channel", channel))
	}()

	return s, nil
}

// NewInsertEvent build an insert ChangeEvent from a row
func NewInsertEvent(row interface{}) (domain.ChangeEvent, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	return domain.ChangeEvent{Type: domain.EventInsert, NewRow: data}, nil
}

// NewUpdateEvent build an update ChangeEvent from old and new rows
func NewUpdateEvent(oldRow, newRow interface{}) (domain.ChangeEvent, error) {
	oldData, err := json.Marshal(oldRow)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	newData, err := json.Marshal(newRow)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	return domain.ChangeEvent{Type: domain.EventUpdate, NewRow: newData, OldRow: oldData}, nil
}

// NewDeleteEvent build a delete ChangeEvent from the removed row
func NewDeleteEvent(row interface{}) (domain.ChangeEvent, error) {
	data, err := json.Marshal(row)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	return domain.ChangeEvent{Type: domain.EventDelete, OldRow: data}, nil
}
