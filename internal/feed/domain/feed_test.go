package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func msg(id string, createdAt int64) Message {
	return Message{ID: id, ThreadID: "t1", SenderID: "u1", Content: "hi", CreatedAt: createdAt}
}

func ids(items []Message) []string {
	out := make([]string, 0, len(items))
	for _, m := range items {
		out = append(out, m.ID)
	}
	return out
}

func TestFeed_InsertKeepsNewestFirst(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	f.ApplyInsert(msg("a", 100), now)
	f.ApplyInsert(msg("b", 90), now)
	f.ApplyInsert(msg("c", 95), now)

	assert.Equal(t, []string{"a", "c", "b"}, ids(f.Items()))
}

func TestFeed_InsertTieGoesAfterExisting(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	f.ApplyInsert(msg("a", 100), now)
	f.ApplyInsert(msg("b", 100), now)
	f.ApplyInsert(msg("c", 100), now)

	assert.Equal(t, []string{"a", "b", "c"}, ids(f.Items()))
}

func TestFeed_DuplicateIDIgnored(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	assert.True(t, f.ApplyInsert(msg("a", 100), now))
	assert.False(t, f.ApplyInsert(msg("a", 200), now))
	assert.Equal(t, 1, f.Len())
	got, ok := f.Get("a")
	assert.True(t, ok)
	assert.Equal(t, int64(100), got.CreatedAt)
}

func TestFeed_ReplaceAllDedups(t *testing.T) {
	f := NewFeed[Message]()
	f.ReplaceAll([]Message{msg("a", 100), msg("b", 90), msg("a", 100)})
	assert.Equal(t, []string{"a", "b"}, ids(f.Items()))
}

func TestFeed_AppendOlderSkipsKnownIDs(t *testing.T) {
	f := NewFeed[Message]()
	f.ReplaceAll([]Message{msg("a", 100), msg("b", 90)})
	f.AppendOlder([]Message{msg("b", 90), msg("c", 80)})
	assert.Equal(t, []string{"a", "b", "c"}, ids(f.Items()))
}

func TestFeed_UpdateBeforeInsertIsBuffered(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	updated := msg("a", 100)
	updated.Content = "edited"
	_, applied := f.ApplyUpdate(updated, now)
	assert.False(t, applied)
	assert.Equal(t, 0, f.Len())

	// the insert lands within the TTL; the buffered update wins
	f.ApplyInsert(msg("a", 100), now.Add(time.Second))
	got, ok := f.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "edited", got.Content)
}

func TestFeed_BufferedUpdateExpires(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	updated := msg("a", 100)
	updated.Content = "edited"
	f.ApplyUpdate(updated, now)

	f.ApplyInsert(msg("a", 100), now.Add(11*time.Second))
	got, ok := f.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "hi", got.Content)
}

func TestFeed_UpdateReturnsPrevious(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	f.ApplyInsert(msg("a", 100), now)
	updated := msg("a", 100)
	updated.Content = "edited"
	prev, applied := f.ApplyUpdate(updated, now)
	assert.True(t, applied)
	assert.Equal(t, "hi", prev.Content)
}

func TestFeed_DeleteReturnsRemoved(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	f.ApplyInsert(msg("a", 100), now)
	removed, ok := f.ApplyDelete("a")
	assert.True(t, ok)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, 0, f.Len())

	_, ok = f.ApplyDelete("a")
	assert.False(t, ok)
}

func TestFeed_SwapPromotesTempEntry(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	temp := msg(NewPendingID(), 100)
	temp.Delivery = DeliveryPending
	f.ApplyInsert(temp, now)
	f.ApplyInsert(msg("b", 90), now)

	confirmed := msg("srv-1", 100)
	confirmed.Delivery = DeliveryConfirmed
	assert.True(t, f.Swap(temp.ID, confirmed))
	assert.Equal(t, []string{"srv-1", "b"}, ids(f.Items()))
}

func TestFeed_SwapDropsTempWhenServerRowArrivedFirst(t *testing.T) {
	f := NewFeed[Message]()
	now := time.Now()

	temp := msg(NewPendingID(), 100)
	f.ApplyInsert(temp, now)
	// the realtime insert for the confirmed row won the race
	f.ApplyInsert(msg("srv-1", 101), now)

	assert.False(t, f.Swap(temp.ID, msg("srv-1", 101)))
	assert.Equal(t, []string{"srv-1"}, ids(f.Items()))
}

func TestFeed_OldestCreatedAtIsExclusiveCursor(t *testing.T) {
	f := NewFeed[Message]()
	_, ok := f.OldestCreatedAt()
	assert.False(t, ok)

	f.ReplaceAll([]Message{msg("a", 100), msg("b", 90)})
	cursor, ok := f.OldestCreatedAt()
	assert.True(t, ok)
	assert.Equal(t, int64(90), cursor)
}
