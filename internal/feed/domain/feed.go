package domain

import (
	"time"
)

// Item anything a feed can hold, keyed by id and ordered by creation time
type Item interface {
	ItemID() string
	ItemCreatedAt() int64
}

// updateBufferTTL how long an update arriving before its own insert is kept
const updateBufferTTL = 10 * time.Second

type bufferedUpdate[T Item] struct {
	item      T
	expiresAt time.Time
}

// Feed ordered newest-first item list with id dedup and out-of-order repair.
// It is pure state: callers serialize access and run side effects around it.
type Feed[T Item] struct {
	items   []T
	hasMore bool
	// updates that raced ahead of their insert, keyed by id
	buffered map[string]bufferedUpdate[T]
}

// NewFeed create an empty feed
func NewFeed[T Item]() *Feed[T] {
	return &Feed[T]{
		buffered: make(map[string]bufferedUpdate[T]),
	}
}

// ReplaceAll reset the feed with a freshly fetched newest page
func (f *Feed[T]) ReplaceAll(items []T) {
	f.items = f.items[:0]
	for _, it := range items {
		if f.indexOf(it.ItemID()) >= 0 {
			continue
		}
		f.sortedInsert(it)
	}
}

// AppendOlder merge an older page, skipping ids already present
func (f *Feed[T]) AppendOlder(items []T) {
	for _, it := range items {
		if f.indexOf(it.ItemID()) >= 0 {
			continue
		}
		f.sortedInsert(it)
	}
}

// ApplyInsert add a realtime or optimistic insert. Duplicate ids are ignored.
// A buffered update waiting for this id is applied on top of the insert.
func (f *Feed[T]) ApplyInsert(item T, now time.Time) bool {
	f.sweep(now)
	if f.indexOf(item.ItemID()) >= 0 {
		return false
	}
	f.sortedInsert(item)
	if b, ok := f.buffered[item.ItemID()]; ok {
		delete(f.buffered, item.ItemID())
		if now.Before(b.expiresAt) {
			f.replaceInPlace(b.item)
		}
	}
	return true
}

// ApplyUpdate replace the matching item in place. When the id is absent the
// update raced ahead of its insert and is buffered until it lands or expires.
// Returns the previous item and whether the update was applied.
func (f *Feed[T]) ApplyUpdate(item T, now time.Time) (T, bool) {
	f.sweep(now)
	i := f.indexOf(item.ItemID())
	if i < 0 {
		var zero T
		f.buffered[item.ItemID()] = bufferedUpdate[T]{item: item, expiresAt: now.Add(updateBufferTTL)}
		return zero, false
	}
	prev := f.items[i]
	f.items[i] = item
	return prev, true
}

// ApplyDelete remove the matching item, no-op when absent
func (f *Feed[T]) ApplyDelete(id string) (T, bool) {
	delete(f.buffered, id)
	i := f.indexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	removed := f.items[i]
	f.items = append(f.items[:i], f.items[i+1:]...)
	return removed, true
}

// Swap replace the entry oldID with item, preserving its position. Used to
// promote an optimistic temp entry to the server-confirmed row. When the new
// id already exists (the realtime insert won the race) the temp entry is
// simply dropped.
func (f *Feed[T]) Swap(oldID string, item T) bool {
	if oldID != item.ItemID() && f.indexOf(item.ItemID()) >= 0 {
		f.ApplyDelete(oldID)
		return false
	}
	i := f.indexOf(oldID)
	if i < 0 {
		return false
	}
	f.items[i] = item
	return true
}

// Get look up one item by id
func (f *Feed[T]) Get(id string) (T, bool) {
	i := f.indexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return f.items[i], true
}

// Items copy of the current ordered view
func (f *Feed[T]) Items() []T {
	out := make([]T, len(f.items))
	copy(out, f.items)
	return out
}

// Len current item count
func (f *Feed[T]) Len() int { return len(f.items) }

// HasMore whether an older page may exist
func (f *Feed[T]) HasMore() bool { return f.hasMore }

// SetHasMore record pagination state after a fetch
func (f *Feed[T]) SetHasMore(v bool) { f.hasMore = v }

// OldestCreatedAt sort key of the last item, the exclusive cursor for the
// next older page
func (f *Feed[T]) OldestCreatedAt() (int64, bool) {
	if len(f.items) == 0 {
		return 0, false
	}
	return f.items[len(f.items)-1].ItemCreatedAt(), true
}

func (f *Feed[T]) indexOf(id string) int {
	for i := range f.items {
		if f.items[i].ItemID() == id {
			return i
		}
	}
	return -1
}

func (f *Feed[T]) replaceInPlace(item T) {
	if i := f.indexOf(item.ItemID()); i >= 0 {
		f.items[i] = item
	}
}

// sortedInsert keep createdAt non-increasing from index 0. Ties go after
// existing equal entries so arrival order is stable.
func (f *Feed[T]) sortedInsert(item T) {
	pos := len(f.items)
	for i := range f.items {
		if item.ItemCreatedAt() > f.items[i].ItemCreatedAt() {
			pos = i
			break
		}
	}
	f.items = append(f.items, item)
	copy(f.items[pos+1:], f.items[pos:])
	f.items[pos] = item
}

func (f *Feed[T]) sweep(now time.Time) {
	for id, b := range f.buffered {
		if !now.Before(b.expiresAt) {
			delete(f.buffered, id)
		}
	}
}
