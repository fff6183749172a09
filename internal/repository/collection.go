package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// ErrNotFound is returned when no record carries the requested id.
var ErrNotFound = errors.New("record not found")

// Collection is an ordered, id-keyed list of records persisted as one JSON
// array under a single key. Every mutation writes the whole array through to
// the KV store; a failed write leaves the in-memory list untouched.
type Collection[T any] struct {
	name     string
	key      string
	seqKey   string
	idPrefix string
	limit    int
	idOf     func(T) string
	kv       KVStore

	mu    sync.RWMutex
	items []T
	seq   int
}

// CollectionOptions configures a collection.
type CollectionOptions struct {
	// IDPrefix enables NextID ("S" yields S001, S002, ...).
	IDPrefix string
	// Limit caps the list length; the oldest (tail) records are evicted.
	Limit int
}

// NewCollection binds a collection to key prefix+name in kv.
func NewCollection[T any](kv KVStore, prefix, name string, idOf func(T) string, opts CollectionOptions) *Collection[T] {
	return &Collection[T]{
		name:     name,
		key:      prefix + name,
		seqKey:   prefix + "seq_" + name,
		idPrefix: opts.IDPrefix,
		limit:    opts.Limit,
		idOf:     idOf,
		kv:       kv,
		items:    []T{},
	}
}

// Name returns the logical collection name.
func (c *Collection[T]) Name() string { return c.name }

// Key returns the storage key.
func (c *Collection[T]) Key() string { return c.key }

// Load replaces the in-memory list with the persisted one. An absent key
// yields an empty list. A value that does not decode yields an empty list and
// a diagnostic; backend failures are returned as errors.
func (c *Collection[T]) Load(ctx context.Context) (string, error) {
	items := []T{}
	diagnostic := ""

	raw, err := c.kv.Get(ctx, c.key)
	switch {
	case errors.Is(err, ErrKeyNotFound):
	case err != nil:
		return "", fmt.Errorf("load %s: %w", c.name, err)
	default:
		if err := json.Unmarshal(raw, &items); err != nil {
			items = []T{}
			diagnostic = fmt.Sprintf("%s: stored value is not a valid list, starting empty: %v", c.key, err)
		}
	}

	seq := 0
	if raw, err := c.kv.Get(ctx, c.seqKey); err == nil {
		if n, convErr := strconv.Atoi(strings.TrimSpace(string(raw))); convErr == nil {
			seq = n
		}
	} else if !errors.Is(err, ErrKeyNotFound) {
		return "", fmt.Errorf("load %s sequence: %w", c.name, err)
	}

	c.mu.Lock()
	c.items = items
	c.seq = seq
	c.mu.Unlock()
	return diagnostic, nil
}

// List returns a copy of every record, newest first.
func (c *Collection[T]) List(ctx context.Context) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Count returns the number of records.
func (c *Collection[T]) Count(ctx context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Get returns the record with id.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if c.idOf(item) == id {
			return item, nil
		}
	}
	var zero T
	return zero, ErrNotFound
}

// Exists reports whether a record with id is stored.
func (c *Collection[T]) Exists(ctx context.Context, id string) bool {
	_, err := c.Get(ctx, id)
	return err == nil
}

// Find returns the records matching pred in list order.
func (c *Collection[T]) Find(ctx context.Context, pred func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0)
	for _, item := range c.items {
		if pred(item) {
			out = append(out, item)
		}
	}
	return out
}

// Any reports whether at least one record matches pred.
func (c *Collection[T]) Any(ctx context.Context, pred func(T) bool) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if pred(item) {
			return true
		}
	}
	return false
}

// Put replaces the record with the same id in place, or inserts it at the
// head. It reports whether the record was inserted.
func (c *Collection[T]) Put(ctx context.Context, item T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.idOf(item)
	if id == "" {
		return false, fmt.Errorf("put %s: empty id", c.name)
	}
	next := make([]T, 0, len(c.items)+1)
	inserted := true
	for _, existing := range c.items {
		if c.idOf(existing) == id {
			next = append(next, item)
			inserted = false
			continue
		}
		next = append(next, existing)
	}
	if inserted {
		next = append([]T{item}, next...)
	}
	if err := c.commit(ctx, next); err != nil {
		return false, err
	}
	return inserted, nil
}

// PutMany applies Put for each item and persists once.
func (c *Collection[T]) PutMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]T, len(c.items))
	copy(next, c.items)
	for _, item := range items {
		id := c.idOf(item)
		if id == "" {
			return fmt.Errorf("put %s: empty id", c.name)
		}
		replaced := false
		for i := range next {
			if c.idOf(next[i]) == id {
				next[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			next = append([]T{item}, next...)
		}
	}
	return c.commit(ctx, next)
}

// Replace overwrites the whole list.
func (c *Collection[T]) Replace(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]T, len(items))
	copy(next, items)
	return c.commit(ctx, next)
}

// Delete removes the record with id.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	removed, err := c.DeleteWhere(ctx, func(item T) bool { return c.idOf(item) == id })
	if err != nil {
		return err
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteWhere removes every record matching pred and returns how many went.
func (c *Collection[T]) DeleteWhere(ctx context.Context, pred func(T) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := make([]T, 0, len(c.items))
	for _, item := range c.items {
		if !pred(item) {
			next = append(next, item)
		}
	}
	removed := len(c.items) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := c.commit(ctx, next); err != nil {
		return 0, err
	}
	return removed, nil
}

// NextID allocates the next identifier. The counter never moves backwards:
// it is the larger of the persisted counter and the highest numeric suffix in
// the list, plus one. Suffixes that are not numbers are ignored.
func (c *Collection[T]) NextID(ctx context.Context) (string, error) {
	if c.idPrefix == "" {
		return "", fmt.Errorf("collection %s does not allocate ids", c.name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	highest := c.seq
	for _, item := range c.items {
		if n, ok := numericSuffix(c.idOf(item), c.idPrefix); ok && n > highest {
			highest = n
		}
	}
	next := highest + 1
	if err := c.kv.Set(ctx, c.seqKey, []byte(strconv.Itoa(next))); err != nil {
		return "", fmt.Errorf("persist %s sequence: %w", c.name, err)
	}
	c.seq = next
	return FormatID(c.idPrefix, next), nil
}

// FormatID renders prefix plus a number zero-padded to three digits.
func FormatID(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

func numericSuffix(id, prefix string) (int, bool) {
	if !strings.HasPrefix(id, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// commit persists next and swaps it in. Callers hold c.mu.
func (c *Collection[T]) commit(ctx context.Context, next []T) error {
	if c.limit > 0 && len(next) > c.limit {
		next = next[:c.limit]
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if err := c.kv.Set(ctx, c.key, payload); err != nil {
		return fmt.Errorf("persist %s: %w", c.name, err)
	}
	c.items = next
	return nil
}
