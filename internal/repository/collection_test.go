package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func itemID(i item) string { return i.ID }

type failingKV struct {
	*MemoryKV
	failSet bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failSet {
		return errors.New("disk full")
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func TestCollectionPutInsertsAtHeadAndReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(NewMemoryKV(), "cnhs_", "items", itemID, CollectionOptions{IDPrefix: "I"})

	inserted, err := c.Put(ctx, item{ID: "I001", Name: "first"})
	require.NoError(t, err)
	assert.True(t, inserted)
	_, err = c.Put(ctx, item{ID: "I002", Name: "second"})
	require.NoError(t, err)

	inserted, err = c.Put(ctx, item{ID: "I001", Name: "renamed"})
	require.NoError(t, err)
	assert.False(t, inserted)

	list := c.List(ctx)
	require.Len(t, list, 2)
	assert.Equal(t, item{ID: "I002", Name: "second"}, list[0])
	assert.Equal(t, item{ID: "I001", Name: "renamed"}, list[1])
}

func TestCollectionRoundTripThroughKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := NewCollection(kv, "cnhs_", "items", itemID, CollectionOptions{})
	_, err := c.Put(ctx, item{ID: "a", Name: "alpha"})
	require.NoError(t, err)
	_, err = c.Put(ctx, item{ID: "b", Name: "beta"})
	require.NoError(t, err)

	reloaded := NewCollection(kv, "cnhs_", "items", itemID, CollectionOptions{})
	diagnostic, err := reloaded.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, diagnostic)
	assert.Equal(t, c.List(ctx), reloaded.List(ctx))
}

func TestCollectionWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{MemoryKV: NewMemoryKV()}
	c := NewCollection[item](kv, "", "items", itemID, CollectionOptions{})
	_, err := c.Put(ctx, item{ID: "a"})
	require.NoError(t, err)

	kv.failSet = true
	_, err = c.Put(ctx, item{ID: "b"})
	require.Error(t, err)
	assert.Error(t, c.Delete(ctx, "a"))

	assert.Equal(t, []item{{ID: "a"}}, c.List(ctx))
}

func TestCollectionLoadCorruptValue(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "cnhs_items", []byte("{not json")))

	c := NewCollection(kv, "cnhs_", "items", itemID, CollectionOptions{})
	diagnostic, err := c.Load(ctx)
	require.NoError(t, err)
	assert.Contains(t, diagnostic, "cnhs_items")
	assert.Empty(t, c.List(ctx))
}

func TestCollectionDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(NewMemoryKV(), "", "items", itemID, CollectionOptions{})
	require.NoError(t, c.PutMany(ctx, []item{{ID: "a"}, {ID: "b"}, {ID: "c"}}))

	require.NoError(t, c.Delete(ctx, "b"))
	assert.ErrorIs(t, c.Delete(ctx, "b"), ErrNotFound)

	removed, err := c.DeleteWhere(ctx, func(i item) bool { return i.ID != "" })
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Zero(t, c.Count(ctx))
}

func TestCollectionLimitEvictsOldest(t *testing.T) {
	ctx := context.Background()
	c := NewCollection(NewMemoryKV(), "", "log", itemID, CollectionOptions{Limit: 3})
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		_, err := c.Put(ctx, item{ID: id})
		require.NoError(t, err)
	}
	list := c.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"5", "4", "3"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestCollectionNextID(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := NewCollection(kv, "", "students", itemID, CollectionOptions{IDPrefix: "S"})

	id, err := c.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "S001", id)

	require.NoError(t, c.PutMany(ctx, []item{{ID: "S005"}, {ID: "SX_CUSTOM"}}))
	id, err = c.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "S006", id)

	require.NoError(t, c.Delete(ctx, "S005"))
	id, err = c.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "S007", id, "ids are never reused after a delete")

	reloaded := NewCollection(kv, "", "students", itemID, CollectionOptions{IDPrefix: "S"})
	_, err = reloaded.Load(ctx)
	require.NoError(t, err)
	id, err = reloaded.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "S008", id)
}

func TestCollectionNextIDWithoutPrefix(t *testing.T) {
	c := NewCollection(NewMemoryKV(), "", "enrollments", itemID, CollectionOptions{})
	_, err := c.NextID(context.Background())
	assert.Error(t, err)
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "SUB009", FormatID("SUB", 9))
	assert.Equal(t, "T1000", FormatID("T", 1000))
}
