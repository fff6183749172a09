package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
)

func TestColorFor(t *testing.T) {
	assert.Equal(t, models.ActivityColorSystem, ColorFor(models.ActivitySystemUpdate))
	assert.Equal(t, models.ActivityColorDelete, ColorFor(models.ActivityStudentDelete))
	assert.Equal(t, models.ActivityColorDelete, ColorFor(models.ActivityClassDelete))
	assert.Equal(t, models.ActivityColorDefault, ColorFor(models.ActivityEnrollment))
}

func TestActivityRecordUsesActor(t *testing.T) {
	env := newTestEnv(t)
	fixed := time.Date(2024, 9, 1, 8, 0, 0, 0, time.FixedZone("PHT", 8*3600))
	env.activity.now = func() time.Time { return fixed }

	env.activity.Record(env.ctx, models.ActivityStudentReg, "REGISTERED LEARNER")
	env.activity.Record(WithActor(env.ctx, "registrar@cnhs.edu.ph"), models.ActivityStudentDelete, "DELETED LEARNER")

	recent := env.activity.Recent(env.ctx, 0)
	require.Len(t, recent, 2)
	assert.Equal(t, "registrar@cnhs.edu.ph", recent[0].User)
	assert.Equal(t, models.ActivityColorDelete, recent[0].Color)
	assert.Equal(t, defaultActivityUser, recent[1].User)
	assert.Equal(t, fixed.UTC(), recent[1].Timestamp)
	assert.NotEmpty(t, recent[1].ID)
}

func TestActivityLogIsBounded(t *testing.T) {
	env := newTestEnv(t)
	store := repository.NewRecordStore(env.kv, repository.RecordStoreOptions{KeyPrefix: "bounded_", ActivityLimit: 3}, nil)
	_, err := store.Load(env.ctx)
	require.NoError(t, err)
	activity := NewActivityService(store, nil, ActivityServiceConfig{DefaultUser: "SYSTEM"}, nil)

	for _, action := range []string{"A", "B", "C", "D", "E"} {
		activity.Record(env.ctx, models.ActivitySystemUpdate, action)
	}
	recent := activity.Recent(env.ctx, 0)
	require.Len(t, recent, 3)
	assert.Equal(t, "E", recent[0].Action)
	assert.Equal(t, "C", recent[2].Action)
	assert.Equal(t, "SYSTEM", recent[0].User)
	assert.Len(t, activity.Recent(env.ctx, 2), 2)
}

func TestActivitySubscribers(t *testing.T) {
	env := newTestEnv(t)
	feed, cancel := env.activity.Subscribe()

	var seen []string
	env.activity.OnRecord(func(entry models.ActivityLog) { seen = append(seen, entry.Action) })

	env.activity.Record(env.ctx, models.ActivitySystemUpdate, "PING")
	select {
	case entry := <-feed:
		assert.Equal(t, "PING", entry.Action)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive entry")
	}
	assert.Equal(t, []string{"PING"}, seen)

	cancel()
	cancel()
	_, open := <-feed
	assert.False(t, open)
	env.activity.Record(env.ctx, models.ActivitySystemUpdate, "AFTER")
	assert.Equal(t, []string{"PING", "AFTER"}, seen)
}

func TestActivitySubscriberLagDropsEntries(t *testing.T) {
	env := newTestEnv(t)
	activity := NewActivityService(env.store, nil, ActivityServiceConfig{SubscriberBuffer: 1}, nil)
	feed, cancel := activity.Subscribe()
	defer cancel()

	activity.Record(env.ctx, models.ActivitySystemUpdate, "ONE")
	activity.Record(env.ctx, models.ActivitySystemUpdate, "TWO")
	entry := <-feed
	assert.Equal(t, "ONE", entry.Action)
	assert.Len(t, feed, 0)
}
