package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
)

func TestSeedIfNeededRunsOnce(t *testing.T) {
	env := newTestEnv(t)
	seeder := NewSeedService(env.store, env.settings, env.activity, 42, nil)

	seeded, err := seeder.SeedIfNeeded(env.ctx)
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, 8, env.store.Subjects.Count(env.ctx))
	assert.Equal(t, 160, env.store.Students.Count(env.ctx))
	assert.Equal(t, 32, env.store.Classes.Count(env.ctx))
	assert.Equal(t, 1280, env.store.Enrollments.Count(env.ctx))

	recent := env.activity.Recent(env.ctx, 1)
	assert.Equal(t, "GLOBAL ARCHIVE SEEDED: 160 STUDENTS, 32 CLASSES, 1280 ENROLLMENTS", recent[0].Action)
	assert.Equal(t, models.ActivitySystemUpdate, recent[0].Category)

	// Data removed after seeding is not restored.
	require.NoError(t, env.store.Students.Replace(env.ctx, nil))
	seeded, err = seeder.SeedIfNeeded(env.ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Zero(t, env.store.Students.Count(env.ctx))
}

func TestSeededDataPassesGuards(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewSeedService(env.store, env.settings, env.activity, 7, nil).SeedIfNeeded(env.ctx)
	require.NoError(t, err)

	// Seeded ids continue from the generated suffixes.
	subject := env.subject(t, "Research")
	assert.Equal(t, "SUB009", subject.ID)

	classes := env.store.Classes.Find(env.ctx, func(c models.Class) bool { return c.GradeLevel == 7 && c.IsAdviser })
	require.NotEmpty(t, classes)
	sheet, err := env.cards.GradingSheet(env.ctx, classes[0].ID)
	require.NoError(t, err)
	assert.Len(t, sheet.Rows, 40)
}
