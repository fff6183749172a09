package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
)

func newDashboard(env *testEnv, repo CacheRepository, enabled bool) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Store:    env.store,
		Years:    env.settings,
		Grades:   env.cards,
		Activity: env.activity,
		Cache:    NewCacheService(repo, env.metrics, time.Minute, nil, enabled),
		Config:   DashboardServiceConfig{RecentActivity: 3},
	})
}

func TestDashboardSummaryCounts(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"}, [2]string{"Ana", "Abad"})
	env.grade(t, models.EnrollmentID(students[0].ID, classes[0].ID), 95, 95, 95, 95)
	env.grade(t, models.EnrollmentID(students[0].ID, classes[1].ID), 82, 82, 82, 82)
	env.grade(t, models.EnrollmentID(students[1].ID, classes[0].ID), 70, 70, 70, 70)

	dashboard := newDashboard(env, nil, false)
	summary, hit, err := dashboard.Summary(env.ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, testYear, summary.ActiveYear)
	assert.Equal(t, 2, summary.Students)
	assert.Equal(t, 2, summary.ActiveStudents)
	assert.Equal(t, 2, summary.Teachers)
	assert.Equal(t, 2, summary.Subjects)
	assert.Equal(t, 2, summary.Classes)
	assert.Equal(t, 4, summary.ActiveEnrollments)
	assert.Equal(t, 66.7, summary.PassingRate)
	assert.Equal(t, []models.GradeBucket{
		{Label: "90-100", Count: 1},
		{Label: "85-89", Count: 0},
		{Label: "80-84", Count: 1},
		{Label: "75-79", Count: 0},
		{Label: "<75", Count: 1},
	}, summary.GradeDistribution)
	assert.Len(t, summary.RecentActivity, 3)
}

func TestDashboardEmptyStore(t *testing.T) {
	env := newTestEnv(t)
	summary, _, err := newDashboard(env, nil, false).Summary(env.ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.Students)
	assert.Zero(t, summary.PassingRate)
	assert.NotNil(t, summary.RecentActivity)
}

func TestDashboardCacheInvalidatedByActivity(t *testing.T) {
	env := newTestEnv(t)
	repo := newMemoryCacheRepo()
	dashboard := newDashboard(env, repo, true)
	env.activity.OnRecord(dashboard.HandleActivity)

	env.subject(t, "Math")
	first, hit, err := dashboard.Summary(env.ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, first.Subjects)

	cached, hit, err := dashboard.Summary(env.ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, cached.Subjects)

	env.subject(t, "Science")
	assert.False(t, repo.has(dashboardCacheKey))
	fresh, hit, err := dashboard.Summary(env.ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, fresh.Subjects)
}

func TestDashboardCacheIgnoresOtherYear(t *testing.T) {
	env := newTestEnv(t)
	repo := newMemoryCacheRepo()
	dashboard := newDashboard(env, repo, true)

	_, _, err := dashboard.Summary(env.ctx)
	require.NoError(t, err)
	// Year change without the activity hook attached.
	_, err = env.settings.SetActiveYear(env.ctx, "2025-2026")
	require.NoError(t, err)

	summary, hit, err := dashboard.Summary(env.ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "2025-2026", summary.ActiveYear)
}

func TestPassingRateRounding(t *testing.T) {
	assert.Equal(t, 0.0, passingRate(nil, 75))
	assert.Equal(t, 100.0, passingRate([]int{75, 90}, 75))
	assert.Equal(t, 33.3, passingRate([]int{75, 74, 60}, 75))
}
