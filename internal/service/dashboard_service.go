package service

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/grading"
	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
)

const dashboardCacheKey = "dashboard:summary"

type finalsProvider interface {
	Finals(ctx context.Context, year string) []int
	Policy() grading.Policy
}

type activityReader interface {
	Recent(ctx context.Context, limit int) []models.ActivityLog
}

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL       time.Duration
	RecentActivity int
}

// DashboardService composes the headline summary of the active year.
type DashboardService struct {
	store    *repository.RecordStore
	years    activeYearReader
	grades   finalsProvider
	activity activityReader
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      DashboardServiceConfig
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Store    *repository.RecordStore
	Years    activeYearReader
	Grades   finalsProvider
	Activity activityReader
	Cache    *CacheService
	Logger   *zap.Logger
	Config   DashboardServiceConfig
}

// NewDashboardService constructs a DashboardService.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RecentActivity <= 0 {
		cfg.RecentActivity = 10
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		store:    params.Store,
		years:    params.Years,
		grades:   params.Grades,
		activity: params.Activity,
		cache:    params.Cache,
		logger:   logger,
		now:      time.Now,
		cfg:      cfg,
	}
}

// Summary returns the dashboard and whether it was served from cache.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	year, err := s.years.ActiveYear(ctx)
	if err != nil {
		return nil, false, internalErr(err, "failed to resolve active year")
	}

	summary, hit, err := remember(ctx, s.cache, dashboardCacheKey, s.cfg.CacheTTL,
		func(cached *models.DashboardSummary) bool { return cached != nil && cached.ActiveYear == year },
		func() (*models.DashboardSummary, error) { return s.compose(ctx, year), nil },
	)
	return summary, hit, err
}

// Invalidate drops the cached summary.
func (s *DashboardService) Invalidate(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, dashboardCacheKey)
}

// HandleActivity invalidates the cache after any recorded mutation.
func (s *DashboardService) HandleActivity(models.ActivityLog) {
	s.Invalidate(context.Background())
}

func (s *DashboardService) compose(ctx context.Context, year string) *models.DashboardSummary {
	inYear := map[string]bool{}
	classes := s.store.Classes.Find(ctx, func(c models.Class) bool { return c.SchoolYear == year })
	for _, c := range classes {
		inYear[c.ID] = true
	}
	activeEnrollments := len(s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return inYear[e.ClassID] && e.Status == models.EnrollmentStatusActive
	}))
	activeStudents := len(s.store.Students.Find(ctx, func(st models.Student) bool {
		return st.Status == models.StudentStatusActive
	}))

	finals := s.grades.Finals(ctx, year)
	summary := &models.DashboardSummary{
		ActiveYear:        year,
		Students:          s.store.Students.Count(ctx),
		ActiveStudents:    activeStudents,
		Teachers:          s.store.Teachers.Count(ctx),
		Subjects:          s.store.Subjects.Count(ctx),
		Classes:           len(classes),
		ActiveEnrollments: activeEnrollments,
		GradeDistribution: grading.Distribution(finals),
		PassingRate:       passingRate(finals, s.grades.Policy().PassingGrade),
		RecentActivity:    []models.ActivityLog{},
		GeneratedAt:       s.now().UTC(),
	}
	if s.activity != nil {
		summary.RecentActivity = s.activity.Recent(ctx, s.cfg.RecentActivity)
	}
	return summary
}

// passingRate is the percentage of finals at or above passing, to one decimal.
func passingRate(finals []int, passing int) float64 {
	if len(finals) == 0 {
		return 0
	}
	passed := 0
	for _, f := range finals {
		if f >= passing {
			passed++
		}
	}
	return math.Round(float64(passed)*1000/float64(len(finals))) / 10
}
