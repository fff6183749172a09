package service

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
)

var schoolYearPattern = regexp.MustCompile(`^(\d{4})-(\d{4})$`)

// ValidateSchoolYear accepts "YYYY-YYYY" where the second year follows the first.
func ValidateSchoolYear(year string) error {
	m := schoolYearPattern.FindStringSubmatch(strings.TrimSpace(year))
	if m == nil {
		return appErrors.Clone(appErrors.ErrValidation, "school year must look like 2024-2025")
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	if end != start+1 {
		return appErrors.Clone(appErrors.ErrValidation, "school year must span consecutive years")
	}
	return nil
}

// SettingsService manages the active school year.
type SettingsService struct {
	store       *repository.RecordStore
	activity    activityRecorder
	defaultYear string
	logger      *zap.Logger

	mu     sync.RWMutex
	cached string
}

// NewSettingsService constructs the service.
func NewSettingsService(store *repository.RecordStore, activity activityRecorder, defaultYear string, logger *zap.Logger) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ValidateSchoolYear(defaultYear) != nil {
		defaultYear = "2024-2025"
	}
	return &SettingsService{store: store, activity: activity, defaultYear: defaultYear, logger: logger}
}

// ActiveYear returns the persisted active year or the configured default.
func (s *SettingsService) ActiveYear(ctx context.Context) (string, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	var year string
	ok, err := s.store.GetValue(ctx, repository.KeyActiveYear, &year)
	if err != nil {
		return "", internalErr(err, "failed to load active year")
	}
	if !ok || ValidateSchoolYear(year) != nil {
		year = s.defaultYear
	}
	s.mu.Lock()
	s.cached = year
	s.mu.Unlock()
	return year, nil
}

// SetActiveYear persists a new active year.
func (s *SettingsService) SetActiveYear(ctx context.Context, year string) (string, error) {
	year = strings.TrimSpace(year)
	if err := ValidateSchoolYear(year); err != nil {
		return "", err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if err := s.store.SetValue(ctx, repository.KeyActiveYear, year); err != nil {
			return internalErr(err, "failed to save active year")
		}
		s.mu.Lock()
		s.cached = year
		s.mu.Unlock()
		return nil
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("active year changed", zap.String("year", year))
	recordActivity(ctx, s.activity, models.ActivitySystemUpdate, "GLOBAL_CONFIG_CHANGE: ACTIVE YEAR SET TO "+year)
	return year, nil
}
