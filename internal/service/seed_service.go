package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/fixtures"
	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
)

// SeedService populates an empty store with the demo school once.
type SeedService struct {
	store    *repository.RecordStore
	years    activeYearReader
	activity activityRecorder
	seed     int64
	logger   *zap.Logger
}

// NewSeedService constructs the service.
func NewSeedService(store *repository.RecordStore, years activeYearReader, activity activityRecorder, seed int64, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{store: store, years: years, activity: activity, seed: seed, logger: logger}
}

// SeedIfNeeded writes the demo dataset unless the seeded flag is already
// set. It reports whether data was written.
func (s *SeedService) SeedIfNeeded(ctx context.Context) (bool, error) {
	var seeded bool
	if _, err := s.store.GetValue(ctx, repository.KeySeeded, &seeded); err != nil {
		return false, internalErr(err, "failed to read seed flag")
	}
	if seeded {
		return false, nil
	}
	year, err := s.years.ActiveYear(ctx)
	if err != nil {
		return false, internalErr(err, "failed to resolve active year")
	}

	ds := fixtures.Generate(s.seed, year)
	err = s.store.Serialize(ctx, func(ctx context.Context) error {
		steps := []struct {
			name string
			run  func() error
		}{
			{repository.CollectionSubjects, func() error { return s.store.Subjects.Replace(ctx, ds.Subjects) }},
			{repository.CollectionTeachers, func() error { return s.store.Teachers.Replace(ctx, ds.Teachers) }},
			{repository.CollectionClasses, func() error { return s.store.Classes.Replace(ctx, ds.Classes) }},
			{repository.CollectionStudents, func() error { return s.store.Students.Replace(ctx, ds.Students) }},
			{repository.CollectionEnrollments, func() error { return s.store.Enrollments.Replace(ctx, ds.Enrollments) }},
			{repository.CollectionReportCards, func() error { return s.store.ReportCards.Replace(ctx, ds.ReportCards) }},
		}
		for _, step := range steps {
			if err := step.run(); err != nil {
				return internalErr(err, "failed to seed "+step.name)
			}
		}
		if err := s.store.SetValue(ctx, repository.KeySeeded, true); err != nil {
			return internalErr(err, "failed to set seed flag")
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("demo data seeded",
		zap.Int("students", len(ds.Students)),
		zap.Int("classes", len(ds.Classes)),
		zap.Int("enrollments", len(ds.Enrollments)),
	)
	recordActivity(ctx, s.activity, models.ActivitySystemUpdate,
		fmt.Sprintf("GLOBAL ARCHIVE SEEDED: %d STUDENTS, %d CLASSES, %d ENROLLMENTS", len(ds.Students), len(ds.Classes), len(ds.Enrollments)))
	return true, nil
}
