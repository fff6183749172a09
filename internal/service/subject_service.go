package service

import (
	"context"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

var subjectSortKeys = map[string]func(models.Subject) string{
	"id":           func(s models.Subject) string { return s.ID },
	"name":         func(s models.Subject) string { return s.Name },
	"hoursPerWeek": func(s models.Subject) string { return sortKey(s.HoursPerWeek) },
}

// SubjectService manages the subject catalogue.
type SubjectService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubjectService constructs the subject service.
func NewSubjectService(store *repository.RecordStore, guard *IntegrityGuard, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *SubjectService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubjectService{store: store, guard: guard, activity: activity, validator: validate, logger: logger}
}

// List filters, sorts and paginates subjects.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	var byGrade query.Predicate[models.Subject]
	if filter.GradeLevel > 0 {
		byGrade = func(sub models.Subject) bool { return sub.OffersGrade(filter.GradeLevel) }
	}
	matched := query.Filter(s.store.Subjects.List(ctx),
		func(sub models.Subject) bool {
			return query.MatchesText(filter.Search, sub.ID, sub.Name, sub.Description)
		},
		byGrade,
	)
	var sorted *query.SortState
	if key, ok := subjectSortKeys[filter.SortBy]; ok {
		sorted = &query.SortState{Key: filter.SortBy, Direction: query.ParseDirection(filter.SortOrder)}
		matched = query.Sort(matched, key, sorted.Direction)
	}
	page := query.Paginate(matched, filter.Page, filter.PageSize)
	return page.Items, sortedPagination(page, sorted), nil
}

// Get returns a subject by id.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.store.Subjects.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "subject not found")
	}
	return &subject, nil
}

// Create adds a subject.
func (s *SubjectService) Create(ctx context.Context, input models.Subject) (*models.Subject, error) {
	if err := s.prepare(&input); err != nil {
		return nil, err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if s.nameTaken(ctx, input.Name, "") {
			return appErrors.OnField(appErrors.ErrDuplicate, "name", "subject "+input.Name+" already exists")
		}
		id, err := s.store.Subjects.NextID(ctx)
		if err != nil {
			return internalErr(err, "failed to allocate subject id")
		}
		input.ID = id
		if _, err := s.store.Subjects.Put(ctx, input); err != nil {
			return internalErr(err, "failed to create subject")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivitySubjectReg, "ADDED SUBJECT "+input.ID+": "+input.Name)
	return &input, nil
}

// Update replaces a subject.
func (s *SubjectService) Update(ctx context.Context, id string, input models.Subject) (*models.Subject, error) {
	input.ID = id
	if err := s.prepare(&input); err != nil {
		return nil, err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Subjects.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		if s.nameTaken(ctx, input.Name, id) {
			return appErrors.OnField(appErrors.ErrDuplicate, "name", "subject "+input.Name+" already exists")
		}
		if _, err := s.store.Subjects.Put(ctx, input); err != nil {
			return internalErr(err, "failed to update subject")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivitySubjectUpdate, "MODIFIED SUBJECT "+id)
	return &input, nil
}

// Delete removes a subject no class teaches.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Subjects.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		if err := s.guard.CheckDelete(ctx, repository.CollectionSubjects, id); err != nil {
			return err
		}
		if err := s.store.Subjects.Delete(ctx, id); err != nil {
			return notFound(err, "failed to delete subject")
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordActivity(ctx, s.activity, models.ActivitySubjectDelete, "PURGED SUBJECT "+id)
	return nil
}

func (s *SubjectService) prepare(input *models.Subject) error {
	input.Normalize()
	levels := append([]int(nil), input.GradeLevels...)
	sort.Ints(levels)
	input.GradeLevels = levels
	if err := s.validator.Struct(input); err != nil {
		return invalid(err, "invalid subject payload")
	}
	return nil
}

func (s *SubjectService) nameTaken(ctx context.Context, name, excludeID string) bool {
	return s.store.Subjects.Any(ctx, func(sub models.Subject) bool {
		return sub.ID != excludeID && strings.EqualFold(sub.Name, name)
	})
}
