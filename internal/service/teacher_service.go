package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

var teacherSortKeys = map[string]func(models.Teacher) string{
	"id":         func(t models.Teacher) string { return t.ID },
	"name":       func(t models.Teacher) string { return t.FormalName() },
	"department": func(t models.Teacher) string { return t.Department },
	"hireDate":   func(t models.Teacher) string { return t.HireDate },
}

// TeacherService manages faculty records.
type TeacherService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(store *repository.RecordStore, guard *IntegrityGuard, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{store: store, guard: guard, activity: activity, validator: validate, logger: logger}
}

// List filters, sorts and paginates teachers.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	var byDepartment query.Predicate[models.Teacher]
	if filter.Department != "" {
		byDepartment = func(t models.Teacher) bool { return strings.EqualFold(t.Department, filter.Department) }
	}
	matched := query.Filter(s.store.Teachers.List(ctx),
		func(t models.Teacher) bool {
			return query.MatchesText(filter.Search, t.ID, t.FirstName, t.LastName, t.Department, t.Email)
		},
		byDepartment,
	)
	var sorted *query.SortState
	if key, ok := teacherSortKeys[filter.SortBy]; ok {
		sorted = &query.SortState{Key: filter.SortBy, Direction: query.ParseDirection(filter.SortOrder)}
		matched = query.Sort(matched, key, sorted.Direction)
	}
	page := query.Paginate(matched, filter.Page, filter.PageSize)
	return page.Items, sortedPagination(page, sorted), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.store.Teachers.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "teacher not found")
	}
	return &teacher, nil
}

// Create registers a teacher.
func (s *TeacherService) Create(ctx context.Context, input models.Teacher) (*models.Teacher, error) {
	input.Normalize()
	if err := s.validator.Struct(input); err != nil {
		return nil, invalid(err, "invalid teacher payload")
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		id, err := s.store.Teachers.NextID(ctx)
		if err != nil {
			return internalErr(err, "failed to allocate teacher id")
		}
		input.ID = id
		if _, err := s.store.Teachers.Put(ctx, input); err != nil {
			return internalErr(err, "failed to create teacher")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityTeacherReg, "ONBOARDED FACULTY MEMBER: "+input.ID)
	return &input, nil
}

// Update replaces a teacher's profile.
func (s *TeacherService) Update(ctx context.Context, id string, input models.Teacher) (*models.Teacher, error) {
	input.ID = id
	input.Normalize()
	if err := s.validator.Struct(input); err != nil {
		return nil, invalid(err, "invalid teacher payload")
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Teachers.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		if _, err := s.store.Teachers.Put(ctx, input); err != nil {
			return internalErr(err, "failed to update teacher")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityTeacherUpdate, "MODIFIED FACULTY RECORD: "+id)
	return &input, nil
}

// Delete removes a teacher assigned to no class.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Teachers.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		if err := s.guard.CheckDelete(ctx, repository.CollectionTeachers, id); err != nil {
			return err
		}
		if err := s.store.Teachers.Delete(ctx, id); err != nil {
			return notFound(err, "failed to delete teacher")
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordActivity(ctx, s.activity, models.ActivityTeacherDelete, "PURGED FACULTY RECORD: "+id)
	return nil
}
