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

var studentSortKeys = map[string]func(models.Student) string{
	"id":         func(s models.Student) string { return s.ID },
	"lrn":        func(s models.Student) string { return s.LRN },
	"name":       func(s models.Student) string { return s.FullName() },
	"lastName":   func(s models.Student) string { return s.FullName() },
	"gradeLevel": func(s models.Student) string { return sortKey(s.GradeLevel) + s.Section },
	"section":    func(s models.Student) string { return s.Section },
	"status":     func(s models.Student) string { return string(s.Status) },
}

// StudentService handles learner records.
type StudentService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(store *repository.RecordStore, guard *IntegrityGuard, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{store: store, guard: guard, activity: activity, validator: validate, logger: logger}
}

// List filters, sorts and paginates students.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	var byGrade, byStatus, bySection query.Predicate[models.Student]
	if filter.GradeLevel > 0 {
		byGrade = func(st models.Student) bool { return st.GradeLevel == filter.GradeLevel }
	}
	if filter.Status != "" {
		byStatus = func(st models.Student) bool { return st.Status == filter.Status }
	}
	if filter.Section != "" {
		bySection = func(st models.Student) bool { return strings.EqualFold(st.Section, filter.Section) }
	}
	matched := query.Filter(s.store.Students.List(ctx),
		func(st models.Student) bool {
			return query.MatchesText(filter.Search, st.ID, st.LRN, st.FirstName, st.MiddleName, st.LastName, st.Section)
		},
		byGrade, byStatus, bySection,
	)
	var sorted *query.SortState
	if key, ok := studentSortKeys[filter.SortBy]; ok {
		sorted = &query.SortState{Key: filter.SortBy, Direction: query.ParseDirection(filter.SortOrder)}
		matched = query.Sort(matched, key, sorted.Direction)
	}
	page := query.Paginate(matched, filter.Page, filter.PageSize)
	return page.Items, sortedPagination(page, sorted), nil
}

// Get returns a student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.store.Students.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "student not found")
	}
	return &student, nil
}

// Create registers a student under the next S-number.
func (s *StudentService) Create(ctx context.Context, input models.Student) (*models.Student, error) {
	if err := s.prepare(&input); err != nil {
		return nil, err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if s.lrnTaken(ctx, input.LRN, "") {
			return appErrors.OnField(appErrors.ErrDuplicate, "lrn", "LRN "+input.LRN+" is already registered")
		}
		id, err := s.store.Students.NextID(ctx)
		if err != nil {
			return internalErr(err, "failed to allocate student id")
		}
		input.ID = id
		if _, err := s.store.Students.Put(ctx, input); err != nil {
			return internalErr(err, "failed to create student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityStudentReg, "AUTHORIZED NEW ENROLLMENT: "+input.ID)
	return &input, nil
}

// Update replaces a student's profile.
func (s *StudentService) Update(ctx context.Context, id string, input models.Student) (*models.Student, error) {
	input.ID = id
	if err := s.prepare(&input); err != nil {
		return nil, err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Students.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if s.lrnTaken(ctx, input.LRN, id) {
			return appErrors.OnField(appErrors.ErrDuplicate, "lrn", "LRN "+input.LRN+" is already registered")
		}
		if _, err := s.store.Students.Put(ctx, input); err != nil {
			return internalErr(err, "failed to update student")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityStudentUpdate, "MODIFIED LEARNER RECORD: "+id)
	return &input, nil
}

// Delete removes a student that has no enrollments, together with its parent links.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if !s.store.Students.Exists(ctx, id) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		if err := s.guard.CheckDelete(ctx, repository.CollectionStudents, id); err != nil {
			return err
		}
		dropped, err := s.store.ParentLinks.DeleteWhere(ctx, func(l models.ParentLink) bool { return l.StudentID == id })
		if err != nil {
			return internalErr(err, "failed to drop parent links of student")
		}
		if dropped > 0 {
			s.logger.Debug("dropped parent links of student", zap.String("student_id", id), zap.Int("links", dropped))
		}
		if err := s.store.Students.Delete(ctx, id); err != nil {
			return notFound(err, "failed to delete student")
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordActivity(ctx, s.activity, models.ActivityStudentDelete, "PURGED STUDENT RECORD: "+id)
	return nil
}

func (s *StudentService) prepare(input *models.Student) error {
	input.Normalize()
	input.LRN = strings.TrimSpace(input.LRN)
	if input.Status == "" {
		input.Status = models.StudentStatusActive
	}
	if err := s.validator.Struct(input); err != nil {
		return invalid(err, "invalid student payload")
	}
	return nil
}

func (s *StudentService) lrnTaken(ctx context.Context, lrn, excludeID string) bool {
	return s.store.Students.Any(ctx, func(st models.Student) bool {
		return st.LRN == lrn && st.ID != excludeID
	})
}
