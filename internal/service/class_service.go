package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

var classSortKeys = map[string]func(models.ClassDetail) string{
	"id":          func(c models.ClassDetail) string { return c.ID },
	"subject":     func(c models.ClassDetail) string { return c.SubjectName },
	"teacher":     func(c models.ClassDetail) string { return c.TeacherName },
	"gradeLevel":  func(c models.ClassDetail) string { return sortKey(c.GradeLevel) + c.SectionName },
	"sectionName": func(c models.ClassDetail) string { return c.SectionName },
	"schoolYear":  func(c models.ClassDetail) string { return c.SchoolYear },
	"enrolled":    func(c models.ClassDetail) string { return sortKey(c.ActiveEnrolled) },
}

// ClassService manages class sections.
type ClassService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	years     activeYearReader
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
	capacity  int
}

// ClassServiceParams groups constructor dependencies.
type ClassServiceParams struct {
	Store     *repository.RecordStore
	Guard     *IntegrityGuard
	Years     activeYearReader
	Activity  activityRecorder
	Validator *validator.Validate
	Logger    *zap.Logger

	// DefaultCapacity applies when a payload omits maxCapacity.
	DefaultCapacity int
}

// NewClassService constructs the class service.
func NewClassService(params ClassServiceParams) *ClassService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &ClassService{
		store:     params.Store,
		guard:     params.Guard,
		years:     params.Years,
		activity:  params.Activity,
		validator: params.Validator,
		logger:    params.Logger,
		capacity:  params.DefaultCapacity,
	}
}

// List filters, sorts and paginates classes decorated with names and counts.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	activeYear, err := s.years.ActiveYear(ctx)
	if err != nil {
		return nil, nil, internalErr(err, "failed to resolve active year")
	}
	classes := s.store.Classes.List(ctx)
	details := make([]models.ClassDetail, 0, len(classes))
	for _, c := range classes {
		details = append(details, s.detail(ctx, c, activeYear))
	}

	var byGrade, byYear query.Predicate[models.ClassDetail]
	if filter.GradeLevel > 0 {
		byGrade = func(c models.ClassDetail) bool { return c.GradeLevel == filter.GradeLevel }
	}
	if filter.SchoolYear != "" {
		byYear = func(c models.ClassDetail) bool { return c.SchoolYear == filter.SchoolYear }
	}
	matched := query.Filter(details,
		func(c models.ClassDetail) bool {
			return query.MatchesText(filter.Search, c.ID, c.SubjectName, c.TeacherName, c.SectionName, c.RoomNumber, strconv.Itoa(c.GradeLevel))
		},
		byGrade, byYear,
	)
	var sorted *query.SortState
	if key, ok := classSortKeys[filter.SortBy]; ok {
		sorted = &query.SortState{Key: filter.SortBy, Direction: query.ParseDirection(filter.SortOrder)}
		matched = query.Sort(matched, key, sorted.Direction)
	}
	page := query.Paginate(matched, filter.Page, filter.PageSize)
	return page.Items, sortedPagination(page, sorted), nil
}

// Get returns a class detail by id.
func (s *ClassService) Get(ctx context.Context, id string) (*models.ClassDetail, error) {
	class, err := s.store.Classes.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "class not found")
	}
	activeYear, err := s.years.ActiveYear(ctx)
	if err != nil {
		return nil, internalErr(err, "failed to resolve active year")
	}
	detail := s.detail(ctx, class, activeYear)
	return &detail, nil
}

// Create opens a class section.
func (s *ClassService) Create(ctx context.Context, input models.Class) (*models.ClassDetail, error) {
	if err := s.prepare(ctx, &input); err != nil {
		return nil, err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		if err := s.guard.CheckWritableYear(ctx, input.SchoolYear); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, input); err != nil {
			return err
		}
		if err := s.guard.CheckAdviser(ctx, input); err != nil {
			return err
		}
		id, err := s.store.Classes.NextID(ctx)
		if err != nil {
			return internalErr(err, "failed to allocate class id")
		}
		input.ID = id
		if _, err := s.store.Classes.Put(ctx, input); err != nil {
			return internalErr(err, "failed to create class")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityClassReg, "INITIALIZED NEW CLASS "+input.ID)
	return s.Get(ctx, input.ID)
}

// Update replaces a class section. Classes of an archived year cannot be
// edited, nor moved into one.
func (s *ClassService) Update(ctx context.Context, id string, input models.Class) (*models.ClassDetail, error) {
	input.ID = id
	if err := s.prepare(ctx, &input); err != nil {
		return nil, err
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		stored, err := s.store.Classes.Get(ctx, id)
		if err != nil {
			return notFound(err, "class not found")
		}
		if err := s.guard.CheckWritableYear(ctx, stored.SchoolYear); err != nil {
			return err
		}
		if err := s.guard.CheckWritableYear(ctx, input.SchoolYear); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, input); err != nil {
			return err
		}
		if err := s.guard.CheckAdviser(ctx, input); err != nil {
			return err
		}
		if active := s.guard.ActiveEnrollmentCount(ctx, id); input.MaxCapacity < active {
			return appErrors.Clone(appErrors.ErrCapacityReached,
				"capacity "+strconv.Itoa(input.MaxCapacity)+" is below the "+strconv.Itoa(active)+" active enrollments")
		}
		if _, err := s.store.Classes.Put(ctx, input); err != nil {
			return internalErr(err, "failed to update class")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityClassUpdate, "MODIFIED CLASS "+id)
	return s.Get(ctx, id)
}

// Delete removes a class of the active year without active enrollments.
// Report cards and inactive enrollments are removed before the class so a
// failed write never leaves them pointing at a missing class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		class, err := s.store.Classes.Get(ctx, id)
		if err != nil {
			return notFound(err, "class not found")
		}
		if err := s.guard.CheckWritableYear(ctx, class.SchoolYear); err != nil {
			return err
		}
		if err := s.guard.CheckDelete(ctx, repository.CollectionClasses, id); err != nil {
			return err
		}
		removed := map[string]bool{}
		for _, e := range s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool { return e.ClassID == id }) {
			removed[e.ID] = true
		}
		if len(removed) > 0 {
			if _, err := s.store.ReportCards.DeleteWhere(ctx, func(r models.ReportCard) bool { return removed[r.EnrollmentID] }); err != nil {
				return internalErr(err, "failed to drop report cards of class")
			}
			if _, err := s.store.Enrollments.DeleteWhere(ctx, func(e models.Enrollment) bool { return removed[e.ID] }); err != nil {
				return internalErr(err, "failed to drop enrollments of class")
			}
			s.logger.Debug("dropped inactive enrollments of class", zap.String("class_id", id), zap.Int("enrollments", len(removed)))
		}
		if err := s.store.Classes.Delete(ctx, id); err != nil {
			return notFound(err, "failed to delete class")
		}
		return nil
	})
	if err != nil {
		return err
	}
	recordActivity(ctx, s.activity, models.ActivityClassDelete, "PURGED CLASS "+id)
	return nil
}

func (s *ClassService) prepare(ctx context.Context, input *models.Class) error {
	if input.MaxCapacity <= 0 && s.capacity > 0 {
		input.MaxCapacity = s.capacity
	}
	input.Normalize()
	input.SchoolYear = strings.TrimSpace(input.SchoolYear)
	if input.SchoolYear == "" {
		year, err := s.years.ActiveYear(ctx)
		if err != nil {
			return internalErr(err, "failed to resolve active year")
		}
		input.SchoolYear = year
	}
	if err := s.validator.Struct(input); err != nil {
		return invalid(err, "invalid class payload")
	}
	return ValidateSchoolYear(input.SchoolYear)
}

func (s *ClassService) checkReferences(ctx context.Context, input models.Class) error {
	subject, err := s.store.Subjects.Get(ctx, input.SubjectID)
	if err != nil {
		return notFound(err, "subject not found")
	}
	if !subject.OffersGrade(input.GradeLevel) {
		return appErrors.Clone(appErrors.ErrValidation, subject.Name+" is not offered in grade "+strconv.Itoa(input.GradeLevel))
	}
	if !s.store.Teachers.Exists(ctx, input.TeacherID) {
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	return nil
}

func (s *ClassService) detail(ctx context.Context, c models.Class, activeYear string) models.ClassDetail {
	return describeClass(ctx, s.store, c, activeYear)
}

// describeClass resolves the display names of a class.
func describeClass(ctx context.Context, store *repository.RecordStore, c models.Class, activeYear string) models.ClassDetail {
	detail := models.ClassDetail{Class: c, Archived: c.SchoolYear != activeYear}
	if subject, err := store.Subjects.Get(ctx, c.SubjectID); err == nil {
		detail.SubjectName = subject.Name
	}
	if teacher, err := store.Teachers.Get(ctx, c.TeacherID); err == nil {
		detail.TeacherName = teacher.FormalName()
	}
	detail.ActiveEnrolled = len(store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return e.ClassID == c.ID && e.Status == models.EnrollmentStatusActive
	}))
	return detail
}
