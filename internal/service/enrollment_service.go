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

// EnrollStudentRequest describes enrollment creation request.
type EnrollStudentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
	ClassID   string `json:"classId" validate:"required"`
}

// UpdateEnrollmentStatusRequest describes a roster status change.
type UpdateEnrollmentStatusRequest struct {
	Status models.EnrollmentStatus `json:"status" validate:"required,oneof=active dropped transferred"`
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	years     activeYearReader
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// EnrollmentServiceParams groups constructor dependencies.
type EnrollmentServiceParams struct {
	Store     *repository.RecordStore
	Guard     *IntegrityGuard
	Years     activeYearReader
	Activity  activityRecorder
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(params EnrollmentServiceParams) *EnrollmentService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &EnrollmentService{
		store:     params.Store,
		guard:     params.Guard,
		years:     params.Years,
		activity:  params.Activity,
		validator: params.Validator,
		logger:    params.Logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	var byStudent, byClass, byStatus query.Predicate[models.Enrollment]
	if filter.StudentID != "" {
		byStudent = func(e models.Enrollment) bool { return e.StudentID == filter.StudentID }
	}
	if filter.ClassID != "" {
		byClass = func(e models.Enrollment) bool { return e.ClassID == filter.ClassID }
	}
	if filter.Status != "" {
		byStatus = func(e models.Enrollment) bool { return e.Status == filter.Status }
	}
	matched := query.Filter(s.store.Enrollments.List(ctx), byStudent, byClass, byStatus)
	page := query.Paginate(matched, filter.Page, filter.PageSize)
	details := make([]models.EnrollmentDetail, 0, len(page.Items))
	for _, e := range page.Items {
		details = append(details, s.detail(ctx, e))
	}
	return details, paginationOf(page), nil
}

// Enroll registers a student to a class of the active year.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollStudentRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid enrollment payload")
	}
	var enrollment models.Enrollment
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		student, err := s.store.Students.Get(ctx, req.StudentID)
		if err != nil {
			return notFound(err, "student not found")
		}
		class, err := s.store.Classes.Get(ctx, req.ClassID)
		if err != nil {
			return notFound(err, "class not found")
		}
		if err := s.guard.CheckWritableYear(ctx, class.SchoolYear); err != nil {
			return err
		}
		if student.Status != models.StudentStatusActive && student.Status != models.StudentStatusPending {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "student "+student.ID+" is "+string(student.Status))
		}
		if student.GradeLevel != class.GradeLevel {
			return appErrors.Clone(appErrors.ErrValidation, "student grade level does not match class grade level")
		}
		id := models.EnrollmentID(student.ID, class.ID)
		if s.store.Enrollments.Exists(ctx, id) {
			return appErrors.OnField(appErrors.ErrDuplicate, "classId", "student is already enrolled in class")
		}
		if err := s.guard.CheckCapacity(ctx, class.ID); err != nil {
			return err
		}
		enrollment = models.Enrollment{ID: id, StudentID: student.ID, ClassID: class.ID, Status: models.EnrollmentStatusActive}
		if _, err := s.store.Enrollments.Put(ctx, enrollment); err != nil {
			return internalErr(err, "failed to create enrollment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityEnrollment, "ENROLLED STUDENT "+req.StudentID+" TO CLASS "+req.ClassID)
	detail := s.detail(ctx, enrollment)
	return &detail, nil
}

// SetStatus moves an enrollment between active, dropped and transferred.
// Re-activation needs a free seat.
func (s *EnrollmentService) SetStatus(ctx context.Context, id string, req UpdateEnrollmentStatusRequest) (*models.EnrollmentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid status payload")
	}
	var enrollment models.Enrollment
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		current, err := s.store.Enrollments.Get(ctx, id)
		if err != nil {
			return notFound(err, "enrollment not found")
		}
		class, err := s.store.Classes.Get(ctx, current.ClassID)
		if err != nil {
			return notFound(err, "class not found")
		}
		if err := s.guard.CheckWritableYear(ctx, class.SchoolYear); err != nil {
			return err
		}
		enrollment = current
		if current.Status == req.Status {
			return nil
		}
		if req.Status == models.EnrollmentStatusActive {
			if err := s.guard.CheckCapacity(ctx, class.ID); err != nil {
				return err
			}
		}
		enrollment.Status = req.Status
		if _, err := s.store.Enrollments.Put(ctx, enrollment); err != nil {
			return internalErr(err, "failed to update enrollment status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityEnrollmentUpdate,
		"UPDATED ENROLLMENT "+enrollment.StudentID+" STATUS TO "+strings.ToUpper(string(req.Status)))
	detail := s.detail(ctx, enrollment)
	return &detail, nil
}

// ClassRoster lists a class's enrollments, optionally by status, ordered by
// student name.
func (s *EnrollmentService) ClassRoster(ctx context.Context, classID string, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	if !s.store.Classes.Exists(ctx, classID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
	}
	enrollments := s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return e.ClassID == classID && (status == "" || e.Status == status)
	})
	details := make([]models.EnrollmentDetail, 0, len(enrollments))
	for _, e := range enrollments {
		details = append(details, s.detail(ctx, e))
	}
	return query.Sort(details, func(d models.EnrollmentDetail) string { return d.StudentName }, query.Asc), nil
}

func (s *EnrollmentService) detail(ctx context.Context, e models.Enrollment) models.EnrollmentDetail {
	detail := models.EnrollmentDetail{Enrollment: e}
	if student, err := s.store.Students.Get(ctx, e.StudentID); err == nil {
		detail.StudentName = student.FullName()
		detail.LRN = student.LRN
	}
	if class, err := s.store.Classes.Get(ctx, e.ClassID); err == nil {
		detail.SectionName = class.SectionName
		detail.SchoolYear = class.SchoolYear
		if subject, err := s.store.Subjects.Get(ctx, class.SubjectID); err == nil {
			detail.SubjectName = subject.Name
		}
	}
	return detail
}
