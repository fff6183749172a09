package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/grading"
	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

// SaveReportCardRequest carries quarter grades and remarks for an enrollment.
type SaveReportCardRequest struct {
	Q1      models.OptionalGrade `json:"q1" swaggertype:"integer"`
	Q2      models.OptionalGrade `json:"q2" swaggertype:"integer"`
	Q3      models.OptionalGrade `json:"q3" swaggertype:"integer"`
	Q4      models.OptionalGrade `json:"q4" swaggertype:"integer"`
	Remarks string               `json:"remarks" validate:"max=500"`
}

// ReportCardView is a report card with its derived grade.
type ReportCardView struct {
	models.ReportCard
	Grade grading.SubjectGrade `json:"grade"`
}

// ReportCardService records quarter grades and derives grading views.
type ReportCardService struct {
	store     *repository.RecordStore
	guard     *IntegrityGuard
	years     activeYearReader
	activity  activityRecorder
	policy    grading.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// ReportCardServiceParams groups constructor dependencies.
type ReportCardServiceParams struct {
	Store     *repository.RecordStore
	Guard     *IntegrityGuard
	Years     activeYearReader
	Activity  activityRecorder
	Policy    grading.Policy
	Validator *validator.Validate
	Logger    *zap.Logger
}

// NewReportCardService constructs the service.
func NewReportCardService(params ReportCardServiceParams) *ReportCardService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	return &ReportCardService{
		store:     params.Store,
		guard:     params.Guard,
		years:     params.Years,
		activity:  params.Activity,
		policy:    params.Policy.Normalize(),
		validator: params.Validator,
		logger:    params.Logger,
	}
}

// Policy returns the grading policy in force.
func (s *ReportCardService) Policy() grading.Policy {
	return s.policy
}

// Get returns the report card of an enrollment. An enrollment that was never
// graded yields an empty card.
func (s *ReportCardService) Get(ctx context.Context, enrollmentID string) (*ReportCardView, error) {
	if !s.store.Enrollments.Exists(ctx, enrollmentID) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
	}
	card, err := s.store.ReportCards.Get(ctx, models.ReportCardID(enrollmentID))
	if err != nil {
		card = models.ReportCard{ID: models.ReportCardID(enrollmentID), EnrollmentID: enrollmentID}
	}
	return &ReportCardView{ReportCard: card, Grade: s.policy.Subject(card.Quarters())}, nil
}

// Save writes the quarter grades of an active enrollment in the active year.
func (s *ReportCardService) Save(ctx context.Context, enrollmentID string, req SaveReportCardRequest) (*ReportCardView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid report card payload")
	}
	quarters := []*int{req.Q1.Value, req.Q2.Value, req.Q3.Value, req.Q4.Value}
	for _, q := range quarters {
		if err := grading.ValidateQuarter(q); err != nil {
			return nil, invalid(err, err.Error())
		}
	}
	card := models.ReportCard{
		ID:           models.ReportCardID(enrollmentID),
		EnrollmentID: enrollmentID,
		Q1:           quarters[0],
		Q2:           quarters[1],
		Q3:           quarters[2],
		Q4:           quarters[3],
		Remarks:      strings.TrimSpace(req.Remarks),
	}
	err := s.store.Serialize(ctx, func(ctx context.Context) error {
		enrollment, err := s.store.Enrollments.Get(ctx, enrollmentID)
		if err != nil {
			return notFound(err, "enrollment not found")
		}
		class, err := s.store.Classes.Get(ctx, enrollment.ClassID)
		if err != nil {
			return notFound(err, "class not found")
		}
		if err := s.guard.CheckWritableYear(ctx, class.SchoolYear); err != nil {
			return err
		}
		if enrollment.Status != models.EnrollmentStatusActive {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "enrollment is "+string(enrollment.Status))
		}
		if _, err := s.store.ReportCards.Put(ctx, card); err != nil {
			return internalErr(err, "failed to save report card")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	recordActivity(ctx, s.activity, models.ActivityGradeUpdate, "UPDATED GRADES FOR ENROLLMENT "+enrollmentID)
	return &ReportCardView{ReportCard: card, Grade: s.policy.Subject(card.Quarters())}, nil
}

// GradingSheet builds the grading manifest of a class from its active
// enrollments, ordered by learner surname.
func (s *ReportCardService) GradingSheet(ctx context.Context, classID string) (*models.GradingSheet, error) {
	class, err := s.store.Classes.Get(ctx, classID)
	if err != nil {
		return nil, notFound(err, "class not found")
	}
	activeYear, err := s.years.ActiveYear(ctx)
	if err != nil {
		return nil, internalErr(err, "failed to resolve active year")
	}

	enrollments := s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return e.ClassID == classID && e.Status == models.EnrollmentStatusActive
	})
	type sortable struct {
		key string
		row models.GradingSheetRow
	}
	rows := make([]sortable, 0, len(enrollments))
	for _, e := range enrollments {
		student, err := s.store.Students.Get(ctx, e.StudentID)
		if err != nil {
			s.logger.Warn("enrollment references missing student", zap.String("enrollment_id", e.ID))
			continue
		}
		card := s.card(ctx, e.ID)
		grade := s.policy.Subject(card.Quarters())
		remarks := ""
		if card != nil {
			remarks = card.Remarks
		}
		rows = append(rows, sortable{
			key: student.LastName + " " + student.FirstName,
			row: models.GradingSheetRow{
				EnrollmentID: e.ID,
				StudentID:    student.ID,
				StudentName:  student.FullName(),
				LRN:          student.LRN,
				Quarters:     grade.Quarters,
				Final:        grade.Final,
				Status:       grade.Status,
				Remarks:      remarks,
			},
		})
	}
	rows = query.Sort(rows, func(r sortable) string { return r.key }, query.Asc)

	sheet := &models.GradingSheet{
		Class:       describeClass(ctx, s.store, class, activeYear),
		TeacherName: s.teacherShortName(ctx, class.TeacherID),
		AdviserName: s.adviserName(ctx, class),
		Rows:        make([]models.GradingSheetRow, 0, len(rows)),
	}
	for _, r := range rows {
		sheet.Rows = append(sheet.Rows, r.row)
	}
	return sheet, nil
}

// StudentRecord computes a student's year from the classes they were
// enrolled in that year, minus classes they left. A student with no
// enrollment in the year falls back to the classes of their current grade
// and section.
func (s *ReportCardService) StudentRecord(ctx context.Context, studentID, year string) (*models.StudentRecord, error) {
	student, err := s.store.Students.Get(ctx, studentID)
	if err != nil {
		return nil, notFound(err, "student not found")
	}
	if year == "" {
		if year, err = s.years.ActiveYear(ctx); err != nil {
			return nil, internalErr(err, "failed to resolve active year")
		}
	} else if err := ValidateSchoolYear(year); err != nil {
		return nil, err
	}

	gradeLevel, section, classes := s.yearClasses(ctx, student, year)
	classes = query.Sort(classes, func(c models.Class) string { return s.subjectName(ctx, c.SubjectID) }, query.Asc)

	record := &models.StudentRecord{
		Student:    student,
		SchoolYear: year,
		GradeLevel: gradeLevel,
		Section:    section,
		Subjects:   make([]models.SubjectGradeRow, 0, len(classes)),
	}
	finals := make([]*int, 0, len(classes))
	for _, c := range classes {
		enrollmentID := models.EnrollmentID(student.ID, c.ID)
		if e, err := s.store.Enrollments.Get(ctx, enrollmentID); err == nil && e.Status != models.EnrollmentStatusActive {
			continue
		}
		grade := s.policy.Subject(s.card(ctx, enrollmentID).Quarters())
		record.Subjects = append(record.Subjects, models.SubjectGradeRow{
			ClassID:      c.ID,
			EnrollmentID: enrollmentID,
			Subject:      s.subjectName(ctx, c.SubjectID),
			Teacher:      s.teacherShortName(ctx, c.TeacherID),
			Quarters:     grade.Quarters,
			Final:        grade.Final,
			Status:       grade.Status,
		})
		finals = append(finals, grade.Final)
	}
	standing := s.policy.Standing(finals)
	record.GeneralAverage = standing.GeneralAverage
	record.PromotionStatus = standing.PromotionStatus
	return record, nil
}

// yearClasses returns the grade, section and classes a student attended in
// year.
func (s *ReportCardService) yearClasses(ctx context.Context, student models.Student, year string) (int, string, []models.Class) {
	inYear := map[string]models.Class{}
	for _, c := range s.store.Classes.Find(ctx, func(c models.Class) bool { return c.SchoolYear == year }) {
		inYear[c.ID] = c
	}
	enrolled := s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		_, ok := inYear[e.ClassID]
		return ok && e.StudentID == student.ID
	})
	if len(enrolled) == 0 {
		classes := s.store.Classes.Find(ctx, func(c models.Class) bool {
			return c.SchoolYear == year && c.GradeLevel == student.GradeLevel && strings.EqualFold(c.SectionName, student.Section)
		})
		return student.GradeLevel, student.Section, classes
	}

	placement := inYear[enrolled[0].ClassID]
	classes := make([]models.Class, 0, len(enrolled))
	for _, e := range enrolled {
		if e.Status != models.EnrollmentStatusActive {
			continue
		}
		if len(classes) == 0 {
			placement = inYear[e.ClassID]
		}
		classes = append(classes, inYear[e.ClassID])
	}
	return placement.GradeLevel, placement.SectionName, classes
}

// SectionAdviser returns the adviser of a section and year, if any.
func (s *ReportCardService) SectionAdviser(ctx context.Context, gradeLevel int, section, year string) string {
	return s.adviserName(ctx, models.Class{GradeLevel: gradeLevel, SectionName: section, SchoolYear: year})
}

// Finals returns every complete final grade of classes in year.
func (s *ReportCardService) Finals(ctx context.Context, year string) []int {
	inYear := map[string]bool{}
	for _, c := range s.store.Classes.Find(ctx, func(c models.Class) bool { return c.SchoolYear == year }) {
		inYear[c.ID] = true
	}
	finals := make([]int, 0)
	for _, e := range s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return inYear[e.ClassID] && e.Status == models.EnrollmentStatusActive
	}) {
		grade := s.policy.Subject(s.card(ctx, e.ID).Quarters())
		if grade.Final != nil {
			finals = append(finals, *grade.Final)
		}
	}
	return finals
}

func (s *ReportCardService) card(ctx context.Context, enrollmentID string) *models.ReportCard {
	card, err := s.store.ReportCards.Get(ctx, models.ReportCardID(enrollmentID))
	if err != nil {
		return nil
	}
	return &card
}

func (s *ReportCardService) adviserName(ctx context.Context, class models.Class) string {
	advisers := s.store.Classes.Find(ctx, func(c models.Class) bool { return c.IsAdviser && c.SameSection(class) })
	if len(advisers) == 0 {
		return ""
	}
	return s.teacherShortName(ctx, advisers[0].TeacherID)
}

func (s *ReportCardService) teacherShortName(ctx context.Context, id string) string {
	teacher, err := s.store.Teachers.Get(ctx, id)
	if err != nil {
		return ""
	}
	return teacher.ShortName()
}

func (s *ReportCardService) subjectName(ctx context.Context, id string) string {
	subject, err := s.store.Subjects.Get(ctx, id)
	if err != nil {
		return id
	}
	return subject.Name
}
