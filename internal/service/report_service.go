package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/export"
	"github.com/noah-isme/cnhs-records-api/pkg/query"
)

type csvRenderer interface {
	Render(data export.Dataset, preamble ...string) ([]byte, error)
}

type pdfRenderer interface {
	Render(docs ...export.Document) ([]byte, error)
}

// SchoolConfig identifies the school on rendered documents.
type SchoolConfig struct {
	Name          string
	Region        string
	Division      string
	PrincipalName string
}

// RenderedFile is a generated document ready for download.
type RenderedFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService renders report documents from computed grades.
type ReportService struct {
	store  *repository.RecordStore
	grades *ReportCardService
	years  activeYearReader
	csv    csvRenderer
	pdf    pdfRenderer
	school SchoolConfig
	logger *zap.Logger
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Store  *repository.RecordStore
	Grades *ReportCardService
	Years  activeYearReader
	CSV    csvRenderer
	PDF    pdfRenderer
	School SchoolConfig
	Logger *zap.Logger
}

// NewReportService constructs the report service.
func NewReportService(params ReportServiceParams) *ReportService {
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.CSV == nil {
		params.CSV = export.NewCSVExporter()
	}
	if params.PDF == nil {
		params.PDF = export.NewPDFExporter()
	}
	return &ReportService{
		store:  params.Store,
		grades: params.Grades,
		years:  params.Years,
		csv:    params.CSV,
		pdf:    params.PDF,
		school: params.School,
		logger: params.Logger,
	}
}

// StudentReport builds the year report of a student.
func (s *ReportService) StudentReport(ctx context.Context, studentID, year string) (*models.ReportDocument, error) {
	record, err := s.grades.StudentRecord(ctx, studentID, year)
	if err != nil {
		return nil, err
	}
	return s.document(ctx, record), nil
}

// SectionReports builds the reports of every student in a section, ordered
// by surname.
func (s *ReportService) SectionReports(ctx context.Context, req models.SectionExportRequest) ([]models.ReportDocument, error) {
	year, err := s.resolveYear(ctx, req.SchoolYear)
	if err != nil {
		return nil, err
	}
	students := s.sectionStudents(ctx, req.GradeLevel, req.Section, year)
	if len(students) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no students in section")
	}
	students = query.Sort(students, func(st models.Student) string { return st.FullName() }, query.Asc)

	docs := make([]models.ReportDocument, 0, len(students))
	for _, st := range students {
		record, err := s.grades.StudentRecord(ctx, st.ID, year)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *s.document(ctx, record))
	}
	return docs, nil
}

// sectionStudents lists the students enrolled in the section's classes of
// year. A section without enrollments that year falls back to the students
// currently placed in it.
func (s *ReportService) sectionStudents(ctx context.Context, gradeLevel int, section, year string) []models.Student {
	classIDs := map[string]bool{}
	for _, c := range s.store.Classes.Find(ctx, func(c models.Class) bool {
		return c.SchoolYear == year && c.GradeLevel == gradeLevel && strings.EqualFold(c.SectionName, section)
	}) {
		classIDs[c.ID] = true
	}
	studentIDs := map[string]bool{}
	for _, e := range s.store.Enrollments.Find(ctx, func(e models.Enrollment) bool {
		return classIDs[e.ClassID] && e.Status == models.EnrollmentStatusActive
	}) {
		studentIDs[e.StudentID] = true
	}
	if len(studentIDs) > 0 {
		return s.store.Students.Find(ctx, func(st models.Student) bool { return studentIDs[st.ID] })
	}
	return s.store.Students.Find(ctx, func(st models.Student) bool {
		return st.GradeLevel == gradeLevel && strings.EqualFold(st.Section, section)
	})
}

// StudentReportPDF renders the year report of a student as PDF.
func (s *ReportService) StudentReportPDF(ctx context.Context, studentID, year string) (*RenderedFile, error) {
	doc, err := s.StudentReport(ctx, studentID, year)
	if err != nil {
		return nil, err
	}
	data, err := s.RenderPDF(*doc)
	if err != nil {
		return nil, err
	}
	return &RenderedFile{
		Filename:    fmt.Sprintf("report_%s_%s.pdf", doc.StudentID, doc.SchoolYear),
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// RenderPDF lays out report documents one per page.
func (s *ReportService) RenderPDF(docs ...models.ReportDocument) ([]byte, error) {
	pages := make([]export.Document, 0, len(docs))
	for _, d := range docs {
		pages = append(pages, printable(d))
	}
	data, err := s.pdf.Render(pages...)
	if err != nil {
		return nil, internalErr(err, "failed to render report")
	}
	return data, nil
}

// GradingSheetCSV renders the grading manifest of a class as CSV.
func (s *ReportService) GradingSheetCSV(ctx context.Context, classID string) (*RenderedFile, error) {
	sheet, err := s.grades.GradingSheet(ctx, classID)
	if err != nil {
		return nil, err
	}
	data := export.Dataset{Headers: []string{"LRN", "LEARNER", "Q1", "Q2", "Q3", "Q4", "FINAL", "STATUS", "REMARKS"}}
	for _, row := range sheet.Rows {
		cells := []string{row.LRN, row.StudentName}
		for _, q := range row.Quarters {
			cells = append(cells, formatGrade(q))
		}
		cells = append(cells, formatGrade(row.Final), strings.ToUpper(string(row.Status)), row.Remarks)
		data.Rows = append(data.Rows, cells)
	}
	out, err := s.csv.Render(data,
		fmt.Sprintf("%s - GRADE %d %s (%s)", sheet.Class.SubjectName, sheet.Class.GradeLevel, sheet.Class.SectionName, sheet.Class.SchoolYear),
		"SUBJECT TEACHER: "+orPlaceholder(sheet.TeacherName),
		"ADVISER: "+orPlaceholder(sheet.AdviserName),
	)
	if err != nil {
		return nil, internalErr(err, "failed to render grading sheet")
	}
	return &RenderedFile{
		Filename:    fmt.Sprintf("grading_sheet_%s.csv", sheet.Class.ID),
		ContentType: "text/csv",
		Data:        out,
	}, nil
}

func (s *ReportService) document(ctx context.Context, record *models.StudentRecord) *models.ReportDocument {
	st := record.Student
	return &models.ReportDocument{
		School:          models.SchoolHeader{Name: s.school.Name, Region: s.school.Region, Division: s.school.Division},
		SchoolYear:      record.SchoolYear,
		StudentID:       st.ID,
		StudentName:     st.FullName(),
		LRN:             st.LRN,
		GradeLevel:      record.GradeLevel,
		Section:         record.Section,
		Gender:          st.Gender,
		Subjects:        record.Subjects,
		GeneralAverage:  record.GeneralAverage,
		PromotionStatus: record.PromotionStatus,
		AdviserName:     s.grades.SectionAdviser(ctx, record.GradeLevel, record.Section, record.SchoolYear),
		PrincipalName:   s.school.PrincipalName,
	}
}

func (s *ReportService) resolveYear(ctx context.Context, year string) (string, error) {
	if year != "" {
		return year, ValidateSchoolYear(year)
	}
	active, err := s.years.ActiveYear(ctx)
	if err != nil {
		return "", internalErr(err, "failed to resolve active year")
	}
	return active, nil
}

func printable(d models.ReportDocument) export.Document {
	table := export.Dataset{Headers: []string{"Learning Area", "Q1", "Q2", "Q3", "Q4", "Final", "Remarks"}}
	for _, row := range d.Subjects {
		cells := []string{row.Subject}
		for _, q := range row.Quarters {
			cells = append(cells, formatGrade(q))
		}
		cells = append(cells, formatGrade(row.Final), strings.ToUpper(string(row.Status)))
		table.Rows = append(table.Rows, cells)
	}
	return export.Document{
		Header: []string{d.School.Name, d.School.Region, d.School.Division},
		Title:  "Report on Learning Progress and Achievement",
		Fields: []export.Field{
			{Label: "Name", Value: d.StudentName},
			{Label: "LRN", Value: d.LRN},
			{Label: "Grade", Value: strconv.Itoa(d.GradeLevel)},
			{Label: "Section", Value: d.Section},
			{Label: "School Year", Value: d.SchoolYear},
			{Label: "Sex", Value: strings.ToUpper(string(d.Gender))},
		},
		Table:  table,
		Widths: []float64{64, 18, 18, 18, 18, 22, 32},
		Summary: []export.Field{
			{Label: "Gen. Average", Value: formatGrade(d.GeneralAverage)},
			{Label: "Standing", Value: string(d.PromotionStatus)},
		},
		Signatures: []export.Signature{
			{Name: d.AdviserName, Role: "Class Adviser"},
			{Name: d.PrincipalName, Role: "School Principal"},
		},
	}
}

func formatGrade(v *int) string {
	if v == nil {
		return export.Placeholder
	}
	return strconv.Itoa(*v)
}

func orPlaceholder(v string) string {
	if v == "" {
		return export.Placeholder
	}
	return v
}
