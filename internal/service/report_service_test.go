package service

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/export"
)

func TestStudentReportDocument(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"})
	env.grade(t, models.EnrollmentID(students[0].ID, classes[0].ID), 90, 90, 90, 90)

	doc, err := env.reports.StudentReport(env.ctx, students[0].ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Cahil National High School", doc.School.Name)
	assert.Equal(t, "LUNA, JUAN", doc.StudentName)
	assert.Equal(t, testYear, doc.SchoolYear)
	assert.Equal(t, "SANTOS, M.", doc.AdviserName)
	assert.Equal(t, "DR. PRINCIPAL", doc.PrincipalName)
	require.Len(t, doc.Subjects, 2)
	assert.Nil(t, doc.GeneralAverage)
	assert.Equal(t, models.PromotionPending, doc.PromotionStatus)
}

func TestSectionReportsOrderedBySurname(t *testing.T) {
	env := newTestEnv(t)
	section(t, env, [2]string{"Zed", "Zamora"}, [2]string{"Ana", "Abad"})
	env.student(t, "Other", "Section", 7, "MABINI")

	docs, err := env.reports.SectionReports(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "rizal"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "ABAD, ANA", docs[0].StudentName)
	assert.Equal(t, "ZAMORA, ZED", docs[1].StudentName)

	_, err = env.reports.SectionReports(env.ctx, models.SectionExportRequest{GradeLevel: 8, Section: "RIZAL"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = env.reports.SectionReports(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL", SchoolYear: "2024-2026"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestStudentReportPDF(t *testing.T) {
	env := newTestEnv(t)
	_, students := section(t, env, [2]string{"Juan", "Luna"})

	file, err := env.reports.StudentReportPDF(env.ctx, students[0].ID, testYear)
	require.NoError(t, err)
	assert.Equal(t, "report_"+students[0].ID+"_"+testYear+".pdf", file.Filename)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = env.reports.StudentReportPDF(env.ctx, "S404", testYear)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGradingSheetCSV(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"})
	english := classes[1]
	env.grade(t, models.EnrollmentID(students[0].ID, english.ID), 80, 82)

	file, err := env.reports.GradingSheetCSV(env.ctx, english.ID)
	require.NoError(t, err)
	assert.Equal(t, "grading_sheet_"+english.ID+".csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)

	reader := csv.NewReader(bytes.NewReader(file.Data))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"ENGLISH - GRADE 7 RIZAL (" + testYear + ")"}, records[0])
	assert.Equal(t, []string{"SUBJECT TEACHER: REYES, E."}, records[1])
	assert.Equal(t, []string{"ADVISER: SANTOS, M."}, records[2])
	assert.Equal(t, []string{"LRN", "LEARNER", "Q1", "Q2", "Q3", "Q4", "FINAL", "STATUS", "REMARKS"}, records[3])
	assert.Equal(t, []string{students[0].LRN, "LUNA, JUAN", "80", "82", export.Placeholder, export.Placeholder, export.Placeholder, "ONGOING", ""}, records[4])

	_, err = env.reports.GradingSheetCSV(env.ctx, "CLS404")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
