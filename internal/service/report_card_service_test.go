package service

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
)

// section builds one grade 7 section with two subjects and enrolls every
// given learner in both.
func section(t *testing.T, env *testEnv, learners ...[2]string) ([]models.ClassDetail, []models.Student) {
	t.Helper()
	english := env.subject(t, "English")
	science := env.subject(t, "Science")
	reyes := env.teacher(t, "Elizabeth", "Reyes")
	santos := env.teacher(t, "Maria", "Santos")
	classes := []models.ClassDetail{
		env.class(t, science.ID, santos.ID, 7, "Rizal", 40, true),
		env.class(t, english.ID, reyes.ID, 7, "Rizal", 40, false),
	}
	students := make([]models.Student, 0, len(learners))
	for _, l := range learners {
		st := env.student(t, l[0], l[1], 7, "RIZAL")
		for _, c := range classes {
			env.enroll(t, st.ID, c.ID)
		}
		students = append(students, st)
	}
	return classes, students
}

func TestSaveReportCardDerivesFinal(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"})
	enrollmentID := models.EnrollmentID(students[0].ID, classes[0].ID)

	view, err := env.cards.Get(env.ctx, enrollmentID)
	require.NoError(t, err)
	assert.Nil(t, view.Grade.Final)
	assert.Equal(t, models.SubjectStatusOngoing, view.Grade.Status)

	var req SaveReportCardRequest
	require.NoError(t, json.Unmarshal([]byte(`{"q1":"90","q2":89,"q3":"","q4":null,"remarks":" good "}`), &req))
	view, err = env.cards.Save(env.ctx, enrollmentID, req)
	require.NoError(t, err)
	assert.Equal(t, 90, *view.Q1)
	assert.Equal(t, 89, *view.Q2)
	assert.Nil(t, view.Q3)
	assert.Equal(t, "good", view.Remarks)
	assert.Nil(t, view.Grade.Final)

	env.grade(t, enrollmentID, 90, 89, 88, 88)
	view, err = env.cards.Get(env.ctx, enrollmentID)
	require.NoError(t, err)
	require.NotNil(t, view.Grade.Final)
	// 88.75 rounds half up to 89.
	assert.Equal(t, 89, *view.Grade.Final)
	assert.Equal(t, models.SubjectStatusPassed, view.Grade.Status)

	recent := env.activity.Recent(env.ctx, 1)
	assert.Equal(t, "UPDATED GRADES FOR ENROLLMENT "+enrollmentID, recent[0].Action)
	assert.Equal(t, models.ActivityGradeUpdate, recent[0].Category)
}

func TestSaveReportCardRejections(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"})
	enrollmentID := models.EnrollmentID(students[0].ID, classes[0].ID)

	_, err := env.cards.Save(env.ctx, enrollmentID, SaveReportCardRequest{Q1: models.Grade(101)})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = env.cards.Save(env.ctx, "missing", SaveReportCardRequest{Q1: models.Grade(80)})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	_, err = env.enrollment.SetStatus(env.ctx, enrollmentID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusDropped})
	require.NoError(t, err)
	_, err = env.cards.Save(env.ctx, enrollmentID, SaveReportCardRequest{Q1: models.Grade(80)})
	assert.True(t, appErrors.Is(err, appErrors.ErrPreconditionFailed))

	// Moving the active year archives every class of the old year.
	_, err = env.settings.SetActiveYear(env.ctx, "2025-2026")
	require.NoError(t, err)
	other := models.EnrollmentID(students[0].ID, classes[1].ID)
	_, err = env.cards.Save(env.ctx, other, SaveReportCardRequest{Q1: models.Grade(80)})
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))
	assert.Zero(t, env.store.ReportCards.Count(env.ctx))
}

func TestGradingSheetOrdersBySurname(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env,
		[2]string{"Zed", "Zamora"},
		[2]string{"Ana", "Abad"},
		[2]string{"Ben", "Abad"},
		[2]string{"Mia", "Mateo"},
	)
	science := classes[0]
	env.grade(t, models.EnrollmentID(students[1].ID, science.ID), 70, 72, 74, 74)
	env.grade(t, models.EnrollmentID(students[0].ID, science.ID), 90, 91)
	_, err := env.enrollment.SetStatus(env.ctx, models.EnrollmentID(students[3].ID, science.ID),
		UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusTransferred})
	require.NoError(t, err)

	sheet, err := env.cards.GradingSheet(env.ctx, science.ID)
	require.NoError(t, err)
	assert.Equal(t, "SANTOS, M.", sheet.TeacherName)
	assert.Equal(t, "SANTOS, M.", sheet.AdviserName)
	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, "ABAD, ANA", sheet.Rows[0].StudentName)
	assert.Equal(t, "ABAD, BEN", sheet.Rows[1].StudentName)
	assert.Equal(t, "ZAMORA, ZED", sheet.Rows[2].StudentName)

	require.NotNil(t, sheet.Rows[0].Final)
	assert.Equal(t, 73, *sheet.Rows[0].Final)
	assert.Equal(t, models.SubjectStatusFailed, sheet.Rows[0].Status)
	assert.Nil(t, sheet.Rows[1].Final)
	assert.Len(t, sheet.Rows[1].Quarters, 4)
	assert.Equal(t, models.SubjectStatusOngoing, sheet.Rows[2].Status)

	_, err = env.cards.GradingSheet(env.ctx, "CLS404")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestStudentRecordStanding(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"}, [2]string{"Ana", "Abad"})
	juan, ana := students[0], students[1]

	record, err := env.cards.StudentRecord(env.ctx, juan.ID, "")
	require.NoError(t, err)
	assert.Equal(t, testYear, record.SchoolYear)
	require.Len(t, record.Subjects, 2)
	assert.Equal(t, "ENGLISH", record.Subjects[0].Subject)
	assert.Equal(t, "SCIENCE", record.Subjects[1].Subject)
	assert.Nil(t, record.GeneralAverage)
	assert.Equal(t, models.PromotionPending, record.PromotionStatus)

	env.grade(t, models.EnrollmentID(juan.ID, classes[0].ID), 80, 80, 80, 80)
	env.grade(t, models.EnrollmentID(juan.ID, classes[1].ID), 85, 85, 86, 86)
	record, err = env.cards.StudentRecord(env.ctx, juan.ID, testYear)
	require.NoError(t, err)
	require.NotNil(t, record.GeneralAverage)
	// finals 80 and 86 average to 83.
	assert.Equal(t, 83, *record.GeneralAverage)
	assert.Equal(t, models.PromotionPromoted, record.PromotionStatus)

	env.grade(t, models.EnrollmentID(ana.ID, classes[0].ID), 60, 65, 70, 70)
	env.grade(t, models.EnrollmentID(ana.ID, classes[1].ID), 70, 70, 70, 70)
	record, err = env.cards.StudentRecord(env.ctx, ana.ID, testYear)
	require.NoError(t, err)
	assert.Equal(t, models.PromotionRetained, record.PromotionStatus)

	// Leaving a class removes it from the year.
	_, err = env.enrollment.SetStatus(env.ctx, models.EnrollmentID(ana.ID, classes[0].ID),
		UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusDropped})
	require.NoError(t, err)
	record, err = env.cards.StudentRecord(env.ctx, ana.ID, testYear)
	require.NoError(t, err)
	require.Len(t, record.Subjects, 1)
	assert.Equal(t, "ENGLISH", record.Subjects[0].Subject)

	_, err = env.cards.StudentRecord(env.ctx, ana.ID, "2024")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
	_, err = env.cards.StudentRecord(env.ctx, "S404", "")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	finals := env.cards.Finals(env.ctx, testYear)
	assert.ElementsMatch(t, []int{80, 86, 70}, finals)
}

func TestStudentRecordKeepsPastPlacement(t *testing.T) {
	env := newTestEnv(t)
	classes, students := section(t, env, [2]string{"Juan", "Luna"})
	juan := students[0]
	for _, c := range classes {
		env.grade(t, models.EnrollmentID(juan.ID, c.ID), 90, 90, 90, 90)
	}

	_, err := env.settings.SetActiveYear(env.ctx, "2025-2026")
	require.NoError(t, err)
	promoted := juan
	promoted.GradeLevel = 8
	promoted.Section = "MABINI"
	_, err = env.students.Update(env.ctx, juan.ID, promoted)
	require.NoError(t, err)

	record, err := env.cards.StudentRecord(env.ctx, juan.ID, testYear)
	require.NoError(t, err)
	assert.Equal(t, 7, record.GradeLevel)
	assert.Equal(t, "RIZAL", record.Section)
	require.Len(t, record.Subjects, 2)
	require.NotNil(t, record.GeneralAverage)
	assert.Equal(t, 90, *record.GeneralAverage)
	assert.Equal(t, models.PromotionPromoted, record.PromotionStatus)

	// The new year has no classes yet, so current placement applies.
	record, err = env.cards.StudentRecord(env.ctx, juan.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 8, record.GradeLevel)
	assert.Equal(t, "MABINI", record.Section)
	assert.Empty(t, record.Subjects)

	docs, err := env.reports.SectionReports(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL", SchoolYear: testYear})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, juan.ID, docs[0].StudentID)
	assert.Equal(t, 7, docs[0].GradeLevel)
	assert.Equal(t, "SANTOS, M.", docs[0].AdviserName)
}
