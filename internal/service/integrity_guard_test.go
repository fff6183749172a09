package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
)

func TestGuardBlocksReferencedDeletes(t *testing.T) {
	env := newTestEnv(t)
	subject := env.subject(t, "Science")
	teacher := env.teacher(t, "Maria", "Santos")
	class := env.class(t, subject.ID, teacher.ID, 7, "Rizal", 40, false)
	student := env.student(t, "Juan", "Dela Cruz", 7, "RIZAL")
	enrollment := env.enroll(t, student.ID, class.ID)

	cases := []struct {
		name       string
		collection string
		id         string
		reason     string
		del        func() error
	}{
		{"subject", repository.CollectionSubjects, subject.ID, "subject is assigned to 1 class(es)", func() error { return env.subjects.Delete(env.ctx, subject.ID) }},
		{"teacher", repository.CollectionTeachers, teacher.ID, "teacher is assigned to 1 class(es)", func() error { return env.teachers.Delete(env.ctx, teacher.ID) }},
		{"class", repository.CollectionClasses, class.ID, "section has 1 active enrollment(s)", func() error { return env.classes.Delete(env.ctx, class.ID) }},
		{"student", repository.CollectionStudents, student.ID, "student has 1 enrollment(s)", func() error { return env.students.Delete(env.ctx, student.ID) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, reason := env.guard.CanDelete(env.ctx, tc.collection, tc.id)
			assert.False(t, ok)
			assert.Equal(t, tc.reason, reason)

			err := tc.del()
			require.Error(t, err)
			assert.True(t, appErrors.Is(err, appErrors.ErrReferenced))
			assert.Contains(t, err.Error(), tc.reason)
		})
	}

	// Nothing was removed.
	assert.Equal(t, 1, env.store.Subjects.Count(env.ctx))
	assert.Equal(t, 1, env.store.Teachers.Count(env.ctx))
	assert.Equal(t, 1, env.store.Classes.Count(env.ctx))
	assert.Equal(t, 1, env.store.Students.Count(env.ctx))

	// Once the roster is empty the class goes, and its dropped enrollment with it.
	_, err := env.enrollment.SetStatus(env.ctx, enrollment.ID, UpdateEnrollmentStatusRequest{Status: models.EnrollmentStatusDropped})
	require.NoError(t, err)
	require.NoError(t, env.classes.Delete(env.ctx, class.ID))
	assert.Zero(t, env.store.Enrollments.Count(env.ctx))
	require.NoError(t, env.students.Delete(env.ctx, student.ID))
	require.NoError(t, env.subjects.Delete(env.ctx, subject.ID))
	require.NoError(t, env.teachers.Delete(env.ctx, teacher.ID))
}

func TestGuardParentReferences(t *testing.T) {
	env := newTestEnv(t)
	student := env.student(t, "Ana", "Reyes", 8, "NARRA")
	parent, err := env.parents.Create(env.ctx, models.Parent{FirstName: "Lorna", LastName: "Reyes"})
	require.NoError(t, err)

	ok, _ := env.guard.CanDelete(env.ctx, repository.CollectionParents, parent.ID)
	assert.True(t, ok)

	_, err = env.parents.Link(env.ctx, parent.ID, LinkParentRequest{StudentID: student.ID, Relationship: "mother"})
	require.NoError(t, err)
	ok, reason := env.guard.CanDelete(env.ctx, repository.CollectionParents, parent.ID)
	assert.False(t, ok)
	assert.Equal(t, "parent is linked to 1 student(s)", reason)

	// A student record that names the parent still blocks without a link.
	require.NoError(t, env.store.ParentLinks.Replace(env.ctx, nil))
	ok, reason = env.guard.CanDelete(env.ctx, repository.CollectionParents, parent.ID)
	assert.False(t, ok)
	assert.Equal(t, "parent is named on a student record", reason)
}

func TestGuardAdviserConflict(t *testing.T) {
	env := newTestEnv(t)
	english := env.subject(t, "English")
	math := env.subject(t, "Mathematics")
	santos := env.teacher(t, "Maria", "Santos")
	pascual := env.teacher(t, "Rodrigo", "Pascual")
	env.class(t, english.ID, santos.ID, 7, "Sampaguita", 40, true)

	_, err := env.classes.Create(env.ctx, models.Class{
		SubjectID: math.ID, TeacherID: pascual.ID, GradeLevel: 7, SectionName: "sampaguita", IsAdviser: true,
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAdviserConflict))
	assert.Equal(t, "SANTOS, MARIA is already the adviser for this section", appErrors.FromError(err).Message)
	assert.Equal(t, 1, env.store.Classes.Count(env.ctx))

	// Another section, or the same section in another year, is free.
	env.class(t, math.ID, pascual.ID, 7, "Pearl", 40, true)
	_, err = env.settings.SetActiveYear(env.ctx, "2025-2026")
	require.NoError(t, err)
	next := env.class(t, math.ID, pascual.ID, 7, "Sampaguita", 40, true)
	assert.Equal(t, "2025-2026", next.SchoolYear)
}

func TestGuardAdviserConflictOnUpdate(t *testing.T) {
	env := newTestEnv(t)
	english := env.subject(t, "English")
	math := env.subject(t, "Mathematics")
	santos := env.teacher(t, "Maria", "Santos")
	pascual := env.teacher(t, "Rodrigo", "Pascual")
	advisory := env.class(t, english.ID, santos.ID, 7, "Sampaguita", 40, true)
	other := env.class(t, math.ID, pascual.ID, 7, "Sampaguita", 40, false)

	input := other.Class
	input.IsAdviser = true
	_, err := env.classes.Update(env.ctx, other.ID, input)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrAdviserConflict))

	stored, err := env.store.Classes.Get(env.ctx, advisory.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdviser)
	stored, err = env.store.Classes.Get(env.ctx, other.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAdviser)

	// The adviser class itself can be saved again.
	_, err = env.classes.Update(env.ctx, advisory.ID, advisory.Class)
	require.NoError(t, err)
}

func TestGuardArchivedYearIsReadOnly(t *testing.T) {
	env := newTestEnv(t)
	subject := env.subject(t, "Science")
	teacher := env.teacher(t, "Maria", "Santos")
	old := env.class(t, subject.ID, teacher.ID, 7, "Rizal", 40, false)
	empty := env.class(t, subject.ID, teacher.ID, 7, "Mabini", 40, false)
	student := env.student(t, "Juan", "Luna", 7, "RIZAL")

	_, err := env.classes.Create(env.ctx, models.Class{
		SubjectID: subject.ID, TeacherID: teacher.ID, GradeLevel: 7, SectionName: "NARRA", SchoolYear: "2019-2020",
	})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))

	_, err = env.settings.SetActiveYear(env.ctx, "2025-2026")
	require.NoError(t, err)
	detail, err := env.classes.Get(env.ctx, old.ID)
	require.NoError(t, err)
	assert.True(t, detail.Archived)

	_, err = env.enrollment.Enroll(env.ctx, EnrollStudentRequest{StudentID: student.ID, ClassID: old.ID})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))
	assert.Zero(t, env.store.Enrollments.Count(env.ctx))

	input := old.Class
	input.RoomNumber = "204"
	_, err = env.classes.Update(env.ctx, old.ID, input)
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))

	// Nor can a class be pulled out of the archive into the active year.
	input.SchoolYear = "2025-2026"
	_, err = env.classes.Update(env.ctx, old.ID, input)
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))

	err = env.classes.Delete(env.ctx, empty.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))

	stored, err := env.store.Classes.Get(env.ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, testYear, stored.SchoolYear)
	assert.Empty(t, stored.RoomNumber)
	assert.Equal(t, 2, env.store.Classes.Count(env.ctx))

	// A current class cannot be moved into the archive either.
	current := env.class(t, subject.ID, teacher.ID, 8, "Narra", 40, false)
	input = current.Class
	input.SchoolYear = testYear
	_, err = env.classes.Update(env.ctx, current.ID, input)
	assert.True(t, appErrors.Is(err, appErrors.ErrArchived))
}
