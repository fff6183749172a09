package service

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/grading"
	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
)

const testYear = "2024-2025"

// testEnv wires every record service over an in-memory store.
type testEnv struct {
	ctx        context.Context
	kv         *flakyKV
	store      *repository.RecordStore
	metrics    *MetricsService
	activity   *ActivityService
	settings   *SettingsService
	guard      *IntegrityGuard
	students   *StudentService
	parents    *ParentService
	teachers   *TeacherService
	subjects   *SubjectService
	classes    *ClassService
	enrollment *EnrollmentService
	cards      *ReportCardService
	reports    *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	kv := &flakyKV{MemoryKV: repository.NewMemoryKV()}
	store := repository.NewRecordStore(kv, repository.RecordStoreOptions{KeyPrefix: "cnhs_"}, nil)
	_, err := store.Load(ctx)
	require.NoError(t, err)

	metrics := NewMetricsService()
	activity := NewActivityService(store, metrics, ActivityServiceConfig{}, nil)
	settings := NewSettingsService(store, activity, testYear, nil)
	guard := NewIntegrityGuard(store, settings, metrics, nil)
	cards := NewReportCardService(ReportCardServiceParams{
		Store: store, Guard: guard, Years: settings, Activity: activity, Policy: grading.DefaultPolicy,
	})
	return &testEnv{
		ctx:        ctx,
		kv:         kv,
		store:      store,
		metrics:    metrics,
		activity:   activity,
		settings:   settings,
		guard:      guard,
		students:   NewStudentService(store, guard, activity, nil, nil),
		parents:    NewParentService(store, guard, activity, nil, nil),
		teachers:   NewTeacherService(store, guard, activity, nil, nil),
		subjects:   NewSubjectService(store, guard, activity, nil, nil),
		classes:    NewClassService(ClassServiceParams{Store: store, Guard: guard, Years: settings, Activity: activity}),
		enrollment: NewEnrollmentService(EnrollmentServiceParams{Store: store, Guard: guard, Years: settings, Activity: activity}),
		cards:      cards,
		reports: NewReportService(ReportServiceParams{
			Store: store, Grades: cards, Years: settings,
			School: SchoolConfig{Name: "Cahil National High School", Region: "Region IV-A", Division: "Batangas", PrincipalName: "DR. PRINCIPAL"},
		}),
	}
}

var errKVDown = errors.New("kv: backend unavailable")

// flakyKV is a MemoryKV whose writes to chosen keys fail.
type flakyKV struct {
	*repository.MemoryKV
	mu      sync.Mutex
	failing map[string]bool
}

// failWrites makes writes to keys fail until the next call.
func (f *flakyKV) failWrites(keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failing = make(map[string]bool, len(keys))
	for _, k := range keys {
		f.failing[k] = true
	}
}

func (f *flakyKV) down(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failing[key]
}

func (f *flakyKV) Set(ctx context.Context, key string, value []byte) error {
	if f.down(key) {
		return errKVDown
	}
	return f.MemoryKV.Set(ctx, key, value)
}

func (f *flakyKV) Delete(ctx context.Context, key string) error {
	if f.down(key) {
		return errKVDown
	}
	return f.MemoryKV.Delete(ctx, key)
}

func (e *testEnv) subject(t *testing.T, name string, grades ...int) models.Subject {
	t.Helper()
	if len(grades) == 0 {
		grades = []int{7, 8, 9, 10}
	}
	s, err := e.subjects.Create(e.ctx, models.Subject{Name: name, HoursPerWeek: 4, GradeLevels: grades})
	require.NoError(t, err)
	return *s
}

func (e *testEnv) teacher(t *testing.T, first, last string) models.Teacher {
	t.Helper()
	tc, err := e.teachers.Create(e.ctx, models.Teacher{FirstName: first, LastName: last, Department: "SCIENCE"})
	require.NoError(t, err)
	return *tc
}

func (e *testEnv) class(t *testing.T, subjectID, teacherID string, grade int, section string, capacity int, adviser bool) models.ClassDetail {
	t.Helper()
	c, err := e.classes.Create(e.ctx, models.Class{
		SubjectID:   subjectID,
		TeacherID:   teacherID,
		GradeLevel:  grade,
		SectionName: section,
		MaxCapacity: capacity,
		IsAdviser:   adviser,
	})
	require.NoError(t, err)
	return *c
}

var lrnSeq = 100000000000

func (e *testEnv) student(t *testing.T, first, last string, grade int, section string) models.Student {
	t.Helper()
	lrnSeq++
	s, err := e.students.Create(e.ctx, models.Student{
		LRN:         strconv.Itoa(lrnSeq),
		FirstName:   first,
		LastName:    last,
		Gender:      models.GenderFemale,
		DateOfBirth: "2011-05-15",
		GradeLevel:  grade,
		Section:     section,
	})
	require.NoError(t, err)
	return *s
}

func (e *testEnv) enroll(t *testing.T, studentID, classID string) models.EnrollmentDetail {
	t.Helper()
	d, err := e.enrollment.Enroll(e.ctx, EnrollStudentRequest{StudentID: studentID, ClassID: classID})
	require.NoError(t, err)
	return *d
}

func (e *testEnv) grade(t *testing.T, enrollmentID string, q ...int) {
	t.Helper()
	req := SaveReportCardRequest{}
	slots := []*models.OptionalGrade{&req.Q1, &req.Q2, &req.Q3, &req.Q4}
	for i, v := range q {
		*slots[i] = models.Grade(v)
	}
	_, err := e.cards.Save(e.ctx, enrollmentID, req)
	require.NoError(t, err)
}
