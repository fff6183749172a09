package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/jobs"
	"github.com/noah-isme/cnhs-records-api/pkg/storage"
)

type recordingDispatcher struct {
	mu   sync.Mutex
	jobs []jobs.Job
	err  error
}

func (d *recordingDispatcher) Enqueue(job jobs.Job) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type flakyRenderer struct {
	sectionRenderer
	err error
}

func (r flakyRenderer) RenderPDF(...models.ReportDocument) ([]byte, error) {
	return nil, r.err
}

func newExportEnv(t *testing.T) (*testEnv, *ExportService, *recordingDispatcher) {
	t.Helper()
	env := newTestEnv(t)
	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	svc := NewExportService(ExportServiceParams{
		Store:   env.store,
		Reports: env.reports,
		Years:   env.settings,
		Storage: files,
		Signer:  storage.NewSignedURLSigner("test-secret", time.Hour),
		Metrics: env.metrics,
		Config:  ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour},
	})
	dispatcher := &recordingDispatcher{}
	svc.AttachQueue(dispatcher)
	return env, svc, dispatcher
}

func TestSectionExportLifecycle(t *testing.T) {
	env, svc, dispatcher := newExportEnv(t)
	section(t, env, [2]string{"Juan", "Luna"}, [2]string{"Ana", "Abad"})

	ctx := WithActor(env.ctx, "registrar@cnhs.edu.ph")
	job, err := svc.CreateSectionExport(ctx, models.SectionExportRequest{GradeLevel: 7, Section: " rizal "})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, job.Status)
	assert.Equal(t, testYear, job.Params.SchoolYear)
	assert.Equal(t, "rizal", job.Params.Section)
	assert.Equal(t, "registrar@cnhs.edu.ph", job.CreatedBy)
	require.Len(t, dispatcher.jobs, 1)
	assert.Equal(t, job.ID, dispatcher.jobs[0].ID)
	assert.Equal(t, JobTypeSectionExport, dispatcher.jobs[0].Type)

	require.NoError(t, svc.Process(env.ctx, dispatcher.jobs[0]))
	done, err := svc.GetStatus(env.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFinished, done.Status)
	assert.Equal(t, 100, done.Progress)
	require.NotNil(t, done.ResultURL)
	require.NotNil(t, done.FinishedAt)
	assert.True(t, strings.HasPrefix(*done.ResultURL, "/api/v1/reports/download/"))
	assert.True(t, strings.HasPrefix(done.RelativePath, "sections/2024-2025/g7_rizal_"))

	// Reprocessing a finished job is a no-op.
	require.NoError(t, svc.Process(env.ctx, dispatcher.jobs[0]))

	token := strings.TrimPrefix(*done.ResultURL, "/api/v1/reports/download/")
	download, err := svc.ResolveDownload(env.ctx, token)
	require.NoError(t, err)
	defer download.File.Close()
	head := make([]byte, 4)
	_, err = io.ReadFull(download.File, head)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(head))
	assert.True(t, strings.HasSuffix(download.Filename, ".pdf"))

	_, err = svc.ResolveDownload(env.ctx, token+"00")
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestSectionExportRejections(t *testing.T) {
	env, svc, dispatcher := newExportEnv(t)
	section(t, env, [2]string{"Juan", "Luna"})

	_, err := svc.CreateSectionExport(env.ctx, models.SectionExportRequest{GradeLevel: 11, Section: "RIZAL"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateSectionExport(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL", SchoolYear: "24-25"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	_, err = svc.CreateSectionExport(env.ctx, models.SectionExportRequest{GradeLevel: 8, Section: "RIZAL"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	dispatcher.err = errors.New("queue full")
	_, err = svc.CreateSectionExport(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	failed := env.store.ReportJobs.Find(env.ctx, func(j models.ReportJob) bool { return j.Status == models.ReportStatusFailed })
	assert.Len(t, failed, 1)
}

func TestProcessFailsOnDomainError(t *testing.T) {
	env, svc, _ := newExportEnv(t)
	job := models.ReportJob{
		ID:        "00000000-aaaa-bbbb-cccc-000000000001",
		Params:    models.SectionExportRequest{GradeLevel: 9, Section: "EMPTY", SchoolYear: testYear},
		Status:    models.ReportStatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	_, err := env.store.ReportJobs.Put(env.ctx, job)
	require.NoError(t, err)

	require.NoError(t, svc.Process(env.ctx, jobs.Job{ID: job.ID}))
	got, err := svc.GetStatus(env.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "no students in section", *got.ErrorMessage)
}

func TestProcessRequeuesTransientErrors(t *testing.T) {
	env, svc, dispatcher := newExportEnv(t)
	section(t, env, [2]string{"Juan", "Luna"})
	svc.reports = flakyRenderer{sectionRenderer: env.reports, err: errors.New("font cache busy")}

	job, err := svc.CreateSectionExport(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL"})
	require.NoError(t, err)

	err = svc.Process(env.ctx, dispatcher.jobs[0])
	require.EqualError(t, err, "font cache busy")
	got, err := svc.GetStatus(env.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusQueued, got.Status)
	assert.Zero(t, got.Progress)

	assert.Equal(t, 1, svc.RecoverPendingJobs(env.ctx))
	assert.Len(t, dispatcher.jobs, 2)

	svc.MarkFailed(dispatcher.jobs[1], errors.New("gave up after 3 attempts"))
	got, err = svc.GetStatus(env.ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusFailed, got.Status)
	assert.Equal(t, "gave up after 3 attempts", *got.ErrorMessage)
	assert.Zero(t, svc.RecoverPendingJobs(env.ctx))
}

func TestExportCleanupRemovesExpiredJobs(t *testing.T) {
	env, svc, dispatcher := newExportEnv(t)
	section(t, env, [2]string{"Juan", "Luna"})

	job, err := svc.CreateSectionExport(env.ctx, models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL"})
	require.NoError(t, err)
	require.NoError(t, svc.Process(env.ctx, dispatcher.jobs[0]))
	assert.Zero(t, svc.Cleanup(env.ctx))

	require.NoError(t, svc.update(env.ctx, job.ID, func(j *models.ReportJob) {
		old := time.Now().UTC().Add(-2 * time.Hour)
		j.FinishedAt = &old
	}))
	stored, err := svc.GetStatus(env.ctx, job.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, svc.Cleanup(env.ctx))
	_, err = svc.GetStatus(env.ctx, job.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	_, err = svc.storage.Open(stored.RelativePath)
	assert.Error(t, err)
}

func TestExportRequiresQueue(t *testing.T) {
	env, svc, _ := newExportEnv(t)
	section(t, env, [2]string{"Juan", "Luna"})
	svc.AttachQueue(nil)
	_, err := svc.CreateSectionExport(context.Background(), models.SectionExportRequest{GradeLevel: 7, Section: "RIZAL"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
}
