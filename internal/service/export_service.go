package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	appErrors "github.com/noah-isme/cnhs-records-api/pkg/errors"
	"github.com/noah-isme/cnhs-records-api/pkg/jobs"
	"github.com/noah-isme/cnhs-records-api/pkg/storage"
)

// JobTypeSectionExport identifies section export jobs on the queue.
const JobTypeSectionExport = "section_export"

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type sectionRenderer interface {
	SectionReports(ctx context.Context, req models.SectionExportRequest) ([]models.ReportDocument, error)
	RenderPDF(docs ...models.ReportDocument) ([]byte, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix       string
	ResultTTL       time.Duration
	CleanupInterval time.Duration
}

// ReportDownload is a resolved signed download.
type ReportDownload struct {
	File      *os.File
	Filename  string
	ExpiresAt time.Time
}

// ExportService runs the section export job lifecycle: persist, queue,
// render, store and sign.
type ExportService struct {
	store     *repository.RecordStore
	reports   sectionRenderer
	years     activeYearReader
	storage   fileStorage
	signer    *storage.SignedURLSigner
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ExportConfig

	queue jobDispatcher
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Store     *repository.RecordStore
	Reports   sectionRenderer
	Years     activeYearReader
	Storage   fileStorage
	Signer    *storage.SignedURLSigner
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ExportConfig
}

// NewExportService constructs an ExportService. AttachQueue must be called
// before jobs can be created.
func NewExportService(params ExportServiceParams) *ExportService {
	if params.Validator == nil {
		params.Validator = validator.New()
	}
	if params.Logger == nil {
		params.Logger = zap.NewNop()
	}
	if params.Config.ResultTTL <= 0 {
		params.Config.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		store:     params.Store,
		reports:   params.Reports,
		years:     params.Years,
		storage:   params.Storage,
		signer:    params.Signer,
		metrics:   params.Metrics,
		validator: params.Validator,
		logger:    params.Logger,
		cfg:       params.Config,
	}
}

// AttachQueue sets the dispatcher that runs Process.
func (s *ExportService) AttachQueue(queue jobDispatcher) {
	s.queue = queue
}

// CreateSectionExport records a queued job and hands it to the worker pool.
func (s *ExportService) CreateSectionExport(ctx context.Context, req models.SectionExportRequest) (*models.ReportJob, error) {
	req.Section = strings.TrimSpace(req.Section)
	if err := s.validator.Struct(req); err != nil {
		return nil, invalid(err, "invalid export request")
	}
	if req.SchoolYear == "" {
		year, err := s.years.ActiveYear(ctx)
		if err != nil {
			return nil, err
		}
		req.SchoolYear = year
	}
	if err := ValidateSchoolYear(req.SchoolYear); err != nil {
		return nil, err
	}
	hasStudents := s.store.Students.Any(ctx, func(st models.Student) bool {
		return st.GradeLevel == req.GradeLevel && strings.EqualFold(st.Section, req.Section)
	})
	if !hasStudents {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no students in grade %d %s", req.GradeLevel, req.Section))
	}
	if s.queue == nil {
		return nil, internalErr(fmt.Errorf("export queue not attached"), "export worker unavailable")
	}

	createdBy, ok := ActorFromContext(ctx)
	if !ok {
		createdBy = "ADMIN_PORTAL"
	}
	job := models.ReportJob{
		ID:        uuid.NewString(),
		Params:    req,
		Status:    models.ReportStatusQueued,
		CreatedBy: createdBy,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.store.ReportJobs.Put(ctx, job); err != nil {
		return nil, internalErr(err, "failed to create export job")
	}
	s.metrics.RecordReportJob(string(models.ReportStatusQueued))

	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeSectionExport}); err != nil {
		s.fail(ctx, job.ID, "failed to enqueue job")
		return nil, internalErr(err, "failed to enqueue export job")
	}
	return &job, nil
}

// GetStatus returns the job record.
func (s *ExportService) GetStatus(ctx context.Context, id string) (*models.ReportJob, error) {
	job, err := s.store.ReportJobs.Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "export job not found")
	}
	return &job, nil
}

// Process is the queue handler. Errors returned are retried by the queue;
// typed domain errors fail the job immediately.
func (s *ExportService) Process(ctx context.Context, qj jobs.Job) error {
	job, err := s.store.ReportJobs.Get(ctx, qj.ID)
	if err != nil {
		s.logger.Warn("export job vanished", zap.String("job_id", qj.ID), zap.Error(err))
		return nil
	}
	if job.Status == models.ReportStatusFinished || job.Status == models.ReportStatusFailed {
		return nil
	}
	if err := s.update(ctx, job.ID, func(j *models.ReportJob) {
		j.Status = models.ReportStatusProcessing
		j.Progress = 10
	}); err != nil {
		return err
	}

	docs, err := s.reports.SectionReports(ctx, job.Params)
	if err != nil {
		return s.handleError(ctx, job.ID, err)
	}
	if err := s.update(ctx, job.ID, func(j *models.ReportJob) { j.Progress = 60 }); err != nil {
		return err
	}

	payload, err := s.reports.RenderPDF(docs...)
	if err != nil {
		return s.handleError(ctx, job.ID, err)
	}
	relPath, err := s.storage.Save(exportFilename(job), payload)
	if err != nil {
		return s.handleError(ctx, job.ID, err)
	}
	if err := s.update(ctx, job.ID, func(j *models.ReportJob) { j.Progress = 90 }); err != nil {
		return err
	}

	token, _, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		// Signer faults are not retried.
		return jobs.Permanent(fmt.Errorf("sign download: %w", err))
	}
	url := s.downloadURL(token)
	now := time.Now().UTC()
	if err := s.update(ctx, job.ID, func(j *models.ReportJob) {
		j.Status = models.ReportStatusFinished
		j.Progress = 100
		j.ResultURL = &url
		j.RelativePath = relPath
		j.ErrorMessage = nil
		j.FinishedAt = &now
	}); err != nil {
		return err
	}
	s.metrics.RecordReportJob(string(models.ReportStatusFinished))
	s.logger.Info("section export finished",
		zap.String("job_id", job.ID),
		zap.Int("documents", len(docs)),
		zap.String("path", relPath),
	)
	return nil
}

// MarkFailed is the queue give-up hook.
func (s *ExportService) MarkFailed(qj jobs.Job, cause error) {
	s.fail(context.Background(), qj.ID, cause.Error())
}

// ResolveDownload validates a token and opens the stored file.
func (s *ExportService) ResolveDownload(ctx context.Context, token string) (*ReportDownload, error) {
	signed, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download token")
	}
	job, err := s.store.ReportJobs.Get(ctx, signed.Subject)
	if err != nil {
		return nil, notFound(err, "export job not found")
	}
	if job.Status != models.ReportStatusFinished || job.ResultURL == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "report not ready")
	}
	if !strings.HasSuffix(*job.ResultURL, "/"+token) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "token mismatch")
	}
	file, err := s.storage.Open(signed.Path)
	if err != nil {
		return nil, internalErr(err, "failed to open export file")
	}
	return &ReportDownload{
		File:      file,
		Filename:  filepath.Base(signed.Path),
		ExpiresAt: signed.ExpiresAt,
	}, nil
}

// RecoverPendingJobs requeues jobs left queued or processing by a previous
// process.
func (s *ExportService) RecoverPendingJobs(ctx context.Context) int {
	if s.queue == nil {
		return 0
	}
	pending := s.store.ReportJobs.Find(ctx, func(j models.ReportJob) bool {
		return j.Status == models.ReportStatusQueued || j.Status == models.ReportStatusProcessing
	})
	requeued := 0
	for _, job := range pending {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeSectionExport}); err != nil {
			s.logger.Warn("failed to requeue pending job", zap.String("job_id", job.ID), zap.Error(err))
			continue
		}
		requeued++
	}
	return requeued
}

// StartCleanup periodically purges expired files and job records until ctx
// is cancelled.
func (s *ExportService) StartCleanup(ctx context.Context) {
	if s.cfg.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.cfg.CleanupInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Cleanup(ctx)
			}
		}
	}()
}

// Cleanup deletes finished or failed jobs older than the result TTL along
// with their files.
func (s *ExportService) Cleanup(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.cfg.ResultTTL)
	expired := s.store.ReportJobs.Find(ctx, func(j models.ReportJob) bool {
		return j.FinishedAt != nil && j.FinishedAt.Before(cutoff)
	})
	for _, job := range expired {
		if job.RelativePath == "" {
			continue
		}
		if err := s.storage.Delete(job.RelativePath); err != nil {
			s.logger.Warn("cleanup delete failed", zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	removed, err := s.store.ReportJobs.DeleteWhere(ctx, func(j models.ReportJob) bool {
		return j.FinishedAt != nil && j.FinishedAt.Before(cutoff)
	})
	if err != nil {
		s.logger.Warn("cleanup job records failed", zap.Error(err))
	}
	if _, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL); err != nil {
		s.logger.Warn("filesystem cleanup failed", zap.Error(err))
	}
	return removed
}

func (s *ExportService) handleError(ctx context.Context, id string, err error) error {
	if domain := appErrors.FromError(err); domain.Code != appErrors.ErrInternal.Code {
		s.fail(ctx, id, domain.Message)
		return nil
	}
	msg := err.Error()
	if updateErr := s.update(ctx, id, func(j *models.ReportJob) {
		j.Status = models.ReportStatusQueued
		j.Progress = 0
		j.ErrorMessage = &msg
	}); updateErr != nil {
		s.logger.Warn("failed to mark job queued", zap.String("job_id", id), zap.Error(updateErr))
	}
	return err
}

func (s *ExportService) fail(ctx context.Context, id, message string) {
	now := time.Now().UTC()
	if err := s.update(ctx, id, func(j *models.ReportJob) {
		j.Status = models.ReportStatusFailed
		j.Progress = 100
		j.ErrorMessage = &message
		j.FinishedAt = &now
	}); err != nil {
		s.logger.Warn("failed to mark job failed", zap.String("job_id", id), zap.Error(err))
		return
	}
	s.metrics.RecordReportJob(string(models.ReportStatusFailed))
}

func (s *ExportService) update(ctx context.Context, id string, mutate func(*models.ReportJob)) error {
	job, err := s.store.ReportJobs.Get(ctx, id)
	if err != nil {
		return err
	}
	mutate(&job)
	_, err = s.store.ReportJobs.Put(ctx, job)
	return err
}

func (s *ExportService) downloadURL(token string) string {
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	return prefix + "/reports/download/" + token
}

func exportFilename(job models.ReportJob) string {
	section := sanitizeFilename(job.Params.Section)
	return fmt.Sprintf("sections/%s/g%d_%s_%s.pdf", sanitizeFilename(job.Params.SchoolYear), job.Params.GradeLevel, section, job.ID[:8])
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := strings.ToLower(replacer.Replace(raw))
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
