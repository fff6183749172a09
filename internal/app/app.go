// Package app wires the record store, services, handlers and background
// workers into a runnable HTTP application.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/grading"
	"github.com/noah-isme/cnhs-records-api/internal/handler"
	"github.com/noah-isme/cnhs-records-api/internal/repository"
	"github.com/noah-isme/cnhs-records-api/internal/router"
	"github.com/noah-isme/cnhs-records-api/internal/service"
	"github.com/noah-isme/cnhs-records-api/pkg/config"
	"github.com/noah-isme/cnhs-records-api/pkg/jobs"
	"github.com/noah-isme/cnhs-records-api/pkg/storage"
	"github.com/noah-isme/cnhs-records-api/pkg/validation"
)

// Backends carries the external resources chosen by the caller.
type Backends struct {
	// KV holds every record collection. Required.
	KV repository.KVStore
	// Cache backs the dashboard cache. Nil disables caching.
	Cache service.CacheRepository
	// Checks are exposed on /ready.
	Checks map[string]handler.ReadinessCheck
}

// Services exposes the wired services for commands and tests.
type Services struct {
	Metrics     *service.MetricsService
	Activity    *service.ActivityService
	Settings    *service.SettingsService
	Guard       *service.IntegrityGuard
	Auth        *service.AuthService
	Students    *service.StudentService
	Parents     *service.ParentService
	Teachers    *service.TeacherService
	Subjects    *service.SubjectService
	Classes     *service.ClassService
	Enrollments *service.EnrollmentService
	Grades      *service.ReportCardService
	Reports     *service.ReportService
	Exports     *service.ExportService
	Cache       *service.CacheService
	Dashboard   *service.DashboardService
	Seed        *service.SeedService
}

// App is a fully wired application.
type App struct {
	cfg      *config.Config
	logger   *zap.Logger
	Store    *repository.RecordStore
	Services *Services
	Engine   *gin.Engine
	queue    *jobs.Queue
}

// New loads the record store from backends.KV and wires every component.
func New(ctx context.Context, cfg *config.Config, backends Backends, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backends.KV == nil {
		return nil, fmt.Errorf("app: record store backend is required")
	}

	metrics := service.NewMetricsService()
	store := repository.NewRecordStore(
		repository.NewInstrumentedKV(backends.KV, cfg.Store.Backend, metrics),
		repository.RecordStoreOptions{KeyPrefix: cfg.Store.KeyPrefix, ActivityLimit: cfg.Activity.MaxEntries},
		logger,
	)
	report, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load record store: %w", err)
	}
	for _, diag := range report.Diagnostics {
		logger.Warn("record store diagnostic", zap.String("detail", diag))
	}

	svcs, err := buildServices(cfg, store, metrics, backends.Cache, validation.New(), logger)
	if err != nil {
		return nil, err
	}

	queue := jobs.NewQueue(service.JobTypeSectionExport, svcs.Exports.Process, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		OnGiveUp:   svcs.Exports.MarkFailed,
		Logger:     logger,
	})
	svcs.Exports.AttachQueue(queue)

	pager := handler.Pager{DefaultSize: cfg.Records.DefaultPageSize, MaxSize: 100}
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(svcs.Auth),
		Student: handler.NewStudentHandler(svcs.Students, svcs.Parents, pager),
		Parent:  handler.NewParentHandler(svcs.Parents, pager),
		Teacher: handler.NewTeacherHandler(svcs.Teachers, pager),
		Subject: handler.NewSubjectHandler(svcs.Subjects, pager),
		Class: handler.NewClassHandler(handler.ClassHandlerParams{
			Classes:     svcs.Classes,
			Enrollments: svcs.Enrollments,
			Grades:      svcs.Grades,
			Reports:     svcs.Reports,
			Pager:       pager,
		}),
		Enrollment: handler.NewEnrollmentHandler(svcs.Enrollments, pager),
		ReportCard: handler.NewReportCardHandler(svcs.Grades),
		Report:     handler.NewReportHandler(svcs.Reports, svcs.Exports),
		Settings:   handler.NewSettingsHandler(svcs.Settings),
		Activity:   handler.NewActivityHandler(svcs.Activity, cfg.CORS.AllowedOrigins, logger),
		Dashboard:  handler.NewDashboardHandler(svcs.Dashboard),
		Health:     handler.NewHealthHandler(metrics, backends.Checks),
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		Store:    store,
		Services: svcs,
		Engine:   router.Setup(cfg, svcs.Auth, metrics, handlers, logger),
		queue:    queue,
	}, nil
}

func buildServices(cfg *config.Config, store *repository.RecordStore, metrics *service.MetricsService, cache service.CacheRepository, validate *validator.Validate, logger *zap.Logger) (*Services, error) {
	activity := service.NewActivityService(store, metrics, service.ActivityServiceConfig{DefaultUser: cfg.Activity.DefaultUser}, logger)
	settings := service.NewSettingsService(store, activity, cfg.Records.DefaultActiveYear, logger)
	guard := service.NewIntegrityGuard(store, settings, metrics, logger)

	auth, err := service.NewAuthService(validate, logger, service.AuthConfig{
		AdminEmail:        cfg.Admin.Email,
		AdminPassword:     cfg.Admin.Password,
		AdminPasswordHash: cfg.Admin.PasswordHash,
		AdminFullName:     cfg.Admin.FullName,
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	grades := service.NewReportCardService(service.ReportCardServiceParams{
		Store:     store,
		Guard:     guard,
		Years:     settings,
		Activity:  activity,
		Policy:    grading.Policy{PassingGrade: cfg.Grading.PassingGrade, QuarterCount: cfg.Grading.QuarterCount},
		Validator: validate,
		Logger:    logger,
	})
	reports := service.NewReportService(service.ReportServiceParams{
		Store:  store,
		Grades: grades,
		Years:  settings,
		School: service.SchoolConfig{
			Name:          cfg.School.Name,
			Region:        cfg.School.Region,
			Division:      cfg.School.Division,
			PrincipalName: cfg.School.PrincipalName,
		},
		Logger: logger,
	})

	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("report storage: %w", err)
	}
	exports := service.NewExportService(service.ExportServiceParams{
		Store:     store,
		Reports:   reports,
		Years:     settings,
		Storage:   files,
		Signer:    storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL),
		Metrics:   metrics,
		Validator: validate,
		Logger:    logger,
		Config: service.ExportConfig{
			APIPrefix:       cfg.APIPrefix,
			ResultTTL:       cfg.Reports.SignedURLTTL,
			CleanupInterval: cfg.Reports.CleanupInterval,
		},
	})

	cacheSvc := service.NewCacheService(cache, metrics, cfg.Dashboard.CacheTTL, logger, cfg.Dashboard.CacheEnabled && cache != nil)
	dashboard := service.NewDashboardService(service.DashboardServiceParams{
		Store:    store,
		Years:    settings,
		Grades:   grades,
		Activity: activity,
		Cache:    cacheSvc,
		Logger:   logger,
		Config:   service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})
	activity.OnRecord(dashboard.HandleActivity)

	return &Services{
		Metrics:  metrics,
		Activity: activity,
		Settings: settings,
		Guard:    guard,
		Auth:     auth,
		Students: service.NewStudentService(store, guard, activity, validate, logger),
		Parents:  service.NewParentService(store, guard, activity, validate, logger),
		Teachers: service.NewTeacherService(store, guard, activity, validate, logger),
		Subjects: service.NewSubjectService(store, guard, activity, validate, logger),
		Classes: service.NewClassService(service.ClassServiceParams{
			Store:           store,
			Guard:           guard,
			Years:           settings,
			Activity:        activity,
			Validator:       validate,
			Logger:          logger,
			DefaultCapacity: cfg.Records.DefaultCapacity,
		}),
		Enrollments: service.NewEnrollmentService(service.EnrollmentServiceParams{
			Store:     store,
			Guard:     guard,
			Years:     settings,
			Activity:  activity,
			Validator: validate,
			Logger:    logger,
		}),
		Grades:    grades,
		Reports:   reports,
		Exports:   exports,
		Cache:     cacheSvc,
		Dashboard: dashboard,
		Seed:      service.NewSeedService(store, settings, activity, cfg.Seed.RandSeed, logger),
	}, nil
}

// Start launches the export workers, recovers interrupted jobs, schedules
// export cleanup and seeds demo data when configured.
func (a *App) Start(ctx context.Context) error {
	a.queue.Start(ctx)
	if n := a.Services.Exports.RecoverPendingJobs(ctx); n > 0 {
		a.logger.Info("requeued pending export jobs", zap.Int("count", n))
	}
	a.Services.Exports.StartCleanup(ctx)

	if a.cfg.Seed.OnStartup {
		seeded, err := a.Services.Seed.SeedIfNeeded(ctx)
		if err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		if seeded {
			a.logger.Info("demo data seeded")
		}
	}
	return nil
}

// Stop drains the export workers.
func (a *App) Stop() {
	a.queue.Stop()
	stats := a.queue.Stats()
	a.logger.Info("export queue drained",
		zap.Int64("processed", stats.Processed),
		zap.Int64("retried", stats.Retried),
		zap.Int64("abandoned", stats.Abandoned),
	)
}

// Server returns an HTTP server bound to the configured port.
func (a *App) Server() *http.Server {
	return &http.Server{
		Addr:    fmt.Sprintf(":%d", a.cfg.Port),
		Handler: a.Engine,
	}
}
