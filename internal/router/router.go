package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/cnhs-records-api/internal/handler"
	"github.com/noah-isme/cnhs-records-api/internal/middleware"
	"github.com/noah-isme/cnhs-records-api/internal/models"
	"github.com/noah-isme/cnhs-records-api/internal/service"
	"github.com/noah-isme/cnhs-records-api/pkg/config"
	"github.com/noah-isme/cnhs-records-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/cnhs-records-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/cnhs-records-api/pkg/middleware/requestid"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Student    *handler.StudentHandler
	Parent     *handler.ParentHandler
	Teacher    *handler.TeacherHandler
	Subject    *handler.SubjectHandler
	Class      *handler.ClassHandler
	Enrollment *handler.EnrollmentHandler
	ReportCard *handler.ReportCardHandler
	Report     *handler.ReportHandler
	Settings   *handler.SettingsHandler
	Activity   *handler.ActivityHandler
	Dashboard  *handler.DashboardHandler
	Health     *handler.HealthHandler
}

// Setup builds the gin engine with every route group.
func Setup(cfg *config.Config, auth middleware.TokenValidator, metrics *service.MetricsService, h *Handlers, logr *zap.Logger) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Health.Health)
	r.GET("/ready", h.Health.Ready)
	r.GET("/metrics", h.Health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", h.Auth.Login)
	// The signed token authorizes the download on its own.
	api.GET("/reports/download/:token", h.Report.Download)

	secured := api.Group("")
	secured.Use(middleware.JWT(auth), middleware.RequireRoles(models.RoleAdmin))

	secured.GET("/auth/me", h.Auth.Me)

	students := secured.Group("/students")
	students.GET("", h.Student.List)
	students.POST("", h.Student.Create)
	students.GET("/:id", h.Student.Get)
	students.PUT("/:id", h.Student.Update)
	students.DELETE("/:id", h.Student.Delete)
	students.GET("/:id/parents", h.Student.Parents)

	parents := secured.Group("/parents")
	parents.GET("", h.Parent.List)
	parents.POST("", h.Parent.Create)
	parents.GET("/:id", h.Parent.Get)
	parents.PUT("/:id", h.Parent.Update)
	parents.DELETE("/:id", h.Parent.Delete)
	parents.GET("/:id/links", h.Parent.Students)
	parents.POST("/:id/links", h.Parent.Link)
	parents.DELETE("/:id/links/:studentId", h.Parent.Unlink)

	teachers := secured.Group("/teachers")
	teachers.GET("", h.Teacher.List)
	teachers.POST("", h.Teacher.Create)
	teachers.GET("/:id", h.Teacher.Get)
	teachers.PUT("/:id", h.Teacher.Update)
	teachers.DELETE("/:id", h.Teacher.Delete)

	subjects := secured.Group("/subjects")
	subjects.GET("", h.Subject.List)
	subjects.POST("", h.Subject.Create)
	subjects.GET("/:id", h.Subject.Get)
	subjects.PUT("/:id", h.Subject.Update)
	subjects.DELETE("/:id", h.Subject.Delete)

	classes := secured.Group("/classes")
	classes.GET("", h.Class.List)
	classes.POST("", h.Class.Create)
	classes.GET("/:id", h.Class.Get)
	classes.PUT("/:id", h.Class.Update)
	classes.DELETE("/:id", h.Class.Delete)
	classes.GET("/:id/roster", h.Class.Roster)
	classes.GET("/:id/grading-sheet", h.Class.GradingSheet)

	enrollments := secured.Group("/enrollments")
	enrollments.GET("", h.Enrollment.List)
	enrollments.POST("", h.Enrollment.Enroll)
	enrollments.PATCH("/:id/status", h.Enrollment.SetStatus)

	secured.GET("/report-cards/:enrollmentId", h.ReportCard.Get)
	secured.PUT("/report-cards/:enrollmentId", h.ReportCard.Save)

	reports := secured.Group("/reports")
	reports.GET("/students/:id", h.Report.StudentReport)
	reports.POST("/sections/export", h.Report.CreateSectionExport)
	reports.GET("/jobs/:id", h.Report.JobStatus)

	secured.GET("/settings/active-year", h.Settings.ActiveYear)
	secured.PUT("/settings/active-year", h.Settings.SetActiveYear)

	secured.GET("/activity", h.Activity.List)
	secured.GET("/activity/stream", h.Activity.Stream)

	secured.GET("/dashboard", h.Dashboard.Summary)

	return r
}
