package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/swiftdrive/driveschool-api/api/swagger"
	"github.com/swiftdrive/driveschool-api/internal/handler"
	"github.com/swiftdrive/driveschool-api/internal/middleware"
	"github.com/swiftdrive/driveschool-api/internal/models"
	"github.com/swiftdrive/driveschool-api/internal/repository"
	"github.com/swiftdrive/driveschool-api/internal/service"
	"github.com/swiftdrive/driveschool-api/pkg/cache"
	"github.com/swiftdrive/driveschool-api/pkg/config"
	"github.com/swiftdrive/driveschool-api/pkg/database"
	"github.com/swiftdrive/driveschool-api/pkg/jobs"
	"github.com/swiftdrive/driveschool-api/pkg/logger"
	"github.com/swiftdrive/driveschool-api/pkg/mailer"
	corsmiddleware "github.com/swiftdrive/driveschool-api/pkg/middleware/cors"
	reqidmiddleware "github.com/swiftdrive/driveschool-api/pkg/middleware/requestid"
	"github.com/swiftdrive/driveschool-api/pkg/mpesa"
)

// @title DriveSchool API
// @version 1.0.0
// @description Driving-school management backend
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient)
	studentRepo := repository.NewStudentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	mpesaRepo := repository.NewMpesaRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Notifications run off the request path.
	var sender mailer.Sender = mailer.NopSender{}
	if cfg.Mail.Enabled {
		sender = mailer.NewSendgrid(cfg.Mail)
	}
	notifier := service.NewNotificationService(sender, jobs.Options{
		Workers:    cfg.Notify.Workers,
		MaxRetries: cfg.Notify.MaxRetries,
		Logger:     logr,
	}, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	// Services.
	metricsSvc := service.NewMetricsService()
	activitySvc := service.NewActivityService(activityRepo, logr)
	authSvc := service.NewAuthService(userRepo, sessionRepo, cfg.Session, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, courseRepo, lessonRepo, activitySvc, notifier, validate, logr)
	lessonSvc := service.NewLessonService(lessonRepo, studentRepo, activitySvc, validate, logr).WithMetrics(metricsSvc)
	paymentSvc := service.NewPaymentService(paymentRepo, studentRepo, activitySvc, notifier, validate, logr).WithMetrics(metricsSvc)
	settingsSvc := service.NewSettingsService(settingsRepo, cfg.School, validate, logr)
	receiptSvc := service.NewReceiptService(paymentSvc, studentRepo, settingsSvc)
	mpesaClient := mpesa.NewClient(cfg.Mpesa, logr)
	mpesaSvc := service.NewMpesaService(mpesaClient, mpesaRepo, activitySvc, validate, logr).WithMetrics(metricsSvc)
	courseSvc := service.NewCourseService(courseRepo, validate, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, userRepo, validate, logr)
	branchSvc := service.NewBranchService(branchRepo, validate, logr)
	statsSvc := service.NewStatsService(statsRepo, cacheRepo, cfg.Stats, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, lessonSvc)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, receiptSvc)
	mpesaHandler := handler.NewMpesaHandler(mpesaSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	branchHandler := handler.NewBranchHandler(branchSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	dashboardHandler := handler.NewDashboardHandler(statsSvc, activitySvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	api.POST("/auth/login", authHandler.Login)
	// Self-service enrollment and the provider webhook are unauthenticated.
	api.POST("/students/register", studentHandler.Register)
	api.POST("/payments/callback", mpesaHandler.Callback)

	authed := api.Group("")
	authed.Use(middleware.Session(authSvc))
	{
		authed.GET("/auth/check-session", authHandler.CheckSession)
		authed.POST("/auth/logout", authHandler.Logout)
		authed.POST("/auth/signup",
			middleware.RequireRoles(models.RoleSuperAdmin), authHandler.Signup)

		authed.GET("/students", studentHandler.List)
		authed.GET("/students/active", studentHandler.ListActive)
		authed.GET("/students/:id", studentHandler.Get)
		authed.GET("/students/phone/:phone", studentHandler.GetByPhone)
		authed.PUT("/students/:id/status",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), studentHandler.UpdateStatus)
		authed.PUT("/students/:id/lesson", studentHandler.MarkLesson)
		authed.PUT("/students/lessons/by-phone", studentHandler.BulkLessons)

		authed.GET("/payments", paymentHandler.List)
		authed.POST("/payments",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), paymentHandler.Record)
		authed.GET("/payments/:id", paymentHandler.Get)
		authed.GET("/payments/:id/receipt", paymentHandler.Receipt)

		authed.POST("/payments/stkpush",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), mpesaHandler.InitiatePush)
		authed.GET("/payments/stkpush/:checkoutRequestId", mpesaHandler.Status)

		authed.GET("/courses", courseHandler.List)
		authed.GET("/courses/:id", courseHandler.Get)
		authed.POST("/courses",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), courseHandler.Create)
		authed.PUT("/courses/:id",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), courseHandler.Update)

		authed.GET("/instructors", instructorHandler.List)
		authed.GET("/instructors/:id", instructorHandler.Get)
		authed.POST("/instructors",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), instructorHandler.Create)
		authed.PUT("/instructors/:id",
			middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin), instructorHandler.Update)

		authed.GET("/branches", branchHandler.List)
		authed.GET("/branches/:id", branchHandler.Get)
		authed.POST("/branches",
			middleware.RequireRoles(models.RoleSuperAdmin), branchHandler.Create)
		authed.PUT("/branches/:id",
			middleware.RequireRoles(models.RoleSuperAdmin), branchHandler.Update)

		authed.GET("/settings", settingsHandler.Get)
		authed.PUT("/settings",
			middleware.RequireRoles(models.RoleSuperAdmin), settingsHandler.Update)

		authed.GET("/stats", dashboardHandler.Stats)
		authed.GET("/activities/recent", dashboardHandler.Activities)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
