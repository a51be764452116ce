package main

import (
	"context"
	"errors"
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

	_ "github.com/havenbridge/booking-api/api/swagger"
	"github.com/havenbridge/booking-api/internal/handler"
	"github.com/havenbridge/booking-api/internal/middleware"
	"github.com/havenbridge/booking-api/internal/models"
	"github.com/havenbridge/booking-api/internal/repository"
	"github.com/havenbridge/booking-api/internal/service"
	"github.com/havenbridge/booking-api/pkg/cache"
	"github.com/havenbridge/booking-api/pkg/config"
	"github.com/havenbridge/booking-api/pkg/database"
	"github.com/havenbridge/booking-api/pkg/events"
	"github.com/havenbridge/booking-api/pkg/logger"
	corsmiddleware "github.com/havenbridge/booking-api/pkg/middleware/cors"
	reqidmiddleware "github.com/havenbridge/booking-api/pkg/middleware/requestid"
)

// @title Havenbridge Booking API
// @version 1.0.0
// @description Availability resolution and appointment booking for agency staff
// @BasePath /api/v1
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
		logr.Sugar().Warnw("redis unavailable, continuing without cache", "error", err)
		redisClient = nil
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic, logr)
		defer kafkaPublisher.Close() //nolint:errcheck
		publisher = kafkaPublisher
	}

	validate := validator.New()

	staffRepo := repository.NewStaffRepository(db)
	ruleRepo := repository.NewAvailabilityRuleRepository(db)
	typeRepo := repository.NewAppointmentTypeRepository(db)
	apptRepo := repository.NewAppointmentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(staffRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "booking-api",
	})
	availabilitySvc := service.NewAvailabilityService(ruleRepo, typeRepo, apptRepo, cacheRepo, metricsSvc, cfg.Booking, validate, logr)
	bookingSvc := service.NewBookingService(bookingRepo, typeRepo, availabilitySvc, cacheRepo, publisher, metricsSvc, cfg.Booking, validate, logr)
	appointmentSvc := service.NewAppointmentService(apptRepo, cacheRepo, publisher, logr)
	ruleSvc := service.NewAvailabilityRuleService(ruleRepo, cacheRepo, validate, logr)
	typeSvc := service.NewAppointmentTypeService(typeRepo, cacheRepo, validate, logr)
	calendarSvc := service.NewCalendarService(appointmentSvc, staffRepo, typeRepo, logr)
	exportSvc := service.NewExportService(apptRepo, staffRepo, typeRepo, logr)
	expirySvc := service.NewExpiryService(appointmentSvc, bookingRepo, metricsSvc, cfg.Booking.ExpirySweepInterval, cfg.Booking.IdempotencyRetention, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	bookingHandler := handler.NewBookingHandler(bookingSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc, calendarSvc, exportSvc)
	ruleHandler := handler.NewAvailabilityRuleHandler(ruleSvc)
	typeHandler := handler.NewAppointmentTypeHandler(typeSvc)

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
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	rateLimit := middleware.RateLimit(redisClient, cfg.RateLimit, metricsSvc, logr)
	auth := middleware.JWT(authSvc)
	staffOnly := middleware.RequireRoles(models.RoleAdmin, models.RoleCoordinator)

	api := r.Group(cfg.APIPrefix)
	{
		public := api.Group("", rateLimit)
		{
			public.GET("/availability", availabilityHandler.Get)
			public.POST("/bookings", bookingHandler.Submit)
			public.GET("/appointments/:id/calendar.ics", appointmentHandler.Calendar)
		}

		api.POST("/auth/login", authHandler.Login)
		api.POST("/auth/refresh", authHandler.Refresh)

		protected := api.Group("", auth, staffOnly)
		{
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.Me)

			protected.GET("/availability-rules", ruleHandler.List)
			protected.PUT("/availability-rules", ruleHandler.Replace)

			protected.GET("/appointment-types", typeHandler.List)
			protected.POST("/appointment-types", typeHandler.Create)
			protected.GET("/appointment-types/:id", typeHandler.Get)
			protected.PUT("/appointment-types/:id", typeHandler.Update)
			protected.DELETE("/appointment-types/:id", typeHandler.Deactivate)

			protected.GET("/appointments", appointmentHandler.List)
			protected.GET("/appointments/export", appointmentHandler.Export)
			protected.GET("/appointments/:id", appointmentHandler.Get)
			protected.POST("/appointments/:id/approve", appointmentHandler.Approve)
			protected.POST("/appointments/:id/decline", appointmentHandler.Decline)
			protected.POST("/appointments/:id/cancel", appointmentHandler.Cancel)
			protected.POST("/appointments/:id/complete", appointmentHandler.Complete)
			protected.POST("/appointments/:id/no-show", appointmentHandler.NoShow)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	expirySvc.Start(ctx)
	defer expirySvc.Stop()
	if err := expirySvc.SweepNow(ctx); err != nil {
		logr.Sugar().Warnw("startup expiry sweep failed", "error", err)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
