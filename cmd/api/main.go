package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"classattend/internal/attendance"
	"classattend/internal/auth"
	"classattend/internal/config"
	"classattend/internal/httpapi"
	"classattend/internal/httpmiddleware"
	"classattend/internal/photostore"
	"classattend/internal/roster"
	"classattend/internal/session"
	"classattend/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func newLogger(cfg config.App) (*zap.Logger, error) {
	if cfg.LogFormat == "console" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg config.App, logger *zap.Logger) error {
	ctx := context.Background()

	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer db.Close()

	if err := store.Migrate(db.Client, logger); err != nil {
		return err
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var cache session.Cache
	if redisClient.Healthy(ctx) {
		cache = session.NewRedisCache(redisClient.Client, 30*time.Second, logger)
		logger.Info("redis connected, session cache enabled")
	} else {
		logger.Warn("redis not reachable, session lookups go straight to postgres")
	}

	photos, err := photostore.NewDisk(cfg.UploadDir)
	if err != nil {
		return err
	}

	rosterRepo := roster.NewRepository(db.Client)
	sessionRepo := session.NewRepository(db.Client)
	attendanceRepo := attendance.NewRepository(db.Client)

	tokens := roster.TokenConfig{
		Issuer:     cfg.JWTIssuer,
		SigningKey: cfg.JWTSigningKey,
		AccessTTL:  cfg.AccessTTL,
	}
	rosterSvc := roster.NewService(rosterRepo, tokens, logger)
	sessionSvc := session.NewService(sessionRepo, rosterRepo, rosterRepo, cache, cfg.DefaultRadiusM, cfg.SectionMatch, logger)
	attendanceSvc := attendance.NewService(attendanceRepo, sessionSvc, rosterRepo, photos, logger)

	h := httpapi.New(rosterSvc, sessionSvc, attendanceSvc, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitPerMin).Middleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/login/student", h.LoginStudent)
	r.POST("/login/teacher", h.LoginTeacher)

	teacherRoutes := r.Group("/", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleTeacher))
	teacherRoutes.POST("/session/start", h.StartSession)
	teacherRoutes.POST("/session/stop/:id", h.StopSession)
	teacherRoutes.GET("/session/current/:teacher_id", h.CurrentSessionForTeacher)
	teacherRoutes.GET("/attendance/export/:session_id", h.ExportAttendance)

	studentRoutes := r.Group("/", auth.Require(cfg.JWTSigningKey, cfg.JWTIssuer, auth.RoleStudent))
	studentRoutes.GET("/student/session/:reg_no", h.CurrentSessionForStudent)
	studentRoutes.POST("/attendance/submit", h.SubmitAttendance)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}

	logger.Info("server exited")
	return nil
}

// corsMiddleware allows browser clients from any origin.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
