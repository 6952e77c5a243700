package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/employee"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/geofence"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/schedule"
	"github.com/cmlabs-hris/attendance-engine/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/events"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/metrics"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	redisRepo "github.com/cmlabs-hris/attendance-engine/internal/repository/redis"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	geofenceService "github.com/cmlabs-hris/attendance-engine/internal/service/geofence"
	reconcilerService "github.com/cmlabs-hris/attendance-engine/internal/service/reconciler"
	scheduleService "github.com/cmlabs-hris/attendance-engine/internal/service/schedule"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type repositories struct {
	records   attendance.RecordRepository
	schedules schedule.ScheduleRepository
	zones     geofence.ZoneRepository
	employees employee.EmployeeRepository
	close     func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.LogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	loc := cfg.Location()

	/**********************************************
	 * Stores
	 **********************************************/
	repos, err := openRepositories(ctx, cfg, loc)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}
	defer repos.close()

	var guard attendance.SubmissionGuard = memory.NewSubmissionGuard()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		guard = redisRepo.NewSubmissionGuard(rdb, cfg.Redis.SubmissionTTL)
		logger.Info("Submission guard backed by redis", "addr", cfg.Redis.Addr)
	}

	var publisher attendance.EventPublisher = events.LogPublisher{}
	if cfg.RabbitMQ.DSN != "" {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			return fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		defer conn.Close()

		amqpPublisher, err := events.NewAMQPPublisher(conn, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.PublishTimeout)
		if err != nil {
			return fmt.Errorf("failed to open rabbitmq channel: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
		logger.Info("Absence events published to rabbitmq", "exchange", cfg.RabbitMQ.Exchange)
	}

	/**********************************************
	 * Services
	 **********************************************/
	m := metrics.New(prometheus.DefaultRegisterer)
	planner := scheduleService.NewPlanner(repos.schedules)

	attendanceSvc := attendanceService.NewAttendanceService(
		repos.records, repos.employees, repos.zones, planner, guard, loc,
		attendanceService.WithMetrics(m),
	)
	geofenceSvc := geofenceService.NewGeofenceService(repos.zones)
	reconciler := reconcilerService.NewAbsenceReconciler(repos.records, planner, publisher, m, loc)
	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.AccessTokenTTL())

	scheduler := cron.NewScheduler()
	if cfg.Reconciler.Enabled {
		cron.NewReconcilerJobs(reconciler, cfg.Reconciler.Interval).RegisterJobs(scheduler)
	}
	scheduler.Start()

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:            logger,
			AllowedOrigins:    cfg.App.AllowedOrigins,
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		},
		JWTService,
		appHTTP.NewAttendanceHandler(attendanceSvc, loc.String()),
		appHTTP.NewGeofenceHandler(geofenceSvc),
		appHTTP.NewAdminHandler(reconciler),
	)

	/**********************************************
	 * HTTP server
	 **********************************************/
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Server starting", "port", cfg.App.Port, "timezone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
	logger.Info("Server stopped")
	return nil
}

func openRepositories(ctx context.Context, cfg *config.Config, loc *time.Location) (repositories, error) {
	var seed []byte
	if cfg.Database.SeedFile != "" {
		data, err := os.ReadFile(cfg.Database.SeedFile)
		if err != nil {
			return repositories{}, fmt.Errorf("failed to read seed file: %w", err)
		}
		seed = data
	}

	switch cfg.Database.Driver {
	case "memory":
		if seed == nil {
			seed = fixtures.Demo()
		}
		store := memory.NewStore()
		if err := store.Seed(seed); err != nil {
			return repositories{}, fmt.Errorf("failed to seed memory store: %w", err)
		}
		slog.Warn("Using the in-memory store; records are lost on restart")
		return repositories{
			records:   store,
			schedules: store,
			zones:     store,
			employees: store,
			close:     func() {},
		}, nil

	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return repositories{}, fmt.Errorf("failed to connect to database: %w", err)
		}
		if seed != nil {
			if err := postgresql.Seed(ctx, db, seed); err != nil {
				db.Close()
				return repositories{}, fmt.Errorf("failed to seed database: %w", err)
			}
		}
		return repositories{
			records:   postgresql.NewRecordRepository(db, loc),
			schedules: postgresql.NewScheduleRepository(db),
			zones:     postgresql.NewZoneRepository(db),
			employees: postgresql.NewEmployeeRepository(db),
			close:     db.Close,
		}, nil
	}
}
