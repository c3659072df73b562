package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shopworks/be-repair-core/internal/client"
	"github.com/shopworks/be-repair-core/internal/config"
	"github.com/shopworks/be-repair-core/internal/database"
	"github.com/shopworks/be-repair-core/internal/handler"
	"github.com/shopworks/be-repair-core/internal/logger"
	"github.com/shopworks/be-repair-core/internal/middleware"
	"github.com/shopworks/be-repair-core/internal/notify"
	"github.com/shopworks/be-repair-core/internal/repository"
	"github.com/shopworks/be-repair-core/internal/scheduler"
	"github.com/shopworks/be-repair-core/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Repair Core Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	jobRepo := repository.NewJobRepository(db)
	jobUpdateRepo := repository.NewJobUpdateRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	partOrderRepo := repository.NewPartOrderRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	businessRepo := repository.NewBusinessRepository(db)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	staffNotifRepo := repository.NewStaffNotificationRepository(db)
	emailHistoryRepo := repository.NewEmailHistoryRepository(db)

	// Initialize notification dispatcher
	emailTransports, smsTransports := notify.BuildTransports(cfg, log)
	dispatcher := notify.NewDispatcher(
		emailTransports, smsTransports,
		emailHistoryRepo,
		cfg.Mail.FromAddress, cfg.Mail.FromName,
		log,
	)

	// Initialize NATS event publisher (optional, best-effort)
	events, err := client.NewEventPublisher(cfg.NATS.URL, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer events.Close()
	if cfg.NATS.URL != "" {
		log.Info().Str("url", cfg.NATS.URL).Msg("NATS event publisher connected")
	}

	// Initialize services
	activityService := service.NewActivityService(activityRepo, log)
	jobService := service.NewJobService(jobRepo, jobUpdateRepo, customerRepo, businessRepo, activityService, dispatcher, events, log)
	orderService := service.NewOrderService(orderRepo, jobRepo, userRepo, businessRepo, staffNotifRepo, activityService, dispatcher, events, log)
	partOrderService := service.NewPartOrderService(partOrderRepo, jobRepo, businessRepo, activityService, dispatcher, log)

	// Initialize scheduler
	sched := scheduler.New(log)
	tasks := scheduler.NewTasks(
		businessRepo, jobRepo, orderRepo, activityRepo,
		dispatcher,
		cfg.Scheduler.ActivityLogMaxDays,
		log,
	)
	if err := sched.Register(scheduler.TaskWeeklyReport, cfg.Scheduler.WeeklyReportCron, tasks.WeeklyReport); err != nil {
		log.Fatal().Err(err).Msg("Failed to register weekly report task")
	}
	if err := sched.Register(scheduler.TaskDailyCleanup, cfg.Scheduler.DailyCleanupCron, tasks.DailyCleanup); err != nil {
		log.Fatal().Err(err).Msg("Failed to register daily cleanup task")
	}
	if cfg.Scheduler.Enabled {
		sched.Start()
	} else {
		log.Info().Msg("Scheduler disabled by configuration")
	}

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(jobService, orderService, partOrderService, activityService, sched, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Job routes
	mux.HandleFunc("/api/v1/jobs", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListJobs(w, r)
		case http.MethodPost:
			httpHandler.CreateJob(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/jobs/get", httpHandler.GetJob)
	mux.HandleFunc("/api/v1/jobs/update", httpHandler.UpdateJob)
	mux.HandleFunc("/api/v1/jobs/delete", httpHandler.DeleteJob)
	mux.HandleFunc("/api/v1/jobs/updates", httpHandler.AddJobUpdate)
	mux.HandleFunc("/api/v1/track", httpHandler.TrackJob)

	// Order routes
	mux.HandleFunc("/api/v1/orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListOrders(w, r)
		case http.MethodPost:
			httpHandler.CreateOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/orders/get", httpHandler.GetOrder)
	mux.HandleFunc("/api/v1/orders/update", httpHandler.UpdateOrder)
	mux.HandleFunc("/api/v1/orders/status", httpHandler.UpdateOrderStatus)
	mux.HandleFunc("/api/v1/orders/delete", httpHandler.DeleteOrder)

	// Part order routes
	mux.HandleFunc("/api/v1/part-orders", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListPartOrders(w, r)
		case http.MethodPost:
			httpHandler.CreatePartOrder(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/part-orders/get", httpHandler.GetPartOrder)
	mux.HandleFunc("/api/v1/part-orders/status", httpHandler.UpdatePartOrderStatus)
	mux.HandleFunc("/api/v1/part-orders/history", httpHandler.PartOrderHistory)
	mux.HandleFunc("/api/v1/part-orders/delete", httpHandler.DeletePartOrder)

	// Activity and scheduler routes
	mux.HandleFunc("/api/v1/activity", httpHandler.ListActivity)
	mux.HandleFunc("/api/v1/tasks/trigger", httpHandler.TriggerTask)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
