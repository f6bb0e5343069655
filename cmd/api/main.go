package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/api/handlers"
	"github.com/upcb/cloudsec/internal/api/router"
	"github.com/upcb/cloudsec/internal/config"
	"github.com/upcb/cloudsec/internal/pkg/logger"
	"github.com/upcb/cloudsec/internal/pkg/validator"
	"github.com/upcb/cloudsec/internal/queue"
	"github.com/upcb/cloudsec/internal/repository/memory"
	"github.com/upcb/cloudsec/internal/services"
	"github.com/upcb/cloudsec/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log.Infof("starting cloudsec alert service (env: %s)", cfg.Server.Environment)

	// Delivery pipeline
	recorder := alerting.NewRecorder(cfg.Alerting.MetricsCapacity)
	publisher := alerting.NewPublisher(cfg.Stream.AdminKey, log)
	dispatcher := alerting.NewDispatcher(
		buildSenders(cfg, log),
		alerting.DispatcherConfig{
			SLAThreshold: cfg.Alerting.SLAThreshold,
			Parallel:     cfg.Alerting.Parallel,
		},
		recorder,
		log,
	)

	// Work queue
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	q := queue.NewRedisQueue(redisClient, queue.Options{
		MaxAttempts:  cfg.Queue.MaxAttempts,
		RetryBackoff: cfg.Queue.RetryBackoff,
		PollInterval: cfg.Queue.PollInterval,
	}, log)

	// Repositories (persistence lives outside this service)
	alertRepo := memory.NewAlertRepository()
	userRepo := memory.NewUserRepository()

	alertService := services.NewAlertService(alertRepo, publisher, q, log)
	deliveryWorker := worker.NewDeliveryWorker(alertRepo, userRepo, dispatcher, log)
	statsCollector := worker.NewStatsCollector(recorder, q, log)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go q.Start(workerCtx, deliveryWorker.Handle)
	if err := statsCollector.Start(); err != nil {
		log.Fatalf("failed to start stats collector: %v", err)
	}

	// HTTP server
	v := validator.New()
	handler := router.New(cfg, router.Handlers{
		Alert:  handlers.NewAlertHandler(alertService, v, log),
		Stream: handlers.NewStreamHandler(publisher, cfg.Stream.HeartbeatInterval, log),
		Metrics: handlers.NewMetricsHandler(
			recorder, publisher, q,
			cfg.Alerting.SLAThreshold,
			cfg.Alerting.HealthyThreshold,
			cfg.Alerting.DegradedThreshold,
			log,
		),
		Health: handlers.NewHealthHandler(q),
	}, log)

	// WriteTimeout stays disabled: it would sever long-lived SSE streams
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     handler,
		ReadTimeout: cfg.Server.ReadTimeout,
	}

	go func() {
		log.Infof("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.ErrorWithErr(err, "http server shutdown failed")
	}

	stopWorkers()
	statsCollector.Stop()
	if err := redisClient.Close(); err != nil {
		log.ErrorWithErr(err, "redis client close failed")
	}
	log.Info("shutdown complete")
}

// buildSenders registers a sender for every configured channel
func buildSenders(cfg *config.Config, log *logger.Logger) []alerting.Sender {
	var senders []alerting.Sender

	if cfg.Alerting.SendGridAPIKey != "" && cfg.Alerting.SendGridFromEmail != "" {
		senders = append(senders, alerting.NewEmailSender(cfg.Alerting.SendGridAPIKey, cfg.Alerting.SendGridFromEmail))
		log.Info("email delivery channel enabled")
	}
	if cfg.Alerting.SlackWebhookURL != "" {
		senders = append(senders, alerting.NewSlackSender(cfg.Alerting.SlackWebhookURL, cfg.Alerting.SlackChannel))
		log.Info("slack delivery channel enabled")
	}
	if len(senders) == 0 {
		log.Warn("no delivery channels configured, alerts will only reach live streams")
	}
	return senders
}
