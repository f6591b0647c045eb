package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/edupay/agency-service/internal/config"
	"github.com/edupay/agency-service/internal/handler"
	"github.com/edupay/agency-service/internal/middleware"
	"github.com/edupay/agency-service/internal/repository"
	"github.com/edupay/agency-service/internal/retry"
	"github.com/edupay/agency-service/internal/service"
	"github.com/edupay/agency-service/internal/utils/email"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	policy := retry.NewPolicy(logger)
	var mailer service.Mailer
	if cfg.SMTPHost != "" {
		mailer = email.NewSender(cfg, logger)
	}
	svc := service.NewOverdueService(repo, policy, mailer, cfg.OpsAlertEmail, logger)
	h := handler.NewHandler(svc, cfg.JobTimeout, logger)

	// Setup router
	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.Health).Methods("GET")
	jobRouter := r.PathPrefix("/api/v1/jobs").Subrouter()
	jobRouter.Use(middleware.CronAuth(cfg))
	jobRouter.HandleFunc("/overdue-detection", h.RunOverdueDetection).Methods("POST")

	// Optional in-process trigger for deployments without an external
	// scheduler; the run is identical to an HTTP-triggered one.
	if cfg.JobSchedule != "" {
		c := cron.New()
		_, err := c.AddFunc(cfg.JobSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
			defer cancel()
			if _, err := svc.Run(ctx); err != nil {
				logger.Errorf("Scheduled job run failed: %v", err)
			}
		})
		if err != nil {
			logger.Fatalf("Invalid JOB_SCHEDULE %q: %v", cfg.JobSchedule, err)
		}
		c.Start()
		defer c.Stop()
		logger.Infof("In-process job schedule enabled: %s", cfg.JobSchedule)
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.JobTimeout + 10*time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
