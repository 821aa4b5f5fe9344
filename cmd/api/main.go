package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/course-remind/internal/application/registry"
	"github.com/course-remind/internal/config"
	"github.com/course-remind/internal/infrastructure/dynamo"
	jwtinfra "github.com/course-remind/internal/infrastructure/jwt"
	"github.com/course-remind/internal/infrastructure/smtp"
	"github.com/course-remind/internal/infrastructure/sns"
	transporthttp "github.com/course-remind/internal/transport/http"
	"github.com/course-remind/internal/worker"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS push sender (optional — without it registrations stay legacy and
	// nothing is delivered, but the API still serves).
	var pushSender sns.PushSender
	if sender, err := sns.NewPushSender(cfg); err == nil {
		pushSender = sender
	} else {
		log.Printf("WARN: SNS push sender not available: %v", err)
	}

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSMSSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sms sender not available: %v", err)
	}

	deviceRepo := dynamo.NewDeviceRepo(dynamoClient, cfg.DynamoTables.Devices)
	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		CourseRepo:       dynamo.NewCourseRepo(dynamoClient, cfg.DynamoTables.Courses),
		EnrollmentRepo:   dynamo.NewEnrollmentRepo(dynamoClient, cfg.DynamoTables.Enrollments),
		DeviceRepo:       deviceRepo,
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		SentReminderRepo: dynamo.NewSentReminderRepo(dynamoClient, cfg.DynamoTables.SentReminders),
		SmsLogRepo:       dynamo.NewSmsLogRepo(dynamoClient, cfg.DynamoTables.SmsLog),
		PushSender:       pushSender,
		SMSSender:        smsSender,
		Mailer:           mailer,
		JWTProvider:      jwtProvider,
	}

	router, dispatchSvc := transporthttp.NewRouter(cfg, deps)

	// Background jobs: periodic reminder scan and daily device cleanup.
	registrySvc := registry.NewService(deviceRepo, pushSender, nil)
	jobs := worker.NewScheduler(dispatchSvc, registrySvc, worker.Options{
		ScanInterval:    cfg.ScanInterval,
		CleanupDelay:    cfg.CleanupDelay,
		CleanupInterval: cfg.CleanupInterval,
		RetentionDays:   cfg.CleanupAfterDays,
	})
	jobs.Start(context.Background())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	jobs.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
