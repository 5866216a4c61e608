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

	"github.com/joho/godotenv"

	"github.com/orbitest-backend/internal/application/notify"
	"github.com/orbitest-backend/internal/application/scheduler"
	"github.com/orbitest-backend/internal/config"
	"github.com/orbitest-backend/internal/infrastructure/dynamo"
	jwtinfra "github.com/orbitest-backend/internal/infrastructure/jwt"
	"github.com/orbitest-backend/internal/infrastructure/smtp"
	"github.com/orbitest-backend/internal/infrastructure/sns"
	"github.com/orbitest-backend/internal/infrastructure/telegram"
	"github.com/orbitest-backend/internal/presence"
	transporthttp "github.com/orbitest-backend/internal/transport/http"
	"github.com/orbitest-backend/internal/transport/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if the key is missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// Telegram group messenger (optional — graceful fallback).
	var chat telegram.GroupMessenger
	if sender, err := telegram.NewSender(cfg); err == nil {
		chat = sender
	} else {
		log.Printf("WARN: Telegram sender not available: %v", err)
	}

	studentNotifRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.StudentNotifications)
	mentorNotifRepo := dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.MentorNotifications)
	examRepo := dynamo.NewExamRepo(dynamoClient, cfg.DynamoTables.Exams)
	groupRepo := dynamo.NewGroupRepo(dynamoClient, cfg.DynamoTables.Groups)
	studentRepo := dynamo.NewStudentRepo(dynamoClient, cfg.DynamoTables.Students)
	mentorRepo := dynamo.NewMentorRepo(dynamoClient, cfg.DynamoTables.Mentors)
	jobRunRepo := dynamo.NewJobRunRepo(dynamoClient, cfg.DynamoTables.JobRuns)

	studentReg := presence.NewRegistry()
	mentorReg := presence.NewRegistry()
	roster := presence.NewRoster()

	notifySvc := notify.NewService(notify.Deps{
		StudentStore: studentNotifRepo,
		MentorStore:  mentorNotifRepo,
		StudentReg:   studentReg,
		MentorReg:    mentorReg,
		Students:     studentRepo,
		Mentors:      mentorRepo,
	})

	wsHandler := ws.NewHandler(ws.Deps{
		StudentReg:     studentReg,
		MentorReg:      mentorReg,
		Roster:         roster,
		Notifier:       notifySvc,
		Directory:      studentRepo,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	sched := scheduler.New(scheduler.Deps{
		Exams:             examRepo,
		Groups:            groupRepo,
		Mentors:           mentorRepo,
		Dispatcher:        notifySvc,
		Chat:              chat,
		SMS:               smsSender,
		Mailer:            mailer,
		Ledger:            jobRunRepo,
		ReminderThreshold: cfg.ReminderThreshold,
		ReminderInterval:  cfg.ReminderInterval,
		LedgerRetention:   cfg.LedgerRetention,
	})

	schedCtx, stopSched := context.WithCancel(context.Background())
	go sched.Run(schedCtx, cfg.SchedulerTick, cfg.CleanupTick)

	router := transporthttp.NewRouter(cfg, &transporthttp.Deps{
		Notify:      notifySvc,
		WSStudents:  wsHandler.ServeStudents,
		WSMentors:   wsHandler.ServeMentors,
		JWTProvider: jwtProvider,
	})

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
	stopSched()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
