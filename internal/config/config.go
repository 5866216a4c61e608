package config

import (
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	JWTPublicKeyPath string

	// Exam scheduler cadence. Threshold (how close to the deadline before
	// reminders arm) and interval (how often they repeat) default to the
	// same value but are tunable independently.
	SchedulerTick     time.Duration
	ReminderThreshold time.Duration
	ReminderInterval  time.Duration
	CleanupTick       time.Duration
	LedgerRetention   time.Duration

	TelegramBotToken string
	TelegramAPIURL   string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	StudentNotifications string
	MentorNotifications  string
	Exams                string
	Groups               string
	Students             string
	Mentors              string
	JobRuns              string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			StudentNotifications: getEnv("DYNAMO_TABLE_STUDENT_NOTIFICATIONS", "student_notifications"),
			MentorNotifications:  getEnv("DYNAMO_TABLE_MENTOR_NOTIFICATIONS", "mentor_notifications"),
			Exams:                getEnv("DYNAMO_TABLE_EXAMS", "exams"),
			Groups:               getEnv("DYNAMO_TABLE_GROUPS", "groups"),
			Students:             getEnv("DYNAMO_TABLE_STUDENTS", "students"),
			Mentors:              getEnv("DYNAMO_TABLE_MENTORS", "mentors"),
			JobRuns:              getEnv("DYNAMO_TABLE_JOB_RUNS", "scheduler_job_runs"),
		},

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		SchedulerTick:     getEnvDuration("SCHEDULER_TICK", 3*time.Minute),
		ReminderThreshold: getEnvDuration("EXAM_REMINDER_THRESHOLD", 3*time.Hour),
		ReminderInterval:  getEnvDuration("EXAM_REMINDER_INTERVAL", 3*time.Hour),
		CleanupTick:       getEnvDuration("SCHEDULER_CLEANUP_TICK", 24*time.Hour),
		LedgerRetention:   getEnvDuration("SCHEDULER_LEDGER_RETENTION", 7*24*time.Hour),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", "https://api.telegram.org"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@orbitest.io"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
