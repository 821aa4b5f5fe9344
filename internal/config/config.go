package config

import (
	"os"
	"strconv"
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

	DynamoTables DynamoTables

	SNSFCMApplicationARN  string
	SNSAPNSApplicationARN string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiryDays     int

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	// Reminder pipeline tuning.
	ScanInterval     time.Duration
	HorizonDays      int
	PushChunkSize    int
	PushPerSecond    float64 // 0 disables SNS publish pacing
	ScanWorkers      int
	SMSWeeklyLimit   int
	CleanupAfterDays int
	CleanupDelay     time.Duration
	CleanupInterval  time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Courses       string
	Enrollments   string
	Devices       string
	Notifications string
	SentReminders string
	SmsLog        string
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
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Courses:       getEnv("DYNAMO_TABLE_COURSES", "courses"),
			Enrollments:   getEnv("DYNAMO_TABLE_ENROLLMENTS", "enrollments"),
			Devices:       getEnv("DYNAMO_TABLE_DEVICES", "devices"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			SentReminders: getEnv("DYNAMO_TABLE_SENT_REMINDERS", "sent_reminders"),
			SmsLog:        getEnv("DYNAMO_TABLE_SMS_LOG", "sms_log"),
		},

		SNSFCMApplicationARN:  getEnv("SNS_FCM_APPLICATION_ARN", ""),
		SNSAPNSApplicationARN: getEnv("SNS_APNS_APPLICATION_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiryDays:     getEnvInt("JWT_EXPIRY_DAYS", 7),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		ScanInterval:     getEnvDuration("SCAN_INTERVAL", 5*time.Minute),
		HorizonDays:      getEnvInt("REMINDER_HORIZON_DAYS", 7),
		PushChunkSize:    getEnvInt("PUSH_CHUNK_SIZE", 100),
		PushPerSecond:    getEnvFloat("PUSH_PUBLISH_PER_SECOND", 0),
		ScanWorkers:      getEnvInt("SCAN_WORKERS", 8),
		SMSWeeklyLimit:   getEnvInt("SMS_WEEKLY_LIMIT", 5),
		CleanupAfterDays: getEnvInt("DEVICE_RETENTION_DAYS", 30),
		CleanupDelay:     getEnvDuration("CLEANUP_START_DELAY", time.Minute),
		CleanupInterval:  getEnvDuration("CLEANUP_INTERVAL", 24*time.Hour),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
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
