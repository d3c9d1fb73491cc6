package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Knowledge documents. URLs win over S3, and S3 over local paths.
	ClientConfigPath  string
	BusinessInfoPath  string
	ClientConfigURL   string
	BusinessInfoURL   string
	KnowledgeS3Bucket string
	KnowledgeS3Prefix string

	// Conversation pacing
	TypingDelay   time.Duration
	FollowUpDelay time.Duration
	// BusinessTimezone is the IANA zone the opening hours are written in.
	BusinessTimezone string

	// Session persistence
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	SessionQueueSize int

	DatabaseURL string

	// HTTP edge
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	AdminJWTSecret     string

	// Lead delivery
	LeadSubmitTimeout time.Duration
	LeadQueueURL      string
	LeadNotifyEmail   string
	EmailProvider     string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	SESFromEmail string
	SESFromName  string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClientConfigPath:  getEnv("CLIENT_CONFIG_PATH", "client-config.json"),
		BusinessInfoPath:  getEnv("BUSINESS_INFO_PATH", "business_info.json"),
		ClientConfigURL:   getEnv("CLIENT_CONFIG_URL", ""),
		BusinessInfoURL:   getEnv("BUSINESS_INFO_URL", ""),
		KnowledgeS3Bucket: getEnv("KNOWLEDGE_S3_BUCKET", ""),
		KnowledgeS3Prefix: strings.Trim(getEnv("KNOWLEDGE_S3_PREFIX", ""), "/"),

		TypingDelay:   getEnvAsDuration("TYPING_DELAY", 800*time.Millisecond),
		FollowUpDelay: getEnvAsDuration("FOLLOW_UP_DELAY", 500*time.Millisecond),

		BusinessTimezone: getEnv("BUSINESS_TIMEZONE", "UTC"),

		RedisAddr:        getEnv("REDIS_ADDR", ""),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisTLS:         getEnvAsBool("REDIS_TLS", false),
		SessionQueueSize: getEnvAsInt("SESSION_QUEUE_SIZE", 256),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		LeadSubmitTimeout: getEnvAsDuration("LEAD_SUBMIT_TIMEOUT", 10*time.Second),
		LeadQueueURL:      getEnv("LEAD_QUEUE_URL", ""),
		LeadNotifyEmail:   getEnv("LEAD_NOTIFY_EMAIL", ""),
		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Sirah SmartChat"),

		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),
		SESFromName:  getEnv("SES_FROM_NAME", "Sirah SmartChat"),
	}
}

// UseS3Knowledge reports whether knowledge documents come from S3.
func (c *Config) UseS3Knowledge() bool {
	return c.KnowledgeS3Bucket != ""
}

// Location resolves BusinessTimezone, falling back to UTC when the zone is
// unknown to the host.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
