package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
// Secrets are resolved exactly once at process start; handlers receive this
// struct by reference and never read the environment themselves.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	WebhookArchiveBucket string // raw webhook payload archive; empty disables archival
	AlertTopicARN        string // SNS topic for token-rotation alerts; empty disables alerts

	OpenAIAPIKey  string
	OpenAIBaseURL string

	FBAppID           string
	FBAppSecret       string
	FBSystemUserToken string
	FBVerifyToken     string
	FBGraphBaseURL    string

	JWTPublicKeyPath string

	TokenRotateInterval  time.Duration
	TokenRefreshInterval time.Duration

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	OTPCodes      string
	ResetSessions string
	PageTokens    string
	UserTokens    string
	Accounts      string
	Messages      string
	Conversations string
	MailOutbox    string
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
			OTPCodes:      getEnv("DYNAMO_TABLE_OTP_CODES", "otp_codes"),
			ResetSessions: getEnv("DYNAMO_TABLE_RESET_SESSIONS", "password_reset_sessions"),
			PageTokens:    getEnv("DYNAMO_TABLE_PAGE_TOKENS", "fb_pages"),
			UserTokens:    getEnv("DYNAMO_TABLE_USER_TOKENS", "fb_user_tokens"),
			Accounts:      getEnv("DYNAMO_TABLE_ACCOUNTS", "accounts"),
			Messages:      getEnv("DYNAMO_TABLE_MESSAGES", "messages"),
			Conversations: getEnv("DYNAMO_TABLE_CONVERSATIONS", "conversations"),
			MailOutbox:    getEnv("DYNAMO_TABLE_MAIL_OUTBOX", "mail_outbox"),
		},

		WebhookArchiveBucket: getEnv("WEBHOOK_ARCHIVE_BUCKET", ""),
		AlertTopicARN:        getEnv("ALERT_TOPIC_ARN", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),

		FBAppID:           getEnv("FB_APP_ID", ""),
		FBAppSecret:       getEnv("FB_APP_SECRET", ""),
		FBSystemUserToken: getEnv("FB_SYSTEM_USER_TOKEN", ""),
		FBVerifyToken:     getEnv("FB_VERIFY_TOKEN", ""),
		FBGraphBaseURL:    getEnv("FB_GRAPH_BASE_URL", "https://graph.facebook.com/v21.0"),

		JWTPublicKeyPath: getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),

		TokenRotateInterval:  getEnvDuration("TOKEN_ROTATE_INTERVAL", 24*time.Hour),
		TokenRefreshInterval: getEnvDuration("TOKEN_REFRESH_INTERVAL", time.Hour),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// Validate fails fast when a required secret is absent, so a misconfigured
// process dies at startup instead of per-request.
func (c *Config) Validate() error {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.FBAppID == "" {
		missing = append(missing, "FB_APP_ID")
	}
	if c.FBAppSecret == "" {
		missing = append(missing, "FB_APP_SECRET")
	}
	if c.FBVerifyToken == "" {
		missing = append(missing, "FB_VERIFY_TOKEN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
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
