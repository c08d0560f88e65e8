// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/circlehub/internal/app/system/indexes"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CircleHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_addr, etc.
//   - Environment variables: CIRCLEHUB_MONGO_URI, CIRCLEHUB_REDIS_ADDR, etc.
//   - Command-line flags: --mongo_uri, --redis_addr, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "circlehub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Realtime bus
	{Name: "redis_addr", Default: "", Desc: "Redis address for realtime pub/sub (blank = in-process bus)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},

	// Authentication
	{Name: "auth_jwt_secret", Default: "", Desc: "HS256 secret for identity-provider session tokens"},
	{Name: "auth_jwt_public_key_path", Default: "", Desc: "PEM public key for RS256 session tokens (overrides the secret)"},
	{Name: "auth_jwt_issuer", Default: "", Desc: "Expected token issuer (blank = not checked)"},

	// Webhooks and streams
	{Name: "webhook_secret", Default: "", Desc: "Signing secret for identity and workflow webhooks (whsec_...)"},
	{Name: "stream_ticket_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HMAC key for SSE stream tickets (must be strong in production)"},
	{Name: "stream_ticket_ttl", Default: "60s", Desc: "How long a stream ticket stays valid"},

	// HTTP API
	{Name: "cors_allowed_origins", Default: "http://localhost:3000", Desc: "Comma-separated origins allowed to call the API"},
	{Name: "api_rate_limit", Default: 300, Desc: "Requests per caller per api_rate_window"},
	{Name: "api_rate_window", Default: "1m", Desc: "API rate limit window"},

	// Connections
	{Name: "connection_request_limit", Default: 20, Desc: "Connection requests a user may send per window"},
	{Name: "connection_request_window", Default: "24h", Desc: "Connection request rate window"},

	// Delayed jobs
	{Name: "reminder_delay", Default: "24h", Desc: "Delay before a pending connection request reminder"},
	{Name: "story_ttl", Default: "24h", Desc: "Story lifetime"},
	{Name: "digest_hour_utc", Default: 8, Desc: "Hour (UTC) the unseen-message digest runs"},
	{Name: "job_poll_interval", Default: "5s", Desc: "How often the job runner looks for due jobs"},
	{Name: "job_max_attempts", Default: 5, Desc: "Attempts before a job is marked failed"},
	{Name: "job_retention", Default: "168h", Desc: "How long finished jobs are kept"},

	// Media storage
	{Name: "media_type", Default: "local", Desc: "Media backend: 'local' or 's3'"},
	{Name: "media_local_path", Default: "./uploads/media", Desc: "Local storage path for uploaded media"},
	{Name: "media_local_url", Default: "/files", Desc: "URL prefix for serving local media"},
	{Name: "media_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "media_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "media_s3_prefix", Default: "circlehub/", Desc: "S3 key prefix"},
	{Name: "media_public_url", Default: "", Desc: "CDN base URL for media (blank = S3 URL)"},
	{Name: "media_max_bytes", Default: 52428800, Desc: "Maximum upload size in bytes (default: 50 MiB)"},

	// Email/SMTP configuration
	{Name: "mail_smtp_host", Default: "localhost", Desc: "SMTP server host"},
	{Name: "mail_smtp_port", Default: 587, Desc: "SMTP server port (465 = implicit TLS, otherwise STARTTLS)"},
	{Name: "mail_smtp_user", Default: "", Desc: "SMTP username"},
	{Name: "mail_smtp_pass", Default: "", Desc: "SMTP password"},
	{Name: "mail_from", Default: "noreply@circlehub.app", Desc: "From email address"},
	{Name: "mail_from_name", Default: "CircleHub", Desc: "From display name"},

	// Base URL for email links
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL for email links"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for list and aggregate operations"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for uploads and cascades"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, CIRCLEHUB_* for app), and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CIRCLEHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),

		AuthJWTSecret:        appValues.String("auth_jwt_secret"),
		AuthJWTPublicKeyPath: appValues.String("auth_jwt_public_key_path"),
		AuthJWTIssuer:        appValues.String("auth_jwt_issuer"),

		WebhookSecret:   appValues.String("webhook_secret"),
		StreamTicketKey: appValues.String("stream_ticket_key"),
		StreamTicketTTL: appValues.Duration("stream_ticket_ttl", time.Minute),

		CORSAllowedOrigins: splitList(appValues.String("cors_allowed_origins")),
		APIRateLimit:       appValues.Int("api_rate_limit"),
		APIRateWindow:      appValues.Duration("api_rate_window", time.Minute),

		ConnectionRequestLimit:  appValues.Int("connection_request_limit"),
		ConnectionRequestWindow: appValues.Duration("connection_request_window", 24*time.Hour),

		ReminderDelay:   appValues.Duration("reminder_delay", 24*time.Hour),
		StoryTTL:        appValues.Duration("story_ttl", 24*time.Hour),
		DigestHourUTC:   appValues.Int("digest_hour_utc"),
		JobPollInterval: appValues.Duration("job_poll_interval", 5*time.Second),
		JobMaxAttempts:  appValues.Int("job_max_attempts"),
		JobRetention:    appValues.Duration("job_retention", 7*24*time.Hour),

		MediaType:      strings.ToLower(appValues.String("media_type")),
		MediaLocalPath: appValues.String("media_local_path"),
		MediaLocalURL:  appValues.String("media_local_url"),
		MediaS3Region:  appValues.String("media_s3_region"),
		MediaS3Bucket:  appValues.String("media_s3_bucket"),
		MediaS3Prefix:  appValues.String("media_s3_prefix"),
		MediaPublicURL: appValues.String("media_public_url"),
		MediaMaxBytes:  int64(appValues.Int("media_max_bytes")),

		MailSMTPHost: appValues.String("mail_smtp_host"),
		MailSMTPPort: appValues.Int("mail_smtp_port"),
		MailSMTPUser: appValues.String("mail_smtp_user"),
		MailSMTPPass: appValues.String("mail_smtp_pass"),
		MailFrom:     appValues.String("mail_from"),
		MailFromName: appValues.String("mail_from_name"),

		BaseURL: appValues.String("base_url"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(appCfg)
}

func validateApp(appCfg AppConfig) error {
	if appCfg.AuthJWTSecret == "" && appCfg.AuthJWTPublicKeyPath == "" {
		return errors.New("auth_jwt_secret or auth_jwt_public_key_path must be set")
	}
	if len(appCfg.StreamTicketKey) < 32 {
		return errors.New("stream_ticket_key must be at least 32 bytes")
	}
	switch appCfg.MediaType {
	case "local":
	case "s3":
		if appCfg.MediaS3Bucket == "" {
			return errors.New("media_type s3 requires media_s3_bucket")
		}
	default:
		return fmt.Errorf("unknown media_type %q (want 'local' or 's3')", appCfg.MediaType)
	}
	if appCfg.APIRateLimit <= 0 {
		return errors.New("api_rate_limit must be positive")
	}
	if appCfg.ConnectionRequestWindow <= 0 || appCfg.ConnectionRequestWindow > indexes.SendLogTTL {
		return fmt.Errorf("connection_request_window must be between 0 and %s, got %s",
			indexes.SendLogTTL, appCfg.ConnectionRequestWindow)
	}
	if appCfg.DigestHourUTC < 0 || appCfg.DigestHourUTC > 23 {
		return fmt.Errorf("digest_hour_utc must be 0-23, got %d", appCfg.DigestHourUTC)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
