// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like HTTP/HTTPS ports,
// TLS, logging level and format, and request body limits. AppConfig is where
// everything specific to CircleHub lives.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Redis pub/sub for realtime events. Blank address = in-process bus.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Bearer token verification (identity-provider session tokens)
	AuthJWTSecret        string // HS256 shared secret
	AuthJWTPublicKeyPath string // PEM file for RS256; takes precedence over the secret
	AuthJWTIssuer        string // expected "iss" (blank = not checked)

	// Signed webhooks (identity provider and workflow callbacks)
	WebhookSecret string // "whsec_<base64>"

	// SSE stream tickets
	StreamTicketKey string
	StreamTicketTTL time.Duration

	// HTTP API
	CORSAllowedOrigins []string
	APIRateLimit       int
	APIRateWindow      time.Duration

	// Connection requests
	ConnectionRequestLimit  int
	ConnectionRequestWindow time.Duration

	// Delayed jobs
	ReminderDelay   time.Duration
	StoryTTL        time.Duration
	DigestHourUTC   int
	JobPollInterval time.Duration
	JobMaxAttempts  int
	JobRetention    time.Duration

	// Media storage
	MediaType      string // "local" or "s3"
	MediaLocalPath string // directory for local uploads
	MediaLocalURL  string // URL prefix local uploads are served from
	MediaS3Region  string
	MediaS3Bucket  string
	MediaS3Prefix  string
	MediaPublicURL string // CDN base URL in front of the bucket
	MediaMaxBytes  int64

	// Email/SMTP configuration
	MailSMTPHost string // SMTP server host (e.g., localhost for Mailpit)
	MailSMTPPort int    // SMTP server port (e.g., 1025 for Mailpit, 587 for SES)
	MailSMTPUser string // SMTP username (empty for Mailpit)
	MailSMTPPass string // SMTP password
	MailFrom     string // From email address
	MailFromName string // From display name, also used as the site name in emails

	// Base URL for email links
	BaseURL string // e.g., "https://circlehub.app" or "http://localhost:3000"

	// Context deadlines for data access (zero keeps the built-in defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
