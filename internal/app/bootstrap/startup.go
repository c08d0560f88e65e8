// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"fmt"
	"os"

	connectionstore "github.com/dalemusser/circlehub/internal/app/store/connections"
	jobstore "github.com/dalemusser/circlehub/internal/app/store/jobs"
	messagestore "github.com/dalemusser/circlehub/internal/app/store/messages"
	storystore "github.com/dalemusser/circlehub/internal/app/store/stories"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/mailer"
	"github.com/dalemusser/circlehub/internal/app/system/media"
	"github.com/dalemusser/circlehub/internal/app/system/ratelimit"
	"github.com/dalemusser/circlehub/internal/app/system/realtime"
	"github.com/dalemusser/circlehub/internal/app/system/relations"
	"github.com/dalemusser/circlehub/internal/app/system/tasks"
	"github.com/dalemusser/circlehub/internal/app/system/timeouts"
	"github.com/dalemusser/circlehub/internal/app/system/webhook"
	"github.com/dalemusser/circlehub/internal/app/system/workers"
	"github.com/dalemusser/circlehub/internal/app/system/workflows"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// services are built once in Startup and shared by BuildHandler and Shutdown.
type services struct {
	Bus       realtime.Bus
	Notifier  *realtime.Notifier
	Tickets   *realtime.Tickets
	Workflows *workflows.Orchestrator
	Registry  *workflows.Registry
	Relations *relations.Service
	Guard     *auth.Guard
	Webhooks  *webhook.Verifier // nil when webhook_secret is blank
	Media     storage.Store
	Limiter   *ratelimit.Limiter

	runner    *workers.JobRunner
	digest    *workers.DigestScheduler
	scheduler *tasks.Scheduler
}

var svc *services

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared services and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	s, err := buildServices(ctx, appCfg, deps, logger)
	if err != nil {
		return err
	}
	s.runner.Start()
	s.digest.Start()
	s.scheduler.Start()
	svc = s

	logger.Info("workers started",
		zap.Strings("workflows", s.Registry.Names()),
		zap.Duration("job_poll_interval", appCfg.JobPollInterval),
		zap.Int("digest_hour_utc", appCfg.DigestHourUTC))
	return nil
}

func buildServices(ctx context.Context, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (*services, error) {
	db := deps.MongoDatabase
	s := &services{}

	if deps.Redis != nil {
		s.Bus = realtime.NewRedisBus(deps.Redis, logger)
	} else {
		s.Bus = realtime.NewMemoryBus()
	}
	s.Notifier = realtime.NewNotifier(s.Bus, logger)
	s.Tickets = realtime.NewTickets([]byte(appCfg.StreamTicketKey), appCfg.StreamTicketTTL)

	jobs := jobstore.New(db)
	s.Workflows = workflows.NewOrchestrator(jobs, logger)
	s.Registry = workflows.NewRegistry()
	fns := newFunctions(db, appCfg, s.Workflows, logger)
	fns.Register(s.Registry)

	s.Relations = relations.New(db, s.Notifier, s.Workflows, logger, relations.Config{
		RequestLimit:  appCfg.ConnectionRequestLimit,
		RequestWindow: appCfg.ConnectionRequestWindow,
	})

	verifier, err := newTokenVerifier(appCfg)
	if err != nil {
		return nil, err
	}
	s.Guard = auth.NewGuard(verifier, userstore.NewFetcher(db), logger)

	if appCfg.WebhookSecret != "" {
		wv, err := webhook.NewVerifier(appCfg.WebhookSecret, webhook.Config{MaxBodySize: jsonutil.MaxBodyBytes})
		if err != nil {
			return nil, fmt.Errorf("webhook_secret: %w", err)
		}
		s.Webhooks = wv
	} else {
		logger.Warn("webhook_secret not set; identity and workflow webhooks are disabled")
	}

	s.Media, err = media.Open(ctx, media.Config{
		Type:      appCfg.MediaType,
		LocalPath: appCfg.MediaLocalPath,
		LocalURL:  appCfg.MediaLocalURL,
		S3Region:  appCfg.MediaS3Region,
		S3Bucket:  appCfg.MediaS3Bucket,
		S3Prefix:  appCfg.MediaS3Prefix,
		PublicURL: appCfg.MediaPublicURL,
	})
	if err != nil {
		return nil, fmt.Errorf("media store: %w", err)
	}

	s.Limiter = ratelimit.New(appCfg.APIRateLimit, appCfg.APIRateWindow)

	s.runner = workers.NewJobRunner(jobs, s.Registry, logger, workers.JobRunnerConfig{
		PollInterval: appCfg.JobPollInterval,
		MaxAttempts:  appCfg.JobMaxAttempts,
	})
	s.digest, err = workers.NewDigestScheduler(s.Workflows, logger, appCfg.DigestHourUTC)
	if err != nil {
		return nil, err
	}
	s.scheduler = tasks.NewScheduler(logger,
		tasks.FinishedJobPurgeJob(jobs, logger, appCfg.JobRetention),
		tasks.ExpiredStorySweepJob(storystore.New(db), logger),
		tasks.JobQueueStatsJob(jobs, logger),
		tasks.CollectionStatsJob(db),
	)
	return s, nil
}

func newFunctions(db *mongo.Database, appCfg AppConfig, orch *workflows.Orchestrator, logger *zap.Logger) *workflows.Functions {
	return &workflows.Functions{
		Users:       userstore.New(db),
		Connections: connectionstore.New(db),
		Stories:     storystore.New(db),
		Messages:    messagestore.New(db),
		Mail: mailer.New(mailer.Config{
			Host:     appCfg.MailSMTPHost,
			Port:     appCfg.MailSMTPPort,
			User:     appCfg.MailSMTPUser,
			Pass:     appCfg.MailSMTPPass,
			From:     appCfg.MailFrom,
			FromName: appCfg.MailFromName,
		}, logger),
		Orchestrator:  orch,
		Log:           logger,
		SiteName:      appCfg.MailFromName,
		BaseURL:       appCfg.BaseURL,
		ReminderDelay: appCfg.ReminderDelay,
	}
}

func newTokenVerifier(appCfg AppConfig) (*auth.Verifier, error) {
	cfg := auth.VerifierConfig{
		Secret: appCfg.AuthJWTSecret,
		Issuer: appCfg.AuthJWTIssuer,
	}
	if appCfg.AuthJWTPublicKeyPath != "" {
		pem, err := os.ReadFile(appCfg.AuthJWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read auth_jwt_public_key_path: %w", err)
		}
		cfg.PublicKeyPEM = pem
	}
	return auth.NewVerifier(cfg)
}
