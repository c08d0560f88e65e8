// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"strings"

	connectionsfeature "github.com/dalemusser/circlehub/internal/app/features/connections"
	healthfeature "github.com/dalemusser/circlehub/internal/app/features/health"
	messagesfeature "github.com/dalemusser/circlehub/internal/app/features/messages"
	postsfeature "github.com/dalemusser/circlehub/internal/app/features/posts"
	statefeature "github.com/dalemusser/circlehub/internal/app/features/state"
	storiesfeature "github.com/dalemusser/circlehub/internal/app/features/stories"
	streamfeature "github.com/dalemusser/circlehub/internal/app/features/stream"
	uploadsfeature "github.com/dalemusser/circlehub/internal/app/features/uploads"
	usersfeature "github.com/dalemusser/circlehub/internal/app/features/users"
	webhooksfeature "github.com/dalemusser/circlehub/internal/app/features/webhooks"
	userstore "github.com/dalemusser/circlehub/internal/app/store/users"
	"github.com/dalemusser/circlehub/internal/app/system/apperr"
	"github.com/dalemusser/circlehub/internal/app/system/auth"
	"github.com/dalemusser/circlehub/internal/app/system/jsonutil"
	"github.com/dalemusser/circlehub/internal/app/system/metrics"
	"github.com/dalemusser/circlehub/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed, so the shared services are ready.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("bootstrap: Startup has not run")
	}
	return newRouter(appCfg, deps, svc, logger), nil
}

func newRouter(appCfg AppConfig, deps DBDeps, s *services, logger *zap.Logger) http.Handler {
	db := deps.MongoDatabase

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: appCfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	// Health check and metrics for load balancers and scrapers
	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	// Locally stored media; S3 media is served by the bucket or CDN.
	if _, ok := s.Media.(*storage.Local); ok {
		prefix := strings.TrimRight(appCfg.MediaLocalURL, "/")
		r.Handle(prefix+"/*", fileserver.Handler(prefix, appCfg.MediaLocalPath))
	}

	// Signed deliveries authenticate by signature, not bearer token.
	if s.Webhooks != nil {
		webhooksHandler := webhooksfeature.NewHandler(db, s.Webhooks, s.Registry, s.Workflows, logger)
		r.Mount("/api/webhooks", webhooksfeature.IdentityRoutes(webhooksHandler))
		r.Mount("/api/workflows", webhooksfeature.WorkflowRoutes(webhooksHandler))
	}

	// Event streams authenticate by ticket; only ticket issuance needs a token.
	streamHandler := streamfeature.NewHandler(s.Bus, s.Tickets, logger)
	r.Mount("/api/stream", streamfeature.Routes(streamHandler, s.Guard.Require))

	r.Route("/api", func(api chi.Router) {
		api.Use(s.Guard.Require)
		api.Use(ratelimit.Middleware(s.Limiter, callerKey, func(w http.ResponseWriter, r *http.Request) {
			jsonutil.Error(w, logger, apperr.New(apperr.RateLimited, "too many requests"))
		}))

		usersHandler := usersfeature.NewHandler(userstore.New(db), s.Relations, logger)
		api.Mount("/users", usersfeature.Routes(usersHandler))

		connectionsHandler := connectionsfeature.NewHandler(s.Relations, logger)
		api.Mount("/connections", connectionsfeature.Routes(connectionsHandler))

		postsHandler := postsfeature.NewHandler(db, s.Notifier, logger)
		api.Mount("/posts", postsfeature.Routes(postsHandler))

		storiesHandler := storiesfeature.NewHandler(db, s.Workflows, appCfg.StoryTTL, logger)
		api.Mount("/stories", storiesfeature.Routes(storiesHandler))

		messagesHandler := messagesfeature.NewHandler(db, s.Notifier, logger)
		api.Mount("/messages", messagesfeature.Routes(messagesHandler))

		uploadsHandler := uploadsfeature.NewHandler(s.Media, appCfg.MediaMaxBytes, logger)
		api.Mount("/media", uploadsfeature.Routes(uploadsHandler))

		stateHandler := statefeature.NewHandler(db, s.Relations, logger)
		api.Mount("/state", statefeature.Routes(stateHandler))
	})

	return r
}

// callerKey limits per authenticated user, falling back to the client IP.
func callerKey(r *http.Request) string {
	if c, ok := auth.CurrentUser(r); ok {
		return "user:" + c.ID
	}
	return "ip:" + ratelimit.ClientIP(r)
}
