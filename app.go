package main

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/config"
	"github.com/TomerAmran/guess-the-performer-sub001/handlers"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
	"github.com/TomerAmran/guess-the-performer-sub001/middleware"
	"github.com/TomerAmran/guess-the-performer-sub001/moderation"
	"github.com/TomerAmran/guess-the-performer-sub001/observability"
	"github.com/TomerAmran/guess-the-performer-sub001/routes"
	"github.com/TomerAmran/guess-the-performer-sub001/services"
)

type app struct {
	hub     *services.Hub
	quizzes *services.QuizService
	router  *gin.Engine
}

// newQuizIndex falls back to the no-op index when Typesense is not
// configured or unreachable at startup.
func newQuizIndex(ctx context.Context, cfg *config.Config, log *logger.Logger) services.QuizIndex {
	if cfg.TypesenseHost == "" {
		return services.NoopIndex{}
	}
	idx, err := services.NewTypesenseIndex(ctx, cfg.TypesenseHost, cfg.TypesenseAPIKey, log)
	if err != nil {
		log.Warn("search index unavailable, free-text search disabled", "error", err)
		return services.NoopIndex{}
	}
	return idx
}

func newPendingStore(rdb *redis.Client) services.PendingSessionStore {
	if rdb == nil {
		return services.NewMemoryPendingStore(services.PendingSessionTTL)
	}
	return services.NewRedisPendingStore(rdb, services.PendingSessionTTL)
}

func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger, db *gorm.DB, rdb *redis.Client) *app {
	hub := services.NewHub(log)
	index := newQuizIndex(ctx, cfg, log)

	authService := services.NewAuthService(db, cfg.JWTSecret, cfg.AdminEmail, cfg.ProviderSecret, log)
	composerService := services.NewComposerService(db, log)
	artistService := services.NewArtistService(db, log)
	pieceService := services.NewPieceService(db, log)
	instrumentService := services.NewInstrumentService(db, log)
	performanceService := services.NewPerformanceService(db, log)
	quizService := services.NewQuizService(db, index, hub, log)
	commentService := services.NewCommentService(db, moderation.NewFilter(), hub, log)
	pendingService := services.NewPendingSessionService(newPendingStore(rdb), log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.OtelEnabled {
		router.Use(otelgin.Middleware(observability.ServiceName))
	}
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.CORSOrigin, cfg.IsProduction()))
	router.Use(middleware.SecurityHeaders())

	routes.SetupRoutes(router, routes.Handlers{
		Auth:        handlers.NewAuthHandler(authService),
		Composer:    handlers.NewComposerHandler(composerService, pieceService),
		Artist:      handlers.NewArtistHandler(artistService),
		Piece:       handlers.NewPieceHandler(pieceService, performanceService),
		Instrument:  handlers.NewInstrumentHandler(instrumentService),
		Performance: handlers.NewPerformanceHandler(performanceService),
		Quiz:        handlers.NewQuizHandler(quizService, pendingService),
		Comment:     handlers.NewCommentHandler(commentService),
	}, authService, hub, quizService, originChecker(cfg), log)

	return &app{hub: hub, quizzes: quizService, router: router}
}

// originChecker accepts websocket upgrades from the configured frontend
// origins. Outside production any origin is accepted.
func originChecker(cfg *config.Config) func(r *http.Request) bool {
	if !cfg.IsProduction() {
		return func(*http.Request) bool { return true }
	}
	allowed := map[string]bool{}
	for _, o := range strings.Split(cfg.CORSOrigin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			allowed[o] = true
		}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
