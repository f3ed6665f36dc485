package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lingora/backend/internal/ai"
	"github.com/lingora/backend/internal/api/handlers"
	"github.com/lingora/backend/internal/api/middleware"
	"github.com/lingora/backend/internal/auth"
	"github.com/lingora/backend/internal/cache"
	"github.com/lingora/backend/internal/config"
	"github.com/lingora/backend/internal/conversation"
	"github.com/lingora/backend/internal/queue"
	"github.com/lingora/backend/internal/storage"
	"github.com/lingora/backend/internal/transcribe"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
	jwt   *auth.JWTMiddleware
	ai    *ai.Registry
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
		jwt:   auth.NewJWTMiddleware(cfg.Auth.JWTSecret),
		ai:    ai.NewRegistry(cfg.AI),
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)

	// Initialize services
	appCache := cache.NewCache(rt.redis)
	store := storage.NewSupabaseStorage(rt.cfg.Staging.SupabaseURL, rt.cfg.Staging.ServiceKey, rt.cfg.Staging.PublicBaseURL)
	transcriber := transcribe.NewService(rt.ai, rt.cfg.AI.STTDriver, store, rt.cfg.Staging.Bucket)
	convStore := conversation.NewStore(appCache, conversation.NewPGRepo(rt.db), rt.cfg.Session.TTL)
	convSvc := conversation.NewService(convStore, rt.ai, rt.cfg.AI.ChatDriver, transcriber)
	queueClient := queue.NewClient(rt.cfg.Redis)

	convHandler := handlers.NewConversationHandler(convSvc)
	transcriptionHandler := handlers.NewTranscriptionHandler(transcriber, queueClient, appCache)

	r.Route("/v1", func(r chi.Router) {
		r.Use(rt.jwt.Authenticate)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", convHandler.Start)
			r.Post("/{conversationID}/messages", convHandler.SendMessage)
			r.Post("/{conversationID}/voice", convHandler.SendVoiceMessage)
		})

		r.Route("/transcriptions", func(r chi.Router) {
			r.Post("/", transcriptionHandler.Transcribe)
			r.Post("/async", transcriptionHandler.TranscribeAsync)
			r.Get("/{jobID}", transcriptionHandler.JobStatus)
		})
	})

	return r
}
