package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/discoursa/debate-engine/internal/auth"
	"github.com/discoursa/debate-engine/internal/embeddings"
	"github.com/discoursa/debate-engine/internal/llm"
	"github.com/discoursa/debate-engine/internal/orchestrator"
	"github.com/discoursa/debate-engine/internal/session"
)

// ServerConfig holds everything the HTTP server needs
type ServerConfig struct {
	DB        *sql.DB
	JWTSecret string
	Engine    *orchestrator.Engine
	// SessionsPerHour caps how many debates one user may start per hour
	SessionsPerHour int
	// DriftThreshold marks turn scores above it as flagged in responses
	DriftThreshold float64
}

type Server struct {
	router         *chi.Mux
	engine         *orchestrator.Engine
	authService    auth.Service
	rateLimiter    *rateLimiter
	driftThreshold float64
}

// NewServer creates the HTTP server with routing and middleware configured
func NewServer(cfg ServerConfig) *Server {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authCfg := auth.DefaultConfig()
	if cfg.JWTSecret != "" {
		authCfg.SecretKey = cfg.JWTSecret
	}
	authService := auth.NewService(auth.NewPostgresRepository(cfg.DB), authCfg)

	perHour := cfg.SessionsPerHour
	if perHour <= 0 {
		perHour = 5
	}

	driftThreshold := cfg.DriftThreshold
	if driftThreshold <= 0 {
		driftThreshold = 0.6
	}

	s := &Server{
		router:         r,
		engine:         cfg.Engine,
		authService:    authService,
		rateLimiter:    newRateLimiter(perHour),
		driftThreshold: driftThreshold,
	}
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.handleHealth)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Auth routes (public)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.authService))

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", s.handleCreateSession)
				r.Get("/{sessionID}", s.handleGetSession)
				r.Post("/{sessionID}/turns", s.handlePostTurn)
				r.Get("/{sessionID}/transcript", s.handleGetTranscript)
				r.Post("/{sessionID}/conclude", s.handleConcludeSession)
				r.Delete("/{sessionID}", s.handleDeleteSession)
			})

			r.Route("/documents", func(r chi.Router) {
				r.Post("/", s.handleIngestDocument)
			})
		})
	})
}

func (s *Server) Run(addr string) error {
	return http.ListenAndServe(addr, s.router)
}

// Handler exposes the router for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Helper to send JSON responses
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// statusForError maps engine errors to HTTP status codes
func statusForError(err error) int {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrSessionBusy):
		return http.StatusConflict
	case errors.Is(err, session.ErrInvalidSequence):
		return http.StatusConflict
	case errors.Is(err, llm.ErrProviderUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, embeddings.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
