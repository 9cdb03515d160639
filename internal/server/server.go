// Package server provides the HTTP REST API for the story platform.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rkgupta29/assignment-story-creation-app/internal/auth"
	"github.com/rkgupta29/assignment-story-creation-app/internal/config"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore/mongo"
	"github.com/rkgupta29/assignment-story-creation-app/internal/docstore/postgres"
	"github.com/rkgupta29/assignment-story-creation-app/internal/export"
	"github.com/rkgupta29/assignment-story-creation-app/internal/objectstore"
	"github.com/rkgupta29/assignment-story-creation-app/internal/profile"
	"github.com/rkgupta29/assignment-story-creation-app/internal/server/middleware"
	"github.com/rkgupta29/assignment-story-creation-app/internal/server/ratelimit"
	"github.com/rkgupta29/assignment-story-creation-app/internal/session"
	"github.com/rkgupta29/assignment-story-creation-app/internal/story"
	"github.com/rkgupta29/assignment-story-creation-app/internal/transcript"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	docs        docstore.Store
	media       objectstore.Store
	mediaCfg    *config.MediaConfig
	rateLimiter *ratelimit.Limiter

	authService  *auth.Service
	sessionStore *session.Store
	profileRepo  *profile.Repository
	storyRepo    *story.Repository
	storyStore   *story.Store
	streamOnce   sync.Once
	transcriber  transcript.Transcriber
	exporter     *export.Exporter
}

// Deps carries the service dependencies. Production wiring builds them from
// configuration; tests inject in-memory fakes.
type Deps struct {
	Docs        docstore.Store
	Media       objectstore.Store
	MediaCfg    *config.MediaConfig
	Auth        *auth.Service
	Transcriber transcript.Transcriber
	Exporter    *export.Exporter
	Limiter     *ratelimit.Limiter
}

// New creates a server from environment configuration.
func New(ctx context.Context, serverCfg *config.ServerConfig) (*Server, error) {
	dbCfg, err := config.NewDatabaseConfig()
	if err != nil {
		return nil, err
	}

	var docs docstore.Store
	switch dbCfg.Driver {
	case config.DriverMongo:
		docs, err = mongo.Connect(ctx, dbCfg.MongoURI, dbCfg.MongoDB)
	case config.DriverPostgres:
		docs, err = postgres.Connect(ctx, dbCfg.DatabaseURL)
	default:
		docs = docstore.NewMemoryStore()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to document store: %w", err)
	}

	mediaCfg := config.NewMediaConfig()
	var media objectstore.Store
	if mediaCfg.Available() {
		media, err = objectstore.NewGCSStore(ctx, mediaCfg.Bucket, mediaCfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to media store: %w", err)
		}
	} else {
		log.Println("[media] MEDIA_BUCKET not set, using in-memory media store")
		media = objectstore.NewMemoryObjectStore()
	}

	passwordCfg, err := config.NewPasswordConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create password config: %w", err)
	}
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT config: %w", err)
	}
	authService := auth.NewService(docs, passwordCfg, auth.NewJWTService(jwtCfg))

	var transcriber transcript.Transcriber
	if key := config.NewTranscriptConfig().APIKey; key != "" {
		transcriber, err = transcript.NewGeminiTranscriber(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to create transcriber: %w", err)
		}
	} else {
		log.Println("[transcript] GEMINI_API_KEY not set, using mock transcriber")
		transcriber = transcript.NewMockTranscriber()
	}

	return NewWithDeps(serverCfg.Port, Deps{
		Docs:        docs,
		Media:       media,
		MediaCfg:    mediaCfg,
		Auth:        authService,
		Transcriber: transcriber,
		Exporter:    export.NewExporter(),
		Limiter:     ratelimit.NewLimiter(ratelimit.LoadConfig()),
	}), nil
}

// NewWithDeps creates a server over pre-built dependencies.
func NewWithDeps(port int, deps Deps) *Server {
	storyRepo := story.NewRepository(deps.Docs)

	s := &Server{
		docs:         deps.Docs,
		media:        deps.Media,
		mediaCfg:     deps.MediaCfg,
		rateLimiter:  deps.Limiter,
		authService:  deps.Auth,
		sessionStore: session.NewStore(deps.Auth, deps.Docs),
		profileRepo:  profile.NewRepository(deps.Docs),
		storyRepo:    storyRepo,
		storyStore:   story.NewStore(storyRepo, deps.Media),
		transcriber:  deps.Transcriber,
		exporter:     deps.Exporter,
	}

	// The session store follows the auth gateway's state feed for as long
	// as the server lives.
	s.sessionStore.Initialize(context.Background())

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // SSE streams and PDF exports run long
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler builds the routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	requireAuth := middleware.AuthMiddleware(s.authService.Tokens())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Auth endpoints
	mux.HandleFunc("POST /auth/register", s.handleRegister)
	mux.HandleFunc("POST /auth/login", s.handleLogin)
	mux.HandleFunc("POST /auth/logout", s.handleLogout)
	mux.HandleFunc("POST /auth/reset-password", s.handleResetPassword)
	mux.HandleFunc("POST /auth/confirm-reset", s.handleConfirmReset)
	mux.HandleFunc("GET /auth/session", s.handleSession)
	mux.Handle("GET /auth/me", requireAuth(http.HandlerFunc(s.handleMe)))

	// Story endpoints
	mux.HandleFunc("GET /stories", s.handleListStories)
	mux.HandleFunc("GET /stories/stream", s.handleStoryStream)
	mux.HandleFunc("GET /stories/{slug}", s.handleGetStory)
	mux.HandleFunc("GET /stories/{slug}/export.pdf", s.handleExportStory)
	mux.Handle("POST /stories", requireAuth(http.HandlerFunc(s.handleCreateStory)))
	mux.Handle("PUT /stories/{id}", requireAuth(http.HandlerFunc(s.handleUpdateStory)))
	mux.Handle("DELETE /stories/{id}", requireAuth(http.HandlerFunc(s.handleDeleteStory)))

	// Candidate profile endpoints
	mux.Handle("GET /candidates/{id}/profile", requireAuth(http.HandlerFunc(s.handleGetProfile)))
	mux.Handle("PUT /candidates/{id}/profile", requireAuth(http.HandlerFunc(s.handleUpdateProfile)))
	mux.Handle("GET /candidates/{id}/profile/completion", requireAuth(http.HandlerFunc(s.handleProfileCompletion)))
	mux.Handle("POST /candidates/{id}/profile/steps/{step}", requireAuth(http.HandlerFunc(s.handleProfileStep)))

	// Media endpoints
	mux.HandleFunc("GET /media/config", s.handleMediaConfig)
	mux.Handle("POST /media/upload", requireAuth(http.HandlerFunc(s.handleMediaUpload)))

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	s.sessionStore.Close()
	s.storyStore.Close()
	if err := s.transcriber.Close(); err != nil {
		log.Printf("transcriber close: %v", err)
	}
	if err := s.docs.Close(ctx); err != nil {
		log.Printf("document store close: %v", err)
	}
	log.Println("Server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		clientID := s.extractClientID(r)
		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)

		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]any{"success": false, "error": message})
}

// successResponse writes a {success, data} envelope
func (s *Server) successResponse(w http.ResponseWriter, status int, data any) {
	s.jsonResponse(w, status, map[string]any{"success": true, "data": data})
}

// extractClientID extracts the client identifier from the request.
// For MVP, this uses the IP address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]interface{}{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}
	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
