// internal/server/server.go
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"newsproof/internal/auth"
	"newsproof/internal/database"
	"newsproof/internal/feed"
	"newsproof/internal/newsapi"
	"newsproof/internal/verify"
)

type contextKey string

const contextKeyUserID = contextKey("userID")

type Server struct {
	db          *database.DB
	logger      *log.Logger
	verifier    *verify.Client
	news        *newsapi.Client
	feedService *feed.Service
}

func NewServer(db *database.DB, logger *log.Logger, verifier *verify.Client, news *newsapi.Client, feedService *feed.Service) *Server {
	return &Server{
		db:          db,
		logger:      logger,
		verifier:    verifier,
		news:        news,
		feedService: feedService,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/healthz/", s.handleHealthz)
	mux.HandleFunc("/api/db", s.handleDB)
	mux.HandleFunc("/api/db/", s.handleDB)
	mux.HandleFunc("/api/news", s.handleNews)
	mux.HandleFunc("/api/news/", s.handleNews)
	mux.HandleFunc("/api/verify", s.handleVerify)
	mux.HandleFunc("/api/verify/", s.handleVerify)
	mux.HandleFunc("/api/submit", s.handleSubmit)
	mux.HandleFunc("/api/submit/", s.handleSubmit)
	mux.HandleFunc("/feed.rss", s.handleRSS)
	mux.HandleFunc("/admin/login", s.handleLogin)
	mux.HandleFunc("/admin/login/", s.handleLogin)
	mux.HandleFunc("/admin/logout", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/admin/logout/", s.requireAuth(s.handleLogout))
	mux.HandleFunc("/admin/sources", s.requireAuth(s.handleSources))
	mux.HandleFunc("/admin/sources/", s.requireAuth(s.handleSources))
	mux.HandleFunc("/admin/sources/validate", s.requireAuth(s.handleSourceValidation))
	mux.HandleFunc("/admin/sources/validate/", s.requireAuth(s.handleSourceValidation))

	return mux
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		session, err := auth.ValidateSession(s.db.DB, cookie.Value)
		if err != nil {
			RespondWithError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, session.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		s.logger.Printf("Health check failed: %v", err)
		RespondWithError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Start(addr string) error {
	s.logger.Printf("Starting server on %s", addr)
	return http.ListenAndServe(addr, s.Routes())
}
