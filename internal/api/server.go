// Package api exposes the citizen-facing HTTP surface: incident
// reports, voice submissions, the forum, and officer login.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"community-intake-service/internal/forum"
	"community-intake-service/internal/identity"
	"community-intake-service/internal/intake"
	"community-intake-service/internal/pipeline"
	"community-intake-service/internal/store"
)

const (
	maxAudioUploadBytes = 32 << 20
	maxPostsPageSize    = 100
	tokenTTL            = 12 * time.Hour
)

// Server routes citizen and officer requests to the domain services.
type Server struct {
	intake      *intake.Service
	forum       *forum.Service
	directory   identity.Provider
	tokens      *identity.TokenVerifier
	languageTag string
	log         zerolog.Logger
	server      *http.Server
	addr        string
}

// NewServer builds the API server. languageTag is the default for
// voice submissions that do not specify one.
func NewServer(addr string, in *intake.Service, f *forum.Service, dir identity.Provider, tokens *identity.TokenVerifier, languageTag string, log zerolog.Logger) *Server {
	srv := &Server{
		intake:      in,
		forum:       f,
		directory:   dir,
		tokens:      tokens,
		languageTag: languageTag,
		log:         log.With().Str("component", "api").Logger(),
		addr:        addr,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/reports", srv.handleSubmitReport)
		r.Post("/reports/voice", srv.handleSubmitVoiceReport)

		r.Get("/posts", srv.handleListPosts)
		r.Post("/posts", srv.handleCreatePost)
		r.Get("/posts/{postID}/replies", srv.handleListReplies)
		r.Post("/posts/{postID}/replies", srv.handleCreateReply)

		r.Post("/login", srv.handleLogin)
		r.Get("/stats", srv.handleStats)
	})

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv
}

// Handler returns the route tree, used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("Starting API HTTP server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("API HTTP server error")
		}
	}()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down API HTTP server")
	return s.server.Shutdown(ctx)
}

type submitReportRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Location     string `json:"location"`
	IncidentTime string `json:"incidentTime"`
}

type receiptResponse struct {
	ReportID      int64  `json:"reportId"`
	Notified      bool   `json:"notified"`
	NotifyWarning string `json:"notifyWarning,omitempty"`
	Transcript    string `json:"transcript,omitempty"`
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req submitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	receipt, err := s.intake.Submit(r.Context(), intake.Submission{
		Title:        req.Title,
		Description:  req.Description,
		Location:     req.Location,
		IncidentTime: req.IncidentTime,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptOf(receipt))
}

func (s *Server) handleSubmitVoiceReport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("expected multipart form with an audio file"))
		return
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("audio file is required"))
		return
	}
	defer file.Close()

	wav, err := io.ReadAll(io.LimitReader(file, maxAudioUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read audio"))
		return
	}

	languageTag := r.FormValue("language")
	if languageTag == "" {
		languageTag = s.languageTag
	}

	receipt, err := s.intake.SubmitVoice(r.Context(), intake.VoiceSubmission{
		SessionID:    sessionID(r),
		WAV:          wav,
		LanguageTag:  languageTag,
		Location:     r.FormValue("location"),
		IncidentTime: r.FormValue("incidentTime"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, receiptOf(receipt))
}

type createPostRequest struct {
	Content  string `json:"content"`
	Category string `json:"category"`
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req createPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	post, err := s.forum.CreatePost(r.Context(), forum.Session{ID: sessionID(r)}, req.Content, req.Category)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxPostsPageSize {
		limit = maxPostsPageSize
	}

	posts, err := s.forum.RecentPosts(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleListReplies(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid post id"))
		return
	}

	replies, err := s.forum.Replies(r.Context(), postID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, replies)
}

type createReplyRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateReply(w http.ResponseWriter, r *http.Request) {
	postID, err := strconv.ParseInt(chi.URLParam(r, "postID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid post id"))
		return
	}

	var req createReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	// A missing or invalid token yields a nil actor, which the forum
	// service rejects. Authorization is its decision, not the router's.
	actor := s.bearerOfficer(r)

	reply, err := s.forum.CreateReply(r.Context(), postID, req.Content, actor)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reply)
}

type loginRequest struct {
	BadgeID  string `json:"badgeId"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	officer, err := s.directory.Login(r.Context(), req.BadgeID, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	token, err := s.tokens.Issue(officer, tokenTTL)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to issue token")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, DisplayName: officer.DisplayName})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.forum.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// bearerOfficer extracts and verifies the Authorization bearer token.
// Returns nil when the request carries no usable officer identity.
func (s *Server) bearerOfficer(r *http.Request) *identity.Officer {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		return nil
	}
	officer, err := s.tokens.Verify(auth[len(prefix):])
	if err != nil {
		return nil
	}
	return officer
}

// sessionID identifies the anonymous browser session. The caller
// supplies it; absent a header we fall back to the client address so
// the duplicate guard still has a stable key.
func sessionID(r *http.Request) string {
	if sid := r.Header.Get("X-Session-ID"); sid != "" {
		return sid
	}
	return r.RemoteAddr
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, intake.ErrEmptyDescription),
		errors.Is(err, forum.ErrEmptyContent),
		errors.Is(err, pipeline.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, forum.ErrDuplicateSubmission):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, forum.ErrNotAnOfficer):
		writeJSON(w, http.StatusForbidden, errorBody(err.Error()))
	case errors.Is(err, identity.ErrBadCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody(err.Error()))
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, pipeline.ErrRecognitionFailed):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

func receiptOf(r *intake.Receipt) receiptResponse {
	resp := receiptResponse{
		ReportID:   r.ReportID,
		Notified:   r.Notified,
		Transcript: r.Transcript,
	}
	if r.NotifyWarning != nil {
		resp.NotifyWarning = r.NotifyWarning.Error()
	}
	return resp
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
