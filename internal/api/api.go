package api

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/tinyship/reviewreply/internal/auth"
	"github.com/tinyship/reviewreply/internal/reply"
	"github.com/tinyship/reviewreply/internal/store"
	"github.com/tinyship/reviewreply/internal/textutil"
	"github.com/tinyship/reviewreply/internal/ui"
)

// AjaxGenerateReply is the AJAX action that drafts a review reply.
const AjaxGenerateReply = "generate_review_reply"

// Generator drafts a reply to a review.
type Generator interface {
	Generate(ctx context.Context, commentID int64, tone string) (string, error)
}

// Server provides the admin pages and the AJAX endpoint.
type Server struct {
	store     store.Store
	generator Generator
	auth      *auth.Authenticator
	nonces    *auth.Nonces
	logger    *zap.Logger
	templates *template.Template
}

// NewServer creates a new admin server. A nil logger discards output.
func NewServer(s store.Store, g Generator, a *auth.Authenticator, n *auth.Nonces, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	tmpl, err := ui.Templates()
	if err != nil {
		return nil, err
	}
	return &Server{
		store:     s,
		generator: g,
		auth:      a,
		nonces:    n,
		logger:    logger,
		templates: tmpl,
	}, nil
}

// Router returns an http.Handler for every admin route.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.healthz)

	if static, err := ui.StaticHandler(); err == nil {
		mux.Handle("GET /static/", static)
	} else {
		s.logger.Warn("static assets unavailable", zap.Error(err))
	}

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/admin/comments?comment_type=review", http.StatusFound)
	})

	mux.HandleFunc("GET /admin/login", s.loginPage)
	mux.HandleFunc("POST /admin/login", s.login)
	mux.HandleFunc("POST /admin/logout", s.logout)

	mux.HandleFunc("GET /admin/comments", s.commentsPage)
	mux.HandleFunc("POST /admin/comments/{id}/reply", s.quickReply)

	mux.HandleFunc("GET /admin/settings", s.settingsPage)
	mux.HandleFunc("POST /admin/settings", s.saveSettings)

	mux.HandleFunc("POST /admin/ajax", s.ajax)

	return s.requestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLog tags each request with a ULID and logs it once served.
func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := ulid.Make().String()
		w.Header().Set("X-Request-Id", id)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type ajaxResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func writeAjaxSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, ajaxResponse{Success: true, Data: data})
}

func writeAjaxError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ajaxResponse{Data: map[string]string{"message": msg}})
}

// absint parses a non-negative integer, treating anything unparsable as 0
// and negatives as their magnitude.
func absint(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	if n < 0 {
		return -n
	}
	return n
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ajax(w http.ResponseWriter, r *http.Request) {
	switch r.PostFormValue("action") {
	case AjaxGenerateReply:
		s.generateReply(w, r)
	default:
		writeAjaxError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (s *Server) generateReply(w http.ResponseWriter, r *http.Request) {
	user := s.auth.UserFromRequest(r)
	userID := ""
	if user != nil {
		userID = user.ID
	}

	if !s.nonces.Verify(r.PostFormValue("nonce"), auth.ActionGenerateReply, userID) {
		s.fail(w, 0, reply.PermissionDenied("Invalid security token"))
		return
	}
	if !user.Can(auth.CapabilityManageReviews) {
		s.fail(w, 0, reply.PermissionDenied("Permission denied"))
		return
	}

	commentID := absint(r.PostFormValue("comment_id"))
	tone := textutil.SanitizeField(r.PostFormValue("tone"))

	// The upstream call runs to completion even if the browser goes away.
	text, err := s.generator.Generate(context.WithoutCancel(r.Context()), commentID, tone)
	if err != nil {
		s.fail(w, commentID, err)
		return
	}

	s.logger.Info("reply generated", zap.Int64("comment_id", commentID))
	writeAjaxSuccess(w, map[string]string{"reply": text})
}

func (s *Server) fail(w http.ResponseWriter, commentID int64, err error) {
	status := http.StatusInternalServerError
	var re *reply.Error
	if errors.As(err, &re) {
		status = re.HTTPStatus()
	}

	s.logger.Warn("reply generation failed",
		zap.Int64("comment_id", commentID),
		zap.String("kind", string(reply.KindOf(err))),
		zap.Int("status", status),
		zap.Error(err),
		zap.String("request_id", w.Header().Get("X-Request-Id")),
	)
	writeAjaxError(w, status, err.Error())
}
