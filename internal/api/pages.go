package api

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/tinyship/reviewreply/internal/auth"
	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/settings"
	"github.com/tinyship/reviewreply/internal/store"
	"github.com/tinyship/reviewreply/internal/textutil"
)

const (
	reviewsURL  = "/admin/comments?comment_type=review"
	loginURL    = "/admin/login"
	settingsURL = "/admin/settings"
)

// adminScript is handed to admin.js as the RRAdmin global.
type adminScript struct {
	AjaxURL     string            `json:"ajaxUrl"`
	Action      string            `json:"action"`
	Nonce       string            `json:"nonce"`
	DefaultTone models.Tone       `json:"defaultTone"`
	Labels      map[string]string `json:"labels"`
}

var scriptLabels = map[string]string{
	"generating": "Generating…",
	"buttonText": "✨ Generate AI Reply",
	"inserted":   "Draft inserted into the reply box below.",
	"error":      "Could not generate reply. Check API key/settings.",
}

type commentRow struct {
	Comment      *models.Comment
	ProductTitle string
}

type commentsPage struct {
	Title        string
	LoggedIn     bool
	Rows         []commentRow
	CanReply     bool
	ShowGenerate bool
	Replied      bool
	ReplyNonce   string
	Tones        []models.Tone
	DefaultTone  models.Tone
	Script       adminScript
}

type settingsPage struct {
	Title        string
	LoggedIn     bool
	Updated      bool
	Nonce        string
	DefaultModel string
	Tones        []models.Tone
	Settings     models.Settings
}

type loginPage struct {
	Title    string
	LoggedIn bool
	Error    string
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render template", zap.String("template", name), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// pageUser returns the caller if they may manage reviews. Otherwise it
// redirects to the login page and returns nil.
func (s *Server) pageUser(w http.ResponseWriter, r *http.Request) *auth.User {
	user := s.auth.UserFromRequest(r)
	if !user.Can(auth.CapabilityManageReviews) {
		http.Redirect(w, r, loginURL, http.StatusSeeOther)
		return nil
	}
	return user
}

// formUser is pageUser for form posts: it also checks the nonce in the
// _wpnonce field against action.
func (s *Server) formUser(w http.ResponseWriter, r *http.Request, action string) *auth.User {
	user := s.auth.UserFromRequest(r)
	if !user.Can(auth.CapabilityManageReviews) {
		http.Error(w, "Permission denied", http.StatusForbidden)
		return nil
	}
	if !s.nonces.Verify(r.PostFormValue("_wpnonce"), action, user.ID) {
		http.Error(w, "The link you followed has expired.", http.StatusForbidden)
		return nil
	}
	return user
}

// --- Login ---

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	if s.auth.UserFromRequest(r) != nil {
		http.Redirect(w, r, reviewsURL, http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginPage{Title: "Log in"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.PostFormValue("token"))
	if !s.auth.Check(token) {
		s.logger.Warn("admin login rejected", zap.String("remote", r.RemoteAddr))
		s.render(w, http.StatusUnauthorized, "login.html", loginPage{Title: "Log in", Error: "Invalid admin token."})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	http.Redirect(w, r, reviewsURL, http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, loginURL, http.StatusSeeOther)
}

// --- Comments ---

func (s *Server) commentsPage(w http.ResponseWriter, r *http.Request) {
	user := s.pageUser(w, r)
	if user == nil {
		return
	}
	ctx := r.Context()

	commentType := textutil.SanitizeField(r.URL.Query().Get("comment_type"))
	filter := store.CommentListFilter{}
	switch models.CommentType(commentType) {
	case models.CommentTypeReview, models.CommentTypeComment:
		filter.Type = models.CommentType(commentType)
	}

	comments, err := s.store.ListComments(ctx, filter)
	if err != nil {
		s.logger.Error("list comments", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	cfg, err := settings.Load(ctx, s.store)
	if err != nil {
		s.logger.Warn("settings unreadable, using defaults", zap.Error(err))
		cfg = settings.Defaults()
	}

	titles := map[int64]string{}
	rows := make([]commentRow, 0, len(comments))
	for _, c := range comments {
		if _, ok := titles[c.ProductID]; !ok {
			titles[c.ProductID] = s.productTitle(ctx, c.ProductID)
		}
		rows = append(rows, commentRow{Comment: c, ProductTitle: titles[c.ProductID]})
	}

	title := "Comments"
	if filter.Type == models.CommentTypeReview {
		title = "Product Reviews"
	}

	s.render(w, http.StatusOK, "comments.html", commentsPage{
		Title:        title,
		LoggedIn:     true,
		Rows:         rows,
		CanReply:     true,
		ShowGenerate: commentType == string(models.CommentTypeReview),
		Replied:      r.URL.Query().Get("replied") == "1",
		ReplyNonce:   s.nonces.Create(auth.ActionQuickReply, user.ID),
		Tones:        settings.Tones(),
		DefaultTone:  cfg.Tone,
		Script: adminScript{
			AjaxURL:     "/admin/ajax",
			Action:      AjaxGenerateReply,
			Nonce:       s.nonces.Create(auth.ActionGenerateReply, user.ID),
			DefaultTone: cfg.Tone,
			Labels:      scriptLabels,
		},
	})
}

func (s *Server) productTitle(ctx context.Context, id int64) string {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil || p.Title == "" {
		return "(unknown product)"
	}
	return p.Title
}

func (s *Server) quickReply(w http.ResponseWriter, r *http.Request) {
	user := s.formUser(w, r, auth.ActionQuickReply)
	if user == nil {
		return
	}
	ctx := r.Context()

	parent, err := s.store.GetComment(ctx, absint(r.PathValue("id")))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Comment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("get comment", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	content := strings.TrimSpace(textutil.StripTags(r.PostFormValue("content")))
	if content == "" {
		http.Error(w, "Reply is empty", http.StatusBadRequest)
		return
	}

	c := &models.Comment{
		ProductID: parent.ProductID,
		ParentID:  parent.ID,
		Author:    user.ID,
		Content:   content,
		Type:      models.CommentTypeComment,
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		s.logger.Error("create reply", zap.Int64("parent_id", parent.ID), zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("reply posted", zap.Int64("parent_id", parent.ID), zap.Int64("comment_id", c.ID))
	http.Redirect(w, r, reviewsURL+"&replied=1", http.StatusSeeOther)
}

// --- Settings ---

func (s *Server) settingsPage(w http.ResponseWriter, r *http.Request) {
	user := s.pageUser(w, r)
	if user == nil {
		return
	}

	cfg, err := settings.Load(r.Context(), s.store)
	if err != nil {
		s.logger.Warn("settings unreadable, using defaults", zap.Error(err))
		cfg = settings.Defaults()
	}

	s.render(w, http.StatusOK, "settings.html", settingsPage{
		Title:        "AI Review Replies",
		LoggedIn:     true,
		Updated:      r.URL.Query().Get("updated") == "1",
		Nonce:        s.nonces.Create(auth.ActionSaveSettings, user.ID),
		DefaultModel: settings.DefaultModel,
		Tones:        settings.Tones(),
		Settings:     cfg,
	})
}

func (s *Server) saveSettings(w http.ResponseWriter, r *http.Request) {
	if s.formUser(w, r, auth.ActionSaveSettings) == nil {
		return
	}

	raw := map[string]string{}
	for _, key := range []string{"api_key", "model", "tone"} {
		if vals, ok := r.PostForm[key]; ok && len(vals) > 0 {
			raw[key] = vals[0]
		}
	}

	saved, err := settings.Save(r.Context(), s.store, raw)
	if err != nil {
		s.logger.Error("save settings", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.Info("settings saved",
		zap.String("model", saved.Model),
		zap.String("tone", string(saved.Tone)),
		zap.Bool("api_key_set", saved.APIKey != ""),
	)
	http.Redirect(w, r, settingsURL+"?updated=1", http.StatusSeeOther)
}
