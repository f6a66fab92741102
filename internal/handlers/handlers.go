package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"expense-tracker/internal/auth"
	applog "expense-tracker/internal/log"
	"expense-tracker/internal/models"
	"expense-tracker/internal/service"
)

// Context key type to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"
	// SessionCookieName is the name of the session cookie.
	SessionCookieName = "session"
	// FlashCookieName holds a one-shot message shown on the next page.
	FlashCookieName = "flash"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	auth         *service.AuthService
	expenses     *service.ExpenseService
	templates    fs.FS
	secureCookie bool
	logger       *applog.Logger
}

// NewHandlers creates a new Handlers instance. Templates are read from the
// root of templates.
func NewHandlers(authSvc *service.AuthService, expenseSvc *service.ExpenseService, templates fs.FS, secureCookie bool, logger *applog.Logger) *Handlers {
	if logger == nil {
		logger = applog.Discard()
	}
	return &Handlers{
		auth:         authSvc,
		expenses:     expenseSvc,
		templates:    templates,
		secureCookie: secureCookie,
		logger:       logger.WithComponent(applog.ComponentHTTP),
	}
}

// GetUserFromContext retrieves the authenticated user from request context.
func GetUserFromContext(r *http.Request) *models.User {
	if user, ok := r.Context().Value(UserContextKey).(*models.User); ok {
		return user
	}
	return nil
}

// RequireSession wraps handlers to require an authenticated session.
// It also implements rolling sessions: if a session is past the halfway point
// of its lifetime, it automatically renews the session.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			h.redirectToLogin(w, r)
			return
		}

		user, info, err := h.auth.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) {
				h.log(r).ErrorContext(r.Context(), "Session lookup failed", "error", err)
			}
			h.clearSessionCookie(w)
			h.redirectToLogin(w, r)
			return
		}

		expiresAt, renewed, err := h.auth.RenewIfStale(r.Context(), info)
		if err != nil {
			// If renewal fails, just continue with the current session
			h.log(r).WarnContext(r.Context(), "Session renewal failed", "user_id", user.ID, "error", err)
		} else if renewed {
			h.setSessionCookie(w, cookie.Value, expiresAt)
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// SecurityHeaders sets conservative browser security headers on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func (h *Handlers) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	h.setFlash(w, FlashDanger, "Please log in to access this page")
	http.Redirect(w, r, "/login", http.StatusFound)
}

// currentUser returns the user bound to the request's session, if any.
// Used on public pages that change when a user is logged in.
func (h *Handlers) currentUser(r *http.Request) *models.User {
	if u := GetUserFromContext(r); u != nil {
		return u
	}
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	u, _, err := h.auth.ResolveSession(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return u
}

func (h *Handlers) setSessionCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handlers) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// Flash categories, used as CSS classes.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// Flash is a message carried to the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func (h *Handlers) setFlash(w http.ResponseWriter, category, message string) {
	value := base64.RawURLEncoding.EncodeToString([]byte(category + "\n" + message))
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash reads the pending flash message and clears it.
func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(FlashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(cookie.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(string(raw), "\n")
	if !ok {
		return nil
	}
	return &Flash{Category: category, Message: message}
}

// PageData is embedded in every view model.
type PageData struct {
	Title   string
	User    *models.User
	Flash   *Flash
	Error   string
	Success string
}

func (p *PageData) page() *PageData { return p }

type viewModel interface {
	page() *PageData
}

var templateFuncs = template.FuncMap{
	"money":   formatMoney,
	"percent": formatPercent,
	"date":    func(t time.Time) string { return t.Format("2006-01-02") },
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, viewName string, data viewModel) {
	h.renderStatus(w, r, http.StatusOK, viewName, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, viewName string, data viewModel) {
	p := data.page()
	if p.User == nil {
		p.User = h.currentUser(r)
	}
	if p.Flash == nil {
		p.Flash = h.popFlash(w, r)
	}

	tmpl, err := template.New("base.html").Funcs(templateFuncs).ParseFS(h.templates, "base.html", viewName)
	if err != nil {
		h.log(r).ErrorContext(r.Context(), "Template error", "view", viewName, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		h.log(r).ErrorContext(r.Context(), "Template execution error", "view", viewName, "error", err)
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log(r).ErrorContext(r.Context(), msg, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

// log returns the request-scoped logger set by the logging middleware.
func (h *Handlers) log(r *http.Request) *applog.Logger {
	if l := applog.FromContext(r.Context()); l.Component() != "unknown" {
		return l
	}
	return h.logger
}
