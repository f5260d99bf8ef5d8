package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/agrotrace/agrotrace/internal/shared"
	"github.com/agrotrace/agrotrace/internal/upstream"
)

// Authenticator delegates credential checks to the produce API.
type Authenticator interface {
	Login(ctx context.Context, creds upstream.Credentials) (upstream.User, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	upstream       Authenticator
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
	onLogout       func(sessionID string)
}

// NewHandler constructs a Handler instance. onLogout tears down per-session
// resources (the session's dashboard) and may be nil.
func NewHandler(logger *slog.Logger, up Authenticator, sessions *shared.SessionManager, csrf *shared.CSRFManager, onLogout func(sessionID string)) *Handler {
	return &Handler{
		logger:         logger,
		upstream:       up,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
		onLogout:       onLogout,
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	Database string `json:"database" validate:"required"`
}

type loginResponse struct {
	User      upstream.User `json:"user"`
	Tenant    string        `json:"tenant"`
	CSRFToken string        `json:"csrfToken"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		http.Error(w, "username, password and database are required", http.StatusBadRequest)
		return
	}

	user, err := h.upstream.Login(r.Context(), upstream.Credentials{
		Username: req.Username,
		Password: req.Password,
		Database: req.Database,
	})
	if err != nil {
		h.logger.Warn("login rejected", slog.String("username", req.Username), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	sess.SetUser(strconv.FormatInt(user.ID, 10))
	sess.SetTenant(req.Database)
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{User: user, Tenant: req.Database, CSRFToken: csrfToken})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if h.onLogout != nil {
			h.onLogout(sess.ID)
		}
		h.sessionManager.Destroy(sess)
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
