package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: catalog.Validator(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/badge", h.handleBadge)
	r.With(h.Authenticate).Get("/session", h.handleSession)
	r.With(h.Authenticate).Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type badgeForm struct {
	BadgeID string `json:"badgeId" validate:"required"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	form.Email = strings.TrimSpace(form.Email)
	if err := h.validator.Struct(form); err != nil {
		httpx.JSON(w, http.StatusBadRequest, loginProblem("Voer je email adres en wachtwoord in"))
		return
	}
	sess, err := h.service.SignIn(r.Context(), form.Email, form.Password)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleBadge(w http.ResponseWriter, r *http.Request) {
	var form badgeForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	form.BadgeID = strings.TrimSpace(form.BadgeID)
	if err := h.validator.Struct(form); err != nil {
		httpx.JSON(w, http.StatusBadRequest, loginProblem("Voer je badge ID in"))
		return
	}
	sess, err := h.service.SignInWithBadge(r.Context(), form.BadgeID)
	if err != nil {
		h.respondAuthError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleSession(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	if err := h.service.SignOut(r.Context(), sess.Token); err != nil {
		h.logger.Warn("sign out", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondAuthError(w http.ResponseWriter, err error) {
	if shared.IsKind(err, shared.KindUnauthorized) {
		httpx.JSON(w, http.StatusUnauthorized, httpx.ProblemDetail{
			Type:      string(shared.KindUnauthorized),
			Title:     http.StatusText(http.StatusUnauthorized),
			Status:    http.StatusUnauthorized,
			Detail:    "Inloggen mislukt",
			DismissMS: shared.KindUnauthorized.Dismiss().Milliseconds(),
		})
		return
	}
	httpx.RespondError(w, err)
}

func loginProblem(detail string) httpx.ProblemDetail {
	return httpx.ProblemDetail{
		Type:      string(shared.KindValidation),
		Title:     http.StatusText(http.StatusBadRequest),
		Status:    http.StatusBadRequest,
		Detail:    detail,
		DismissMS: shared.KindValidation.Dismiss().Milliseconds(),
	}
}
