// Package api exposes the synchronizer to the browser client as a JSON API.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/usagereg/usagereg/internal/auth"
	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/shared"
	"github.com/usagereg/usagereg/internal/synchronizer"
)

// ImportQueue hands an uploaded import file to the background worker.
type ImportQueue interface {
	EnqueueImport(ctx context.Context, entity catalog.Entity, filename string, data []byte) (string, error)
}

// Options configures a Handler.
type Options struct {
	Logger *slog.Logger
	Sync   *synchronizer.Synchronizer
	// Imports, when set, receives uploads instead of importing them inline.
	Imports     ImportQueue
	EmailDomain string
}

// Handler serves the entity, history, import and export endpoints.
type Handler struct {
	logger      *slog.Logger
	sync        *synchronizer.Synchronizer
	imports     ImportQueue
	emailDomain string
	validator   *validator.Validate
}

// NewHandler builds a Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		sync:        opts.Sync,
		imports:     opts.Imports,
		emailDomain: opts.EmailDomain,
		validator:   catalog.Validator(),
	}
}

// MountRoutes registers API routes. Callers authenticate the router first.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(withConfirmation)

	r.Get("/status", h.status)
	r.Get("/snapshot", h.snapshot)
	r.Get("/versions", h.versions)
	r.Post("/refresh/{entity}", h.refresh)

	r.Get("/users", h.listUsers)
	r.Get("/products", h.listProducts)
	r.Get("/products/{id}/attachment", h.openAttachment)
	r.Get("/products/{id}/qr.png", h.qrImage)
	r.Get("/qr/{code}", h.resolveQR)
	r.Get("/categories", h.listCategories)
	r.Get("/locations", h.listLocations)
	r.Get("/purposes", h.listPurposes)

	r.Get("/registrations", h.history)
	r.Post("/registrations", h.submitRegistration)
	r.Get("/stats", h.summary)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)

		r.Post("/users", h.createUser)
		r.Post("/users/accounts", h.createUserWithAccount)
		r.Put("/users/{name}", h.updateUser)
		r.Put("/users/{name}/badge", h.saveBadge)
		r.Delete("/users/{name}", h.deleteUser)

		r.Post("/products", h.createProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)
		r.Post("/products/{id}/qrcode", h.generateQR)
		r.Put("/products/{id}/attachment", h.attach)
		r.Delete("/products/{id}/attachment", h.detach)

		r.Post("/categories", h.createCategory)
		r.Put("/categories/{id}", h.updateCategory)
		r.Delete("/categories/{id}", h.deleteCategory)

		r.Post("/locations", h.createLocation)
		r.Put("/locations/{name}", h.renameLocation)
		r.Delete("/locations/{name}", h.deleteLocation)

		r.Post("/purposes", h.createPurpose)
		r.Put("/purposes/{name}", h.renamePurpose)
		r.Delete("/purposes/{name}", h.deletePurpose)

		r.Delete("/registrations/{id}", h.deleteRegistration)

		r.Post("/import/users", h.importUsers)
		r.Post("/import/products", h.importProducts)
		r.Get("/export/users.xlsx", h.exportUsers)
		r.Get("/export/users-template.xlsx", h.exportUserTemplate)
		r.Get("/export/products.csv", h.exportProducts)
		r.Get("/export/qr-labels.csv", h.exportQRLabels)
		r.Get("/export/registrations.xlsx", h.exportRegistrations)
	})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Warn("api request failed",
		slog.String("op", op),
		slog.String("path", r.URL.Path),
		slog.Any("error", err))
	if shared.IsKind(err, shared.KindCancelled) {
		if prompt := promptFrom(r.Context()); prompt != "" {
			httpx.JSON(w, http.StatusPreconditionRequired, httpx.ProblemDetail{
				Type:      string(shared.KindCancelled),
				Title:     http.StatusText(http.StatusPreconditionRequired),
				Status:    http.StatusPreconditionRequired,
				Detail:    prompt,
				DismissMS: shared.KindCancelled.Dismiss().Milliseconds(),
			})
			return
		}
	}
	httpx.RespondError(w, err)
}

// pathName returns a decoded name path parameter.
func pathName(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// saved answers a mutation. An update that changed nothing reports so
// instead of the success banner.
func saved(w http.ResponseWriter, changed bool, message string) {
	if !changed {
		httpx.Success(w, http.StatusOK, "Geen wijzigingen", nil)
		return
	}
	httpx.Success(w, http.StatusOK, message, nil)
}
