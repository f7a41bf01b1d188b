package report

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
)

// ProductSource supplies the products to print.
type ProductSource interface {
	Products() []catalog.Product
}

// Handler manages report endpoints.
type Handler struct {
	client   *Client
	products ProductSource
	logger   *slog.Logger
}

// NewHandler creates a report handler.
func NewHandler(client *Client, products ProductSource, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, products: products, logger: logger}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	r.Get("/labels.pdf", h.labels)
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// labels prints every product with a QR code, or only the ids listed in the
// comma separated ids query parameter.
func (h *Handler) labels(w http.ResponseWriter, r *http.Request) {
	products := h.products.Products()
	if raw := r.URL.Query().Get("ids"); raw != "" {
		wanted := make(map[string]bool)
		for _, id := range strings.Split(raw, ",") {
			wanted[strings.TrimSpace(id)] = true
		}
		filtered := products[:0]
		for _, p := range products {
			if wanted[p.ID] {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	pdf, err := h.client.RenderLabels(r.Context(), products)
	if err != nil {
		h.logger.Error("render labels pdf", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=qr-labels.pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
