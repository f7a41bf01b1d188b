package api

import (
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/shared"
	"github.com/usagereg/usagereg/internal/synchronizer"
)

type statusView struct {
	State         synchronizer.State `json:"state"`
	Reason        string             `json:"reason,omitempty"`
	Subscriptions int                `json:"subscriptions"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	out := statusView{State: h.sync.State(), Subscriptions: h.sync.Subscriptions()}
	if reason := h.sync.DegradedReason(); reason != nil {
		out.Reason = shared.UserSafeMessage(reason)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.sync.Snapshot())
}

func (h *Handler) versions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.sync.Versions())
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	entity := catalog.Entity(chi.URLParam(r, "entity"))
	if !slices.Contains(catalog.Entities, entity) {
		h.fail(w, r, "refresh", shared.E(shared.KindNotFound, "refresh", string(entity), errors.New("onbekende collectie")))
		return
	}
	if err := h.sync.Refresh(r.Context(), entity); err != nil {
		h.fail(w, r, "refresh", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Gegevens vernieuwd", h.sync.Versions())
}
