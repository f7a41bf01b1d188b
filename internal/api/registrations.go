package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/shared"
	"github.com/usagereg/usagereg/internal/stats"
	"github.com/usagereg/usagereg/internal/synchronizer"
)

func historyFilter(r *http.Request) stats.HistoryFilter {
	q := r.URL.Query()
	return stats.HistoryFilter{
		Search:   q.Get("search"),
		User:     q.Get("user"),
		Location: q.Get("location"),
		From:     q.Get("from"),
		To:       q.Get("to"),
		SortBy:   stats.SortField(q.Get("sortBy")),
		Order:    stats.SortOrder(q.Get("order")),
	}
}

// history lists filtered registrations. With a page parameter only that page
// is returned; the totals travel in headers either way.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	regs := stats.History(h.sync.Registrations(), historyFilter(r))
	q := r.URL.Query()
	page := shared.ParsePagination(q.Get("page"), q.Get("perPage"), len(regs))
	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	if q.Has("page") {
		start, end := page.Bounds()
		regs = regs[start:end]
		w.Header().Set("X-Total-Pages", strconv.Itoa(page.TotalPages))
	}
	httpx.JSON(w, http.StatusOK, regs)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	regs := stats.History(h.sync.Registrations(), historyFilter(r))
	httpx.JSON(w, http.StatusOK, stats.Summarize(regs))
}

// submitRegistration records usage for the signed-in user. Admins may
// register on behalf of someone else.
func (h *Handler) submitRegistration(w http.ResponseWriter, r *http.Request) {
	var in synchronizer.RegistrationInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.fail(w, r, "register", err)
		return
	}
	if actor, ok := shared.ActorFromContext(r.Context()); ok && (in.User == "" || !actor.IsAdmin()) {
		in.User = actor.Name
	}
	reg, err := h.sync.SubmitRegistration(r.Context(), in)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Registratie opgeslagen", reg)
}

func (h *Handler) deleteRegistration(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeleteRegistration(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete registration", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Registratie verwijderd", nil)
}
