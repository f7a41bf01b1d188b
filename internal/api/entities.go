package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/stats"
	"github.com/usagereg/usagereg/internal/synchronizer"
)

type productView struct {
	catalog.Product
	CategoryName string `json:"categoryName"`
}

type nameBody struct {
	Name string `json:"name"`
}

type badgeBody struct {
	BadgeCode string `json:"badgeCode"`
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, stats.Users(h.sync.Users(), r.URL.Query().Get("q")))
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var u catalog.User
	if err := httpx.DecodeJSON(r, &u); err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	if u.Role == "" {
		u.Role = catalog.RoleUser
	}
	if err := h.sync.CreateUser(r.Context(), u); err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Gebruiker toegevoegd", nil)
}

func (h *Handler) createUserWithAccount(w http.ResponseWriter, r *http.Request) {
	var acc synchronizer.NewAccount
	if err := httpx.DecodeJSON(r, &acc); err != nil {
		h.fail(w, r, "create account", err)
		return
	}
	if err := h.sync.AddUserWithAccount(r.Context(), acc); err != nil {
		h.fail(w, r, "create account", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Gebruiker en account aangemaakt", nil)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	var u catalog.User
	if err := httpx.DecodeJSON(r, &u); err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	changed, err := h.sync.UpdateUser(r.Context(), pathName(r, "name"), u)
	if err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	saved(w, changed, "Gebruiker bijgewerkt")
}

func (h *Handler) saveBadge(w http.ResponseWriter, r *http.Request) {
	var body badgeBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, "save badge", err)
		return
	}
	if err := h.sync.SaveBadge(r.Context(), pathName(r, "name"), body.BadgeCode); err != nil {
		h.fail(w, r, "save badge", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Badge opgeslagen", nil)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeleteUser(r.Context(), pathName(r, "name")); err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Gebruiker verwijderd", nil)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := stats.Products(h.sync.Products(), q.Get("category"), q.Get("q"))
	categories := h.sync.Categories()
	out := make([]productView, 0, len(products))
	for _, p := range products {
		out = append(out, productView{Product: p, CategoryName: stats.CategoryName(categories, p.CategoryID)})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	created, err := h.sync.CreateProduct(r.Context(), p)
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Product toegevoegd", created)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := httpx.DecodeJSON(r, &p); err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	changed, err := h.sync.UpdateProduct(r.Context(), chi.URLParam(r, "id"), p)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	saved(w, changed, "Product bijgewerkt")
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Product verwijderd", nil)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.sync.Categories())
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := httpx.DecodeJSON(r, &c); err != nil {
		h.fail(w, r, "create category", err)
		return
	}
	created, err := h.sync.CreateCategory(r.Context(), c)
	if err != nil {
		h.fail(w, r, "create category", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Categorie toegevoegd", created)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var c catalog.Category
	if err := httpx.DecodeJSON(r, &c); err != nil {
		h.fail(w, r, "update category", err)
		return
	}
	changed, err := h.sync.UpdateCategory(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		h.fail(w, r, "update category", err)
		return
	}
	saved(w, changed, "Categorie bijgewerkt")
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "delete category", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Categorie verwijderd", nil)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.sync.Locations())
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, "create location", err)
		return
	}
	if err := h.sync.CreateLocation(r.Context(), body.Name); err != nil {
		h.fail(w, r, "create location", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Locatie toegevoegd", nil)
}

func (h *Handler) renameLocation(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, "rename location", err)
		return
	}
	changed, err := h.sync.RenameLocation(r.Context(), pathName(r, "name"), body.Name)
	if err != nil {
		h.fail(w, r, "rename location", err)
		return
	}
	saved(w, changed, "Locatie bijgewerkt")
}

func (h *Handler) deleteLocation(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeleteLocation(r.Context(), pathName(r, "name")); err != nil {
		h.fail(w, r, "delete location", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Locatie verwijderd", nil)
}

func (h *Handler) listPurposes(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.sync.Purposes())
}

func (h *Handler) createPurpose(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, "create purpose", err)
		return
	}
	if err := h.sync.CreatePurpose(r.Context(), body.Name); err != nil {
		h.fail(w, r, "create purpose", err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Doel toegevoegd", nil)
}

func (h *Handler) renamePurpose(w http.ResponseWriter, r *http.Request) {
	var body nameBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		h.fail(w, r, "rename purpose", err)
		return
	}
	changed, err := h.sync.RenamePurpose(r.Context(), pathName(r, "name"), body.Name)
	if err != nil {
		h.fail(w, r, "rename purpose", err)
		return
	}
	saved(w, changed, "Doel bijgewerkt")
}

func (h *Handler) deletePurpose(w http.ResponseWriter, r *http.Request) {
	if err := h.sync.DeletePurpose(r.Context(), pathName(r, "name")); err != nil {
		h.fail(w, r, "delete purpose", err)
		return
	}
	httpx.Success(w, http.StatusOK, "Doel verwijderd", nil)
}
