package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagereg/usagereg/internal/api"
	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/platform/httpx"
	"github.com/usagereg/usagereg/internal/remote/memstore"
	"github.com/usagereg/usagereg/internal/shared"
	"github.com/usagereg/usagereg/internal/synchronizer"
	_ "github.com/usagereg/usagereg/internal/testing/guard"
)

var (
	admin = shared.Actor{Name: "Jan Janssen", Email: "jan@example.com", Level: "admin"}
	user  = shared.Actor{Name: "Marie Peeters", Email: "marie@example.com", Level: "user"}
)

type fakeQueue struct {
	entity   catalog.Entity
	filename string
}

func (q *fakeQueue) EnqueueImport(_ context.Context, entity catalog.Entity, filename string, _ []byte) (string, error) {
	q.entity = entity
	q.filename = filename
	return "job-1", nil
}

type env struct {
	store *memstore.Store
	sync  *synchronizer.Synchronizer
	opts  api.Options
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memstore.NewSeeded(catalog.DefaultSeed())
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := synchronizer.New(synchronizer.Options{
		Store:   store,
		Seed:    catalog.DefaultSeed(),
		Confirm: synchronizer.ConfirmFunc(api.Confirm),
		Logger:  logger,
	})
	t.Cleanup(func() { _ = s.Close() })
	state, err := s.Start(context.Background())
	require.NoError(t, err)
	require.Equal(t, synchronizer.StateConnected, state)
	return &env{store: store, sync: s, opts: api.Options{Logger: logger, Sync: s, EmailDomain: "example.com"}}
}

func (e *env) router(actor shared.Actor) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
		})
	})
	r.Route("/api", api.NewHandler(e.opts).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func uploadFile(t *testing.T, h http.Handler, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestDeleteAsksForConfirmationFirst(t *testing.T) {
	e := newEnv(t)
	h := e.router(admin)

	rr := do(t, h, http.MethodDelete, "/api/locations/Kantoor%201.1", nil)
	require.Equal(t, http.StatusPreconditionRequired, rr.Code)
	problem := decode[httpx.ProblemDetail](t, rr)
	assert.Equal(t, "Weet je zeker dat je Kantoor 1.1 wilt verwijderen?", problem.Detail)
	assert.Contains(t, e.sync.Locations(), catalog.Location("Kantoor 1.1"))
	assert.Zero(t, e.store.Calls("delete", catalog.EntityLocations))

	rr = do(t, h, http.MethodDelete, "/api/locations/Kantoor%201.1?confirm=true", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, e.sync.Locations(), catalog.Location("Kantoor 1.1"))
	msg := decode[httpx.Message](t, rr)
	assert.Equal(t, int64(2000), msg.DismissMS)
}

func TestManagementRoutesRequireAdmin(t *testing.T) {
	e := newEnv(t)
	rr := do(t, e.router(user), http.MethodPost, "/api/products", catalog.Product{Name: "Nieuw"})
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Zero(t, e.store.Calls("create", catalog.EntityProducts))

	rr = do(t, e.router(user), http.MethodGet, "/api/products", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCreateProductReturnsStoredRecord(t *testing.T) {
	e := newEnv(t)
	rr := do(t, e.router(admin), http.MethodPost, "/api/products", map[string]string{"name": "Interflon Fin Grease", "categoryId": "1"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var body struct {
		Data catalog.Product `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Data.ID)
	_, ok := e.sync.FindProduct(body.Data.ID)
	assert.True(t, ok)
}

func TestDuplicateUserIsRejectedLocally(t *testing.T) {
	e := newEnv(t)
	rr := do(t, e.router(admin), http.MethodPost, "/api/users", catalog.User{Name: "Jan Janssen", Role: catalog.RoleUser})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	problem := decode[httpx.ProblemDetail](t, rr)
	assert.Equal(t, string(shared.KindValidation), problem.Type)
	assert.Contains(t, problem.Detail, shared.ErrDuplicate.Error())
	assert.Zero(t, e.store.Calls("create", catalog.EntityUsers))
}

func TestUnknownFieldsAreRejected(t *testing.T) {
	e := newEnv(t)
	rr := do(t, e.router(admin), http.MethodPost, "/api/categories", map[string]string{"name": "X", "colour": "red"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateWithoutChangesReportsIt(t *testing.T) {
	e := newEnv(t)
	rr := do(t, e.router(admin), http.MethodPut, "/api/categories/1", catalog.Category{Name: "Smeermiddelen"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Geen wijzigingen", decode[httpx.Message](t, rr).Message)
	assert.Zero(t, e.store.Calls("update", catalog.EntityCategories))
}

func TestRegistrationIsRecordedForSignedInUser(t *testing.T) {
	e := newEnv(t)
	rr := do(t, e.router(user), http.MethodPost, "/api/registrations", map[string]string{
		"user":     "Jan Janssen",
		"product":  "Interflon Fin Super",
		"location": "Kantoor 1.1",
		"purpose":  "Training",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var found bool
	for _, reg := range e.sync.Registrations() {
		if reg.Product == "Interflon Fin Super" {
			found = true
			assert.Equal(t, "Marie Peeters", reg.User)
			assert.Equal(t, "IFMK006", reg.QRCode)
		}
	}
	assert.True(t, found)
}

func TestHistoryAndStatsFilters(t *testing.T) {
	e := newEnv(t)
	h := e.router(user)

	rr := do(t, h, http.MethodGet, "/api/registrations?user=An%20Wouters", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	regs := decode[[]catalog.Registration](t, rr)
	require.Len(t, regs, 1)
	assert.Equal(t, "2", regs[0].ID)

	rr = do(t, h, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var summary struct {
		Total    int `json:"total"`
		Products []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"topProducts"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Total)
	require.Len(t, summary.Products, 1)
	assert.Equal(t, 2, summary.Products[0].Count)
}

func TestHistoryPages(t *testing.T) {
	e := newEnv(t)
	h := e.router(user)

	rr := do(t, h, http.MethodGet, "/api/registrations?page=2&perPage=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]catalog.Registration](t, rr), 1)
	assert.Equal(t, "2", rr.Header().Get("X-Total-Count"))
	assert.Equal(t, "2", rr.Header().Get("X-Total-Pages"))

	rr = do(t, h, http.MethodGet, "/api/registrations?page=5&perPage=1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]catalog.Registration](t, rr))
}

func TestResolveQR(t *testing.T) {
	e := newEnv(t)
	h := e.router(user)

	rr := do(t, h, http.MethodGet, "/api/qr/ifmk006", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "6", decode[catalog.Product](t, rr).ID)

	rr = do(t, h, http.MethodGet, "/api/qr/NOPE001", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/products/6/qr.png?size=64", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
}

func TestImportProductsReportsRows(t *testing.T) {
	e := newEnv(t)
	csv := "Productnaam,Categorie\nInterflon Chain Oil,Kettingen\n,Reinigers\nInterflon Fin Super,Onderhoud\n"
	rr := uploadFile(t, e.router(admin), "/api/import/products", "producten.csv", []byte(csv))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Message string `json:"message"`
		Data    struct {
			Created    int `json:"created"`
			Skipped    int `json:"skipped"`
			ErrorCount int `json:"errorCount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Data.Created)
	assert.Equal(t, 1, body.Data.Skipped)
	assert.Equal(t, 1, body.Data.ErrorCount)
	assert.Equal(t, "1 producten geïmporteerd, 1 fouten", body.Message)

	var names []string
	for _, c := range e.sync.Categories() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "Kettingen")
}

func TestImportRejectsBrokenFile(t *testing.T) {
	e := newEnv(t)
	rr := uploadFile(t, e.router(admin), "/api/import/products", "producten.csv", []byte("Naam,Iets\nA,B\n"))
	require.Equal(t, http.StatusBadRequest, rr.Code)
	problem := decode[httpx.ProblemDetail](t, rr)
	assert.Equal(t, string(shared.KindFileParse), problem.Type)
	assert.Equal(t, int64(5000), problem.DismissMS)
}

func TestImportIsQueuedWhenWorkerConfigured(t *testing.T) {
	e := newEnv(t)
	queue := &fakeQueue{}
	e.opts.Imports = queue
	csv := "Productnaam,Categorie\nInterflon Chain Oil,Kettingen\n"
	rr := uploadFile(t, e.router(admin), "/api/import/products", "producten.csv", []byte(csv))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, catalog.EntityProducts, queue.entity)
	assert.Equal(t, "producten.csv", queue.filename)
	assert.Zero(t, e.store.Calls("create", catalog.EntityProducts))
}

func TestExports(t *testing.T) {
	e := newEnv(t)
	h := e.router(admin)
	for path, contentType := range map[string]string{
		"/api/export/users.xlsx":          "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"/api/export/users-template.xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"/api/export/products.csv":        "text/csv; charset=utf-8",
		"/api/export/qr-labels.csv":       "text/csv; charset=utf-8",
		"/api/export/registrations.xlsx":  "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	} {
		rr := do(t, h, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Equal(t, contentType, rr.Header().Get("Content-Type"), path)
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment", path)
		assert.NotEmpty(t, rr.Body.Bytes(), path)
	}
}

func TestStatusAndRefresh(t *testing.T) {
	e := newEnv(t)
	h := e.router(user)

	rr := do(t, h, http.MethodGet, "/api/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var status struct {
		State         string `json:"state"`
		Subscriptions int    `json:"subscriptions"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, "connected", status.State)
	assert.Equal(t, 6, status.Subscriptions)

	before := e.sync.Versions()[catalog.EntityProducts]
	rr = do(t, h, http.MethodPost, "/api/refresh/products", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Greater(t, e.sync.Versions()[catalog.EntityProducts], before)

	rr = do(t, h, http.MethodPost, "/api/refresh/widgets", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWriteFailureMapsToBadGateway(t *testing.T) {
	e := newEnv(t)
	e.store.FailOn("create", catalog.EntityPurposes, shared.E(shared.KindRemoteWrite, "create", "purposes", assert.AnError))
	rr := do(t, e.router(admin), http.MethodPost, "/api/purposes", map[string]string{"name": "Audit"})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	problem := decode[httpx.ProblemDetail](t, rr)
	assert.Equal(t, "Fout bij opslaan", problem.Detail)
	assert.NotContains(t, e.sync.Purposes(), catalog.Purpose("Audit"))
}
