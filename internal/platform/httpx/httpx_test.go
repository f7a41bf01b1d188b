package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagereg/usagereg/internal/shared"
)

func TestRespondErrorMapsKinds(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		dismiss int64
	}{
		{shared.E(shared.KindValidation, "create", "users", shared.ErrRequiredField), http.StatusBadRequest, 3000},
		{shared.E(shared.KindRemoteWrite, "create", "users", errors.New("boom")), http.StatusBadGateway, 5000},
		{shared.E(shared.KindFileParse, "parse", "import", errors.New("bad")), http.StatusBadRequest, 5000},
		{shared.ErrNotFound, http.StatusNotFound, 3000},
		{shared.ErrNotConfigured, http.StatusServiceUnavailable, 3000},
		{shared.ErrCancelled, http.StatusPreconditionRequired, 3000},
		{errors.New("unexpected"), http.StatusInternalServerError, 3000},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())

		var body ProblemDetail
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, tc.dismiss, body.DismissMS, tc.err.Error())
	}
}

func TestRespondErrorHidesInternalCause(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.E(shared.KindRemoteWrite, "create", "users", errors.New("password=hunter2")))
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Contains(t, rec.Body.String(), "Fout bij opslaan")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	err := DecodeJSON(req, &target)
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "a", target.Name)
}

func TestSuccessCarriesDismissInterval(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "Opgeslagen", map[string]string{"id": "1"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var body Message
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, int64(2000), body.DismissMS)
	assert.Equal(t, "Opgeslagen", body.Message)
}
