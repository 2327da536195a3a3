package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grand-nerud/backoffice/internal/shared"
)

func TestRespondErrorMapsTaxonomy(t *testing.T) {
	cases := []struct {
		err    error
		status int
		detail string
	}{
		{shared.NewError(shared.ErrUnauthorized, "token is absent"), http.StatusUnauthorized, "token is absent"},
		{fmt.Errorf("%w: inn 123 already exists", shared.ErrConflict), http.StatusConflict, "conflict: inn 123 already exists"},
		{shared.NewError(shared.ErrNotFound, "company not found"), http.StatusNotFound, "company not found"},
		{shared.NewError(shared.ErrValidation, "bad id"), http.StatusBadRequest, "bad id"},
		{shared.NewError(shared.ErrUpstream, "registry unavailable"), http.StatusBadGateway, "registry unavailable"},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		RespondError(rr, nil, tc.err)
		assert.Equal(t, tc.status, rr.Code)

		var body ProblemDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, tc.status, body.Status)
		assert.Equal(t, tc.detail, body.Detail)
	}
}

func TestListParamsDefaults(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/companies", nil)
	params, err := ListParams(req)
	require.NoError(t, err)
	assert.Equal(t, 0, params.Skip)
	assert.Equal(t, shared.DefaultPageSize, params.Limit)
	assert.False(t, params.IncludeDeleted)
}

func TestListParamsClampsAndParses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/deals?skip=20&limit=10000&sort=-createdAt&include_deleted=true", nil)
	params, err := ListParams(req)
	require.NoError(t, err)
	assert.Equal(t, 20, params.Skip)
	assert.Equal(t, shared.MaxPageSize, params.Limit)
	assert.True(t, params.IncludeDeleted)

	keys, err := params.SortKeys()
	require.NoError(t, err)
	assert.Equal(t, []shared.SortKey{{Field: "createdAt", Desc: true}}, keys)
}

func TestListParamsRejectsGarbage(t *testing.T) {
	for _, query := range []string{"skip=-1", "limit=abc", "include_deleted=maybe", "sort=$where"} {
		req := httptest.NewRequest(http.MethodGet, "/x?"+query, nil)
		_, err := ListParams(req)
		assert.ErrorIs(t, err, shared.ErrValidation, query)
	}
}

type bindTarget struct {
	Name string `json:"name" validate:"required"`
	Ref  string `json:"ref" validate:"omitempty,objectid"`
}

func TestBindValidates(t *testing.T) {
	v := NewValidator()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Acme","ref":"65a1b2c3d4e5f60718293a4b"}`))
	var ok bindTarget
	require.NoError(t, Bind(req, v, &ok))
	assert.Equal(t, "Acme", ok.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"ref":"nope"}`))
	var bad bindTarget
	err := Bind(req, v, &bad)
	require.ErrorIs(t, err, shared.ErrValidation)
	assert.Contains(t, err.Error(), "name")
	assert.Contains(t, err.Error(), "ref")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	var unknown bindTarget
	assert.ErrorIs(t, Bind(req, v, &unknown), shared.ErrValidation)
}
