package utils

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tablebook/globals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithErrorUsesMessageKey(t *testing.T) {
	rr := httptest.NewRecorder()
	RespondWithError(rr, http.StatusNotFound, "Restaurant not found")

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "Restaurant not found", body["message"])
}

func TestParseQueryOptions(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=500", nil)
	opts := ParseQueryOptions(req)
	assert.Equal(t, 3, opts.Page)
	assert.Equal(t, 100, opts.Limit)
	assert.Equal(t, 200, opts.Skip())

	req = httptest.NewRequest(http.MethodGet, "/?page=-1&limit=abc", nil)
	opts = ParseQueryOptions(req)
	assert.Equal(t, 1, opts.Page)
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 0, opts.Skip())
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?minSeats=4&bad=x&neg=-2", nil)
	assert.Equal(t, 4, QueryInt(req, "minSeats", 0))
	assert.Equal(t, 7, QueryInt(req, "bad", 7))
	assert.Equal(t, 7, QueryInt(req, "neg", 7))
	assert.Equal(t, 0, QueryInt(req, "missing", 0))
}

func TestDecodeJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, DecodeJSON(rr, req, &v))
	assert.Equal(t, "x", v.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.ErrorIs(t, DecodeJSON(rr, req, &v), ErrEmptyBody)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	assert.Error(t, DecodeJSON(rr, req, &v))
}

func TestGetUserIDFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", GetUserIDFromRequest(req))

	ctx := context.WithValue(req.Context(), globals.UserIDKey, "u1")
	assert.Equal(t, "u1", GetUserIDFromRequest(req.WithContext(ctx)))
}
