package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tablebook/middleware"
	"tablebook/store"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter() *httprouter.Router {
	h := NewHandler(store.NewMemory(1), time.Hour, time.Second)
	router := httprouter.New()
	router.POST("/api/auth/register", h.Register)
	router.POST("/api/auth/login", h.Login)
	router.GET("/api/auth/me", middleware.Authenticate(h.Me))
	return router
}

func send(router http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestRegisterLoginMe(t *testing.T) {
	router := newRouter()

	rr := send(router, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"correct-horse","email":"a@example.com"}`, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = send(router, http.MethodPost, "/api/auth/register", `{"username":"alice","password":"another-pass"}`, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = send(router, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"wrong-password"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = send(router, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"correct-horse"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var login struct {
		Token  string `json:"token"`
		UserID string `json:"userid"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	rr = send(router, http.MethodGet, "/api/auth/me", "", login.Token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)
	assert.Contains(t, rr.Body.String(), login.UserID)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestRegisterValidation(t *testing.T) {
	router := newRouter()

	for _, body := range []string{
		`{"username":"al","password":"correct-horse"}`,
		`{"username":"alice","password":"short"}`,
		`{"username":"alice bob","password":"correct-horse"}`,
		`{"username":"alice","password":"correct-horse","email":"nope"}`,
		`{"username":`,
	} {
		rr := send(router, http.MethodPost, "/api/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	rr := send(newRouter(), http.MethodPost, "/api/auth/login", `{"username":"ghost","password":"whatever1"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
