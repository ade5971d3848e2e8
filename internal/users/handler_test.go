package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heksidee/blogAppPipeline/internal/telemetry/metrics"
	"github.com/heksidee/blogAppPipeline/pkg"
)

func newHandlerTestDeps(t *testing.T) (*mux.Router, *RepoMock) {
	t.Helper()

	repo := NewRepoMock()
	router := mux.NewRouter()

	handler := NewHandler(repo, metrics.NewTestManager())
	handler.SetupRoutes(router)

	return router, repo
}

func doRequest(router *mux.Router, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestSetupRoutes(t *testing.T) {
	router, _ := newHandlerTestDeps(t)

	for _, routeName := range []string{"register-user", "list-users"} {
		route := router.Get(routeName)
		require.NotNil(t, route, "route %s not found", routeName)
		routePath, err := route.GetPathTemplate()
		require.NoError(t, err)
		assert.Equal(t, "/api/users", routePath)
	}
}

func TestHandleRegister(t *testing.T) {
	router, repo := newHandlerTestDeps(t)

	t.Run("invalid json", func(t *testing.T) {
		rr := doRequest(router, "POST", "/api/users", `{invalid`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("short username", func(t *testing.T) {
		rr := doRequest(router, "POST", "/api/users", `{"username":"hd","name":"H","password":"sekred"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "username must be at least 3 characters long")
	})

	t.Run("short password", func(t *testing.T) {
		rr := doRequest(router, "POST", "/api/users", `{"username":"hdee","name":"H","password":"pw"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "password must be at least 3 characters long")
	})

	t.Run("registered", func(t *testing.T) {
		rr := doRequest(router, "POST", "/api/users", `{"username":"hdee","name":"Heksi Dee","password":"sekred"}`)
		require.Equal(t, http.StatusCreated, rr.Code)

		var created User
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "hdee", created.Username)
		assert.Equal(t, "Heksi Dee", created.Name)
		assert.Equal(t, []string{}, created.BlogIDs)

		// the hash never leaves the server
		assert.NotContains(t, rr.Body.String(), "sekred")
		assert.NotContains(t, rr.Body.String(), "password")

		stored, err := repo.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.True(t, pkg.CheckPasswordHash("sekred", stored.PasswordHash))
	})

	t.Run("duplicate username", func(t *testing.T) {
		rr := doRequest(router, "POST", "/api/users", `{"username":"hdee","name":"Someone Else","password":"sekred2"}`)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "username must be unique")
		assert.Equal(t, 1, repo.UsersCount())
	})
}

func TestHandleList(t *testing.T) {
	router, repo := newHandlerTestDeps(t)

	t.Run("empty", func(t *testing.T) {
		rr := doRequest(router, "GET", "/api/users", "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "[]", rr.Body.String())
	})

	t.Run("all users", func(t *testing.T) {
		require.NoError(t, repo.Create(context.Background(), &User{
			Username:     "ada",
			Name:         "Ada L",
			PasswordHash: "hash1",
			BlogIDs:      []string{"b1", "b2"},
		}))
		require.NoError(t, repo.Create(context.Background(), &User{
			Username:     "brian",
			Name:         "Brian K",
			PasswordHash: "hash2",
		}))

		rr := doRequest(router, "GET", "/api/users", "")
		require.Equal(t, http.StatusOK, rr.Code)

		var all []*User
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &all))
		require.Len(t, all, 2)
		assert.Equal(t, "ada", all[0].Username)
		assert.Equal(t, []string{"b1", "b2"}, all[0].BlogIDs)
		assert.Equal(t, "brian", all[1].Username)

		assert.NotContains(t, rr.Body.String(), "hash1")
	})
}
