package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/apiroute/routing-engine/internal/state"
)

func stateRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	g := gin.New()
	client := state.NewClient(state.NewMemoryManager())
	RegisterStateRoutes(g, client)
	return g
}

func doJSON(t *testing.T, g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	g.ServeHTTP(w, req)
	return w
}

func TestStateRoutes_CRUD(t *testing.T) {
	g := stateRouter()

	// create with generated id
	w := doJSON(t, g, http.MethodPost, "/api/v1/state/backends", `{"name":"edge-1","weight":10}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created["id"])

	// upsert under a caller-supplied id
	w = doJSON(t, g, http.MethodPut, "/api/v1/state/backends/edge-2", `{"name":"edge-2","weight":20}`)
	require.Equal(t, http.StatusOK, w.Code)

	// get
	w = doJSON(t, g, http.MethodGet, "/api/v1/state/backends/edge-2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		ID   string                 `json:"id"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "edge-2", got.ID)
	require.Equal(t, "edge-2", got.Data["name"])

	// merge-update
	w = doJSON(t, g, http.MethodPatch, "/api/v1/state/backends/edge-2", `{"weight":25}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, g, http.MethodGet, "/api/v1/state/backends/edge-2", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, float64(25), got.Data["weight"])

	// delete, then the document is gone and a second delete still succeeds
	w = doJSON(t, g, http.MethodDelete, "/api/v1/state/backends/edge-2", "")
	require.Equal(t, http.StatusNoContent, w.Code)
	w = doJSON(t, g, http.MethodGet, "/api/v1/state/backends/edge-2", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, g, http.MethodDelete, "/api/v1/state/backends/edge-2", "")
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestStateRoutes_NotFoundAndBadInput(t *testing.T) {
	g := stateRouter()

	w := doJSON(t, g, http.MethodGet, "/api/v1/state/backends/absent", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, g, http.MethodPatch, "/api/v1/state/backends/absent", `{"weight":1}`)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, g, http.MethodPost, "/api/v1/state/backends", `not json`)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStateRoutes_Query(t *testing.T) {
	g := stateRouter()

	for _, body := range []string{
		`{"region":"us-east","weight":10}`,
		`{"region":"us-east","weight":30}`,
		`{"region":"eu-west","weight":50}`,
	} {
		w := doJSON(t, g, http.MethodPost, "/api/v1/state/backends", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, g, http.MethodPost, "/api/v1/state/backends/query",
		`{"filters":[{"field":"region","op":"==","value":"us-east"},{"field":"weight","op":">=","value":20}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var results []struct {
		ID   string                 `json:"id"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	require.Equal(t, float64(30), results[0].Data["weight"])
}
