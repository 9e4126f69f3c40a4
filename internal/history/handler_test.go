package history

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, s *Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/v1/history", Handler(s))
	return r
}

func TestHandler_ReturnsRecentExecutions(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Record(context.Background(), &Execution{
		Command:  "echo hi",
		OK:       true,
		ExitCode: int64Ptr(0),
	}))
	r := newTestRouter(t, s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Executions []Execution `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Executions, 1)
	assert.Equal(t, "echo hi", body.Executions[0].Command)
}

func TestHandler_LimitQueryParam(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 4; i++ {
		require.NoError(t, s.Record(context.Background(), &Execution{Command: "true", OK: true}))
	}
	r := newTestRouter(t, s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit=2", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Executions []Execution `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Executions, 2)
}

func TestHandler_RejectsBadLimit(t *testing.T) {
	r := newTestRouter(t, newTestStore(t))

	for _, limit := range []string{"abc", "-1"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/v1/history?limit="+limit, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
}
