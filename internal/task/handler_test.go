package task_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/database/databasetest"
	"github.com/redmonkez12/go-task-api/internal/task"
)

func newTaskRouter(t *testing.T) http.Handler {
	t.Helper()

	h := task.NewHandler(task.NewService(task.NewRepository(databasetest.NewSQLite(t))))
	r := chi.NewRouter()
	r.Route("/tasks", h.Routes)
	return r
}

func send(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

func TestHandler_TaskLifecycle(t *testing.T) {
	router := newTaskRouter(t)

	rec := send(t, router, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	rec = send(t, router, http.MethodPost, "/tasks", map[string]any{"name": "ship it", "description": "v1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Positive(t, created.ID)
	assert.Equal(t, "ship it", created.Name)
	assert.Equal(t, "/tasks/"+jsonNumber(created.ID), rec.Header().Get("Location"))

	path := "/tasks/" + jsonNumber(created.ID)

	rec = send(t, router, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":`+jsonNumber(created.ID)+`,"name":"ship it","description":"v1","isCompleted":false}`, rec.Body.String())

	rec = send(t, router, http.MethodPut, path, map[string]any{"id": created.ID, "name": "ship it", "isCompleted": true})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(t, router, http.MethodGet, path, nil)
	var updated task.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.True(t, updated.IsCompleted)

	rec = send(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = send(t, router, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	rec = send(t, router, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_TaskErrors(t *testing.T) {
	router := newTaskRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"non-numeric id", http.MethodGet, "/tasks/abc", nil, http.StatusBadRequest, "INVALID_ID"},
		{"zero id", http.MethodDelete, "/tasks/0", nil, http.StatusBadRequest, "INVALID_ID"},
		{"missing name", http.MethodPost, "/tasks", map[string]any{"description": "x"}, http.StatusBadRequest, "INVALID_INPUT"},
		{"name too long", http.MethodPost, "/tasks", map[string]any{"name": strings.Repeat("n", 101)}, http.StatusBadRequest, "INVALID_INPUT"},
		{"description too long", http.MethodPost, "/tasks", map[string]any{"name": "n", "description": strings.Repeat("d", 501)}, http.StatusBadRequest, "INVALID_INPUT"},
		{"id mismatch", http.MethodPut, "/tasks/1", map[string]any{"id": 2, "name": "n"}, http.StatusBadRequest, "ID_MISMATCH"},
		{"id missing", http.MethodPut, "/tasks/1", map[string]any{"name": "n"}, http.StatusBadRequest, "ID_MISMATCH"},
		{"update missing", http.MethodPut, "/tasks/99", map[string]any{"id": 99, "name": "n"}, http.StatusNotFound, "NOT_FOUND"},
		{"bad body", http.MethodPost, "/tasks", "not an object", http.StatusBadRequest, "INVALID_REQUEST_BODY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := send(t, router, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func jsonNumber(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
