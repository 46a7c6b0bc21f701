package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/feedlens/internal/profile"
	"github.com/hrygo/feedlens/store"
	"github.com/hrygo/feedlens/store/db/sqlite"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	p := &profile.Profile{
		Mode:            "dev",
		Driver:          "sqlite",
		DSN:             filepath.Join(t.TempDir(), "feedlens_test.db"),
		Version:         "1.0.0-dev",
		LLMProvider:     "gemini",
		DefaultPageSize: profile.DefaultPageSize,
		MaxPageSize:     profile.MaxPageSize,
		MaxSummaryItems: profile.MaxSummaryItems,
		ValidSources:    profile.DefaultValidSources,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	st := store.New(driver, p)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	s, err := NewServer(context.Background(), p, st)
	require.NoError(t, err)
	require.Nil(t, s.llm)
	return s
}

func get(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRootAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	var root map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &root))
	assert.Equal(t, map[string]string{"message": "feedlens", "version": "1.0.0-dev", "status": "running"}, root)

	rec = get(s, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"feedlens"}`, rec.Body.String())
}

func TestCreateWithoutModelUsesKeywords(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/feedback",
		strings.NewReader(`{"text":"This is terrible, broken, and the worst experience, bad bad bad","source":"survey"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echoServer.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"sentiment":"negative"`)

	rec = get(s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `feedlens_feedback_created_total{sentiment="negative",source="survey"} 1`)
	assert.Contains(t, body, `feedlens_ai_classifications_total{method="fallback"} 1`)
	assert.Contains(t, body, "feedlens_http_requests_total")
}
