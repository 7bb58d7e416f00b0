package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llm_proxy/internal/config"
)

func TestHandleHealth(t *testing.T) {
	deps := &Dependencies{Config: &config.Config{UpstreamBaseURL: "https://api.openai.com"}}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	deps.handleHealth(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "https://api.openai.com", body["downstream"])
}

func TestHandleRoot(t *testing.T) {
	deps := &Dependencies{Config: &config.Config{}}

	t.Run("describes the service", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rr := httptest.NewRecorder()

		deps.handleRoot(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
		assert.Equal(t, "llm-proxy", body["service"])

		endpoints := body["endpoints"].(map[string]any)
		assert.Equal(t, "/v1/{path}", endpoints["proxy"])
	})

	t.Run("unknown paths are 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/nope", nil)
		rr := httptest.NewRecorder()

		deps.handleRoot(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
