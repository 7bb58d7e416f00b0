package httpapi

import (
	"net/http"

	"llm_proxy/internal/utils"
)

const serviceVersion = "1.0.0"

// handleHealth reports liveness and the configured upstream.
func (d *Dependencies) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{
		"status":     "healthy",
		"downstream": d.Config.UpstreamBaseURL,
	})
}

// handleRoot describes the service. The "/" pattern matches every path not
// claimed by another route, so anything but the root itself is a 404.
func (d *Dependencies) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		utils.RespondWithError(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodGet {
		utils.RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"service": "llm-proxy",
		"version": serviceVersion,
		"endpoints": map[string]string{
			"proxy":   "/v1/{path}",
			"health":  "/health",
			"metrics": "/metrics",
		},
	})
}
