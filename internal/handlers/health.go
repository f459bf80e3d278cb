package handlers

import (
	"net/http"

	"signserver/internal/logger"
	"signserver/internal/services"
)

// HealthHandler reports liveness plus whether the detection engine is
// loaded, so the frontend can disable the upload form early.
func HealthHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"status":         "ok",
			"engineReady":    manager.EngineReady(),
			"clients":        manager.GetWebsocketService().GetClientCount(),
			"activeSessions": manager.GetSessionManager().Count(),
		}

		if err := writeJSON(w, http.StatusOK, payload); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}
