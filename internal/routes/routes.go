package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"signserver/internal/config"
	"signserver/internal/handlers"
	"signserver/internal/logger"
	"signserver/internal/middleware"
	"signserver/internal/services"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", path+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving and API
// endpoints, and wraps the mux with the session middleware.
func SetupRoutes(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Analysis endpoints
	mux.HandleFunc("/api/analyze", handlers.AnalyzeHandler(manager, cfg, logger))
	mux.HandleFunc("/api/analyses", handlers.DisplayAnalysesHandler(manager, cfg, logger))
	mux.HandleFunc("/api/analyses/get", handlers.GetAnalysisHandler(manager, logger))
	mux.HandleFunc("/api/analyses/view", handlers.ViewImageHandler(manager))
	mux.HandleFunc("/api/analyses/chart", handlers.ChartHandler(manager, logger))
	mux.HandleFunc("/api/analyses/report", handlers.ReportHandler(manager, logger))
	mux.HandleFunc("/api/analyses/delete", handlers.DeleteAnalysisHandler(manager, logger))
	mux.HandleFunc("/api/analyses/clear", handlers.ClearAnalysesHandler(manager, logger))
	mux.HandleFunc("/api/analyses/filters", handlers.GetFiltersHandler(manager, logger))
	mux.HandleFunc("/api/analyses/stats", handlers.GetStatsHandler(manager, logger))

	// Session endpoints
	mux.HandleFunc("/api/session", handlers.GetSessionHandler(manager, logger))
	mux.HandleFunc("/api/session/reset", handlers.ResetSessionHandler(manager, logger))

	// Live updates for the history view
	mux.HandleFunc("/api/events", handlers.EventsWebsocketHandler(manager, logger))

	mux.HandleFunc("/api/health", handlers.HealthHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("/logs", handlers.ShowLogsHandler(cfg))
	mux.HandleFunc("/logs/clear", handlers.ClearLogsHandler(logger))

	// Automatic HTML handler mapping for example: /history -> /static/history.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.SessionMiddleware(manager.GetSessionManager())(mux)
}
