package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/checkme-health/checkme-backend/internal/config"
)

var appConfig *config.Config

// Init wires the package to the loaded configuration. Called once from main.
func Init(cfg *config.Config) {
	appConfig = cfg
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// writeInternalError logs the underlying error and returns a generic message
// in production; development responses echo the detail.
func writeInternalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)

	message := "Something went wrong"
	if appConfig != nil && !appConfig.IsProduction() && err != nil {
		message = err.Error()
	}
	writeError(w, http.StatusInternalServerError, message)
}
