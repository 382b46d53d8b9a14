package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RespondJSON(w http.ResponseWriter, logger *slog.Logger, status int, payload any) {
	// Handle nil payload
	if payload == nil {
		w.WriteHeader(status)
		return
	}

	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Error encoding response to JSON", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(response)
}

func RespondError(w http.ResponseWriter, logger *slog.Logger, status int, message string) {
	RespondJSON(w, logger, status, map[string]string{"error": message})
}

// PathValue extracts a required path parameter from the request.
// Returns the value and a boolean indicating success.
func PathValue(w http.ResponseWriter, r *http.Request, logger *slog.Logger, key string) (string, bool) {
	value := chi.URLParam(r, key)
	if value == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Missing %s path parameter", key))
		return "", false
	}
	return value, true
}
