package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tenzoki/voxelgrid/internal/apierr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError writes a flat {"error": "...", ...fields} body and logs
// server-side failures.
func writeAPIError(w http.ResponseWriter, logger *slog.Logger, e *apierr.Error) {
	if e.Status() >= 500 && logger != nil {
		logger.Error(e.Message(), "code", string(e.Code()), "error", e.Error())
	}
	writeJSON(w, e.Status(), e.Body())
}
