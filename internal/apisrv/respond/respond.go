// Package respond carries the JSON response helpers shared by the API
// servers.
package respond

import (
	"encoding/json"
	"net/http"

	"log/slog"
)

type errorBody struct {
	Error string `json:"error"`
}

// JSON writes v as a JSON body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("can't encode response",
			slog.String("err", err.Error()),
		)
	}
}

// Error writes a JSON error body with the given status.
func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, errorBody{Error: msg})
}

// Decode parses the request body into v; a false return means the error
// response has already been written.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
