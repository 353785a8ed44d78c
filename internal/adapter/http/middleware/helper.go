package middleware

import (
	"encoding/json"
	"net/http"
)

// envelope is an alias for a map used to wrap JSON responses.
type envelope map[string]any

func errorResponse(w http.ResponseWriter, status int, message any) {
	js, err := json.Marshal(envelope{"error": message})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
}
