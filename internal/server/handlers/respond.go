package handlers

import (
	"encoding/json"
	"net/http"

	errs "vkgeo/pkg/errors"
)

// Health reports liveness
func Health(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Failed to marshal response"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// respondWithError writes {"error": message}; upstream failures also carry
// the error type and detail
func respondWithError(w http.ResponseWriter, code int, message string, err error) {
	response := map[string]string{"error": message}
	if err != nil && code >= 500 {
		response["type"] = string(errs.TypeOf(err))
		response["detail"] = err.Error()
	}

	respondWithJSON(w, code, response)
}
