package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-jwt-grant/oauth2"
)

// Health reports that the process is serving.
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, oauth2.ErrorResponse{
		Error:            errorCode,
		ErrorDescription: description,
	})
}
