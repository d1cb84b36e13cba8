package handlers

import "net/http"

// RootResponse is the fixed acknowledgment served at "/".
type RootResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// RootHandler acknowledges that the service is up. It runs no checks.
func RootHandler(service string) http.HandlerFunc {
	body := RootResponse{Status: "ok", Service: service}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}
