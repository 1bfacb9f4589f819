package server

import (
	"encoding/json"
	"net/http"
)

// Fixed client-facing error messages. Internal details never reach the body.
const (
	msgBadRequest     = "Bad request"
	msgInternalServer = "Internal server error"
)

type errorBody struct {
	Error string `json:"error"`
}

type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type healthBody struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
