// Package httpx provides HTTP response utilities for the JSON API envelope.
package httpx

import (
	"encoding/json"
	"net/http"
)

// Envelope is the standard response wrapper for every API payload.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// OK sends a success envelope wrapping the payload.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Fail sends a failure envelope carrying a human-readable message.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Success: false, Message: message})
}

// Unauthorized sends the contract 401 body for requests without a usable principal.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, Envelope{Success: false, Error: "Access token required"})
}

// DecodeJSON decodes JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
