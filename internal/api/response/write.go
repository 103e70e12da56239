package response

import (
	"encoding/json"
	"net/http"
)

// noStore marks responses that carry session or handshake state as uncacheable
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}

// JSON writes a JSON response
func JSON(w http.ResponseWriter, status int, data any) {
	noStore(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 JSON response
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response
func NoContent(w http.ResponseWriter) {
	noStore(w)
	w.WriteHeader(http.StatusNoContent)
}
