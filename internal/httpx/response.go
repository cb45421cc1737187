// Package httpx holds the JSON envelope, pagination and rate limiting shared by
// the shop and admin APIs.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the body shape of every API response.
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data,omitempty"`
	Message    string      `json:"message,omitempty"`
	Error      string      `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

type Responder struct {
	logger *slog.Logger
}

func NewResponder(logger *slog.Logger) *Responder {
	return &Responder{logger: logger}
}

func (rs *Responder) JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		rs.logger.Error("failed to encode response", "error", err)
	}
}

func (rs *Responder) OK(w http.ResponseWriter, data any) {
	rs.JSON(w, http.StatusOK, Envelope{Success: true, Data: data})
}

func (rs *Responder) Created(w http.ResponseWriter, data any) {
	rs.JSON(w, http.StatusCreated, Envelope{Success: true, Data: data})
}

func (rs *Responder) Page(w http.ResponseWriter, data any, p Pagination) {
	rs.JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Pagination: &p})
}

func (rs *Responder) Error(w http.ResponseWriter, status int, message string) {
	rs.JSON(w, status, Envelope{Success: false, Error: message})
}

// Internal logs err and answers with a generic 500.
func (rs *Responder) Internal(w http.ResponseWriter, msg string, err error, args ...any) {
	rs.logger.Error(msg, append([]any{"error", err}, args...)...)
	rs.Error(w, http.StatusInternalServerError, "internal server error")
}

// Decode reads a JSON request body into v. It writes a 400 and returns false
// when the body is not valid JSON.
func (rs *Responder) Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rs.Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
