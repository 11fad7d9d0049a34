package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"photodup/internal/dedup"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// StatusFor maps an error's kind to an HTTP status code.
func StatusFor(err error) int {
	switch dedup.Kind(err) {
	case "transport_unavailable":
		return http.StatusServiceUnavailable
	case "not_found":
		return http.StatusNotFound
	case "remote_command_failed":
		return http.StatusBadGateway
	case "nothing_to_undo":
		return http.StatusConflict
	case "invalid_request":
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RespondJSON sends a JSON response.
func (s *Server) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.Error("failed to encode JSON response", "error", err)
		}
	}
}

// RespondError sends err with the status code for its kind.
func (s *Server) RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	s.RespondJSON(w, status, ErrorResponse{Error: err.Error(), Kind: dedup.Kind(err)})
}

// decodeJSONOptional decodes the request body into dest. An empty body
// leaves dest untouched.
func decodeJSONOptional[T any](r *http.Request, dest *T) error {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil && !errors.Is(err, io.EOF) {
		return invalid("invalid request body")
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, invalid("invalid " + name)
	}
	return id, nil
}

func parseIntQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, invalid("invalid " + name)
	}
	return n, nil
}

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, dedup.ErrInvalidRequest)
}

func sessionParam(r *http.Request) string {
	return chi.URLParam(r, "sessionID")
}
