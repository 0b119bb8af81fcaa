package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"raglab/rag"
	"raglab/repository"
	"raglab/vectorstore"
)

// envelope is the shape of every API response. The errors key is always
// present: empty on success, at least one entry on failure.
type envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors"`
}

func (s *Server) respond(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := envelope{Success: status < 400, Message: message, Data: data, Errors: []string{}}
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.log.Error("response_encode_failed", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, errs ...error) {
	env := envelope{Message: message}
	for _, err := range errs {
		if err != nil {
			env.Errors = append(env.Errors, err.Error())
		}
	}
	if len(env.Errors) == 0 {
		env.Errors = []string{message}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.log.Error("response_encode_failed", zap.Error(err))
	}
}

// respondFailure maps pipeline errors onto HTTP statuses: missing entities
// are 404, bad backend or model choices are 400, everything else is the
// given fallback status.
func (s *Server) respondFailure(w http.ResponseWriter, err error, message string, fallback int) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, message, err)
	case errors.Is(err, vectorstore.ErrUnknownBackend),
		errors.Is(err, vectorstore.ErrModelMismatch),
		errors.Is(err, rag.ErrUnknownProvider):
		s.respondError(w, http.StatusBadRequest, message, err)
	default:
		s.respondError(w, fallback, message, err)
	}
}

// decodeJSON reads one JSON body into v, capped at maxUploadBytes.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}
