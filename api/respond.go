package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

const maxBodyBytes = 1 << 20

var validate = validator.New()

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success   bool   `json:"success"`
	ErrorKind string `json:"error_kind"`
	Message   string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Success: false, ErrorKind: kind, Message: message})
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, KindInvalidRequest, message)
}

// writeServiceError maps err to a status and logs the detail the client does not see
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := ErrorKind(err)
	status := statusForKind(kind)

	entry := log.WithFields(log.Fields{
		"operation":  op,
		"error_kind": kind,
		"request_id": middleware.GetReqID(r.Context()),
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeError(w, status, kind, clientMessage(kind, err))
}

// decodeJSON reads a size-capped body into v, rejecting unknown fields, then
// runs struct validation
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := validate.Struct(v); err != nil {
		return formatValidation(err)
	}
	return nil
}

func formatValidation(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("field %s failed %s validation", fe.Field(), fe.Tag())
	}
	return err
}

func pathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s in path", name)
	}
	return id, nil
}

func queryInt64(r *http.Request, name string, fallback int64) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return v, nil
}
