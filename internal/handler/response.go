package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"tg-chats-collector/internal/domain"
	"tg-chats-collector/internal/observability"
)

const (
	codeValidation   = "validation"
	codeAmbiguous    = "ambiguous"
	codeNotFound     = "not_found"
	codeRemote       = "remote_fetch"
	codeUnavailable  = "unavailable"
	codeFatal        = "fatal"
	fatalMessage     = "Something went wrong, contact the administrator"
	validationFailed = "Request validation failed"
)

// CommonResponse wraps every API payload.
type CommonResponse struct {
	ID        uuid.UUID      `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Data      any            `json:"data,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed request.
type ResponseError struct {
	Location    string            `json:"location,omitempty"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Validations []FieldValidation `json:"validations,omitempty"`
}

// FieldValidation names a request field that failed validation.
type FieldValidation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, resp CommonResponse) {
	resp.ID = uuid.New()
	resp.Timestamp = time.Now().UTC()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, CommonResponse{Data: data})
}

func writeValidation(w http.ResponseWriter, validations ...FieldValidation) {
	writeJSON(w, http.StatusBadRequest, CommonResponse{Error: &ResponseError{
		Code:        codeValidation,
		Message:     validationFailed,
		Validations: validations,
	}})
}

// writeError maps err to a status and error code. Unknown errors are logged
// and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, location string, err error) {
	status, code, message := classify(err)

	log := observability.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			slog.String("location", location),
			slog.String("error", err.Error()))
	} else {
		log.Warn("request rejected",
			slog.String("location", location),
			slog.String("code", code),
			slog.String("error", err.Error()))
	}

	writeJSON(w, status, CommonResponse{Error: &ResponseError{
		Location: location,
		Code:     code,
		Message:  message,
	}})
}

func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrChatNotIdentified), errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, codeValidation, err.Error()
	case errors.Is(err, domain.ErrChatResolutionAmbiguous):
		return http.StatusConflict, codeAmbiguous, err.Error()
	case errors.Is(err, domain.ErrChatNotFound), errors.Is(err, domain.ErrTopicNotFound):
		return http.StatusNotFound, codeNotFound, err.Error()
	case errors.Is(err, domain.ErrRemoteFetch):
		return http.StatusBadGateway, codeRemote, "Telegram backend request failed"
	case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrQueueUnavailable):
		return http.StatusServiceUnavailable, codeUnavailable, err.Error()
	default:
		return http.StatusInternalServerError, codeFatal, fatalMessage
	}
}

// decodeBody reads a JSON request body into v and answers 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeValidation(w, FieldValidation{Path: "body", Message: "Invalid request body"})
		return false
	}
	return true
}
