package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type errorBody struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Error     struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// writeError answers in the API response envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	body := errorBody{ID: uuid.New(), Timestamp: time.Now().UTC()}
	body.Error.Code = code
	body.Error.Message = message

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
