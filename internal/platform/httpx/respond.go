package httpx

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/usagereg/usagereg/internal/shared"
)

// MaxJSONBody caps decoded request bodies.
const MaxJSONBody = 1 << 20

// ProblemDetail represents RFC7807 problem details. DismissMS tells the UI
// how long to keep the banner visible.
type ProblemDetail struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	DismissMS int64  `json:"dismiss_ms"`
}

// Message is the body of a successful mutation.
type Message struct {
	Message   string `json:"message"`
	DismissMS int64  `json:"dismiss_ms"`
	Data      any    `json:"data,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Success sends a success banner with optional data.
func Success(w http.ResponseWriter, status int, message string, data any) {
	JSON(w, status, Message{Message: message, DismissMS: shared.SuccessDismiss.Milliseconds(), Data: data})
}

// Problem sends an RFC7807 problem details response.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	JSON(w, status, ProblemDetail{
		Title:     title,
		Status:    status,
		Detail:    detail,
		DismissMS: shared.KindInternal.Dismiss().Milliseconds(),
	})
}

// DecodeJSON decodes JSON request body into the target struct. Malformed
// bodies are validation errors.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, MaxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.E(shared.KindValidation, "decode", "request", fmt.Errorf("ongeldige invoer: %w", err))
	}
	return nil
}
