// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/usagereg/usagereg/internal/shared"
)

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidation, shared.KindFileParse:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindDuplicate:
		return http.StatusConflict
	case shared.KindUnauthorized:
		return http.StatusUnauthorized
	case shared.KindCancelled:
		return http.StatusPreconditionRequired
	case shared.KindConnectivity:
		return http.StatusServiceUnavailable
	case shared.KindRemoteRead, shared.KindRemoteWrite:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807. The detail
// is the user-safe banner text; internal causes are never echoed.
func RespondError(w http.ResponseWriter, err error) {
	kind := shared.KindOf(err)
	status := StatusFor(kind)
	JSON(w, status, ProblemDetail{
		Type:      string(kind),
		Title:     http.StatusText(status),
		Status:    status,
		Detail:    shared.UserSafeMessage(err),
		DismissMS: kind.Dismiss().Milliseconds(),
	})
}
