package api

import (
	"context"
	"net/http"
	"strconv"
)

type confirmKey struct{}

type confirmation struct {
	granted bool
	prompt  string
}

// withConfirmation reads the confirm query flag. Destructive requests repeat
// the call with confirm=true after the user agreed to the prompt returned in
// the 428 response.
func withConfirmation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		granted, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		ctx := context.WithValue(r.Context(), confirmKey{}, &confirmation{granted: granted})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Confirm implements synchronizer.Confirmer for requests served by this
// package. Outside a request every prompt is declined.
func Confirm(ctx context.Context, prompt string) bool {
	c, ok := ctx.Value(confirmKey{}).(*confirmation)
	if !ok {
		return false
	}
	c.prompt = prompt
	return c.granted
}

func promptFrom(ctx context.Context) string {
	if c, ok := ctx.Value(confirmKey{}).(*confirmation); ok {
		return c.prompt
	}
	return ""
}
