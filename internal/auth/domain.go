package auth

import (
	"strings"
	"time"

	"github.com/usagereg/usagereg/internal/catalog"
)

// Account is a login identity.
type Account struct {
	ID           int64
	Email        string
	PasswordHash string
	DisplayName  string
	Level        catalog.Role
	CreatedAt    time.Time
}

// Name returns the name shown for the account: the display name, else the
// local part of the e-mail address, else a generic label.
func (a Account) Name() string {
	if name := strings.TrimSpace(a.DisplayName); name != "" {
		return name
	}
	if local, _, _ := strings.Cut(a.Email, "@"); local != "" {
		return local
	}
	return "Gebruiker"
}

// Session is the signed-in state handed to clients.
type Session struct {
	Token     string       `json:"token"`
	ID        string       `json:"-"`
	AccountID int64        `json:"accountId"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	Level     catalog.Role `json:"level"`
	ExpiresAt time.Time    `json:"expiresAt"`
}

// EventKind says what happened to a session.
type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is delivered to OnSessionChange listeners.
type Event struct {
	Kind    EventKind
	Session Session
}
