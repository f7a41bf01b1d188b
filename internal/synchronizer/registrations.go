package synchronizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
)

// RegistrationInput is what the registration form submits.
type RegistrationInput struct {
	User        string `json:"user"`
	Product     string `json:"product"`
	Location    string `json:"location"`
	Purpose     string `json:"purpose"`
	ScannedCode string `json:"qrcode,omitempty"`
}

// Registrations returns the local usage history, newest first as stored.
func (s *Synchronizer) Registrations() []catalog.Registration {
	return s.registrations.list()
}

// SubmitRegistration records one product usage. The names are copied as they
// are now; later renames do not rewrite the record.
func (s *Synchronizer) SubmitRegistration(ctx context.Context, in RegistrationInput) (catalog.Registration, error) {
	reg := catalog.Registration{
		ID:       uuid.NewString(),
		User:     strings.TrimSpace(in.User),
		Product:  strings.TrimSpace(in.Product),
		Location: strings.TrimSpace(in.Location),
		Purpose:  strings.TrimSpace(in.Purpose),
	}
	if err := catalog.Validate(catalog.EntityRegistrations, reg); err != nil {
		return catalog.Registration{}, err
	}
	if p, ok := s.products.find(func(p catalog.Product) bool { return p.Name == reg.Product }); ok && p.QRCode != "" {
		reg.QRCode = p.QRCode
	} else {
		reg.QRCode = strings.TrimSpace(in.ScannedCode)
	}
	reg = catalog.StampRegistration(reg, s.now(), s.display)

	var created catalog.Registration
	err := s.mutate(ctx, catalog.EntityRegistrations, "create", func(ctx context.Context, st remote.Store) error {
		var err error
		created, err = st.Registrations().Create(ctx, reg)
		return err
	}, s.refreshRegistrations)
	return created, err
}

// DeleteRegistration removes a registration after confirmation.
func (s *Synchronizer) DeleteRegistration(ctx context.Context, id string) error {
	reg, ok := s.registrations.find(func(r catalog.Registration) bool { return r.ID == id })
	if !ok {
		return notFound("delete", catalog.EntityRegistrations)
	}
	prompt := fmt.Sprintf("Registratie van %s op %s %s verwijderen?", reg.User, reg.Date, reg.Time)
	if err := s.confirmed(ctx, catalog.EntityRegistrations, "delete", prompt); err != nil {
		return err
	}
	return s.mutate(ctx, catalog.EntityRegistrations, "delete", func(ctx context.Context, st remote.Store) error {
		return st.Registrations().Delete(ctx, id)
	}, s.refreshRegistrations)
}
