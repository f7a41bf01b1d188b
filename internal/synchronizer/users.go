package synchronizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

// NewAccount is a user together with the login account created for it.
type NewAccount struct {
	Name      string       `json:"name" validate:"required"`
	Email     string       `json:"email" validate:"required,email"`
	Password  string       `json:"password" validate:"required,min=6"`
	Level     catalog.Role `json:"level" validate:"omitempty,oneof=user admin"`
	BadgeCode string       `json:"badgeCode"`
}

// Users returns the local users with their badge codes joined in.
func (s *Synchronizer) Users() []catalog.User {
	return s.users.list()
}

// FindUser looks a user up by display name.
func (s *Synchronizer) FindUser(name string) (catalog.User, bool) {
	return s.users.find(func(u catalog.User) bool { return u.Name == name })
}

// FindUserByBadge looks a user up by badge code.
func (s *Synchronizer) FindUserByBadge(code string) (catalog.User, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return catalog.User{}, false
	}
	return s.users.find(func(u catalog.User) bool { return u.BadgeCode == code })
}

func (s *Synchronizer) checkUser(u catalog.User, exceptName string) error {
	if err := catalog.Validate(catalog.EntityUsers, u); err != nil {
		return err
	}
	current := s.users.list()
	if catalog.Conflict(current, func(o catalog.User) string { return o.Name }, u.Name, exceptName) {
		return catalog.DuplicateError(catalog.EntityUsers, "name", u.Name)
	}
	if catalog.Conflict(current, func(o catalog.User) string { return o.BadgeCode }, u.BadgeCode, exceptName) {
		return catalog.DuplicateError(catalog.EntityUsers, "badgeCode", u.BadgeCode)
	}
	return nil
}

// saveBadge replaces the badge of userName: delete by name, then insert when
// code is set. A failed insert leaves the user without a badge, so it is
// reported as partial and the users are re-read.
func saveBadge(ctx context.Context, st remote.Store, userName, email, code string) error {
	if err := st.Badges().DeleteByUser(ctx, userName); err != nil {
		return err
	}
	if code == "" {
		return nil
	}
	return partially(st.Badges().Insert(ctx, catalog.Badge{BadgeID: code, UserName: userName, UserEmail: email}))
}

// CreateUser adds a user and its optional badge.
func (s *Synchronizer) CreateUser(ctx context.Context, u catalog.User) error {
	u = catalog.NormalizeUser(u)
	if err := s.checkUser(u, ""); err != nil {
		return err
	}
	return s.mutate(ctx, catalog.EntityUsers, "create", func(ctx context.Context, st remote.Store) error {
		return createUser(ctx, st, u, "")
	}, s.refreshUsers)
}

func createUser(ctx context.Context, st remote.Store, u catalog.User, email string) error {
	row := u
	row.BadgeCode = ""
	if _, err := st.Users().Create(ctx, row); err != nil {
		return err
	}
	if u.BadgeCode == "" {
		return nil
	}
	return partially(saveBadge(ctx, st, u.Name, email, u.BadgeCode))
}

// UpdateUser replaces the user known as originalName. It reports false
// without contacting the store when nothing changed.
func (s *Synchronizer) UpdateUser(ctx context.Context, originalName string, u catalog.User) (bool, error) {
	original, ok := s.FindUser(originalName)
	if !ok {
		return false, notFound("update", catalog.EntityUsers)
	}
	u = catalog.NormalizeUser(u)
	if u == original {
		return false, nil
	}
	if err := s.checkUser(u, originalName); err != nil {
		return false, err
	}
	err := s.mutate(ctx, catalog.EntityUsers, "update", func(ctx context.Context, st remote.Store) error {
		wrote := false
		if u.Name != original.Name || u.Role != original.Role {
			row := u
			row.BadgeCode = original.BadgeCode
			if _, err := st.Users().Update(ctx, originalName, row); err != nil {
				return err
			}
			wrote = true
		}
		if u.BadgeCode != original.BadgeCode {
			err := saveBadge(ctx, st, u.Name, "", u.BadgeCode)
			if wrote {
				return partially(err)
			}
			return err
		}
		return nil
	}, s.refreshUsers)
	return err == nil, err
}

// DeleteUser removes a user after confirmation. The badge goes with it.
func (s *Synchronizer) DeleteUser(ctx context.Context, name string) error {
	u, ok := s.FindUser(name)
	if !ok {
		return notFound("delete", catalog.EntityUsers)
	}
	if err := s.confirmed(ctx, catalog.EntityUsers, "delete", fmt.Sprintf("Weet je zeker dat je %s wilt verwijderen?", u.Name)); err != nil {
		return err
	}
	return s.mutate(ctx, catalog.EntityUsers, "delete", func(ctx context.Context, st remote.Store) error {
		if err := st.Users().Delete(ctx, u.Name); err != nil {
			return err
		}
		if u.BadgeCode == "" {
			return nil
		}
		return partially(st.Badges().DeleteByUser(ctx, u.Name))
	}, s.refreshUsers)
}

// SaveBadge assigns code to an existing user, or clears it when code is "".
func (s *Synchronizer) SaveBadge(ctx context.Context, userName, code string) error {
	u, ok := s.FindUser(userName)
	if !ok {
		return notFound("badge", catalog.EntityUsers)
	}
	code = strings.TrimSpace(code)
	if code == u.BadgeCode {
		return nil
	}
	if catalog.Conflict(s.users.list(), func(o catalog.User) string { return o.BadgeCode }, code, u.Name) {
		return catalog.DuplicateError(catalog.EntityUsers, "badgeCode", code)
	}
	return s.mutate(ctx, catalog.EntityBadges, "badge", func(ctx context.Context, st remote.Store) error {
		return saveBadge(ctx, st, u.Name, "", code)
	}, s.refreshUsers)
}

// AddUserWithAccount creates the login account, then the user and its badge.
func (s *Synchronizer) AddUserWithAccount(ctx context.Context, acc NewAccount) error {
	acc.Name = strings.TrimSpace(acc.Name)
	acc.Email = strings.TrimSpace(acc.Email)
	acc.BadgeCode = strings.TrimSpace(acc.BadgeCode)
	if acc.Level == "" {
		acc.Level = catalog.RoleUser
	}
	if err := catalog.Validate(catalog.EntityUsers, acc); err != nil {
		return err
	}
	u := catalog.User{Name: acc.Name, Role: acc.Level, BadgeCode: acc.BadgeCode}
	if err := s.checkUser(u, ""); err != nil {
		return err
	}
	if s.accounts == nil {
		return shared.E(shared.KindConnectivity, "create", "accounts", shared.ErrNotConfigured)
	}
	if err := s.accounts.CreateAccount(ctx, acc.Email, acc.Password, acc.Name, acc.Level); err != nil {
		return writeError("create", "accounts", err)
	}
	return s.mutate(ctx, catalog.EntityUsers, "create", func(ctx context.Context, st remote.Store) error {
		return createUser(ctx, st, u, acc.Email)
	}, s.refreshUsers)
}
