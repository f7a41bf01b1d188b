package synchronizer

import (
	"context"
	"log/slog"
	"strings"

	"github.com/usagereg/usagereg/internal/bulk"
	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

// ImportUsers creates one user per valid row and re-reads users once at the
// end. Rows with a missing field, a short password or a name that already
// exists are skipped and counted. Login accounts are created when an
// AccountCreator is configured.
func (s *Synchronizer) ImportUsers(ctx context.Context, rows []bulk.UserRow) (bulk.Report, error) {
	var report bulk.Report
	if s.store == nil {
		return report, shared.E(shared.KindConnectivity, "import", string(catalog.EntityUsers), shared.ErrNotConfigured)
	}

	names := make(map[string]bool)
	badges := make(map[string]bool)
	for _, u := range s.users.list() {
		names[u.Name] = true
		if u.BadgeCode != "" {
			badges[u.BadgeCode] = true
		}
	}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if problem := row.Problem(); problem != "" {
			report.Fail(row.Row, "%s", problem)
			continue
		}
		if names[row.Name] {
			report.Fail(row.Row, "Gebruiker %s bestaat al", row.Name)
			continue
		}
		if row.BadgeCode != "" && badges[row.BadgeCode] {
			report.Fail(row.Row, "Badge %s is al in gebruik", row.BadgeCode)
			continue
		}
		if s.accounts != nil {
			if err := s.accounts.CreateAccount(ctx, row.Email, row.Password, row.Name, catalog.ParseRole(string(row.Level))); err != nil {
				report.Fail(row.Row, "Account aanmaken mislukt: %s", shared.UserSafeMessage(err))
				continue
			}
		}
		u := catalog.User{Name: row.Name, Role: catalog.ParseRole(string(row.Level))}
		if _, err := s.store.Users().Create(ctx, u); err != nil {
			s.observeWrite(catalog.EntityUsers, "import", err)
			report.Fail(row.Row, "Opslaan mislukt: %s", shared.UserSafeMessage(err))
			continue
		}
		s.observeWrite(catalog.EntityUsers, "import", nil)
		names[row.Name] = true
		report.Created++

		if row.BadgeCode != "" {
			if err := saveBadge(ctx, s.store, row.Name, row.Email, row.BadgeCode); err != nil {
				s.logger.Warn("user imported without badge",
					slog.String("user", row.Name), slog.Any("error", err))
				continue
			}
			badges[row.BadgeCode] = true
		}
	}

	s.observeRefresh(catalog.EntityUsers, sourceWrite, s.refreshUsers(ctx))
	s.logger.Info("users imported",
		slog.Int("created", report.Created), slog.Int("errors", report.ErrorCount))
	return report, nil
}

// ImportProducts creates the products of rows whose name is not yet known.
// Unknown categories are created on the way.
func (s *Synchronizer) ImportProducts(ctx context.Context, rows []bulk.ProductRow) (bulk.Report, error) {
	var report bulk.Report
	if s.store == nil {
		return report, shared.E(shared.KindConnectivity, "import", string(catalog.EntityProducts), shared.ErrNotConfigured)
	}

	products := make(map[string]bool)
	for _, p := range s.products.list() {
		products[p.Name] = true
	}
	categories := make(map[string]string)
	for _, c := range s.categories.list() {
		categories[strings.ToLower(c.Name)] = c.ID
	}
	createdCategories := false

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if row.Name == "" {
			report.Fail(row.Row, "Verplicht veld ontbreekt: %s", bulk.ColProductName)
			continue
		}
		if products[row.Name] {
			report.Skip()
			continue
		}

		var categoryID string
		if row.Category != "" {
			id, ok := categories[strings.ToLower(row.Category)]
			if !ok {
				created, err := s.store.Categories().Create(ctx, catalog.Category{Name: row.Category})
				s.observeWrite(catalog.EntityCategories, "import", err)
				if err != nil {
					report.Fail(row.Row, "Categorie %s aanmaken mislukt: %s", row.Category, shared.UserSafeMessage(err))
					continue
				}
				id = created.ID
				categories[strings.ToLower(row.Category)] = id
				createdCategories = true
			}
			categoryID = id
		}

		_, err := s.store.Products().Create(ctx, catalog.Product{Name: row.Name, CategoryID: categoryID})
		s.observeWrite(catalog.EntityProducts, "import", err)
		if err != nil {
			report.Fail(row.Row, "Opslaan mislukt: %s", shared.UserSafeMessage(err))
			continue
		}
		products[row.Name] = true
		report.Created++
	}

	if createdCategories {
		s.observeRefresh(catalog.EntityCategories, sourceWrite, s.refreshCategories(ctx))
	}
	s.observeRefresh(catalog.EntityProducts, sourceWrite, s.refreshProducts(ctx))
	s.logger.Info("products imported",
		slog.Int("created", report.Created), slog.Int("skipped", report.Skipped), slog.Int("errors", report.ErrorCount))
	return report, nil
}
