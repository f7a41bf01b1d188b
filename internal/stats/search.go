package stats

import (
	"slices"
	"strings"

	"github.com/usagereg/usagereg/internal/catalog"
)

// Products filters the product picker by category id and by a search over
// name and QR code.
func Products(products []catalog.Product, categoryID, query string) []catalog.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if categoryID != "" && categoryID != All && p.CategoryID != categoryID {
			continue
		}
		if q != "" && !containsFold(p.Name, q) && !containsFold(p.QRCode, q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Users returns the users whose name contains query, sorted by name.
func Users(users []catalog.User, query string) []catalog.User {
	q := strings.ToLower(query)
	out := make([]catalog.User, 0, len(users))
	for _, u := range users {
		if containsFold(u.Name, q) {
			out = append(out, u)
		}
	}
	col := newCollator()
	slices.SortStableFunc(out, func(a, b catalog.User) int {
		return col.CompareString(a.Name, b.Name)
	})
	return out
}

// CategoryName resolves a category id for display. Dangling or empty ids
// read as uncategorised.
func CategoryName(categories []catalog.Category, id string) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Name
		}
	}
	return "Geen categorie"
}
