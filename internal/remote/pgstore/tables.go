package pgstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func idKey(entity catalog.Entity) func(string) (any, error) {
	return func(key string) (any, error) {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, shared.E(shared.KindValidation, "key", string(entity), fmt.Errorf("invalid id %q", key))
		}
		return id, nil
	}
}

func optionalID(entity catalog.Entity, s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := idKey(entity)(s)
	if err != nil {
		return nil, err
	}
	v := id.(int64)
	return &v, nil
}

func formatID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

func (s *Store) Users() remote.Table[catalog.User] {
	scan := func(row pgx.Row) (catalog.User, error) {
		var u catalog.User
		err := row.Scan(&u.Name, &u.Role)
		return u, err
	}
	return table[catalog.User]{store: s, def: tableDef[catalog.User]{
		entity:    catalog.EntityUsers,
		listSQL:   `SELECT name, role FROM users ORDER BY created_at, name`,
		deleteSQL: `DELETE FROM users WHERE name = $1`,
		scan:      scan,
		keyArg:    stringKey,
		create: func(ctx context.Context, q dbtx, u catalog.User) (catalog.User, error) {
			return scan(q.QueryRow(ctx, `INSERT INTO users (name, role) VALUES ($1, $2) RETURNING name, role`, u.Name, u.Role))
		},
		update: func(ctx context.Context, q dbtx, key any, u catalog.User) (catalog.User, error) {
			return scan(q.QueryRow(ctx, `UPDATE users SET name = $1, role = $2 WHERE name = $3 RETURNING name, role`, u.Name, u.Role, key))
		},
	}}
}

const productColumns = `id, name, qr_code, category_id, attachment_url, attachment_name, created_at`

func scanProduct(row pgx.Row) (catalog.Product, error) {
	var (
		p          catalog.Product
		id         int64
		qr         *string
		categoryID *int64
	)
	if err := row.Scan(&id, &p.Name, &qr, &categoryID, &p.AttachmentURL, &p.AttachmentName, &p.CreatedAt); err != nil {
		return catalog.Product{}, err
	}
	p.ID = strconv.FormatInt(id, 10)
	p.QRCode = deref(qr)
	p.CategoryID = formatID(categoryID)
	return p, nil
}

func (s *Store) Products() remote.Table[catalog.Product] {
	return table[catalog.Product]{store: s, def: tableDef[catalog.Product]{
		entity:    catalog.EntityProducts,
		listSQL:   `SELECT ` + productColumns + ` FROM products ORDER BY id`,
		deleteSQL: `DELETE FROM products WHERE id = $1`,
		scan:      scanProduct,
		keyArg:    idKey(catalog.EntityProducts),
		create: func(ctx context.Context, q dbtx, p catalog.Product) (catalog.Product, error) {
			categoryID, err := optionalID(catalog.EntityCategories, p.CategoryID)
			if err != nil {
				return catalog.Product{}, err
			}
			return scanProduct(q.QueryRow(ctx,
				`INSERT INTO products (name, qr_code, category_id, attachment_url, attachment_name)
				 VALUES ($1, $2, $3, $4, $5) RETURNING `+productColumns,
				p.Name, nullable(p.QRCode), categoryID, p.AttachmentURL, p.AttachmentName))
		},
		update: func(ctx context.Context, q dbtx, key any, p catalog.Product) (catalog.Product, error) {
			categoryID, err := optionalID(catalog.EntityCategories, p.CategoryID)
			if err != nil {
				return catalog.Product{}, err
			}
			return scanProduct(q.QueryRow(ctx,
				`UPDATE products SET name = $1, qr_code = $2, category_id = $3, attachment_url = $4, attachment_name = $5
				 WHERE id = $6 RETURNING `+productColumns,
				p.Name, nullable(p.QRCode), categoryID, p.AttachmentURL, p.AttachmentName, key))
		},
	}}
}

func (s *Store) Categories() remote.Table[catalog.Category] {
	scan := func(row pgx.Row) (catalog.Category, error) {
		var (
			c  catalog.Category
			id int64
		)
		if err := row.Scan(&id, &c.Name); err != nil {
			return catalog.Category{}, err
		}
		c.ID = strconv.FormatInt(id, 10)
		return c, nil
	}
	return table[catalog.Category]{store: s, def: tableDef[catalog.Category]{
		entity:    catalog.EntityCategories,
		listSQL:   `SELECT id, name FROM categories ORDER BY id`,
		deleteSQL: `DELETE FROM categories WHERE id = $1`,
		scan:      scan,
		keyArg:    idKey(catalog.EntityCategories),
		create: func(ctx context.Context, q dbtx, c catalog.Category) (catalog.Category, error) {
			return scan(q.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, name`, c.Name))
		},
		update: func(ctx context.Context, q dbtx, key any, c catalog.Category) (catalog.Category, error) {
			return scan(q.QueryRow(ctx, `UPDATE categories SET name = $1 WHERE id = $2 RETURNING id, name`, c.Name, key))
		},
	}}
}

// nameTable maps a string-set entity onto a single-column table.
func nameTable[T interface {
	~string
	Key() string
}](s *Store, entity catalog.Entity, name string) table[T] {
	scan := func(row pgx.Row) (T, error) {
		var v string
		err := row.Scan(&v)
		return T(v), err
	}
	return table[T]{store: s, def: tableDef[T]{
		entity:    entity,
		listSQL:   `SELECT name FROM ` + name + ` ORDER BY name`,
		deleteSQL: `DELETE FROM ` + name + ` WHERE name = $1`,
		scan:      scan,
		keyArg:    stringKey,
		create: func(ctx context.Context, q dbtx, v T) (T, error) {
			return scan(q.QueryRow(ctx, `INSERT INTO `+name+` (name) VALUES ($1) RETURNING name`, string(v)))
		},
		update: func(ctx context.Context, q dbtx, key any, v T) (T, error) {
			return scan(q.QueryRow(ctx, `UPDATE `+name+` SET name = $1 WHERE name = $2 RETURNING name`, string(v), key))
		},
	}}
}

func (s *Store) Locations() remote.Table[catalog.Location] {
	return nameTable[catalog.Location](s, catalog.EntityLocations, "locations")
}

func (s *Store) Purposes() remote.Table[catalog.Purpose] {
	return nameTable[catalog.Purpose](s, catalog.EntityPurposes, "purposes")
}

const registrationColumns = `id::text, user_name, product, location, purpose, timestamp, date, time, qr_code`

func scanRegistration(row pgx.Row) (catalog.Registration, error) {
	var r catalog.Registration
	err := row.Scan(&r.ID, &r.User, &r.Product, &r.Location, &r.Purpose, &r.Timestamp, &r.Date, &r.Time, &r.QRCode)
	return r, err
}

func (s *Store) Registrations() remote.Table[catalog.Registration] {
	return table[catalog.Registration]{store: s, def: tableDef[catalog.Registration]{
		entity:    catalog.EntityRegistrations,
		listSQL:   `SELECT ` + registrationColumns + ` FROM registrations ORDER BY timestamp DESC`,
		deleteSQL: `DELETE FROM registrations WHERE id = $1::uuid`,
		scan:      scanRegistration,
		keyArg:    stringKey,
		create: func(ctx context.Context, q dbtx, r catalog.Registration) (catalog.Registration, error) {
			return scanRegistration(q.QueryRow(ctx,
				`INSERT INTO registrations (id, user_name, product, location, purpose, timestamp, date, time, qr_code)
				 VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING `+registrationColumns,
				r.ID, r.User, r.Product, r.Location, r.Purpose, r.Timestamp, r.Date, r.Time, r.QRCode))
		},
		update: func(ctx context.Context, q dbtx, key any, r catalog.Registration) (catalog.Registration, error) {
			return scanRegistration(q.QueryRow(ctx,
				`UPDATE registrations SET user_name = $1, product = $2, location = $3, purpose = $4, qr_code = $5
				 WHERE id = $6::uuid RETURNING `+registrationColumns,
				r.User, r.Product, r.Location, r.Purpose, r.QRCode, key))
		},
	}}
}
