package pgstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/shared"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		op   string
		err  error
		want shared.Kind
	}{
		{"no rows", "update", pgx.ErrNoRows, shared.KindNotFound},
		{"unique violation", "create", &pgconn.PgError{Code: "23505", ConstraintName: "products_qr_code_key"}, shared.KindDuplicate},
		{"check violation", "create", &pgconn.PgError{Code: "23514"}, shared.KindValidation},
		{"deadline", "list", fmt.Errorf("query: %w", context.DeadlineExceeded), shared.KindConnectivity},
		{"read failure", "list", errors.New("boom"), shared.KindRemoteRead},
		{"write failure", "delete", errors.New("boom"), shared.KindRemoteWrite},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.op, catalog.EntityProducts, tc.err)
			require.Error(t, got)
			assert.Equal(t, tc.want, shared.KindOf(got))
		})
	}
}

func TestClassifyKeepsTypedErrors(t *testing.T) {
	typed := shared.E(shared.KindValidation, "key", "products", errors.New("invalid id"))
	assert.Same(t, typed, classify("update", catalog.EntityProducts, typed))
	assert.NoError(t, classify("list", catalog.EntityProducts, nil))
}

func TestUniqueViolationWrapsSentinel(t *testing.T) {
	err := classify("create", catalog.EntityCategories, &pgconn.PgError{Code: "23505", ConstraintName: "categories_name_key"})
	assert.ErrorIs(t, err, shared.ErrDuplicate)
	assert.Contains(t, err.Error(), "categories_name_key")
}

func TestIDHelpers(t *testing.T) {
	id, err := idKey(catalog.EntityProducts)("42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = idKey(catalog.EntityProducts)("abc")
	assert.True(t, shared.IsKind(err, shared.KindValidation))

	none, err := optionalID(catalog.EntityCategories, "")
	require.NoError(t, err)
	assert.Nil(t, none)
	assert.Equal(t, "", formatID(none))

	assert.Nil(t, nullable(""))
	assert.Equal(t, "QR1", deref(nullable("QR1")))
}
