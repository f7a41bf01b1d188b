package pgstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

// MaxBlobSize caps a single attachment.
const MaxBlobSize = 20 << 20

const attachmentsEntity catalog.Entity = "attachments"

func (s *Store) Badges() remote.BadgeTable { return badgeTable{store: s} }

type badgeTable struct {
	store *Store
}

func (b badgeTable) List(ctx context.Context) ([]catalog.Badge, error) {
	rows, err := b.store.pool.Query(ctx, `SELECT badge_id, user_name, user_email FROM user_badges ORDER BY user_name`)
	if err != nil {
		return nil, classify("list", catalog.EntityBadges, err)
	}
	badges, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Badge, error) {
		var badge catalog.Badge
		err := row.Scan(&badge.BadgeID, &badge.UserName, &badge.UserEmail)
		return badge, err
	})
	if err != nil {
		return nil, classify("list", catalog.EntityBadges, err)
	}
	return badges, nil
}

func (b badgeTable) DeleteByUser(ctx context.Context, userName string) error {
	if _, err := b.store.pool.Exec(ctx, `DELETE FROM user_badges WHERE user_name = $1`, userName); err != nil {
		return classify("delete", catalog.EntityBadges, err)
	}
	b.store.notify(ctx, catalog.EntityUsers)
	return nil
}

func (b badgeTable) Insert(ctx context.Context, badge catalog.Badge) error {
	_, err := b.store.pool.Exec(ctx,
		`INSERT INTO user_badges (badge_id, user_name, user_email) VALUES ($1, $2, $3)`,
		badge.BadgeID, badge.UserName, badge.UserEmail)
	if err != nil {
		return classify("create", catalog.EntityBadges, err)
	}
	b.store.notify(ctx, catalog.EntityUsers)
	return nil
}

func (s *Store) Blobs() remote.BlobStore { return blobStore{store: s} }

type blobStore struct {
	store *Store
}

func (b blobStore) Upload(ctx context.Context, ownerKey, name, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBlobSize+1))
	if err != nil {
		return "", shared.E(shared.KindFileParse, "upload", string(attachmentsEntity), err)
	}
	if len(data) > MaxBlobSize {
		return "", shared.E(shared.KindValidation, "upload", string(attachmentsEntity), fmt.Errorf("file larger than %d bytes", MaxBlobSize))
	}
	url := fmt.Sprintf("pg://attachments/%s/%s-%s", ownerKey, uuid.NewString(), name)
	_, err = b.store.pool.Exec(ctx,
		`INSERT INTO attachments (url, owner_key, name, content_type, data) VALUES ($1, $2, $3, $4, $5)`,
		url, ownerKey, name, contentType, data)
	if err != nil {
		return "", classify("upload", attachmentsEntity, err)
	}
	return url, nil
}

func (b blobStore) Delete(ctx context.Context, url string) error {
	tag, err := b.store.pool.Exec(ctx, `DELETE FROM attachments WHERE url = $1`, url)
	if err != nil {
		return classify("delete", attachmentsEntity, err)
	}
	if tag.RowsAffected() == 0 {
		return shared.E(shared.KindNotFound, "delete", string(attachmentsEntity), shared.ErrNotFound)
	}
	return nil
}

func (b blobStore) Open(ctx context.Context, url string) (remote.Blob, error) {
	var (
		blob remote.Blob
		data []byte
	)
	err := b.store.pool.QueryRow(ctx, `SELECT name, content_type, data FROM attachments WHERE url = $1`, url).
		Scan(&blob.Name, &blob.ContentType, &data)
	if err != nil {
		return remote.Blob{}, classify("open", attachmentsEntity, err)
	}
	blob.Size = int64(len(data))
	blob.Body = io.NopCloser(bytes.NewReader(data))
	return blob, nil
}
