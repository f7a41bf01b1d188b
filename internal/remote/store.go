// Package remote defines the contract the synchronizer consumes from the hosted
// backend: one table per entity, the badge side table, blob storage for
// attachments and a push channel per table.
package remote

import (
	"context"
	"io"

	"github.com/usagereg/usagereg/internal/catalog"
)

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// Table is the remote view of one entity collection. Keys are the entity's
// Key(); Update takes the key the record had before the edit so renames work.
type Table[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, key string, rec T) (T, error)
	Delete(ctx context.Context, key string) error
	// Subscribe delivers the full post-change collection whenever the table
	// changes. The channel is closed after unsubscribe or ctx cancellation.
	Subscribe(ctx context.Context) (<-chan []T, Unsubscribe, error)
}

// BadgeTable is the side table mapping badge ids to user names.
type BadgeTable interface {
	List(ctx context.Context) ([]catalog.Badge, error)
	DeleteByUser(ctx context.Context, userName string) error
	Insert(ctx context.Context, badge catalog.Badge) error
}

// Blob is an attachment read back from storage.
type Blob struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.ReadCloser
}

// BlobStore keeps binary attachments such as product PDFs.
type BlobStore interface {
	Upload(ctx context.Context, ownerKey, name, contentType string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
	Open(ctx context.Context, url string) (Blob, error)
}

// Store aggregates every collaborator of the synchronizer.
type Store interface {
	// TestConnection is a lightweight connectivity probe.
	TestConnection(ctx context.Context) bool
	Users() Table[catalog.User]
	Badges() BadgeTable
	Products() Table[catalog.Product]
	Categories() Table[catalog.Category]
	Locations() Table[catalog.Location]
	Purposes() Table[catalog.Purpose]
	Registrations() Table[catalog.Registration]
	Blobs() BlobStore
	Close() error
}
