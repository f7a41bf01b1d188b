// Package memstore is an in-process remote store. It backs the "memory" store
// driver for local runs and gives tests call counting and fault injection.
package memstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

type blob struct {
	name        string
	contentType string
	data        []byte
}

// Store keeps every table in memory.
type Store struct {
	mu            sync.Mutex
	users         []catalog.User
	badges        []catalog.Badge
	products      []catalog.Product
	categories    []catalog.Category
	locations     []catalog.Location
	purposes      []catalog.Purpose
	registrations []catalog.Registration
	blobs         map[string]blob
	nextID        int64
	offline       bool
	failures      map[string]error
	calls         map[string]int
	now           func() time.Time

	userHub         *remote.Hub[catalog.User]
	productHub      *remote.Hub[catalog.Product]
	categoryHub     *remote.Hub[catalog.Category]
	locationHub     *remote.Hub[catalog.Location]
	purposeHub      *remote.Hub[catalog.Purpose]
	registrationHub *remote.Hub[catalog.Registration]
}

var _ remote.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		blobs:           make(map[string]blob),
		failures:        make(map[string]error),
		calls:           make(map[string]int),
		now:             time.Now,
		userHub:         remote.NewHub[catalog.User](),
		productHub:      remote.NewHub[catalog.Product](),
		categoryHub:     remote.NewHub[catalog.Category](),
		locationHub:     remote.NewHub[catalog.Location](),
		purposeHub:      remote.NewHub[catalog.Purpose](),
		registrationHub: remote.NewHub[catalog.Registration](),
	}
}

// NewSeeded returns a store preloaded with seed. Badge codes of seed users are
// split into the badge table.
func NewSeeded(seed catalog.Seed) *Store {
	s := New()
	for _, u := range seed.Users {
		if u.BadgeCode != "" {
			s.badges = append(s.badges, catalog.Badge{BadgeID: u.BadgeCode, UserName: u.Name})
		}
		u.BadgeCode = ""
		s.users = append(s.users, u)
	}
	s.products = append(s.products, seed.Products...)
	s.categories = append(s.categories, seed.Categories...)
	s.locations = append(s.locations, seed.Locations...)
	s.purposes = append(s.purposes, seed.Purposes...)
	s.registrations = append(s.registrations, seed.Registrations...)
	s.nextID = int64(len(seed.Products) + len(seed.Categories) + len(seed.Registrations))
	return s
}

// SetOffline makes every call fail with a connectivity error.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// FailOn makes op ("list", "create", "update", "delete") on entity return err.
// A nil err clears the fault.
func (s *Store) FailOn(op string, entity catalog.Entity, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := op + ":" + string(entity)
	if err == nil {
		delete(s.failures, key)
		return
	}
	s.failures[key] = err
}

// Calls reports how often op ran against entity, failed calls included.
func (s *Store) Calls(op string, entity catalog.Entity) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op+":"+string(entity)]
}

// SetClock overrides the time source for server-side timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// begin records the call and returns the injected failure, if any. Callers hold s.mu.
func (s *Store) begin(op string, entity catalog.Entity) error {
	key := op + ":" + string(entity)
	s.calls[key]++
	if s.offline {
		return shared.E(shared.KindConnectivity, op, string(entity), fmt.Errorf("memstore offline"))
	}
	if err, ok := s.failures[key]; ok {
		kind := shared.KindRemoteWrite
		if op == "list" {
			kind = shared.KindRemoteRead
		}
		return shared.E(kind, op, string(entity), err)
	}
	return nil
}

func (s *Store) id() string {
	s.nextID++
	return strconv.FormatInt(s.nextID, 10)
}

// TestConnection reports false while the store is offline.
func (s *Store) TestConnection(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.offline && ctx.Err() == nil
}

func (s *Store) Close() error { return nil }

func (s *Store) Users() remote.Table[catalog.User] {
	return &table[catalog.User]{
		s: s, entity: catalog.EntityUsers, items: &s.users, hub: s.userHub,
		prepare: func(_ *Store, u catalog.User) catalog.User {
			u.BadgeCode = ""
			return u
		},
		afterDelete: func(s *Store, u catalog.User) {
			s.badges = removeBadge(s.badges, u.Name)
		},
		afterRename: func(s *Store, from, to string) {
			for i := range s.badges {
				if s.badges[i].UserName == from {
					s.badges[i].UserName = to
				}
			}
		},
	}
}

func (s *Store) Products() remote.Table[catalog.Product] {
	return &table[catalog.Product]{
		s: s, entity: catalog.EntityProducts, items: &s.products, hub: s.productHub,
		prepare: func(s *Store, p catalog.Product) catalog.Product {
			if p.ID == "" {
				p.ID = s.id()
			}
			if p.CreatedAt.IsZero() {
				p.CreatedAt = s.now().UTC()
			}
			return p
		},
		unique: func(items []catalog.Product, p catalog.Product, except string) bool {
			return catalog.Conflict(items, func(o catalog.Product) string { return o.QRCode }, p.QRCode, except)
		},
	}
}

func (s *Store) Categories() remote.Table[catalog.Category] {
	return &table[catalog.Category]{
		s: s, entity: catalog.EntityCategories, items: &s.categories, hub: s.categoryHub,
		prepare: func(s *Store, c catalog.Category) catalog.Category {
			if c.ID == "" {
				c.ID = s.id()
			}
			return c
		},
		unique: func(items []catalog.Category, c catalog.Category, except string) bool {
			return catalog.Conflict(items, func(o catalog.Category) string { return o.Name }, c.Name, except)
		},
	}
}

func (s *Store) Locations() remote.Table[catalog.Location] {
	return &table[catalog.Location]{s: s, entity: catalog.EntityLocations, items: &s.locations, hub: s.locationHub}
}

func (s *Store) Purposes() remote.Table[catalog.Purpose] {
	return &table[catalog.Purpose]{s: s, entity: catalog.EntityPurposes, items: &s.purposes, hub: s.purposeHub}
}

func (s *Store) Registrations() remote.Table[catalog.Registration] {
	return &table[catalog.Registration]{
		s: s, entity: catalog.EntityRegistrations, items: &s.registrations, hub: s.registrationHub,
		prepare: func(s *Store, r catalog.Registration) catalog.Registration {
			if r.ID == "" {
				r.ID = s.id()
			}
			return r
		},
	}
}

func (s *Store) Badges() remote.BadgeTable { return badgeTable{s: s} }

func (s *Store) Blobs() remote.BlobStore { return blobStore{s: s} }

type table[T catalog.Record] struct {
	s           *Store
	entity      catalog.Entity
	items       *[]T
	hub         *remote.Hub[T]
	prepare     func(*Store, T) T
	unique      func(items []T, rec T, exceptKey string) bool
	afterDelete func(*Store, T)
	afterRename func(s *Store, from, to string)
}

func (t *table[T]) snapshot() []T {
	out := make([]T, len(*t.items))
	copy(out, *t.items)
	return out
}

func (t *table[T]) index(key string) int {
	for i, item := range *t.items {
		if item.Key() == key {
			return i
		}
	}
	return -1
}

func (t *table[T]) List(ctx context.Context) ([]T, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.begin("list", t.entity); err != nil {
		return nil, err
	}
	return t.snapshot(), nil
}

func (t *table[T]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.begin("create", t.entity); err != nil {
		return zero, err
	}
	if t.prepare != nil {
		rec = t.prepare(t.s, rec)
	}
	if t.index(rec.Key()) >= 0 || (t.unique != nil && t.unique(*t.items, rec, "")) {
		return zero, shared.E(shared.KindDuplicate, "create", string(t.entity), shared.ErrDuplicate)
	}
	*t.items = append(*t.items, rec)
	t.hub.Publish(t.snapshot())
	return rec, nil
}

func (t *table[T]) Update(ctx context.Context, key string, rec T) (T, error) {
	var zero T
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.begin("update", t.entity); err != nil {
		return zero, err
	}
	idx := t.index(key)
	if idx < 0 {
		return zero, shared.E(shared.KindNotFound, "update", string(t.entity), shared.ErrNotFound)
	}
	if t.prepare != nil {
		rec = t.prepare(t.s, rec)
	}
	if rec.Key() != key && t.index(rec.Key()) >= 0 {
		return zero, shared.E(shared.KindDuplicate, "update", string(t.entity), shared.ErrDuplicate)
	}
	if t.unique != nil && t.unique(*t.items, rec, key) {
		return zero, shared.E(shared.KindDuplicate, "update", string(t.entity), shared.ErrDuplicate)
	}
	(*t.items)[idx] = rec
	if rec.Key() != key && t.afterRename != nil {
		t.afterRename(t.s, key, rec.Key())
	}
	t.hub.Publish(t.snapshot())
	return rec, nil
}

func (t *table[T]) Delete(ctx context.Context, key string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if err := t.s.begin("delete", t.entity); err != nil {
		return err
	}
	idx := t.index(key)
	if idx < 0 {
		return shared.E(shared.KindNotFound, "delete", string(t.entity), shared.ErrNotFound)
	}
	removed := (*t.items)[idx]
	*t.items = append((*t.items)[:idx], (*t.items)[idx+1:]...)
	if t.afterDelete != nil {
		t.afterDelete(t.s, removed)
	}
	t.hub.Publish(t.snapshot())
	return nil
}

func (t *table[T]) Subscribe(ctx context.Context) (<-chan []T, remote.Unsubscribe, error) {
	t.s.mu.Lock()
	offline := t.s.offline
	t.s.mu.Unlock()
	if offline {
		return nil, nil, shared.E(shared.KindConnectivity, "subscribe", string(t.entity), fmt.Errorf("memstore offline"))
	}
	ch, unsubscribe := t.hub.Subscribe(ctx)
	return ch, unsubscribe, nil
}

// Subscribers reports live subscriptions across all tables.
func (s *Store) Subscribers() int {
	return s.userHub.Len() + s.productHub.Len() + s.categoryHub.Len() +
		s.locationHub.Len() + s.purposeHub.Len() + s.registrationHub.Len()
}

// PushUsers publishes the current users table as if another client changed it.
func (s *Store) PushUsers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.User, len(s.users))
	copy(out, s.users)
	s.userHub.Publish(out)
}

// PushProducts publishes items on the products feed without touching the table.
func (s *Store) PushProducts(items []catalog.Product) {
	s.productHub.Publish(items)
}

type badgeTable struct {
	s *Store
}

func removeBadge(badges []catalog.Badge, userName string) []catalog.Badge {
	out := badges[:0]
	for _, b := range badges {
		if b.UserName != userName {
			out = append(out, b)
		}
	}
	return out
}

func (b badgeTable) List(ctx context.Context) ([]catalog.Badge, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.begin("list", catalog.EntityBadges); err != nil {
		return nil, err
	}
	out := make([]catalog.Badge, len(b.s.badges))
	copy(out, b.s.badges)
	return out, nil
}

func (b badgeTable) DeleteByUser(ctx context.Context, userName string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.begin("delete", catalog.EntityBadges); err != nil {
		return err
	}
	b.s.badges = removeBadge(b.s.badges, userName)
	out := make([]catalog.User, len(b.s.users))
	copy(out, b.s.users)
	b.s.userHub.Publish(out)
	return nil
}

func (b badgeTable) Insert(ctx context.Context, badge catalog.Badge) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.begin("create", catalog.EntityBadges); err != nil {
		return err
	}
	for _, existing := range b.s.badges {
		if existing.BadgeID == badge.BadgeID || existing.UserName == badge.UserName {
			return shared.E(shared.KindDuplicate, "create", string(catalog.EntityBadges), shared.ErrDuplicate)
		}
	}
	b.s.badges = append(b.s.badges, badge)
	out := make([]catalog.User, len(b.s.users))
	copy(out, b.s.users)
	b.s.userHub.Publish(out)
	return nil
}

type blobStore struct {
	s *Store
}

func (b blobStore) Upload(ctx context.Context, ownerKey, name, contentType string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", shared.E(shared.KindFileParse, "upload", "attachments", err)
	}
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.begin("create", "attachments"); err != nil {
		return "", err
	}
	url := fmt.Sprintf("mem://attachments/%s/%s-%s", ownerKey, uuid.NewString(), name)
	b.s.blobs[url] = blob{name: name, contentType: contentType, data: data}
	return url, nil
}

func (b blobStore) Delete(ctx context.Context, url string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if err := b.s.begin("delete", "attachments"); err != nil {
		return err
	}
	if _, ok := b.s.blobs[url]; !ok {
		return shared.E(shared.KindNotFound, "delete", "attachments", shared.ErrNotFound)
	}
	delete(b.s.blobs, url)
	return nil
}

func (b blobStore) Open(ctx context.Context, url string) (remote.Blob, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	stored, ok := b.s.blobs[url]
	if !ok {
		return remote.Blob{}, shared.E(shared.KindNotFound, "open", "attachments", shared.ErrNotFound)
	}
	return remote.Blob{
		Name:        stored.name,
		ContentType: stored.contentType,
		Size:        int64(len(stored.data)),
		Body:        io.NopCloser(bytes.NewReader(stored.data)),
	}, nil
}

// BlobCount reports how many attachments are stored.
func (s *Store) BlobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.blobs)
}
