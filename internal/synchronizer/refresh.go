package synchronizer

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

const (
	sourceWrite  = "write"
	sourcePush   = "push"
	sourceManual = "manual"
)

func (s *Synchronizer) observeRefresh(entity catalog.Entity, source string, err error) {
	if s.recorder != nil {
		s.recorder.ObserveRefresh(entity, source, err)
	}
}

// refreshList re-reads one collection. A failed read keeps the previous items.
func refreshList[T any](ctx context.Context, s *Synchronizer, entity catalog.Entity, c *collection[T], list func(context.Context) ([]T, error)) error {
	ticket := c.begin()
	items, err := list(ctx)
	if err != nil {
		s.logger.Warn("refresh failed, keeping previous collection",
			slog.String("entity", string(entity)), slog.Any("error", err))
		return err
	}
	if !c.replace(ticket, items) {
		s.logger.Debug("discarding superseded refresh", slog.String("entity", string(entity)))
	}
	return nil
}

func joinBadges(users []catalog.User, badges []catalog.Badge) []catalog.User {
	byName := make(map[string]string, len(badges))
	for _, b := range badges {
		byName[b.UserName] = b.BadgeID
	}
	out := make([]catalog.User, len(users))
	for i, u := range users {
		u.BadgeCode = byName[u.Name]
		out[i] = u
	}
	return out
}

// fetchUsers reads the users and badge tables and joins them by name.
func (s *Synchronizer) fetchUsers(ctx context.Context) ([]catalog.User, error) {
	var (
		users  []catalog.User
		badges []catalog.Badge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		users, err = s.store.Users().List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		badges, err = s.store.Badges().List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return joinBadges(users, badges), nil
}

func (s *Synchronizer) refreshUsers(ctx context.Context) error {
	return refreshList(ctx, s, catalog.EntityUsers, &s.users, s.fetchUsers)
}

func (s *Synchronizer) refreshProducts(ctx context.Context) error {
	return refreshList(ctx, s, catalog.EntityProducts, &s.products, s.store.Products().List)
}

func (s *Synchronizer) refreshCategories(ctx context.Context) error {
	return refreshList(ctx, s, catalog.EntityCategories, &s.categories, s.store.Categories().List)
}

func (s *Synchronizer) refreshLocations(ctx context.Context) error {
	return refreshList(ctx, s, catalog.EntityLocations, &s.locations, s.store.Locations().List)
}

func (s *Synchronizer) refreshPurposes(ctx context.Context) error {
	return refreshList(ctx, s, catalog.EntityPurposes, &s.purposes, s.store.Purposes().List)
}

func (s *Synchronizer) refreshRegistrations(ctx context.Context) error {
	return refreshList(ctx, s, catalog.EntityRegistrations, &s.registrations, s.store.Registrations().List)
}

func (s *Synchronizer) refresher(entity catalog.Entity) (func(context.Context) error, error) {
	switch entity {
	case catalog.EntityUsers, catalog.EntityBadges:
		return s.refreshUsers, nil
	case catalog.EntityProducts:
		return s.refreshProducts, nil
	case catalog.EntityCategories:
		return s.refreshCategories, nil
	case catalog.EntityLocations:
		return s.refreshLocations, nil
	case catalog.EntityPurposes:
		return s.refreshPurposes, nil
	case catalog.EntityRegistrations:
		return s.refreshRegistrations, nil
	}
	return nil, shared.E(shared.KindNotFound, "refresh", string(entity), fmt.Errorf("unknown collection: %w", shared.ErrNotFound))
}

// Refresh re-reads one collection on request. Concurrent manual and push
// refreshes of the same collection share a single read.
func (s *Synchronizer) Refresh(ctx context.Context, entity catalog.Entity) error {
	if s.store == nil {
		return shared.E(shared.KindConnectivity, "refresh", string(entity), shared.ErrNotConfigured)
	}
	refresh, err := s.refresher(entity)
	if err != nil {
		return err
	}
	_, err, _ = s.pushFlight.Do(string(entity), func() (any, error) {
		return nil, refresh(ctx)
	})
	s.observeRefresh(entity, sourceManual, err)
	return err
}

// subscribeAll opens one change channel per collection. Subscriptions outlive
// the startup context and end with Close.
func (s *Synchronizer) subscribeAll() {
	ctx, cancel := context.WithCancel(context.Background())
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return
	}
	s.subCancel = cancel
	s.mu.Unlock()

	watch(ctx, s, catalog.EntityUsers, s.store.Users(), func(ctx context.Context, _ []catalog.User) {
		_, err, _ := s.pushFlight.Do(string(catalog.EntityUsers), func() (any, error) {
			return nil, s.refreshUsers(ctx)
		})
		s.observeRefresh(catalog.EntityUsers, sourcePush, err)
	})
	watch(ctx, s, catalog.EntityProducts, s.store.Products(), func(ctx context.Context, items []catalog.Product) {
		applyPush(ctx, s, catalog.EntityProducts, &s.products, items, s.refreshProducts)
	})
	watch(ctx, s, catalog.EntityCategories, s.store.Categories(), func(ctx context.Context, items []catalog.Category) {
		applyPush(ctx, s, catalog.EntityCategories, &s.categories, items, s.refreshCategories)
	})
	watch(ctx, s, catalog.EntityLocations, s.store.Locations(), func(ctx context.Context, items []catalog.Location) {
		applyPush(ctx, s, catalog.EntityLocations, &s.locations, items, s.refreshLocations)
	})
	watch(ctx, s, catalog.EntityPurposes, s.store.Purposes(), func(ctx context.Context, items []catalog.Purpose) {
		applyPush(ctx, s, catalog.EntityPurposes, &s.purposes, items, s.refreshPurposes)
	})
	watch(ctx, s, catalog.EntityRegistrations, s.store.Registrations(), func(ctx context.Context, items []catalog.Registration) {
		applyPush(ctx, s, catalog.EntityRegistrations, &s.registrations, items, s.refreshRegistrations)
	})
}

// watch consumes one change channel on its own goroutine until the channel
// is closed.
func watch[T any](ctx context.Context, s *Synchronizer, entity catalog.Entity, table remote.Table[T], handle func(context.Context, []T)) {
	ch, unsubscribe, err := table.Subscribe(ctx)
	if err != nil {
		s.logger.Warn("subscribe failed", slog.String("entity", string(entity)), slog.Any("error", err))
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubs = append(s.unsubs, unsubscribe)
	s.subWG.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.subWG.Done()
		for items := range ch {
			if s.recorder != nil {
				s.recorder.ObservePush(entity)
			}
			handle(ctx, items)
		}
	}()
}

// applyPush replaces a collection with a pushed snapshot. A snapshot that
// fails validation is discarded in favour of a fresh read.
func applyPush[T catalog.Record](ctx context.Context, s *Synchronizer, entity catalog.Entity, c *collection[T], items []T, refresh func(context.Context) error) {
	if err := checkPayload(entity, items); err != nil {
		s.logger.Warn("invalid pushed snapshot, re-reading",
			slog.String("entity", string(entity)), slog.Any("error", err))
		s.observeRefresh(entity, sourcePush, refresh(ctx))
		return
	}
	c.replace(c.begin(), items)
	s.observeRefresh(entity, sourcePush, nil)
}

// checkPayload validates a snapshot received from the store before it is
// installed: every record must pass validation and keys must be unique.
func checkPayload[T catalog.Record](entity catalog.Entity, items []T) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := item.Key()
		if key == "" {
			return shared.E(shared.KindRemoteRead, "push", string(entity), fmt.Errorf("record without key"))
		}
		if _, dup := seen[key]; dup {
			return shared.E(shared.KindRemoteRead, "push", string(entity), fmt.Errorf("key %q: %w", key, shared.ErrDuplicate))
		}
		seen[key] = struct{}{}

		var err error
		switch v := any(item).(type) {
		case catalog.Location:
			err = catalog.RequireName(entity, string(v))
		case catalog.Purpose:
			err = catalog.RequireName(entity, string(v))
		default:
			err = catalog.Validate(entity, v)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
