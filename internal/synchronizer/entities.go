package synchronizer

import (
	"context"
	"fmt"
	"strings"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
)

// Categories returns the local categories.
func (s *Synchronizer) Categories() []catalog.Category {
	return s.categories.list()
}

// FindCategory looks a category up by id.
func (s *Synchronizer) FindCategory(id string) (catalog.Category, bool) {
	return s.categories.find(func(c catalog.Category) bool { return c.ID == id })
}

func (s *Synchronizer) checkCategory(c catalog.Category, exceptID string) error {
	if err := catalog.Validate(catalog.EntityCategories, c); err != nil {
		return err
	}
	if catalog.Conflict(s.categories.list(), func(o catalog.Category) string { return o.Name }, c.Name, exceptID) {
		return catalog.DuplicateError(catalog.EntityCategories, "name", c.Name)
	}
	return nil
}

// CreateCategory adds a category and returns it with its generated id.
func (s *Synchronizer) CreateCategory(ctx context.Context, c catalog.Category) (catalog.Category, error) {
	c = catalog.NormalizeCategory(c)
	c.ID = ""
	if err := s.checkCategory(c, ""); err != nil {
		return catalog.Category{}, err
	}
	var created catalog.Category
	err := s.mutate(ctx, catalog.EntityCategories, "create", func(ctx context.Context, st remote.Store) error {
		var err error
		created, err = st.Categories().Create(ctx, c)
		return err
	}, s.refreshCategories)
	return created, err
}

// UpdateCategory renames category id.
func (s *Synchronizer) UpdateCategory(ctx context.Context, id string, c catalog.Category) (bool, error) {
	original, ok := s.FindCategory(id)
	if !ok {
		return false, notFound("update", catalog.EntityCategories)
	}
	c = catalog.NormalizeCategory(c)
	c.ID = original.ID
	if c == original {
		return false, nil
	}
	if err := s.checkCategory(c, id); err != nil {
		return false, err
	}
	err := s.mutate(ctx, catalog.EntityCategories, "update", func(ctx context.Context, st remote.Store) error {
		_, err := st.Categories().Update(ctx, id, c)
		return err
	}, s.refreshCategories)
	return err == nil, err
}

// DeleteCategory removes a category after confirmation. Products keep their
// dangling category id and show as uncategorised.
func (s *Synchronizer) DeleteCategory(ctx context.Context, id string) error {
	c, ok := s.FindCategory(id)
	if !ok {
		return notFound("delete", catalog.EntityCategories)
	}
	if err := s.confirmed(ctx, catalog.EntityCategories, "delete", fmt.Sprintf("Weet je zeker dat je %s wilt verwijderen?", c.Name)); err != nil {
		return err
	}
	return s.mutate(ctx, catalog.EntityCategories, "delete", func(ctx context.Context, st remote.Store) error {
		return st.Categories().Delete(ctx, id)
	}, s.refreshCategories)
}

// Locations returns the local locations.
func (s *Synchronizer) Locations() []catalog.Location {
	return s.locations.list()
}

// Purposes returns the local purposes.
func (s *Synchronizer) Purposes() []catalog.Purpose {
	return s.purposes.list()
}

// nameSet wires a string-set collection to its table.
type nameSet[T interface {
	~string
	Key() string
}] struct {
	s       *Synchronizer
	entity  catalog.Entity
	coll    *collection[T]
	table   func(remote.Store) remote.Table[T]
	refresh func(context.Context) error
}

func (s *Synchronizer) locationSet() nameSet[catalog.Location] {
	return nameSet[catalog.Location]{s: s, entity: catalog.EntityLocations, coll: &s.locations,
		table: remote.Store.Locations, refresh: s.refreshLocations}
}

func (s *Synchronizer) purposeSet() nameSet[catalog.Purpose] {
	return nameSet[catalog.Purpose]{s: s, entity: catalog.EntityPurposes, coll: &s.purposes,
		table: remote.Store.Purposes, refresh: s.refreshPurposes}
}

func (n nameSet[T]) exists(name, except string) bool {
	return catalog.Conflict(n.coll.list(), func(o T) string { return string(o) }, name, except)
}

func (n nameSet[T]) create(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if err := catalog.RequireName(n.entity, name); err != nil {
		return err
	}
	if n.exists(name, "") {
		return catalog.DuplicateError(n.entity, "name", name)
	}
	return n.s.mutate(ctx, n.entity, "create", func(ctx context.Context, st remote.Store) error {
		_, err := n.table(st).Create(ctx, T(name))
		return err
	}, n.refresh)
}

func (n nameSet[T]) rename(ctx context.Context, original, name string) (bool, error) {
	if !n.exists(original, "") {
		return false, notFound("update", n.entity)
	}
	name = strings.TrimSpace(name)
	if name == original {
		return false, nil
	}
	if err := catalog.RequireName(n.entity, name); err != nil {
		return false, err
	}
	if n.exists(name, original) {
		return false, catalog.DuplicateError(n.entity, "name", name)
	}
	err := n.s.mutate(ctx, n.entity, "update", func(ctx context.Context, st remote.Store) error {
		_, err := n.table(st).Update(ctx, original, T(name))
		return err
	}, n.refresh)
	return err == nil, err
}

func (n nameSet[T]) remove(ctx context.Context, name string) error {
	if !n.exists(name, "") {
		return notFound("delete", n.entity)
	}
	if err := n.s.confirmed(ctx, n.entity, "delete", fmt.Sprintf("Weet je zeker dat je %s wilt verwijderen?", name)); err != nil {
		return err
	}
	return n.s.mutate(ctx, n.entity, "delete", func(ctx context.Context, st remote.Store) error {
		return n.table(st).Delete(ctx, name)
	}, n.refresh)
}

// CreateLocation adds a location.
func (s *Synchronizer) CreateLocation(ctx context.Context, name string) error {
	return s.locationSet().create(ctx, name)
}

// RenameLocation renames a location. Past registrations keep the old name.
func (s *Synchronizer) RenameLocation(ctx context.Context, original, name string) (bool, error) {
	return s.locationSet().rename(ctx, original, name)
}

// DeleteLocation removes a location after confirmation.
func (s *Synchronizer) DeleteLocation(ctx context.Context, name string) error {
	return s.locationSet().remove(ctx, name)
}

// CreatePurpose adds a purpose.
func (s *Synchronizer) CreatePurpose(ctx context.Context, name string) error {
	return s.purposeSet().create(ctx, name)
}

// RenamePurpose renames a purpose. Past registrations keep the old name.
func (s *Synchronizer) RenamePurpose(ctx context.Context, original, name string) (bool, error) {
	return s.purposeSet().rename(ctx, original, name)
}

// DeletePurpose removes a purpose after confirmation.
func (s *Synchronizer) DeletePurpose(ctx context.Context, name string) error {
	return s.purposeSet().remove(ctx, name)
}
