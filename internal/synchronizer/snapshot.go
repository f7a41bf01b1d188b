package synchronizer

import "github.com/usagereg/usagereg/internal/catalog"

// Snapshot is a read-only copy of every collection.
type Snapshot struct {
	State         State                     `json:"state"`
	Users         []catalog.User            `json:"users"`
	Products      []catalog.Product         `json:"products"`
	Categories    []catalog.Category        `json:"categories"`
	Locations     []catalog.Location        `json:"locations"`
	Purposes      []catalog.Purpose         `json:"purposes"`
	Registrations []catalog.Registration    `json:"registrations"`
	Versions      map[catalog.Entity]uint64 `json:"versions"`
}

// Snapshot copies all collections. Each collection is internally consistent;
// the six are read one after another.
func (s *Synchronizer) Snapshot() Snapshot {
	return Snapshot{
		State:         s.State(),
		Users:         s.users.list(),
		Products:      s.products.list(),
		Categories:    s.categories.list(),
		Locations:     s.locations.list(),
		Purposes:      s.purposes.list(),
		Registrations: s.registrations.list(),
		Versions:      s.Versions(),
	}
}

// Versions reports how often each collection has been replaced. Clients poll
// it to decide whether to reload.
func (s *Synchronizer) Versions() map[catalog.Entity]uint64 {
	return map[catalog.Entity]uint64{
		catalog.EntityUsers:         s.users.currentVersion(),
		catalog.EntityProducts:      s.products.currentVersion(),
		catalog.EntityCategories:    s.categories.currentVersion(),
		catalog.EntityLocations:     s.locations.currentVersion(),
		catalog.EntityPurposes:      s.purposes.currentVersion(),
		catalog.EntityRegistrations: s.registrations.currentVersion(),
	}
}
