package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usagereg/usagereg/internal/catalog"
)

func reg(id, user, product, location string, at time.Time) catalog.Registration {
	return catalog.Registration{
		ID: id, User: user, Product: product, Location: location, Purpose: "Training",
		Timestamp: at, Date: at.Format(catalog.DateLayout), QRCode: "Q" + id,
	}
}

func sample() []catalog.Registration {
	day := func(d, h int) time.Time { return time.Date(2025, 6, d, h, 0, 0, 0, time.UTC) }
	return []catalog.Registration{
		reg("1", "jan", "Fin Oil", "Hal 1", day(10, 8)),
		reg("2", "Émile", "Fin Oil", "Hal 2", day(11, 8)),
		reg("3", "An", "Metal Clean", "Hal 1", day(12, 8)),
		reg("4", "jan", "Fin Super", "Hal 1", day(13, 8)),
		reg("5", "Bart", "Fin Oil", "Kantoor", day(14, 8)),
	}
}

func ids(regs []catalog.Registration) []string {
	out := make([]string, len(regs))
	for i, r := range regs {
		out[i] = r.ID
	}
	return out
}

func TestHistoryDefaultsToNewestFirst(t *testing.T) {
	assert.Equal(t, []string{"5", "4", "3", "2", "1"}, ids(History(sample(), HistoryFilter{})))
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(History(sample(), HistoryFilter{Order: Oldest})))
}

func TestHistorySortsUsersWithDutchCollation(t *testing.T) {
	got := History(sample(), HistoryFilter{SortBy: SortUser, Order: Oldest})
	assert.Equal(t, []string{"3", "5", "2", "1", "4"}, ids(got))
}

func TestHistoryFilters(t *testing.T) {
	regs := sample()
	assert.Equal(t, []string{"5", "2", "1"}, ids(History(regs, HistoryFilter{Search: "fin oil"})))
	assert.Equal(t, []string{"3"}, ids(History(regs, HistoryFilter{Search: "q3"})))
	assert.Equal(t, []string{"4", "1"}, ids(History(regs, HistoryFilter{User: "jan"})))
	assert.Equal(t, []string{"4", "3", "1"}, ids(History(regs, HistoryFilter{User: All, Location: "Hal 1"})))
	assert.Equal(t, []string{"4", "3", "2"}, ids(History(regs, HistoryFilter{From: "2025-06-11", To: "2025-06-13"})))
}

func TestTopKeepsFirstSeenOrderOnTies(t *testing.T) {
	users := Top(sample(), func(r catalog.Registration) string { return r.User }, TopN)
	require.Len(t, users, 4)
	assert.Equal(t, Count{Name: "jan", Count: 2}, users[0])
	assert.Equal(t, []string{"Émile", "An", "Bart"}, []string{users[1].Name, users[2].Name, users[3].Name})

	products := Top(sample(), func(r catalog.Registration) string { return r.Product }, 2)
	assert.Equal(t, []Count{{Name: "Fin Oil", Count: 3}, {Name: "Metal Clean", Count: 1}}, products)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample())
	assert.Equal(t, 5, s.Total)
	require.Len(t, s.Chart, 3)
	assert.Equal(t, "#ff6b6b", s.Chart[0].Color)
	assert.Equal(t, "Hal 1", s.Locations[0].Name)
	assert.Empty(t, Summarize(nil).Users)
}

func TestProductsFilter(t *testing.T) {
	products := catalog.DefaultSeed().Products
	assert.Len(t, Products(products, All, ""), 6)
	assert.Len(t, Products(products, "1", ""), 3)
	got := Products(products, "", "ifmk")
	require.Len(t, got, 1)
	assert.Equal(t, "6", got[0].ID)
	assert.Len(t, Products(products, "2", "foam"), 1)
}

func TestUsersSearchSortsByName(t *testing.T) {
	users := []catalog.User{{Name: "tom"}, {Name: "Anna"}, {Name: "Émile"}, {Name: "Bart"}}
	got := Users(users, "")
	assert.Equal(t, []string{"Anna", "Bart", "Émile", "tom"}, []string{got[0].Name, got[1].Name, got[2].Name, got[3].Name})
	assert.Len(t, Users(users, "AN"), 1)
}

func TestCategoryName(t *testing.T) {
	cats := catalog.DefaultSeed().Categories
	assert.Equal(t, "Reinigers", CategoryName(cats, "2"))
	assert.Equal(t, "Geen categorie", CategoryName(cats, "99"))
	assert.Equal(t, "Geen categorie", CategoryName(cats, ""))
}
