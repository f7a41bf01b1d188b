package stats

import (
	"slices"

	"github.com/usagereg/usagereg/internal/catalog"
)

// TopN is how many entries the statistics screen shows.
const TopN = 5

// Count is one ranked entry.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Color string `json:"color,omitempty"`
}

// Summary is the statistics screen.
type Summary struct {
	Total     int     `json:"total"`
	Users     []Count `json:"topUsers"`
	Products  []Count `json:"topProducts"`
	Locations []Count `json:"topLocations"`
	Chart     []Count `json:"productChart"`
}

var chartColors = []string{"#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#feca57", "#ff9ff3", "#54a0ff", "#5f27cd"}

// Top counts registrations per key and returns the n most frequent. Ties keep
// the order in which keys first appear.
func Top(regs []catalog.Registration, key func(catalog.Registration) string, n int) []Count {
	index := make(map[string]int)
	var counts []Count
	for _, r := range regs {
		k := key(r)
		i, ok := index[k]
		if !ok {
			i = len(counts)
			index[k] = i
			counts = append(counts, Count{Name: k})
		}
		counts[i].Count++
	}
	slices.SortStableFunc(counts, func(a, b Count) int { return b.Count - a.Count })
	if n >= 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// Summarize builds the statistics screen.
func Summarize(regs []catalog.Registration) Summary {
	chart := Top(regs, func(r catalog.Registration) string { return r.Product }, TopN)
	for i := range chart {
		chart[i].Color = chartColors[i%len(chartColors)]
	}
	return Summary{
		Total:     len(regs),
		Users:     Top(regs, func(r catalog.Registration) string { return r.User }, TopN),
		Products:  Top(regs, func(r catalog.Registration) string { return r.Product }, TopN),
		Locations: Top(regs, func(r catalog.Registration) string { return r.Location }, TopN),
		Chart:     chart,
	}
}
