// Package location implements the donation-location maintenance screen:
// listing with city names, a filter/sort/paginate view, update and delete.
package location

import (
	"sort"
	"time"

	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/parse"
)

// SortKey selects the ordering of the view.
type SortKey string

const (
	// SortByDate orders by most recent update first.
	SortByDate SortKey = "date"
	// SortByName orders by name, byte-wise ascending.
	SortByName SortKey = "name"
)

// ParseSortKey maps a query value to a SortKey, defaulting to SortByDate.
func ParseSortKey(s string) SortKey {
	if SortKey(s) == SortByName {
		return SortByName
	}
	return SortByDate
}

// Filter keeps the locations whose name contains q, ignoring case. An empty
// q keeps everything.
func Filter(locs []model.DonationLocation, q string) []model.DonationLocation {
	out := make([]model.DonationLocation, 0, len(locs))
	for _, l := range locs {
		if q == "" || parse.ContainsFold(l.Name, q) {
			out = append(out, l)
		}
	}
	return out
}

// Sort orders locs in place. Unparseable updated_at values sort last.
func Sort(locs []model.DonationLocation, key SortKey) {
	switch key {
	case SortByName:
		sort.SliceStable(locs, func(i, j int) bool {
			return locs[i].Name < locs[j].Name
		})
	default:
		stamps := make(map[int64]time.Time, len(locs))
		for _, l := range locs {
			if t, err := parse.Timestamp(l.UpdatedAt); err == nil {
				stamps[l.ID] = t
			}
		}
		sort.SliceStable(locs, func(i, j int) bool {
			return stamps[locs[i].ID].After(stamps[locs[j].ID])
		})
	}
}

// View is the derived list shown on the maintenance screen. The typed query
// only takes effect on Search; sort changes apply immediately.
type View struct {
	all      []model.DonationLocation
	filtered []model.DonationLocation
	query    string
	sortBy   SortKey
	page     int
	pageSize int
}

// NewView builds a view over all locations, sorted by date, on page 1.
func NewView(all []model.DonationLocation, pageSize int) *View {
	if pageSize <= 0 {
		pageSize = 6
	}
	v := &View{all: all, sortBy: SortByDate, page: 1, pageSize: pageSize}
	v.apply()
	return v
}

func (v *View) apply() {
	result := Filter(v.all, v.query)
	Sort(result, v.sortBy)
	v.filtered = result
	v.clamp()
}

func (v *View) clamp() {
	if total := v.TotalPages(); v.page > total {
		v.page = total
	}
	if v.page < 1 {
		v.page = 1
	}
}

// SetQuery records the text typed in the search box.
func (v *View) SetQuery(q string) {
	v.query = q
}

// Search applies the typed query with the current sort and goes back to the
// first page.
func (v *View) Search() {
	v.apply()
	v.page = 1
}

// SetSort changes the ordering and re-applies the view.
func (v *View) SetSort(key SortKey) {
	v.sortBy = key
	v.apply()
}

// SortBy returns the current ordering.
func (v *View) SortBy() SortKey {
	return v.sortBy
}

// SetPage jumps to page n, clamped to [1, TotalPages].
func (v *View) SetPage(n int) {
	v.page = n
	v.clamp()
}

// NextPage advances one page, stopping at the last.
func (v *View) NextPage() {
	v.SetPage(v.page + 1)
}

// PrevPage goes back one page, stopping at the first.
func (v *View) PrevPage() {
	v.SetPage(v.page - 1)
}

// PageIndex returns the current 1-based page.
func (v *View) PageIndex() int {
	return v.page
}

// TotalPages is ceil(filtered/pageSize), at least 1.
func (v *View) TotalPages() int {
	n := (len(v.filtered) + v.pageSize - 1) / v.pageSize
	if n < 1 {
		return 1
	}
	return n
}

// Total is the number of locations after filtering.
func (v *View) Total() int {
	return len(v.filtered)
}

// Filtered returns the whole filtered and sorted list.
func (v *View) Filtered() []model.DonationLocation {
	return v.filtered
}

// Page returns the locations on the current page.
func (v *View) Page() []model.DonationLocation {
	start := (v.page - 1) * v.pageSize
	if start >= len(v.filtered) {
		return []model.DonationLocation{}
	}
	end := start + v.pageSize
	if end > len(v.filtered) {
		end = len(v.filtered)
	}
	return v.filtered[start:end]
}
