package location

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/upstream"
)

func names(locs []model.DonationLocation) []string {
	out := make([]string, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.Name)
	}
	return out
}

func ids(locs []model.DonationLocation) []int64 {
	out := make([]int64, 0, len(locs))
	for _, l := range locs {
		out = append(out, l.ID)
	}
	return out
}

func TestView_SortByNameAndDate(t *testing.T) {
	locs := []model.DonationLocation{
		{ID: 1, Name: "B", UpdatedAt: "2024-01-01T00:00:00Z"},
		{ID: 2, Name: "A", UpdatedAt: "2024-02-01T00:00:00Z"},
	}

	v := NewView(locs, 6)
	v.SetSort(SortByName)
	assert.Equal(t, []string{"A", "B"}, names(v.Page()))

	v.SetSort(SortByDate)
	assert.Equal(t, []int64{2, 1}, ids(v.Page()))
}

func TestSort_UnparseableDatesLast(t *testing.T) {
	locs := []model.DonationLocation{
		{ID: 1, UpdatedAt: "garbage"},
		{ID: 2, UpdatedAt: "2023-05-01T10:00:00.000Z"},
		{ID: 3, UpdatedAt: ""},
		{ID: 4, UpdatedAt: "2024-05-01 10:00:00"},
	}
	Sort(locs, SortByDate)
	assert.Equal(t, []int64{4, 2, 1, 3}, ids(locs))
}

func TestSort_NameIsCaseSensitiveAndStable(t *testing.T) {
	locs := []model.DonationLocation{
		{ID: 1, Name: "b"},
		{ID: 2, Name: "B"},
		{ID: 3, Name: "a"},
		{ID: 4, Name: "B"},
	}
	Sort(locs, SortByName)
	assert.Equal(t, []int64{2, 4, 3, 1}, ids(locs))
}

func TestFilter(t *testing.T) {
	locs := []model.DonationLocation{
		{ID: 1, Name: "Hemocentro Central"},
		{ID: 2, Name: "Posto Norte"},
		{ID: 3, Name: "HEMOCENTRO Sul"},
	}
	assert.Equal(t, []int64{1, 3}, ids(Filter(locs, "hemo")))
	assert.Len(t, Filter(locs, ""), 3)
	assert.Empty(t, Filter(locs, "nada"))
}

func manyLocations(n int) []model.DonationLocation {
	locs := make([]model.DonationLocation, 0, n)
	for i := 1; i <= n; i++ {
		locs = append(locs, model.DonationLocation{
			ID:        int64(i),
			Name:      fmt.Sprintf("Local %02d", i),
			UpdatedAt: fmt.Sprintf("2024-01-%02dT00:00:00Z", i),
		})
	}
	return locs
}

func TestView_Pagination(t *testing.T) {
	v := NewView(manyLocations(14), 6)
	assert.Equal(t, 3, v.TotalPages())
	assert.Equal(t, 1, v.PageIndex())
	assert.Len(t, v.Page(), 6)

	v.PrevPage()
	assert.Equal(t, 1, v.PageIndex())

	v.SetPage(3)
	assert.Len(t, v.Page(), 2)
	v.NextPage()
	assert.Equal(t, 3, v.PageIndex())

	v.SetPage(99)
	assert.Equal(t, 3, v.PageIndex())
	v.SetPage(-4)
	assert.Equal(t, 1, v.PageIndex())
}

func TestView_EmptyHasOnePage(t *testing.T) {
	v := NewView(nil, 6)
	assert.Equal(t, 1, v.TotalPages())
	assert.Equal(t, 1, v.PageIndex())
	assert.Empty(t, v.Page())
	v.NextPage()
	assert.Equal(t, 1, v.PageIndex())
}

func TestView_QueryAppliesOnSearch(t *testing.T) {
	v := NewView(manyLocations(14), 6)
	v.SetPage(3)

	v.SetQuery("Local 1")
	assert.Equal(t, 14, v.Total(), "typing alone does not filter")

	v.Search()
	assert.Equal(t, 5, v.Total())
	assert.Equal(t, 1, v.PageIndex())
}

func TestView_SortUsesTypedQuery(t *testing.T) {
	v := NewView(manyLocations(14), 6)
	v.SetQuery("Local 0")
	v.SetSort(SortByName)
	assert.Equal(t, 9, v.Total())
	assert.Equal(t, "Local 01", v.Page()[0].Name)
}

type fakeSource struct {
	locs      []model.DonationLocation
	listErr   error
	updateErr error
	deleteErr error
	updated   []upstream.LocationUpdate
}

func (f *fakeSource) ListLocations(context.Context) ([]model.DonationLocation, error) {
	return f.locs, f.listErr
}

func (f *fakeSource) UpdateLocation(_ context.Context, u upstream.LocationUpdate) error {
	f.updated = append(f.updated, u)
	return f.updateErr
}

func (f *fakeSource) DeleteLocation(context.Context, int64) error {
	return f.deleteErr
}

type fakeCities struct {
	asked []int64
}

func (f *fakeCities) CityNames(_ context.Context, ids []int64) map[int64]string {
	f.asked = ids
	out := map[int64]string{}
	for _, id := range ids {
		if id == 1 {
			out[id] = "Curitiba"
		}
	}
	return out
}

func TestService_Browse(t *testing.T) {
	src := &fakeSource{locs: []model.DonationLocation{
		{ID: 1, Name: "Hemocentro", CityID: 1, UpdatedAt: "2024-01-01T00:00:00Z"},
		{ID: 2, Name: "Posto", CityID: 2, UpdatedAt: "2024-03-01T00:00:00Z"},
	}}
	cities := &fakeCities{}
	svc := NewService(src, cities, 6)

	listing, err := svc.Browse(context.Background(), Query{Sort: SortByDate})
	require.NoError(t, err)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, int64(2), listing.Items[0].ID)
	assert.Equal(t, "", listing.Items[0].CityName)
	assert.Equal(t, "Curitiba", listing.Items[1].CityName)
	assert.Equal(t, 1, listing.TotalPages)
	assert.ElementsMatch(t, []int64{1, 2}, cities.asked)

	listing, err = svc.Browse(context.Background(), Query{Search: "hemo", Sort: SortByName, Page: 5})
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, 1, listing.Page)
	assert.Equal(t, SortByName, listing.Sort)
}

func TestService_BrowseRemoteError(t *testing.T) {
	svc := NewService(&fakeSource{listErr: errors.New("boom")}, &fakeCities{}, 6)
	_, err := svc.Browse(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrRemote)
}

func TestService_Update(t *testing.T) {
	src := &fakeSource{}
	svc := NewService(src, &fakeCities{}, 6)

	err := svc.Update(context.Background(), 3, Form{Name: " ", CityID: 1})
	assert.ErrorIs(t, err, ErrInvalidForm)
	assert.Empty(t, src.updated)

	err = svc.Update(context.Background(), 3, Form{Name: "Hemocentro", Street: "Rua A", Number: "1", CityID: 4})
	require.NoError(t, err)
	require.Len(t, src.updated, 1)
	assert.Equal(t, upstream.LocationUpdate{ID: 3, Name: "Hemocentro", Street: "Rua A", Number: "1", CityID: 4}, src.updated[0])

	src.updateErr = &upstream.StatusError{Op: "update", StatusCode: 500}
	err = svc.Update(context.Background(), 3, Form{Name: "Hemocentro", CityID: 4})
	assert.ErrorIs(t, err, ErrRemote)
}

func TestService_Delete(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "Success", err: nil, expected: nil},
		{name: "Referenced by donations", err: &upstream.StatusError{Op: "delete", StatusCode: 400}, expected: ErrInUse},
		{name: "Conflict", err: &upstream.StatusError{Op: "delete", StatusCode: 409}, expected: ErrInUse},
		{name: "Server error is a remote failure", err: &upstream.StatusError{Op: "delete", StatusCode: 500}, expected: ErrRemote},
		{name: "Bad gateway is a remote failure", err: &upstream.StatusError{Op: "delete", StatusCode: 502}, expected: ErrRemote},
		{name: "Unknown id", err: &upstream.StatusError{Op: "delete", StatusCode: 404}, expected: ErrNotFound},
		{name: "Transport failure", err: errors.New("connection refused"), expected: ErrRemote},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(&fakeSource{deleteErr: tc.err}, &fakeCities{}, 6)
			err := svc.Delete(context.Background(), 7)
			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}
