package donor

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"hemagenda-backend/internal/model"
)

// Source lists every registered donor.
type Source interface {
	ListDonors(ctx context.Context) ([]model.Donor, error)
}

const donorsKey = "donors"

// Directory keeps the full donor list for ttl so that matching does not
// refetch on every keystroke.
type Directory struct {
	src   Source
	cache *cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewDirectory creates a Directory.
func NewDirectory(src Source, ttl time.Duration) *Directory {
	return &Directory{
		src:   src,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Donors returns the cached list, fetching it when stale. Concurrent callers
// share one fetch, which outlives any single caller's cancellation.
func (d *Directory) Donors(ctx context.Context) ([]model.Donor, error) {
	if v, ok := d.cache.Get(donorsKey); ok {
		return v.([]model.Donor), nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := d.group.DoChan(donorsKey, func() (any, error) {
		donors, err := d.src.ListDonors(fetchCtx)
		if err != nil {
			return nil, err
		}
		d.cache.Set(donorsKey, donors, d.ttl)
		return donors, nil
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("failed to fetch donors: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("failed to fetch donors: %w", res.Err)
		}
		return res.Val.([]model.Donor), nil
	}
}

// Refresh drops the cached list.
func (d *Directory) Refresh() {
	d.cache.Delete(donorsKey)
}
