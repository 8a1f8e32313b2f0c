// Package reference serves states and cities with a time-based staleness
// policy. Concurrent lookups for the same key share one upstream request.
package reference

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"hemagenda-backend/internal/model"
)

// Source is the upstream surface this package reads from.
type Source interface {
	ListStates(ctx context.Context) ([]model.State, error)
	ListCities(ctx context.Context) ([]model.City, error)
	GetCity(ctx context.Context, id int64) (model.City, error)
}

const (
	statesKey = "states"
	citiesKey = "cities"
)

// Client caches reference data for ttl.
type Client struct {
	src   Source
	cache *cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewClient creates a reference-data client.
func NewClient(src Source, ttl time.Duration) *Client {
	return &Client{
		src:   src,
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Invalidate drops everything cached so the next read refetches.
func (c *Client) Invalidate() {
	c.cache.Flush()
}

// load returns the cached value for key or runs fetch once for all
// concurrent callers. fetch runs detached from ctx's cancellation so one
// caller leaving does not fail the others; ctx only bounds this caller's wait.
func (c *Client) load(ctx context.Context, key string, fetch func(context.Context) (any, error)) (any, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		v, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}
		c.cache.Set(key, v, c.ttl)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// States lists all states.
func (c *Client) States(ctx context.Context) ([]model.State, error) {
	v, err := c.load(ctx, statesKey, func(ctx context.Context) (any, error) {
		return c.src.ListStates(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch states: %w", err)
	}
	return v.([]model.State), nil
}

// StateByCode finds a state by its two-letter code, ignoring case.
func (c *Client) StateByCode(ctx context.Context, code string) (model.State, bool, error) {
	states, err := c.States(ctx)
	if err != nil {
		return model.State{}, false, err
	}
	for _, s := range states {
		if strings.EqualFold(s.Code, code) {
			return s, true, nil
		}
	}
	return model.State{}, false, nil
}

// Cities lists the cities of every state.
func (c *Client) Cities(ctx context.Context) ([]model.City, error) {
	v, err := c.load(ctx, citiesKey, func(ctx context.Context) (any, error) {
		return c.src.ListCities(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cities: %w", err)
	}
	return v.([]model.City), nil
}

// CitiesByState filters the city list to one state.
func (c *Client) CitiesByState(ctx context.Context, stateID int64) ([]model.City, error) {
	all, err := c.Cities(ctx)
	if err != nil {
		return nil, err
	}
	cities := make([]model.City, 0)
	for _, city := range all {
		if city.StateID == stateID {
			cities = append(cities, city)
		}
	}
	return cities, nil
}

// CityName resolves the name of one city.
func (c *Client) CityName(ctx context.Context, id int64) (string, error) {
	v, err := c.load(ctx, "city:"+strconv.FormatInt(id, 10), func(ctx context.Context) (any, error) {
		city, err := c.src.GetCity(ctx, id)
		if err != nil {
			return nil, err
		}
		return city.Name, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch city %d: %w", id, err)
	}
	return v.(string), nil
}

// CityNames resolves every distinct id concurrently. Ids that fail are logged
// and left out of the result.
func (c *Client) CityNames(ctx context.Context, ids []int64) map[int64]string {
	names := make(map[int64]string, len(ids))
	var mu sync.Mutex
	seen := make(map[int64]struct{}, len(ids))

	var g errgroup.Group
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		g.Go(func() error {
			name, err := c.CityName(ctx, id)
			if err != nil {
				log.Warn().Err(err).Int64("city_id", id).Msg("error fetching city name")
				return nil
			}
			mu.Lock()
			names[id] = name
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return names
}
