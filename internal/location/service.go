package location

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/upstream"
)

var (
	// ErrInUse is returned when the upstream refuses a delete because
	// donations still reference the location.
	ErrInUse = errors.New("location has registered donations")
	// ErrNotFound is returned for an unknown location id.
	ErrNotFound = errors.New("location not found")
	// ErrInvalidForm is returned for an update missing required fields.
	ErrInvalidForm = errors.New("invalid location form")
	// ErrRemote wraps any other upstream failure.
	ErrRemote = errors.New("donation api request failed")
)

// Source is the upstream surface for locations.
type Source interface {
	ListLocations(ctx context.Context) ([]model.DonationLocation, error)
	UpdateLocation(ctx context.Context, u upstream.LocationUpdate) error
	DeleteLocation(ctx context.Context, id int64) error
}

// CityNamer resolves city names, each distinct id once.
type CityNamer interface {
	CityNames(ctx context.Context, ids []int64) map[int64]string
}

// Entry is a location with its resolved city name.
type Entry struct {
	model.DonationLocation
	CityName string `json:"cidade_nome,omitempty"`
}

// Listing is one page of the maintenance view.
type Listing struct {
	Items      []Entry `json:"items"`
	Page       int     `json:"page"`
	TotalPages int     `json:"total_pages"`
	Total      int     `json:"total"`
	Sort       SortKey `json:"sort"`
	Query      string  `json:"query"`
}

// Query selects a page of the view.
type Query struct {
	Search string
	Sort   SortKey
	Page   int
}

// Form is the editable part of a location.
type Form struct {
	Name       string `json:"nome"`
	Street     string `json:"rua"`
	Number     string `json:"numero"`
	Complement string `json:"complemento"`
	CityID     int64  `json:"cidade_id"`
}

// Service loads and edits donation locations.
type Service struct {
	src      Source
	cities   CityNamer
	pageSize int
}

// NewService creates a Service.
func NewService(src Source, cities CityNamer, pageSize int) *Service {
	return &Service{src: src, cities: cities, pageSize: pageSize}
}

// Load fetches every location and the names of the cities they reference.
func (s *Service) Load(ctx context.Context) ([]model.DonationLocation, map[int64]string, error) {
	locs, err := s.src.ListLocations(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrRemote, err)
	}
	ids := make([]int64, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.CityID)
	}
	return locs, s.cities.CityNames(ctx, ids), nil
}

// Browse loads the locations and returns the requested page of the view.
func (s *Service) Browse(ctx context.Context, q Query) (Listing, error) {
	locs, names, err := s.Load(ctx)
	if err != nil {
		return Listing{}, err
	}

	v := NewView(locs, s.pageSize)
	v.SetSort(q.Sort)
	v.SetQuery(q.Search)
	v.Search()
	if q.Page > 0 {
		v.SetPage(q.Page)
	}

	items := make([]Entry, 0, len(v.Page()))
	for _, l := range v.Page() {
		items = append(items, Entry{DonationLocation: l, CityName: names[l.CityID]})
	}
	return Listing{
		Items:      items,
		Page:       v.PageIndex(),
		TotalPages: v.TotalPages(),
		Total:      v.Total(),
		Sort:       v.SortBy(),
		Query:      q.Search,
	}, nil
}

// Update edits a location.
func (s *Service) Update(ctx context.Context, id int64, f Form) error {
	if id <= 0 || strings.TrimSpace(f.Name) == "" || f.CityID <= 0 {
		return ErrInvalidForm
	}
	err := s.src.UpdateLocation(ctx, upstream.LocationUpdate{
		ID:         id,
		Name:       f.Name,
		Street:     f.Street,
		Number:     f.Number,
		Complement: f.Complement,
		CityID:     f.CityID,
	})
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Int64("location_id", id).Msg("error updating donation location")
	if errors.Is(err, upstream.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%w: %w", ErrRemote, err)
}

// Delete removes a location. A 4xx response other than 404 is taken as the
// referential constraint the upstream enforces; 5xx is a remote failure.
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.src.DeleteLocation(ctx, id)
	if err == nil {
		return nil
	}
	log.Warn().Err(err).Int64("location_id", id).Msg("error deleting donation location")

	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, upstream.ErrNotFound):
		return ErrNotFound
	case errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError:
		return fmt.Errorf("%w: %w", ErrInUse, err)
	default:
		return fmt.Errorf("%w: %w", ErrRemote, err)
	}
}
