// Package address fills a location form from a postal code.
package address

import (
	"context"
	"fmt"

	"hemagenda-backend/internal/cep"
	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/parse"
)

// Lookup resolves postal codes.
type Lookup interface {
	Lookup(ctx context.Context, code string) (cep.Address, error)
}

// Reference provides states and cities.
type Reference interface {
	StateByCode(ctx context.Context, code string) (model.State, bool, error)
	CitiesByState(ctx context.Context, stateID int64) ([]model.City, error)
}

// Fill is the form data derived from a postal code. StateID and CityID stay
// zero when the reference data has no match.
type Fill struct {
	Street    string `json:"rua"`
	City      string `json:"cidade"`
	StateCode string `json:"estado"`
	StateID   int64  `json:"estado_id,omitempty"`
	CityID    int64  `json:"cidade_id,omitempty"`
}

// Resolver combines the postal-code service with reference data.
type Resolver struct {
	cep Lookup
	ref Reference
}

// NewResolver creates a Resolver.
func NewResolver(l Lookup, ref Reference) *Resolver {
	return &Resolver{cep: l, ref: ref}
}

// Resolve looks the code up and matches the state by code and the city by
// case-insensitive name.
func (r *Resolver) Resolve(ctx context.Context, code string) (Fill, error) {
	addr, err := r.cep.Lookup(ctx, code)
	if err != nil {
		return Fill{}, err
	}

	fill := Fill{Street: addr.Street, City: addr.City, StateCode: addr.State}

	state, ok, err := r.ref.StateByCode(ctx, addr.State)
	if err != nil {
		return Fill{}, fmt.Errorf("failed to match state %q: %w", addr.State, err)
	}
	if !ok {
		return fill, nil
	}
	fill.StateID = state.ID

	cities, err := r.ref.CitiesByState(ctx, state.ID)
	if err != nil {
		return Fill{}, fmt.Errorf("failed to match city %q: %w", addr.City, err)
	}
	for _, city := range cities {
		if parse.EqualFold(city.Name, addr.City) {
			fill.CityID = city.ID
			break
		}
	}
	return fill, nil
}
