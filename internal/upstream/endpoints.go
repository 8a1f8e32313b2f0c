package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/model"
)

// ListLocations fetches every donation location.
func (c *Client) ListLocations(ctx context.Context) ([]model.DonationLocation, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list locations", http.MethodGet, "/getDonationsLocal", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.DonationLocation]("list locations", raw)
}

// GetLocation resolves one donation location.
func (c *Client) GetLocation(ctx context.Context, id int64) (model.DonationLocation, error) {
	var loc model.DonationLocation
	err := c.do(ctx, "get location", http.MethodGet, fmt.Sprintf("/donation-local/%d", id), nil, &loc)
	return loc, err
}

// LocationUpdate is the body of PATCH /update-donation-local.
type LocationUpdate struct {
	ID         int64  `json:"id_to_update"`
	Name       string `json:"nome"`
	Street     string `json:"rua"`
	Number     string `json:"numero"`
	Complement string `json:"complemento"`
	CityID     int64  `json:"cidade_id"`
}

// UpdateLocation edits a donation location.
func (c *Client) UpdateLocation(ctx context.Context, u LocationUpdate) error {
	return c.do(ctx, "update location", http.MethodPatch, "/update-donation-local", u, nil)
}

// DeleteLocation removes a donation location. The upstream refuses while
// donations still reference it.
func (c *Client) DeleteLocation(ctx context.Context, id int64) error {
	return c.do(ctx, "delete location", http.MethodDelete, fmt.Sprintf("/donation-local/%d", id), nil, nil)
}

// GetCity resolves one city.
func (c *Client) GetCity(ctx context.Context, id int64) (model.City, error) {
	var city model.City
	err := c.do(ctx, "get city", http.MethodGet, fmt.Sprintf("/city/%d", id), nil, &city)
	return city, err
}

// ListCities fetches all cities of every state.
func (c *Client) ListCities(ctx context.Context) ([]model.City, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list cities", http.MethodGet, "/cities", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.City]("list cities", raw)
}

// ListStates fetches all states.
func (c *Client) ListStates(ctx context.Context) ([]model.State, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list states", http.MethodGet, "/getAllStates", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.State]("list states", raw)
}

// ListDonors fetches every registered donor. The list arrives wrapped as
// {"Pessoas": [...]}; any other shape is logged and treated as empty.
func (c *Client) ListDonors(ctx context.Context) ([]model.Donor, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list donors", http.MethodGet, "/getPersons", nil, &raw); err != nil {
		return nil, err
	}
	persons, ok := field(raw, "Pessoas")
	if !ok {
		log.Error().Str("op", "list donors").RawJSON("body", safeJSON(raw)).Msg("invalid data format, expected a Pessoas field")
		return []model.Donor{}, nil
	}
	return decodeList[model.Donor]("list donors", persons)
}

// DonationsByDonor lists a donor's past donations.
func (c *Client) DonationsByDonor(ctx context.Context, donorID int64) ([]model.Donation, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "donations by donor", http.MethodGet, fmt.Sprintf("/donations-from-person/%d", donorID), nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[model.Donation]("donations by donor", raw)
}

// GetBloodType resolves one blood type, sent wrapped as {"Blood_Type": {...}}.
func (c *Client) GetBloodType(ctx context.Context, id int64) (model.BloodType, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "get blood type", http.MethodGet, fmt.Sprintf("/bloodtype/%d", id), nil, &raw); err != nil {
		return model.BloodType{}, err
	}
	inner, ok := field(raw, "Blood_Type")
	if !ok || !bytes.HasPrefix(bytes.TrimSpace(inner), []byte("{")) {
		log.Error().Str("op", "get blood type").RawJSON("body", safeJSON(raw)).Msg("invalid data format, expected a Blood_Type object")
		return model.BloodType{}, fmt.Errorf("get blood type: %w", ErrMalformed)
	}
	var bt model.BloodType
	if err := json.Unmarshal(inner, &bt); err != nil {
		return model.BloodType{}, fmt.Errorf("get blood type: failed to unmarshal response: %w", err)
	}
	return bt, nil
}

type registerDonationRequest struct {
	DonorID    int64 `json:"pessoa_id"`
	LocationID int64 `json:"local_id"`
}

// RegisterDonation creates a donation for donorID at locationID.
func (c *Client) RegisterDonation(ctx context.Context, donorID, locationID int64) error {
	body := registerDonationRequest{DonorID: donorID, LocationID: locationID}
	return c.do(ctx, "register donation", http.MethodPost, "/register-donation", body, nil)
}
