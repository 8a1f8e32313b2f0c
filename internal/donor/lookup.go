package donor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hemagenda-backend/internal/model"
)

var (
	// ErrEmptyQuery is returned when the search field is blank.
	ErrEmptyQuery = errors.New("please enter a valid name")
	// ErrNotFound is returned when no donor name contains the query.
	ErrNotFound = errors.New("no person found with this name")
	// ErrSuperseded is returned when a newer selection replaced the one a
	// request was started for.
	ErrSuperseded = errors.New("selection superseded")
)

// DonationSource lists a donor's past donations.
type DonationSource interface {
	DonationsByDonor(ctx context.Context, donorID int64) ([]model.Donation, error)
}

// Lister provides the full donor list.
type Lister interface {
	Donors(ctx context.Context) ([]model.Donor, error)
}

// Result is a donor and the donations on record for them.
type Result struct {
	Donor     model.Donor      `json:"donor"`
	Donations []model.Donation `json:"donations"`
}

// Lookup implements the "check a person's donations" search.
type Lookup struct {
	donors    Lister
	donations DonationSource
}

// NewLookup creates a Lookup.
func NewLookup(donors Lister, donations DonationSource) *Lookup {
	return &Lookup{donors: donors, donations: donations}
}

// Search picks the first candidate for q and loads their donations.
func (l *Lookup) Search(ctx context.Context, q string) (Result, error) {
	if strings.TrimSpace(q) == "" {
		return Result{}, ErrEmptyQuery
	}

	donors, err := l.donors.Donors(ctx)
	if err != nil {
		return Result{}, err
	}
	m := NewMatcher(donors)
	m.SetQuery(q)
	candidates := m.Candidates()
	if len(candidates) == 0 {
		return Result{}, ErrNotFound
	}

	donations, err := l.Select(ctx, m, candidates[0])
	if err != nil {
		return Result{}, err
	}
	return Result{Donor: candidates[0], Donations: donations}, nil
}

// Select marks d as selected on m and fetches their donations. If another
// selection is made on m before the fetch completes, the response is
// discarded and ErrSuperseded returned.
func (l *Lookup) Select(ctx context.Context, m *Matcher, d model.Donor) ([]model.Donation, error) {
	token := m.Select(d)

	donations, err := l.donations.DonationsByDonor(ctx, d.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch donations for person %d: %w", d.ID, err)
	}
	if !m.Accept(token) {
		return nil, ErrSuperseded
	}
	if donations == nil {
		donations = []model.Donation{}
	}
	return donations, nil
}
