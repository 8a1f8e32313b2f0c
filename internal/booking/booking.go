// Package booking validates a donor's identity and books a donation slot.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/donor"
	"hemagenda-backend/internal/model"
)

var (
	// ErrNameNotFound is returned when no donor has the typed name.
	ErrNameNotFound = errors.New("name not found")
	// ErrInvalidDocument is returned when the identity document does not
	// match the donor's record.
	ErrInvalidDocument = errors.New("invalid identity document")
	// ErrInvalidLocation is returned for a missing location id.
	ErrInvalidLocation = errors.New("invalid donation location")
	// ErrDonorsUnavailable is returned when the donor list cannot be fetched.
	ErrDonorsUnavailable = errors.New("donor list unavailable")
	// ErrSubmitFailed wraps a failure of the booking request itself.
	ErrSubmitFailed = errors.New("failed to book donation")
)

// Donors provides the full donor list.
type Donors interface {
	Donors(ctx context.Context) ([]model.Donor, error)
}

// Registrar creates the donation upstream.
type Registrar interface {
	RegisterDonation(ctx context.Context, donorID, locationID int64) error
}

// Recorder persists issued confirmations.
type Recorder interface {
	SaveConfirmation(ctx context.Context, c *model.Confirmation) error
}

// Notifier is told about each stored confirmation.
type Notifier interface {
	Dispatch(confirmationID string)
}

// Request is the booking form.
type Request struct {
	Name             string `json:"nome"`
	IdentityDocument string `json:"rg"`
	LocationID       int64  `json:"local_id"`
}

// Flow runs the booking form submission.
type Flow struct {
	donors    Donors
	registrar Registrar
	recorder  Recorder
	notifier  Notifier
	now       func() time.Time
}

// NewFlow creates a Flow. recorder and notifier may be nil.
func NewFlow(donors Donors, registrar Registrar, recorder Recorder, notifier Notifier) *Flow {
	return &Flow{
		donors:    donors,
		registrar: registrar,
		recorder:  recorder,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Submit checks the name and identity document against the donor list and,
// only when both match, books the donation. The returned confirmation carries
// the booking time as the donation date.
func (f *Flow) Submit(ctx context.Context, req Request) (*model.Confirmation, error) {
	if req.LocationID <= 0 {
		return nil, ErrInvalidLocation
	}

	donors, err := f.donors.Donors(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDonorsUnavailable, err)
	}

	d, ok := donor.FindByName(donors, strings.TrimSpace(req.Name))
	if !ok {
		return nil, ErrNameNotFound
	}
	if req.IdentityDocument != d.RG {
		return nil, ErrInvalidDocument
	}

	if err := f.registrar.RegisterDonation(ctx, d.ID, req.LocationID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	now := f.now().UTC()
	c := &model.Confirmation{
		ID:          uuid.NewString(),
		DonorID:     d.ID,
		DonorName:   d.Name,
		BloodTypeID: d.BloodTypeID,
		LocationID:  req.LocationID,
		DonatedAt:   now,
		CreatedAt:   now,
	}

	log.Info().
		Str("confirmation_id", c.ID).
		Int64("donor_id", d.ID).
		Int64("location_id", req.LocationID).
		Msg("donation booked")

	if f.recorder == nil {
		return c, nil
	}
	// A local write failure does not fail the booking.
	if err := f.recorder.SaveConfirmation(ctx, c); err != nil {
		log.Error().Err(err).Str("confirmation_id", c.ID).Msg("failed to store confirmation")
		return c, nil
	}
	if f.notifier != nil {
		f.notifier.Dispatch(c.ID)
	}
	return c, nil
}
