// Package confirmation builds the donation confirmation card and exports it
// as an image, a PDF or a share link.
package confirmation

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"hemagenda-backend/internal/model"
)

const dateLayout = "January 2, 2006"

// Source resolves the location and blood type shown on a card.
type Source interface {
	GetLocation(ctx context.Context, id int64) (model.DonationLocation, error)
	GetBloodType(ctx context.Context, id int64) (model.BloodType, error)
}

// Request identifies what a card is about.
type Request struct {
	DonorName   string
	BloodTypeID int64
	DonatedAt   time.Time
	LocationID  int64
}

// RequestFor builds the request for a stored confirmation.
func RequestFor(c *model.Confirmation) Request {
	return Request{
		DonorName:   c.DonorName,
		BloodTypeID: c.BloodTypeID,
		DonatedAt:   c.DonatedAt,
		LocationID:  c.LocationID,
	}
}

// Card is a fully resolved confirmation.
type Card struct {
	DonorName string                 `json:"donor_name"`
	BloodType model.BloodType        `json:"blood_type"`
	DonatedAt time.Time              `json:"donated_at"`
	Location  model.DonationLocation `json:"location"`
}

// DateLine is the date as printed on the card.
func (c *Card) DateLine() string {
	return formatDateTime(c.DonatedAt)
}

// formatDateTime renders "January 2, 2006 at 3:04 PM".
func formatDateTime(t time.Time) string {
	return t.Format(dateLayout) + " at " + t.Format("3:04 PM")
}

// Resolver fetches the data a card needs.
type Resolver struct {
	src  Source
	zone *time.Location
}

// NewResolver creates a Resolver whose cards show times in zone. A nil zone
// means UTC.
func NewResolver(src Source, zone *time.Location) *Resolver {
	if zone == nil {
		zone = time.UTC
	}
	return &Resolver{src: src, zone: zone}
}

// Resolve fetches the location and the blood type concurrently. A card is
// returned only once both are available.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Card, error) {
	var (
		loc model.DonationLocation
		bt  model.BloodType
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		loc, err = r.src.GetLocation(gctx, req.LocationID)
		if err != nil {
			return fmt.Errorf("failed to fetch donation location %d: %w", req.LocationID, err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		bt, err = r.src.GetBloodType(gctx, req.BloodTypeID)
		if err != nil {
			return fmt.Errorf("failed to fetch blood type %d: %w", req.BloodTypeID, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Card{
		DonorName: req.DonorName,
		BloodType: bt,
		DonatedAt: req.DonatedAt.In(r.zone),
		Location:  loc,
	}, nil
}
