package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/address"
	"hemagenda-backend/internal/booking"
	"hemagenda-backend/internal/cep"
	"hemagenda-backend/internal/confirmation"
	"hemagenda-backend/internal/donor"
	"hemagenda-backend/internal/location"
	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/store"
)

// LocationService lists and edits donation locations.
type LocationService interface {
	Browse(ctx context.Context, q location.Query) (location.Listing, error)
	Update(ctx context.Context, id int64, f location.Form) error
	Delete(ctx context.Context, id int64) error
}

// ReferenceData provides states and cities.
type ReferenceData interface {
	States(ctx context.Context) ([]model.State, error)
	CitiesByState(ctx context.Context, stateID int64) ([]model.City, error)
}

// AddressResolver fills an address from a postal code.
type AddressResolver interface {
	Resolve(ctx context.Context, code string) (address.Fill, error)
}

// DonorDirectory provides the cached donor list.
type DonorDirectory interface {
	Donors(ctx context.Context) ([]model.Donor, error)
}

// DonorLookup finds a donor and their donations.
type DonorLookup interface {
	Search(ctx context.Context, q string) (donor.Result, error)
}

// BookingFlow books a donation.
type BookingFlow interface {
	Submit(ctx context.Context, req booking.Request) (*model.Confirmation, error)
}

// CardResolver builds a confirmation card.
type CardResolver interface {
	Resolve(ctx context.Context, req confirmation.Request) (*confirmation.Card, error)
}

// Deps groups everything the handlers need.
type Deps struct {
	Store     store.Store
	Locations LocationService
	Reference ReferenceData
	Address   AddressResolver
	Donors    DonorDirectory
	Lookup    DonorLookup
	Booking   BookingFlow
	Cards     CardResolver
	ShareBase string
	Webpush   *webpush.Options
}

const viewTTL = 10 * time.Minute

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store     store.Store
	locations LocationService
	reference ReferenceData
	address   AddressResolver
	donors    DonorDirectory
	lookup    DonorLookup
	booking   BookingFlow
	cards     CardResolver
	shareBase string
	webpush   *webpush.Options
	views     *cache.Cache
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		store:     d.Store,
		locations: d.Locations,
		reference: d.Reference,
		address:   d.Address,
		donors:    d.Donors,
		lookup:    d.Lookup,
		booking:   d.Booking,
		cards:     d.Cards,
		shareBase: d.ShareBase,
		webpush:   d.Webpush,
		views:     cache.New(viewTTL, 2*viewTTL),
	}
}

// User-facing messages.
const (
	msgEmptyName         = "Please enter a valid name"
	msgPersonNotFound    = "No person found with this name"
	msgNameNotFound      = "Name not found"
	msgInvalidDocument   = "Invalid RG"
	msgInvalidLocation   = "Please select a donation location"
	msgBookingFailed     = "Failed to book the donation. Please try again."
	msgInvalidCEP        = "Invalid CEP"
	msgCEPNotFound       = "CEP não encontrado. Por favor, verifique e tente novamente."
	msgLocationInUse     = "This location has donors registered and cannot be deleted."
	msgDeleteFailed      = "Failed to delete donation location."
	msgUpdateFailed      = "Failed to update the donation location."
	msgInvalidForm       = "Please fill in all required fields"
	msgFetchFailed       = "Failed to fetch donation locations."
	msgLocationNotFound  = "Donation location not found"
	msgConfirmationGone  = "Confirmation not found"
	msgUpstreamFailed    = "The donation service is unavailable"
	msgInternal          = "Internal server error"
	msgExportInProgress  = "An export is already in progress"
	msgInvalidIdentifier = "invalid id"
)

// respondError maps domain errors to a status and message. fallback is used
// for upstream failures the caller has a specific message for.
func respondError(c *gin.Context, err error, fallback string) {
	status, msg := classify(err)
	if status == http.StatusBadGateway && fallback != "" {
		msg = fallback
	}
	if status >= 500 {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, donor.ErrEmptyQuery):
		return http.StatusBadRequest, msgEmptyName
	case errors.Is(err, donor.ErrNotFound):
		return http.StatusNotFound, msgPersonNotFound
	case errors.Is(err, booking.ErrNameNotFound):
		return http.StatusUnprocessableEntity, msgNameNotFound
	case errors.Is(err, booking.ErrInvalidDocument):
		return http.StatusUnprocessableEntity, msgInvalidDocument
	case errors.Is(err, booking.ErrInvalidLocation):
		return http.StatusBadRequest, msgInvalidLocation
	case errors.Is(err, booking.ErrSubmitFailed):
		return http.StatusBadGateway, msgBookingFailed
	case errors.Is(err, cep.ErrInvalidCEP):
		return http.StatusBadRequest, msgInvalidCEP
	case errors.Is(err, cep.ErrNotFound):
		return http.StatusNotFound, msgCEPNotFound
	case errors.Is(err, location.ErrInUse):
		return http.StatusConflict, msgLocationInUse
	case errors.Is(err, location.ErrInvalidForm):
		return http.StatusBadRequest, msgInvalidForm
	case errors.Is(err, location.ErrNotFound):
		return http.StatusNotFound, msgLocationNotFound
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, msgConfirmationGone
	case errors.Is(err, confirmation.ErrExporting):
		return http.StatusConflict, msgExportInProgress
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgUpstreamFailed
	default:
		return http.StatusBadGateway, msgUpstreamFailed
	}
}
