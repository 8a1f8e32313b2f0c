// Package warmer keeps the reference and donor caches fresh in the
// background so requests rarely wait on the donation API.
package warmer

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/model"
)

// Reference is the cached reference-data client.
type Reference interface {
	Invalidate()
	States(ctx context.Context) ([]model.State, error)
	Cities(ctx context.Context) ([]model.City, error)
}

// Directory is the cached donor list.
type Directory interface {
	Refresh()
	Donors(ctx context.Context) ([]model.Donor, error)
}

// Service periodically reloads the caches.
type Service struct {
	interval  time.Duration
	reference Reference
	directory Directory
}

// NewService creates a warmer. An interval of zero disables the loop.
func NewService(interval time.Duration, ref Reference, dir Directory) *Service {
	return &Service{interval: interval, reference: ref, directory: dir}
}

// Run warms the caches once and then on every tick until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if s.interval <= 0 {
		log.Info().Msg("cache warmer is disabled")
		return
	}
	log.Info().Dur("interval", s.interval).Msg("starting cache warmer")

	s.WarmOnce(ctx)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cache warmer shutting down")
			return
		case <-timer.C:
			s.WarmOnce(ctx)
			timer.Reset(s.interval)
		}
	}
}

// WarmOnce drops the cached entries and fetches them again. Failures are
// logged; the next request falls back to fetching on demand.
func (s *Service) WarmOnce(ctx context.Context) {
	start := time.Now()

	s.reference.Invalidate()
	states, err := s.reference.States(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("error warming states")
	}
	cities, err := s.reference.Cities(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("error warming cities")
	}

	s.directory.Refresh()
	donors, err := s.directory.Donors(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("error warming donor list")
	}

	log.Debug().
		Int("states", len(states)).
		Int("cities", len(cities)).
		Int("donors", len(donors)).
		Dur("took", time.Since(start)).
		Msg("cache warm cycle complete")
}
