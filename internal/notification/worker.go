package notification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"

	"hemagenda-backend/internal/model"
	"hemagenda-backend/internal/store"
)

const noticeDateLayout = "02/01/2006 15:04"

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Locations resolves the location named in a notice.
type Locations interface {
	GetLocation(ctx context.Context, id int64) (model.DonationLocation, error)
}

// WorkerPool manages a pool of workers that notify donors of their bookings.
type WorkerPool struct {
	size      int
	jobs      chan string
	store     store.Store
	locations Locations
	webpush   *webpush.Options
	sender    NotificationSender
	zone      *time.Location
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, locations Locations, webpushOptions *webpush.Options) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:      size,
		jobs:      make(chan string, size*16),
		store:     s,
		locations: locations,
		webpush:   webpushOptions,
		sender:    &WebPushSender{}, // Use the real sender by default
		zone:      time.UTC,
	}
}

// SetZone sets the time zone notices are written in.
func (wp *WorkerPool) SetZone(zone *time.Location) {
	if zone != nil {
		wp.zone = zone
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debug().Int("worker", id).Msg("notification worker started")
	for {
		select {
		case confirmationID := <-wp.jobs:
			log.Debug().Int("worker", id).Str("confirmation_id", confirmationID).Msg("processing confirmation")
			wp.notifyDonor(ctx, confirmationID)
		case <-ctx.Done():
			log.Debug().Int("worker", id).Msg("notification worker shutting down")
			return
		}
	}
}

// Dispatch queues a confirmation for notification. It never blocks; when the
// queue is full the job is dropped.
func (wp *WorkerPool) Dispatch(confirmationID string) {
	select {
	case wp.jobs <- confirmationID:
	default:
		log.Warn().Str("confirmation_id", confirmationID).Msg("notification queue full, dropping job")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan string {
	return wp.jobs
}

func (wp *WorkerPool) notifyDonor(ctx context.Context, confirmationID string) {
	conf, err := wp.store.GetConfirmation(ctx, confirmationID)
	if err != nil {
		log.Error().Err(err).Str("confirmation_id", confirmationID).Msg("error fetching confirmation")
		return
	}

	subscriptions, err := wp.store.SubscriptionsForDonor(ctx, conf.DonorID)
	if err != nil {
		log.Error().Err(err).Int64("donor_id", conf.DonorID).Msg("error fetching subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Info().Int("count", len(subscriptions)).Int64("donor_id", conf.DonorID).Msg("sending booking notifications")

	message := fmt.Sprintf("Doação agendada: %s em %s", conf.DonatedAt.In(wp.zone).Format(noticeDateLayout), wp.locationLabel(ctx, conf.LocationID))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) locationLabel(ctx context.Context, id int64) string {
	label := fmt.Sprintf("local %d", id)
	if wp.locations == nil {
		return label
	}
	loc, err := wp.locations.GetLocation(ctx, id)
	if err != nil {
		log.Warn().Err(err).Int64("location_id", id).Msg("error fetching location")
		return label
	}
	if loc.Name != "" {
		label = loc.Name
	}
	return label
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("error sending notification")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
