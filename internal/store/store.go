package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hemagenda-backend/internal/model"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	SaveConfirmation(ctx context.Context, c *model.Confirmation) error
	GetConfirmation(ctx context.Context, id string) (*model.Confirmation, error)
	ListConfirmationsByDonor(ctx context.Context, donorID int64) ([]model.Confirmation, error)

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsForDonor(ctx context.Context, donorID int64) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// SaveConfirmation records an issued confirmation.
func (s *gormStore) SaveConfirmation(ctx context.Context, c *model.Confirmation) error {
	if err := s.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to save confirmation %s: %w", c.ID, err)
	}
	return nil
}

func (s *gormStore) GetConfirmation(ctx context.Context, id string) (*model.Confirmation, error) {
	var c model.Confirmation
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch confirmation %s: %w", id, err)
	}
	return &c, nil
}

// ListConfirmationsByDonor returns a donor's confirmations, newest first.
func (s *gormStore) ListConfirmationsByDonor(ctx context.Context, donorID int64) ([]model.Confirmation, error) {
	var out []model.Confirmation
	if err := s.db.WithContext(ctx).
		Where("donor_id = ?", donorID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list confirmations for donor %d: %w", donorID, err)
	}
	return out, nil
}

// UpsertSubscription creates a subscription or refreshes its keys and owner.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "donor_id"}),
	}).Create(sub).Error
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error
}

func (s *gormStore) SubscriptionsForDonor(ctx context.Context, donorID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("donor_id = ?", donorID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for donor %d: %w", donorID, err)
	}
	return subs, nil
}
