package model

import "time"

// Confirmation is the local record of a booking accepted by the upstream API.
type Confirmation struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	DonorID     int64     `gorm:"index;not null" json:"donor_id"`
	DonorName   string    `gorm:"size:256;not null" json:"donor_name"`
	BloodTypeID int64     `gorm:"not null" json:"blood_type_id"`
	LocationID  int64     `gorm:"index;not null" json:"location_id"`
	DonatedAt   time.Time `gorm:"not null" json:"donated_at"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
