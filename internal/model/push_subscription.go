package model

import "time"

// PushSubscription holds the information for a browser push subscription.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`

	// Associations
	Facilities []*WatchedFacility `gorm:"many2many:subscription_facility_mapping;"`
}

// WatchedFacility is a facility some subscription wants completion
// notifications for.
type WatchedFacility struct {
	EntityID string `gorm:"primaryKey;size:64"`
}
