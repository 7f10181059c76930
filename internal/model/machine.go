package model

import (
	"time"

	"gorm.io/datatypes"
)

// MachineRecord is the persisted form of one inspected machine.
type MachineRecord struct {
	ID             string `gorm:"primaryKey;size:64"`
	OwnerID        string `gorm:"index;size:128;not null"`
	EntityID       string `gorm:"index;size:64;not null"`
	FullDetails    string `gorm:"size:512"`
	Make           string `gorm:"size:128"`
	Model          string `gorm:"size:128"`
	Serial         string `gorm:"size:128"`
	Type           string `gorm:"size:128"`
	InspectionType string `gorm:"size:32;not null"`
	Location       string `gorm:"size:128;not null"`
	RegistrantName string `gorm:"size:256"`
	Data           datatypes.JSONType[map[string]string]
	IsComplete     bool `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (MachineRecord) TableName() string { return "machines" }
