package model

import (
	"time"

	"gorm.io/datatypes"
)

// ArchivedMachine is a machine frozen inside a facility archive.
type ArchivedMachine struct {
	ID             string            `json:"id"`
	FullDetails    string            `json:"fullDetails"`
	Make           string            `json:"make"`
	Model          string            `json:"model"`
	Serial         string            `json:"serial"`
	Type           string            `json:"type"`
	InspectionType string            `json:"inspectionType"`
	Location       string            `json:"location"`
	RegistrantName string            `json:"registrantName"`
	EntityID       string            `json:"entityId"`
	Data           map[string]string `json:"data"`
	IsComplete     bool              `json:"isComplete"`
}

// FacilityArchive is an immutable snapshot taken before a facility's
// machines were deleted.
type FacilityArchive struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"`
	OwnerID    string    `gorm:"index;size:128;not null"`
	EntityID   string    `gorm:"index;size:64;not null"`
	Name       string    `gorm:"size:256"`
	ArchivedAt time.Time `gorm:"not null;index"`
	Machines   datatypes.JSONType[[]ArchivedMachine]
}
