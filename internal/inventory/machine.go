package inventory

import (
	"strings"
)

// Category is the inspection category governing which fields, defaults and
// report template apply to a machine.
type Category string

const (
	CategoryDental      Category = "dental"
	CategoryGeneral     Category = "general"
	CategoryAnalytical  Category = "analytical"
	CategoryFluoroscope Category = "fluoroscope"
	CategoryCT          Category = "ct"
	CategoryCabinet     Category = "cabinet"
	CategoryBoneDensity Category = "bone_density"
	CategoryIndustrial  Category = "industrial"
	CategoryCBCT        Category = "cbct"
	CategoryPanoramic   Category = "panoramic"
	CategoryAccelerator Category = "accelerator"

	// CategoryCombinationRF is only ever a selection value for ChangeType.
	// It is never stored on a machine.
	CategoryCombinationRF Category = "combination_rf"
)

var storedCategories = []Category{
	CategoryDental, CategoryGeneral, CategoryAnalytical, CategoryFluoroscope,
	CategoryCT, CategoryCabinet, CategoryBoneDensity, CategoryIndustrial,
	CategoryCBCT, CategoryPanoramic, CategoryAccelerator,
}

// Categories returns every category that can be stored on a machine.
func Categories() []Category {
	out := make([]Category, len(storedCategories))
	copy(out, storedCategories)
	return out
}

// Valid reports whether c may be stored on a machine.
func (c Category) Valid() bool {
	for _, s := range storedCategories {
		if s == c {
			return true
		}
	}
	return false
}

// MultiTube reports whether machines of this category can be split into
// several tube records.
func (c Category) MultiTube() bool {
	switch c {
	case CategoryGeneral, CategoryFluoroscope, CategoryCT:
		return true
	}
	return false
}

// Label is the default human-readable label for a category.
func (c Category) Label() string {
	switch c {
	case CategoryDental:
		return "Dental Intraoral"
	case CategoryGeneral:
		return "Radiographic"
	case CategoryAnalytical:
		return "Analytical"
	case CategoryFluoroscope:
		return "Fluoroscopic"
	case CategoryCT:
		return "Computed Tomography"
	case CategoryCabinet:
		return "Cabinet X-Ray"
	case CategoryBoneDensity:
		return "Bone Densitometry"
	case CategoryIndustrial:
		return "Industrial Radiography"
	case CategoryCBCT:
		return "Dental CBCT"
	case CategoryPanoramic:
		return "Dental Panoramic"
	case CategoryAccelerator:
		return "Particle Accelerator"
	case CategoryCombinationRF:
		return "Radiographic/Fluoroscopic (R&F)"
	}
	return string(c)
}

const (
	labelPairRadiographic = "Radiographic (R&F)"
	labelPairFluoroscopic = "Fluoroscopic (R&F)"
)

// Reserved data keys.
const (
	KeyTubeNo       = "tube_no"
	KeyNumTubes     = "num_tubes"
	KeyNoDataReason = "noDataReason"
)

// No-data reasons accepted by SetNoData.
const (
	ReasonNotOperational = "MACHINE NOT OPERATIONAL"
	ReasonRemoved        = "MACHINE REMOVED"
	ReasonNotInUse       = "MACHINE NOT IN USE"
	ReasonNoAccess       = "NO ACCESS TO MACHINE"
)

// NoDataReasons lists the fixed no-data reasons in display order.
func NoDataReasons() []string {
	return []string{ReasonNotOperational, ReasonRemoved, ReasonNotInUse, ReasonNoAccess}
}

func validReason(reason string) bool {
	for _, r := range NoDataReasons() {
		if r == reason {
			return true
		}
	}
	return false
}

// Data holds measurement and settings fields keyed by field name.
type Data map[string]string

// Clone returns an independent copy of d. A nil map clones to an empty one.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Get returns the trimmed value stored under key.
func (d Data) Get(key string) string {
	return strings.TrimSpace(d[key])
}

// Machine is one inspectable imaging machine.
type Machine struct {
	ID             string   `json:"id"`
	FullDetails    string   `json:"fullDetails"`
	Make           string   `json:"make"`
	Model          string   `json:"model"`
	Serial         string   `json:"serial"`
	Type           string   `json:"type"`
	InspectionType Category `json:"inspectionType"`
	Location       string   `json:"location"`
	RegistrantName string   `json:"registrantName"`
	EntityID       string   `json:"entityId"`
	Data           Data     `json:"data"`
	IsComplete     bool     `json:"isComplete"`
}

// Clone returns a deep copy of m.
func (m Machine) Clone() Machine {
	m.Data = m.Data.Clone()
	return m
}

// NoDataReason returns the no-data override reason, or "" when none is set.
func (m Machine) NoDataReason() string {
	return m.Data.Get(KeyNoDataReason)
}

// derive copies the descriptive fields of m into a fresh machine with the
// given id and empty data.
func (m Machine) derive(id string) Machine {
	return Machine{
		ID:             id,
		FullDetails:    m.FullDetails,
		Make:           m.Make,
		Model:          m.Model,
		Serial:         m.Serial,
		Type:           m.Type,
		InspectionType: m.InspectionType,
		Location:       m.Location,
		RegistrantName: m.RegistrantName,
		EntityID:       m.EntityID,
		Data:           Data{},
	}
}
