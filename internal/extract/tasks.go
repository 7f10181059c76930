package extract

import (
	"errors"
	"fmt"
	"strings"

	"rlis-backend/internal/inventory"
)

// Task names accepted by the extraction endpoint.
const (
	TaskNameplate = "nameplate"
	TaskTechnique = "technique"
	TaskDose      = "dose"
)

var ErrUnknownTask = errors.New("unknown extraction task")

// Task is one fixed extraction instruction and the fields it may return.
type Task struct {
	Name   string
	Fields []string
	Prompt string
}

var nameplateFields = []string{"make", "model", "serial"}

var techniqueFields = map[inventory.Category][]string{
	inventory.CategoryDental:      {"preset_kvp", "preset_ma", "preset_time"},
	inventory.CategoryCBCT:        {"preset_kvp", "preset_ma", "preset_time"},
	inventory.CategoryPanoramic:   {"preset_kvp", "preset_ma", "preset_time"},
	inventory.CategoryGeneral:     {"kvp1", "mas1", "kvp2", "mas2", "kvp3", "mas3", "mas4"},
	inventory.CategoryFluoroscope: {"kvp", "ma", "fl_ma"},
	inventory.CategoryCT:          {"kvp", "ma", "mas", "time", "slice_width"},
	inventory.CategoryCabinet:     {"kvp", "ma"},
	inventory.CategoryAnalytical:  {"kvp", "ma"},
	inventory.CategoryBoneDensity: {"kvp", "ma"},
	inventory.CategoryIndustrial:  {"kvp", "ma"},
}

var doseFields = map[inventory.Category][]string{
	inventory.CategoryDental:      {"measured_kvp", "measured_time", "dose", "hvl"},
	inventory.CategoryCBCT:        {"measured_kvp", "measured_time", "dose"},
	inventory.CategoryPanoramic:   {"measured_kvp", "measured_time", "dose"},
	inventory.CategoryGeneral:     {"g1_mr", "g1_kvp", "g3_mr", "g4_mr", "hvl"},
	inventory.CategoryFluoroscope: {"dose_rate", "max_rate", "hvl", "hvl_kvp"},
	inventory.CategoryCT:          {"ctdi"},
}

// TaskFor returns the extraction task name for a machine category.
func TaskFor(category inventory.Category, name string) (Task, error) {
	var fields []string
	switch name {
	case TaskNameplate:
		fields = nameplateFields
	case TaskTechnique:
		fields = techniqueFields[category]
	case TaskDose:
		fields = doseFields[category]
	}
	if len(fields) == 0 {
		return Task{}, fmt.Errorf("%w: %q for %s", ErrUnknownTask, name, category)
	}
	return Task{Name: name, Fields: fields, Prompt: prompt(name, fields)}, nil
}

func prompt(name string, fields []string) string {
	var subject string
	switch name {
	case TaskNameplate:
		subject = "the equipment nameplate"
	case TaskTechnique:
		subject = "the control panel technique settings"
	default:
		subject = "the radiation meter display"
	}
	return fmt.Sprintf(
		"Read %s in the attached image(s). Answer with one JSON object whose keys are exactly: %s. "+
			"Values are the numbers or text as displayed, without units. Use null for any field you cannot read.",
		subject, strings.Join(fields, ", "))
}
