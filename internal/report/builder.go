// Package report turns a machine into the flat key/value payload consumed by
// document templates and renders those templates.
package report

import (
	"strings"
	"time"

	"rlis-backend/internal/inventory"
)

// DefaultDateLayout is used when a Builder has no layout configured.
const DefaultDateLayout = "January 2, 2006"

// Payload is the flattened template input for one machine.
type Payload map[string]string

// Builder produces report payloads.
type Builder struct {
	Inspector  string
	DateLayout string
	Now        func() time.Time
}

// NewBuilder returns a Builder stamping the given inspector tag.
func NewBuilder(inspector, dateLayout string) *Builder {
	if dateLayout == "" {
		dateLayout = DefaultDateLayout
	}
	return &Builder{Inspector: inspector, DateLayout: dateLayout, Now: time.Now}
}

// Build returns the payload for m. Machines with a no-data reason get every
// category field blanked and the reason written into the category's headline
// field; otherwise defaults and derived values are filled in.
func (b *Builder) Build(m inventory.Machine) Payload {
	out := b.common(m)

	v := newVariant(m.InspectionType)
	if reason := m.NoDataReason(); reason != "" {
		blank(v)
		flatten(v, out)
		out[v.headline()] = reason
		return out
	}

	bind(v, m.Data)
	v.applyDefaults()
	flatten(v, out)
	return out
}

func (b *Builder) common(m inventory.Machine) Payload {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	layout := b.DateLayout
	if layout == "" {
		layout = DefaultDateLayout
	}

	out := Payload{
		"inspector":    b.Inspector,
		"make":         m.Make,
		"model":        m.Model,
		"serial":       m.Serial,
		"registration": inventory.CleanLocation(m.Location),
		"registrant":   m.RegistrantName,
		"date":         now().Format(layout),
		"details":      m.FullDetails,
		"type":         strings.ToUpper(m.Type),
		"tube_no":      m.Data.Get(inventory.KeyTubeNo),
	}
	if out["tube_no"] == "" {
		out["tube_no"] = "1"
	}
	if m.InspectionType.MultiTube() {
		out["num_tubes"] = m.Data.Get(inventory.KeyNumTubes)
		if out["num_tubes"] == "" {
			out["num_tubes"] = "1"
		}
	}
	return out
}

// HasMeasurements reports whether any category field of m holds a value.
// Defaults and derived values do not count.
func HasMeasurements(m inventory.Machine) bool {
	v := newVariant(m.InspectionType)
	bind(v, m.Data)
	return recorded(v)
}

// Filename is the document name for a rendered payload.
func Filename(p Payload, category inventory.Category) string {
	reg := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, p["registration"])
	if reg == "" {
		reg = "machine"
	}
	return reg + "_" + string(category) + ".docx"
}
