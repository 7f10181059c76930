package inventory

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"rlis-backend/internal/parse"
)

var (
	ErrNoMachines        = errors.New("No machines found")
	ErrDuplicateFacility = errors.New("facility already imported")
	ErrConflictingRows   = errors.New("conflicting machine rows")
)

// DuplicateFacilityError names the first incoming entity id that is already
// present in the registry.
type DuplicateFacilityError struct {
	EntityID string
}

func (e *DuplicateFacilityError) Error() string {
	return fmt.Sprintf("facility %s has already been imported", e.EntityID)
}

func (e *DuplicateFacilityError) Unwrap() error { return ErrDuplicateFacility }

// Row is one normalized spreadsheet row.
type Row struct {
	EntityName       string
	CredentialType   string
	CredentialNumber string
	EntityID         string
}

// Header aliases accepted for each Row field, compared case-insensitively.
var rowAliases = map[string][]string{
	"name":   {"entity name", "registrant name", "registrant", "facility name"},
	"type":   {"credential type", "license type", "credential sub-type", "registration type"},
	"number": {"credential number", "credential #", "license number", "license #", "registration number"},
	"entity": {"entity id", "entity number", "entity #", "inspection number"},
}

// RowFromRecord maps a header-keyed spreadsheet record onto a Row.
func RowFromRecord(record map[string]string) Row {
	lookup := make(map[string]string, len(record))
	for k, v := range record {
		lookup[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	pick := func(field string) string {
		for _, alias := range rowAliases[field] {
			if v := lookup[alias]; v != "" {
				return v
			}
		}
		return ""
	}
	return Row{
		EntityName:       pick("name"),
		CredentialType:   pick("type"),
		CredentialNumber: pick("number"),
		EntityID:         pick("entity"),
	}
}

// ImportResult summarizes an accepted import.
type ImportResult struct {
	Machines   []Machine
	Facilities []string
}

// BuildMachines turns rows into candidate machines without touching any
// registry. Rows without a parenthesized detail block or an entity id are
// dropped.
//
// Combination R&F rows for the same unit and credential number become a
// radiographic/fluoroscopic pair. A lone combination row gets its
// fluoroscopic half synthesized; a third row for an already complete pair
// is rejected. Rows of the same unit sharing a credential number become
// numbered tube siblings. Different units may not share a credential number
// inside one facility.
func BuildMachines(rows []Row, newID func() string) ([]Machine, error) {
	var out []Machine
	registrants := make(map[string]string)
	pairs := make(map[string]int)
	paired := make(map[string]bool)

	for _, row := range rows {
		entityID := strings.TrimSpace(row.EntityID)
		parsed, err := parse.ParseEntity(row.EntityName)
		if err != nil || entityID == "" {
			continue
		}
		if _, ok := registrants[entityID]; !ok {
			registrants[entityID] = parsed.Facility
		}

		class := Classify(row.CredentialType)
		m := Machine{
			ID:             newID(),
			FullDetails:    parsed.Details,
			Make:           parsed.Make,
			Model:          parsed.Model,
			Serial:         parsed.Serial,
			Type:           strings.TrimSpace(row.CredentialType),
			InspectionType: class.Category,
			Location:       strings.TrimSpace(row.CredentialNumber),
			RegistrantName: registrants[entityID],
			EntityID:       entityID,
			Data:           Data{},
		}
		if m.Type == "" {
			m.Type = m.InspectionType.Label()
		}

		if class.DualRole {
			key := entityID + "\x00" + unitKey(m) + "\x00" + m.Location
			switch {
			case paired[key]:
				return nil, fmt.Errorf("%w: combination unit %q listed more than twice in facility %s",
					ErrConflictingRows, m.Location, entityID)
			case pairs[key] > 0:
				paired[key] = true
				m = fluoroscopicHalf(m, m.ID)
			default:
				pairs[key] = len(out) + 1
				m = radiographicHalf(m)
			}
		}

		out = append(out, m)
	}

	// Lone radiographic halves get their partner right behind them.
	lone := make(map[int]bool)
	for key, pos := range pairs {
		if !paired[key] {
			lone[pos-1] = true
		}
	}
	if len(lone) > 0 {
		complete := make([]Machine, 0, len(out)+len(lone))
		for i, m := range out {
			complete = append(complete, m)
			if lone[i] {
				complete = append(complete, fluoroscopicHalf(m, newID()))
			}
		}
		out = complete
	}

	numberSharedLocations(out)
	if err := checkSharedLocations(out); err != nil {
		return nil, err
	}
	return out, nil
}

func radiographicHalf(m Machine) Machine {
	m.InspectionType = CategoryGeneral
	m.Type = labelPairRadiographic
	m.Location = StripPairSuffix(m.Location) + suffixRadiographic
	m.Data[KeyTubeNo] = "1"
	m.Data[KeyNumTubes] = "2"
	return m
}

func fluoroscopicHalf(m Machine, id string) Machine {
	f := m.derive(id)
	f.InspectionType = CategoryFluoroscope
	f.Type = labelPairFluoroscopic
	f.Location = StripPairSuffix(m.Location) + suffixFluoroscopic
	f.Data[KeyTubeNo] = "2"
	f.Data[KeyNumTubes] = "2"
	return f
}

func unitKey(m Machine) string {
	if m.Make == "" && m.Model == "" && m.Serial == "" {
		return strings.ToLower(m.RegistrantName + "|" + m.FullDetails)
	}
	return strings.ToLower(strings.Join([]string{m.RegistrantName, m.Make, m.Model, m.Serial}, "|"))
}

// hardwareKey identifies a physical unit the way tube sibling matching does.
func hardwareKey(m Machine) string {
	return strings.Join([]string{m.EntityID, m.Make, m.Model, m.Serial}, "\x00")
}

// numberSharedLocations gives rows of one unit that share a location
// sequential tube suffixes so locations stay unique.
func numberSharedLocations(machines []Machine) {
	groups := make(map[string][]int)
	var order []string
	for i, m := range machines {
		if PairRoleOf(m.Location) != PairNone {
			continue
		}
		key := hardwareKey(m) + "\x00" + m.Location
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	for _, key := range order {
		idx := groups[key]
		if len(idx) < 2 {
			continue
		}
		total := strconv.Itoa(len(idx))
		for n, i := range idx {
			machines[i].Location = tubeLocation(machines[i].Location, n+1)
			machines[i].Data[KeyTubeNo] = strconv.Itoa(n + 1)
			machines[i].Data[KeyNumTubes] = total
		}
	}
}

// checkSharedLocations rejects different units registered under the same
// credential number in one facility.
func checkSharedLocations(machines []Machine) error {
	owners := make(map[string]string)
	for _, m := range machines {
		key := m.EntityID + "\x00" + CleanLocation(m.Location)
		unit := hardwareKey(m)
		if owner, ok := owners[key]; ok && owner != unit {
			return fmt.Errorf("%w: %q in facility %s", ErrConflictingRows, CleanLocation(m.Location), m.EntityID)
		}
		owners[key] = unit
	}
	return nil
}

// Import adds the machines described by rows. The import is all-or-nothing:
// if any incoming entity id is already registered nothing is created.
func (r *Registry) Import(rows []Row) (ImportResult, error) {
	var result ImportResult
	err := r.mutate(func(tx *txn) error {
		present := make(map[string]bool)
		for _, m := range tx.machines {
			present[m.EntityID] = true
		}
		for _, row := range rows {
			id := strings.TrimSpace(row.EntityID)
			if id != "" && present[id] {
				return &DuplicateFacilityError{EntityID: id}
			}
		}

		machines, err := BuildMachines(rows, r.newID)
		if err != nil {
			return err
		}
		if len(machines) == 0 {
			return ErrNoMachines
		}

		seen := make(map[string]bool)
		for _, m := range machines {
			if err := tx.validate(m); err != nil {
				return err
			}
			tx.put(m)
			if !seen[m.EntityID] {
				seen[m.EntityID] = true
				result.Facilities = append(result.Facilities, m.EntityID)
			}
		}
		result.Machines = cloneAll(machines)
		return nil
	})
	return result, err
}
