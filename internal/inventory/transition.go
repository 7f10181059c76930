package inventory

import (
	"fmt"
	"strings"
)

// ChangeType applies an operator-selected category to a machine and returns
// the resulting machines of the affected unit.
//
// Selecting CategoryCombinationRF replaces the machine with a radiographic
// and a fluoroscopic pair. Moving a pair member to any other category
// deletes its partner and turns the survivor back into a single machine.
// Otherwise the category and label are updated in place; a tube sibling
// moved between single- and multi-tube categories leaves its group.
func (r *Registry) ChangeType(id string, category Category, label string) ([]Machine, error) {
	if category != CategoryCombinationRF && !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = category.Label()
	}

	var result []Machine
	err := r.mutate(func(tx *txn) error {
		m, ok := tx.get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}

		var err error
		switch {
		case category == CategoryCombinationRF:
			result, err = tx.splitPair(m)
		case PairRoleOf(m.Location) != PairNone:
			result, err = tx.collapsePair(m, category, label)
		default:
			result, err = tx.retype(m, category, label)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (tx *txn) splitPair(m Machine) ([]Machine, error) {
	if PairRoleOf(m.Location) != PairNone {
		// Already a pair; nothing to split.
		out := []Machine{m.Clone()}
		if partner, ok := tx.pairPartner(m); ok {
			out = append(out, partner)
		}
		return out, nil
	}

	base := BaseLocation(m.Location)

	r := m.derive(m.ID + "_R")
	r.Data = m.Data.Clone()
	delete(r.Data, KeyNoDataReason)
	r.IsComplete = false
	r.InspectionType = CategoryGeneral
	r.Type = labelPairRadiographic
	r.Location = base + suffixRadiographic
	r.Data[KeyTubeNo] = "1"
	r.Data[KeyNumTubes] = "2"

	f := m.derive(m.ID + "_F")
	f.InspectionType = CategoryFluoroscope
	f.Type = labelPairFluoroscopic
	f.Location = base + suffixFluoroscopic
	f.Data[KeyTubeNo] = "2"
	f.Data[KeyNumTubes] = "2"

	tx.drop(m.ID)
	tx.renumberTubes(m)
	for _, half := range []Machine{r, f} {
		if err := tx.validate(half); err != nil {
			return nil, err
		}
		tx.put(half)
	}
	return []Machine{r.Clone(), f.Clone()}, nil
}

func (tx *txn) collapsePair(m Machine, category Category, label string) ([]Machine, error) {
	// A missing partner is treated as a lone machine.
	if partner, ok := tx.pairPartner(m); ok {
		tx.drop(partner.ID)
	}

	m.Location = StripPairSuffix(m.Location)
	delete(m.Data, KeyTubeNo)
	delete(m.Data, KeyNumTubes)
	m.InspectionType = category
	m.Type = label
	if err := tx.validate(m); err != nil {
		return nil, err
	}
	tx.put(m)
	return []Machine{m.Clone()}, nil
}

func (tx *txn) retype(m Machine, category Category, label string) ([]Machine, error) {
	original := m
	m.InspectionType = category
	m.Type = label
	if TubeIndex(m.Location) == 0 || original.InspectionType.MultiTube() == category.MultiTube() {
		tx.put(m)
		return []Machine{m.Clone()}, nil
	}

	m.Location = BaseLocation(m.Location)
	delete(m.Data, KeyTubeNo)
	delete(m.Data, KeyNumTubes)
	if err := tx.validate(m); err != nil {
		return nil, err
	}
	tx.put(m)
	tx.renumberTubes(original)
	return []Machine{m.Clone()}, nil
}
