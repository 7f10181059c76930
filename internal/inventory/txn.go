package inventory

import (
	"fmt"
	"sort"
)

// txn is the working copy a single mutation operates on.
type txn struct {
	r        *Registry
	machines []Machine
	archives []Archive
	touched  []string
	original map[string]bool
	removed  map[string]Machine
}

func (tx *txn) get(id string) (Machine, bool) {
	i := indexOf(tx.machines, id)
	if i < 0 {
		return Machine{}, false
	}
	m := tx.machines[i].Clone()
	return m, true
}

func (tx *txn) touch(id string) {
	if tx.original == nil {
		tx.original = make(map[string]bool, len(tx.r.machines))
		for _, m := range tx.r.machines {
			tx.original[m.ID] = true
		}
	}
	for _, t := range tx.touched {
		if t == id {
			return
		}
	}
	tx.touched = append(tx.touched, id)
}

func (tx *txn) put(m Machine) {
	tx.touch(m.ID)
	if i := indexOf(tx.machines, m.ID); i >= 0 {
		tx.machines[i] = m
		return
	}
	tx.machines = append(tx.machines, m)
}

func (tx *txn) drop(id string) {
	i := indexOf(tx.machines, id)
	if i < 0 {
		return
	}
	tx.touch(id)
	if tx.removed == nil {
		tx.removed = make(map[string]Machine)
	}
	tx.removed[id] = tx.machines[i]
	tx.machines = append(tx.machines[:i], tx.machines[i+1:]...)
}

func (tx *txn) archive(a Archive) {
	tx.archives = append(tx.archives, a)
}

func (tx *txn) validate(m Machine) error {
	if m.EntityID == "" {
		return ErrMissingFacility
	}
	if !m.InspectionType.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, m.InspectionType)
	}
	if locationTaken(tx.machines, m.EntityID, m.Location, m.ID) {
		return fmt.Errorf("%w: %q", ErrDuplicateLocation, m.Location)
	}
	return nil
}

func (tx *txn) pairPartner(m Machine) (Machine, bool) {
	for _, c := range tx.machines {
		if IsPairPartner(m, c) {
			return c.Clone(), true
		}
	}
	return Machine{}, false
}

// tubeGroup returns the tube siblings of m (m included when present),
// ordered by tube number with registry order breaking ties.
func (tx *txn) tubeGroup(m Machine) []Machine {
	var group []Machine
	for _, c := range tx.machines {
		if IsTubeSibling(m, c) {
			group = append(group, c.Clone())
		}
	}
	sort.SliceStable(group, func(i, j int) bool {
		return TubeIndex(group[i].Location) < TubeIndex(group[j].Location)
	})
	return group
}

// renumberTubes relabels the remaining siblings of a removed tube machine.
func (tx *txn) renumberTubes(removed Machine) {
	if TubeIndex(removed.Location) == 0 {
		return
	}
	group := tx.tubeGroup(removed)
	if len(group) == 0 {
		return
	}
	tx.relabel(BaseLocation(removed.Location), group, len(group))
}

// relabel assigns sequential tube suffixes to group and records total as
// the unit's tube count.
func (tx *txn) relabel(base string, group []Machine, total int) {
	count := fmt.Sprint(total)
	for i, m := range group {
		m.Location = tubeLocation(base, i+1)
		m.Data[KeyTubeNo] = fmt.Sprint(i + 1)
		m.Data[KeyNumTubes] = count
		tx.put(m)
	}
}

// flush sends the net effect of the transaction to the sink and returns the
// matching events. Archives go first so a snapshot always precedes deletes.
func (tx *txn) flush(sink Sink) []Event {
	var events []Event
	for i := range tx.archives {
		a := tx.archives[i]
		sink.Archive(a)
		events = append(events, Event{Kind: EventArchived, EntityID: a.EntityID, Archive: &a})
	}
	for _, id := range tx.touched {
		if m, ok := tx.get(id); ok {
			sink.Upsert(m)
			events = append(events, Event{Kind: EventUpserted, EntityID: m.EntityID, Machine: m})
		}
	}
	for _, id := range tx.touched {
		if _, ok := tx.get(id); ok || !tx.original[id] {
			continue
		}
		gone := tx.removed[id]
		sink.Delete(id)
		events = append(events, Event{Kind: EventDeleted, EntityID: gone.EntityID, Machine: gone})
	}
	return events
}
