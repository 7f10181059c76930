package inventory

import (
	"fmt"
	"strconv"
)

// MaxTubes is the largest tube count tube synchronization acts on.
const MaxTubes = 4

// syncTubes reconciles the tube siblings of trigger with its num_tubes
// value. Out-of-range or unparsable counts, pair members and single-tube
// categories are left alone.
func (tx *txn) syncTubes(trigger Machine) error {
	if !trigger.InspectionType.MultiTube() || PairRoleOf(trigger.Location) != PairNone {
		return nil
	}
	target, err := strconv.Atoi(trigger.Data.Get(KeyNumTubes))
	if err != nil || target < 1 || target > MaxTubes {
		return nil
	}

	base := BaseLocation(trigger.Location)
	group := tx.tubeGroup(trigger)

	// Shrink from the highest tube number down, never dropping the trigger.
	for i := len(group) - 1; i >= 0 && len(group) > target; i-- {
		if group[i].ID == trigger.ID {
			continue
		}
		tx.drop(group[i].ID)
		group = append(group[:i], group[i+1:]...)
	}

	tx.relabel(base, group, target)

	ids := make(map[string]bool, target)
	for _, m := range group {
		ids[m.ID] = true
	}
	for n := len(group) + 1; n <= target; n++ {
		tube := trigger.derive(tx.r.newID())
		tube.Location = tubeLocation(base, n)
		tube.Data[KeyTubeNo] = strconv.Itoa(n)
		tube.Data[KeyNumTubes] = strconv.Itoa(target)
		tx.put(tube)
		ids[tube.ID] = true
	}

	for _, m := range tx.machines {
		if !ids[m.ID] {
			continue
		}
		for _, other := range tx.machines {
			if !ids[other.ID] && other.EntityID == m.EntityID && other.Location == m.Location {
				return fmt.Errorf("%w: %q", ErrDuplicateLocation, m.Location)
			}
		}
	}
	return nil
}

// SiblingsOf returns the tube group of the machine with the given id, in
// tube order. A machine outside any group is returned alone.
func (r *Registry) SiblingsOf(id string) ([]Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &txn{r: r, machines: r.machines}
	m, ok := tx.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	group := tx.tubeGroup(m)
	if len(group) == 0 {
		group = []Machine{m}
	}
	return group, nil
}
