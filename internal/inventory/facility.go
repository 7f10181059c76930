package inventory

import (
	"sort"
	"strconv"
)

// Facility is a derived view over the machines sharing an entity id.
type Facility struct {
	EntityID       string `json:"entityId"`
	Name           string `json:"name"`
	MachineCount   int    `json:"machineCount"`
	CompletedCount int    `json:"completedCount"`
}

// Completed reports whether every machine of the facility is complete.
func (f Facility) Completed() bool {
	return f.MachineCount > 0 && f.CompletedCount == f.MachineCount
}

// Facilities groups machines by entity id. The result is sorted numerically
// when every entity id parses as an integer, lexicographically otherwise.
func Facilities(machines []Machine) []Facility {
	byID := make(map[string]*Facility)
	var order []string
	for _, m := range machines {
		f, ok := byID[m.EntityID]
		if !ok {
			f = &Facility{EntityID: m.EntityID, Name: m.RegistrantName}
			byID[m.EntityID] = f
			order = append(order, m.EntityID)
		}
		f.MachineCount++
		if m.IsComplete {
			f.CompletedCount++
		}
	}

	out := make([]Facility, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	SortFacilities(out)
	return out
}

// SortFacilities orders facilities by entity id using the listing rule.
func SortFacilities(fs []Facility) {
	nums := make(map[string]int64, len(fs))
	numeric := true
	for _, f := range fs {
		n, err := strconv.ParseInt(f.EntityID, 10, 64)
		if err != nil {
			numeric = false
			break
		}
		nums[f.EntityID] = n
	}

	sort.SliceStable(fs, func(i, j int) bool {
		if numeric {
			return nums[fs[i].EntityID] < nums[fs[j].EntityID]
		}
		return fs[i].EntityID < fs[j].EntityID
	})
}

// Facilities returns the facility summaries for the current session.
func (r *Registry) Facilities() []Facility {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Facilities(r.machines)
}
