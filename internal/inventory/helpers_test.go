package inventory

import (
	"fmt"
	"sync"
)

type recordingSink struct {
	mu       sync.Mutex
	upserts  []Machine
	deletes  []string
	archives []Archive
}

func (s *recordingSink) Upsert(m Machine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, m)
}

func (s *recordingSink) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, id)
}

func (s *recordingSink) Archive(a Archive) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archives = append(s.archives, a)
}

func (s *recordingSink) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts, s.deletes, s.archives = nil, nil, nil
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("m%d", n)
	}
}

func newTestRegistry() (*Registry, *recordingSink) {
	sink := &recordingSink{}
	return NewRegistry("owner-1", sink, WithIDGenerator(sequentialIDs())), sink
}

func locations(machines []Machine) []string {
	out := make([]string, len(machines))
	for i, m := range machines {
		out[i] = m.Location
	}
	return out
}

func generalMachine(id, location string) Machine {
	return Machine{
		ID:             id,
		Make:           "GE",
		Model:          "Definium",
		Serial:         "S1",
		Type:           "Radiographic",
		InspectionType: CategoryGeneral,
		Location:       location,
		RegistrantName: "Valley Imaging",
		EntityID:       "100",
		Data:           Data{},
	}
}
