package inventory

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound          = errors.New("machine not found")
	ErrDuplicateLocation = errors.New("location already used in this facility")
	ErrNothingRecorded   = errors.New("no measurements recorded")
	ErrInvalidCategory   = errors.New("invalid inspection category")
	ErrInvalidReason     = errors.New("invalid no-data reason")
	ErrMissingFacility   = errors.New("machine has no facility")
)

// Sink receives every committed mutation. Implementations must not block on
// network completion; failures are theirs to log.
type Sink interface {
	Upsert(m Machine)
	Delete(id string)
	Archive(a Archive)
}

type nopSink struct{}

func (nopSink) Upsert(Machine)  {}
func (nopSink) Delete(string)   {}
func (nopSink) Archive(Archive) {}

// Archive is an immutable snapshot of a facility taken before its machines
// are deleted.
type Archive struct {
	EntityID   string    `json:"entityId"`
	Name       string    `json:"name"`
	ArchivedAt time.Time `json:"archivedAt"`
	Machines   []Machine `json:"machines"`
}

// EventKind identifies a registry change.
type EventKind string

const (
	EventUpserted          EventKind = "upserted"
	EventDeleted           EventKind = "deleted"
	EventArchived          EventKind = "archived"
	EventFacilityCompleted EventKind = "facility_completed"
)

// Event describes one committed change.
type Event struct {
	Kind     EventKind
	EntityID string
	Machine  Machine
	Archive  *Archive
}

// Option configures a Registry.
type Option func(*Registry)

// WithCompletionCheck sets the predicate deciding whether a machine has any
// measurement recorded. Complete refuses machines failing it unless a
// no-data reason is set.
func WithCompletionCheck(fn func(Machine) bool) Option {
	return func(r *Registry) { r.hasMeasurements = fn }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(fn func() string) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithClock replaces time.Now for archive timestamps.
func WithClock(fn func() time.Time) Option {
	return func(r *Registry) { r.now = fn }
}

// Registry is the authoritative in-memory machine set for one owner's
// session. Every mutation runs under a single lock against the latest state
// and is mirrored to the Sink in commit order.
type Registry struct {
	owner string
	sink  Sink

	hasMeasurements func(Machine) bool
	newID           func() string
	now             func() time.Time

	mu        sync.Mutex
	machines  []Machine
	archives  []Archive
	listeners map[int]func(Event)
	nextSub   int
}

// NewRegistry creates an empty registry. A nil sink discards writes.
func NewRegistry(owner string, sink Sink, opts ...Option) *Registry {
	if sink == nil {
		sink = nopSink{}
	}
	r := &Registry{
		owner:           owner,
		sink:            sink,
		hasMeasurements: anyMeasurement,
		newID:           uuid.NewString,
		now:             time.Now,
		listeners:       make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func anyMeasurement(m Machine) bool {
	for k, v := range m.Data {
		switch k {
		case KeyTubeNo, KeyNumTubes, KeyNoDataReason:
			continue
		}
		if v != "" {
			return true
		}
	}
	return false
}

// Owner returns the owner id used for external persistence.
func (r *Registry) Owner() string { return r.owner }

// Load replaces the session state with machines restored from the store.
// Nothing is written back to the sink.
func (r *Registry) Load(machines []Machine, archives []Archive) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.machines = make([]Machine, 0, len(machines))
	for _, m := range machines {
		m = m.Clone()
		if m.Data == nil {
			m.Data = Data{}
		}
		r.machines = append(r.machines, m)
	}
	r.archives = append([]Archive(nil), archives...)
}

// Subscribe registers fn for every committed event. Listeners run after the
// registry lock is released. The returned func unsubscribes.
func (r *Registry) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Get returns a copy of the machine with the given id.
func (r *Registry) Get(id string) (Machine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := indexOf(r.machines, id)
	if i < 0 {
		return Machine{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r.machines[i].Clone(), nil
}

// All returns copies of every machine in registry order.
func (r *Registry) All() []Machine {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneAll(r.machines)
}

// ListByFacility returns copies of the machines of one facility.
func (r *Registry) ListByFacility(entityID string) []Machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Machine
	for _, m := range r.machines {
		if m.EntityID == entityID {
			out = append(out, m.Clone())
		}
	}
	return out
}

// Archives returns the facility snapshots taken this session.
func (r *Registry) Archives() []Archive {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Archive, len(r.archives))
	for i, a := range r.archives {
		a.Machines = cloneAll(a.Machines)
		out[i] = a
	}
	return out
}

// Upsert creates or replaces a machine. An empty id is assigned a fresh one.
// A complete machine must carry a measurement or a known no-data reason.
func (r *Registry) Upsert(m Machine) (Machine, error) {
	var saved Machine
	err := r.mutate(func(tx *txn) error {
		if m.ID == "" {
			m.ID = r.newID()
		}
		if err := tx.validate(m); err != nil {
			return err
		}
		saved = m.Clone()
		if saved.Data == nil {
			saved.Data = Data{}
		}
		reason := saved.NoDataReason()
		if reason != "" && !validReason(reason) {
			return fmt.Errorf("%w: %q", ErrInvalidReason, reason)
		}
		if saved.IsComplete && reason == "" && !r.hasMeasurements(saved) {
			return fmt.Errorf("%w: %s", ErrNothingRecorded, saved.Location)
		}
		tx.put(saved)
		return nil
	})
	return saved.Clone(), err
}

// Remove deletes a machine. Removing one half of a dual-role pair removes
// both halves; removing a tube sibling renumbers the remaining siblings.
func (r *Registry) Remove(id string) error {
	return r.mutate(func(tx *txn) error {
		m, ok := tx.get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		tx.drop(id)
		if partner, ok := tx.pairPartner(m); ok {
			tx.drop(partner.ID)
		}
		tx.renumberTubes(m)
		return nil
	})
}

// RemoveFacility snapshots a facility into an archive and deletes all of its
// machines.
func (r *Registry) RemoveFacility(entityID string) (Archive, error) {
	var archive Archive
	err := r.mutate(func(tx *txn) error {
		var members []Machine
		for _, m := range tx.machines {
			if m.EntityID == entityID {
				members = append(members, m.Clone())
			}
		}
		if len(members) == 0 {
			return fmt.Errorf("%w: no machines for facility %s", ErrNotFound, entityID)
		}
		archive = Archive{
			EntityID:   entityID,
			Name:       members[0].RegistrantName,
			ArchivedAt: r.now().UTC(),
			Machines:   members,
		}
		tx.archive(archive)
		for _, m := range members {
			tx.drop(m.ID)
		}
		return nil
	})
	return archive, err
}

// UpdateFields merges operator edits into a machine's data. The no-data key
// is ignored here; use SetNoData. A completed machine left without
// measurements or a no-data reason is reopened. A changed num_tubes on a
// multi-tube category triggers tube synchronization.
func (r *Registry) UpdateFields(id string, fields map[string]string) (Machine, error) {
	var updated Machine
	err := r.mutate(func(tx *txn) error {
		m, ok := tx.get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		before := m.Data.Get(KeyNumTubes)
		for k, v := range fields {
			if k == KeyNoDataReason {
				continue
			}
			m.Data[k] = v
		}
		if m.IsComplete && m.NoDataReason() == "" && !r.hasMeasurements(m) {
			m.IsComplete = false
		}
		tx.put(m)
		if m.Data.Get(KeyNumTubes) != before {
			if err := tx.syncTubes(m); err != nil {
				return err
			}
		}
		updated, _ = tx.get(id)
		return nil
	})
	return updated, err
}

// SetNoData marks a machine as inspected-but-unmeasurable.
func (r *Registry) SetNoData(id, reason string) (Machine, error) {
	if !validReason(reason) {
		return Machine{}, fmt.Errorf("%w: %q", ErrInvalidReason, reason)
	}
	return r.edit(id, func(m *Machine) error {
		m.Data[KeyNoDataReason] = reason
		return nil
	})
}

// ClearNoData removes a no-data override. A completed machine without
// measurements is reopened.
func (r *Registry) ClearNoData(id string) (Machine, error) {
	return r.edit(id, func(m *Machine) error {
		delete(m.Data, KeyNoDataReason)
		if m.IsComplete && !r.hasMeasurements(*m) {
			m.IsComplete = false
		}
		return nil
	})
}

// Complete marks a machine complete. It fails with ErrNothingRecorded when no
// measurement is present and no no-data reason is set.
func (r *Registry) Complete(id string) (Machine, error) {
	return r.edit(id, func(m *Machine) error {
		if m.NoDataReason() == "" && !r.hasMeasurements(*m) {
			return fmt.Errorf("%w: %s", ErrNothingRecorded, m.Location)
		}
		m.IsComplete = true
		return nil
	})
}

// Reopen puts a completed machine back in the active queue.
func (r *Registry) Reopen(id string) (Machine, error) {
	return r.edit(id, func(m *Machine) error {
		m.IsComplete = false
		return nil
	})
}

// AddExtra creates an ad-hoc machine in an existing facility. The draft's
// registrant name is taken from the facility.
func (r *Registry) AddExtra(entityID string, draft Machine) (Machine, error) {
	var created Machine
	err := r.mutate(func(tx *txn) error {
		var peer *Machine
		for i := range tx.machines {
			if tx.machines[i].EntityID == entityID {
				peer = &tx.machines[i]
				break
			}
		}
		if peer == nil {
			return fmt.Errorf("%w: no machines for facility %s", ErrNotFound, entityID)
		}

		m := draft.Clone()
		m.ID = r.newID()
		m.EntityID = entityID
		m.RegistrantName = peer.RegistrantName
		m.IsComplete = false
		if m.InspectionType == "" {
			m.InspectionType = Classify(m.Type).Category
		}
		if m.Type == "" {
			m.Type = m.InspectionType.Label()
		}
		if err := tx.validate(m); err != nil {
			return err
		}
		tx.put(m)
		created = m.Clone()
		return nil
	})
	return created, err
}

func (r *Registry) edit(id string, fn func(m *Machine) error) (Machine, error) {
	var updated Machine
	err := r.mutate(func(tx *txn) error {
		m, ok := tx.get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if err := fn(&m); err != nil {
			return err
		}
		tx.put(m)
		updated = m.Clone()
		return nil
	})
	return updated, err
}

// mutate runs fn against a private working copy. On success the copy becomes
// the registry state and the recorded writes go to the sink in order.
func (r *Registry) mutate(fn func(tx *txn) error) error {
	r.mu.Lock()

	tx := &txn{r: r, machines: cloneAll(r.machines)}
	if err := fn(tx); err != nil {
		r.mu.Unlock()
		return err
	}

	before := completion(r.machines)
	r.machines = tx.machines
	r.archives = append(r.archives, tx.archives...)
	events := tx.flush(r.sink)
	after := completion(r.machines)
	for entityID, done := range after {
		if done && !before[entityID] {
			events = append(events, Event{Kind: EventFacilityCompleted, EntityID: entityID})
		}
	}

	listeners := make([]func(Event), 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
	return nil
}

// completion maps each facility to whether all of its machines are complete.
func completion(machines []Machine) map[string]bool {
	out := make(map[string]bool)
	for _, m := range machines {
		done, seen := out[m.EntityID]
		if !seen {
			done = true
		}
		out[m.EntityID] = done && m.IsComplete
	}
	return out
}

func indexOf(machines []Machine, id string) int {
	for i := range machines {
		if machines[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(machines []Machine) []Machine {
	out := make([]Machine, len(machines))
	for i, m := range machines {
		out[i] = m.Clone()
	}
	return out
}
