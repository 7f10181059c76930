package store

import (
	"context"
	"fmt"
	"sync"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/model"
)

// ChangeKind identifies what a successful write did.
type ChangeKind string

const (
	ChangeUpsert  ChangeKind = "upsert"
	ChangeDelete  ChangeKind = "delete"
	ChangeArchive ChangeKind = "archive"
)

// Change is delivered to subscribers after a write commits.
type Change struct {
	OwnerID string
	Kind    ChangeKind
	ID      string
}

// Store defines the record store operations the inventory relies on.
type Store interface {
	Load(ctx context.Context, ownerID string) ([]inventory.Machine, []inventory.Archive, error)
	Upsert(ctx context.Context, ownerID string, m inventory.Machine) error
	Delete(ctx context.Context, ownerID, id string) error
	Archive(ctx context.Context, ownerID string, a inventory.Archive) error
	Subscribe(ownerID string, fn func(Change)) func()
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB

	mu        sync.RWMutex
	listeners map[string]map[int]func(Change)
	nextSub   int
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, listeners: make(map[string]map[int]func(Change))}
}

func (s *gormStore) DB() *gorm.DB { return s.db }

// Load returns the owner's machines and archives, archives oldest first.
func (s *gormStore) Load(ctx context.Context, ownerID string) ([]inventory.Machine, []inventory.Archive, error) {
	var records []model.MachineRecord
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("entity_id, location").
		Find(&records).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load machines: %w", err)
	}

	var archived []model.FacilityArchive
	if err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("archived_at, id").
		Find(&archived).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load archives: %w", err)
	}

	machines := make([]inventory.Machine, len(records))
	for i, r := range records {
		machines[i] = toMachine(r)
	}
	archives := make([]inventory.Archive, len(archived))
	for i, a := range archived {
		archives[i] = toArchive(a)
	}
	return machines, archives, nil
}

// Upsert writes every column of m, replacing an existing row with the same id.
func (s *gormStore) Upsert(ctx context.Context, ownerID string, m inventory.Machine) error {
	rec := fromMachine(ownerID, m)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "entity_id", "full_details", "make", "model", "serial", "type",
			"inspection_type", "location", "registrant_name", "data", "is_complete", "updated_at",
		}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to upsert machine %s: %w", m.ID, err)
	}
	s.notify(Change{OwnerID: ownerID, Kind: ChangeUpsert, ID: m.ID})
	return nil
}

// Delete removes a machine. Deleting a missing machine is not an error.
func (s *gormStore) Delete(ctx context.Context, ownerID, id string) error {
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Delete(&model.MachineRecord{ID: id}).Error
	if err != nil {
		return fmt.Errorf("failed to delete machine %s: %w", id, err)
	}
	s.notify(Change{OwnerID: ownerID, Kind: ChangeDelete, ID: id})
	return nil
}

// Archive stores a facility snapshot.
func (s *gormStore) Archive(ctx context.Context, ownerID string, a inventory.Archive) error {
	rec := fromArchive(ownerID, a)
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to archive facility %s: %w", a.EntityID, err)
	}
	s.notify(Change{OwnerID: ownerID, Kind: ChangeArchive, ID: a.EntityID})
	return nil
}

// Subscribe registers fn for committed writes of ownerID. The returned func
// unsubscribes.
func (s *gormStore) Subscribe(ownerID string, fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	if s.listeners[ownerID] == nil {
		s.listeners[ownerID] = make(map[int]func(Change))
	}
	s.listeners[ownerID][id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners[ownerID], id)
	}
}

func (s *gormStore) notify(c Change) {
	s.mu.RLock()
	fns := make([]func(Change), 0, len(s.listeners[c.OwnerID]))
	for _, fn := range s.listeners[c.OwnerID] {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}

func fromMachine(ownerID string, m inventory.Machine) model.MachineRecord {
	return model.MachineRecord{
		ID:             m.ID,
		OwnerID:        ownerID,
		EntityID:       m.EntityID,
		FullDetails:    m.FullDetails,
		Make:           m.Make,
		Model:          m.Model,
		Serial:         m.Serial,
		Type:           m.Type,
		InspectionType: string(m.InspectionType),
		Location:       m.Location,
		RegistrantName: m.RegistrantName,
		Data:           datatypes.NewJSONType(map[string]string(m.Data.Clone())),
		IsComplete:     m.IsComplete,
	}
}

func toMachine(r model.MachineRecord) inventory.Machine {
	return inventory.Machine{
		ID:             r.ID,
		FullDetails:    r.FullDetails,
		Make:           r.Make,
		Model:          r.Model,
		Serial:         r.Serial,
		Type:           r.Type,
		InspectionType: inventory.Category(r.InspectionType),
		Location:       r.Location,
		RegistrantName: r.RegistrantName,
		EntityID:       r.EntityID,
		Data:           inventory.Data(r.Data.Data()).Clone(),
		IsComplete:     r.IsComplete,
	}
}

func fromArchive(ownerID string, a inventory.Archive) model.FacilityArchive {
	frozen := make([]model.ArchivedMachine, len(a.Machines))
	for i, m := range a.Machines {
		frozen[i] = model.ArchivedMachine{
			ID:             m.ID,
			FullDetails:    m.FullDetails,
			Make:           m.Make,
			Model:          m.Model,
			Serial:         m.Serial,
			Type:           m.Type,
			InspectionType: string(m.InspectionType),
			Location:       m.Location,
			RegistrantName: m.RegistrantName,
			EntityID:       m.EntityID,
			Data:           m.Data.Clone(),
			IsComplete:     m.IsComplete,
		}
	}
	return model.FacilityArchive{
		OwnerID:    ownerID,
		EntityID:   a.EntityID,
		Name:       a.Name,
		ArchivedAt: a.ArchivedAt,
		Machines:   datatypes.NewJSONType(frozen),
	}
}

func toArchive(r model.FacilityArchive) inventory.Archive {
	frozen := r.Machines.Data()
	machines := make([]inventory.Machine, len(frozen))
	for i, m := range frozen {
		machines[i] = inventory.Machine{
			ID:             m.ID,
			FullDetails:    m.FullDetails,
			Make:           m.Make,
			Model:          m.Model,
			Serial:         m.Serial,
			Type:           m.Type,
			InspectionType: inventory.Category(m.InspectionType),
			Location:       m.Location,
			RegistrantName: m.RegistrantName,
			EntityID:       m.EntityID,
			Data:           inventory.Data(m.Data).Clone(),
			IsComplete:     m.IsComplete,
		}
	}
	return inventory.Archive{
		EntityID:   r.EntityID,
		Name:       r.Name,
		ArchivedAt: r.ArchivedAt,
		Machines:   machines,
	}
}
