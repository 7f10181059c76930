package store

import (
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/model"
)

// A helper function to create a mock database connection.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func newSQLiteStore(t *testing.T) Store {
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.MachineRecord{}, &model.FacilityArchive{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		_ = sqlDB.Close()
	})
	return NewGormStore(db)
}

func sampleMachine(id, location string) inventory.Machine {
	return inventory.Machine{
		ID:             id,
		FullDetails:    "GE / Definium / S1",
		Make:           "GE",
		Model:          "Definium",
		Serial:         "S1",
		Type:           "Radiographic",
		InspectionType: inventory.CategoryGeneral,
		Location:       location,
		RegistrantName: "Valley Imaging",
		EntityID:       "100",
		Data:           inventory.Data{"g1_mr": "5", inventory.KeyNumTubes: "2", inventory.KeyNoDataReason: ""},
	}
}

func TestGormStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	m := sampleMachine("a", "G-1 (1)")
	require.NoError(t, s.Upsert(ctx, "owner-1", m))
	require.NoError(t, s.Upsert(ctx, "owner-2", sampleMachine("b", "G-9")))

	m.IsComplete = true
	m.Data["hvl"] = "2.9"
	require.NoError(t, s.Upsert(ctx, "owner-1", m))

	machines, archives, err := s.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, archives)
	require.Len(t, machines, 1)
	assert.Equal(t, m, machines[0], "every data key survives the round trip")
}

func TestGormStore_DeleteIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	require.NoError(t, s.Upsert(ctx, "owner-1", sampleMachine("a", "G-1")))

	require.NoError(t, s.Delete(ctx, "owner-2", "a"))
	machines, _, err := s.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, machines, 1)

	require.NoError(t, s.Delete(ctx, "owner-1", "a"))
	require.NoError(t, s.Delete(ctx, "owner-1", "a"), "deleting twice is fine")
	machines, _, err = s.Load(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, machines)
}

func TestGormStore_Archive(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	at := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	archive := inventory.Archive{
		EntityID:   "100",
		Name:       "Valley Imaging",
		ArchivedAt: at,
		Machines:   []inventory.Machine{sampleMachine("a", "G-1"), sampleMachine("b", "G-2")},
	}
	require.NoError(t, s.Archive(ctx, "owner-1", archive))

	_, archives, err := s.Load(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, archives, 1)
	assert.Equal(t, "Valley Imaging", archives[0].Name)
	assert.True(t, at.Equal(archives[0].ArchivedAt))
	assert.Equal(t, archive.Machines, archives[0].Machines)
}

func TestGormStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	var got []Change
	unsubscribe := s.Subscribe("owner-1", func(c Change) { got = append(got, c) })
	s.Subscribe("owner-2", func(c Change) { t.Errorf("unexpected change for owner-2: %+v", c) })

	require.NoError(t, s.Upsert(ctx, "owner-1", sampleMachine("a", "G-1")))
	require.NoError(t, s.Delete(ctx, "owner-1", "a"))
	unsubscribe()
	require.NoError(t, s.Upsert(ctx, "owner-1", sampleMachine("b", "G-2")))

	assert.Equal(t, []Change{
		{OwnerID: "owner-1", Kind: ChangeUpsert, ID: "a"},
		{OwnerID: "owner-1", Kind: ChangeDelete, ID: "a"},
	}, got)
}

func TestGormStore_DeleteFailureNotifiesNobody(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewGormStore(db)

	notified := false
	s.Subscribe("owner-1", func(Change) { notified = true })

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "machines" WHERE`)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.Delete(context.Background(), "owner-1", "a")
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, notified)
	assert.NoError(t, mock.ExpectationsWereMet())
}
