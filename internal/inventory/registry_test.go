package inventory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_UpsertRejectsDuplicateLocation(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("a", "G-1"))

	_, err := reg.Upsert(generalMachine("b", "G-1"))
	assert.ErrorIs(t, err, ErrDuplicateLocation)

	other := generalMachine("c", "G-1")
	other.EntityID = "200"
	_, err = reg.Upsert(other)
	assert.NoError(t, err, "same location in another facility is fine")
}

func TestRegistry_UpsertValidates(t *testing.T) {
	reg, _ := newTestRegistry()

	m := generalMachine("", "G-1")
	m.EntityID = ""
	_, err := reg.Upsert(m)
	assert.ErrorIs(t, err, ErrMissingFacility)

	m = generalMachine("", "G-1")
	m.InspectionType = "laser"
	_, err = reg.Upsert(m)
	assert.ErrorIs(t, err, ErrInvalidCategory)

	saved, err := reg.Upsert(generalMachine("", "G-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
}

func TestRegistry_UpsertCompletion(t *testing.T) {
	testCases := []struct {
		name    string
		data    Data
		wantErr error
	}{
		{"complete without data", Data{}, ErrNothingRecorded},
		{"only tube bookkeeping", Data{KeyTubeNo: "1", KeyNumTubes: "1"}, ErrNothingRecorded},
		{"unknown reason", Data{KeyNoDataReason: "LOST"}, ErrInvalidReason},
		{"known reason", Data{KeyNoDataReason: ReasonNoAccess}, nil},
		{"measured", Data{"g1_mr": "5"}, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reg, sink := newTestRegistry()
			m := generalMachine("g1", "G-1")
			m.IsComplete = true
			m.Data = tc.data

			saved, err := reg.Upsert(m)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Empty(t, reg.All())
				assert.Empty(t, sink.upserts)
				return
			}
			require.NoError(t, err)
			assert.True(t, saved.IsComplete)
		})
	}
}

func TestRegistry_UpsertRejectsUnknownReasonOnOpenMachine(t *testing.T) {
	reg, _ := newTestRegistry()
	m := generalMachine("g1", "G-1")
	m.Data = Data{KeyNoDataReason: "SOMETHING ELSE"}

	_, err := reg.Upsert(m)
	assert.ErrorIs(t, err, ErrInvalidReason)
}

func TestRegistry_ReadsAreCopies(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	got, err := reg.Get("g1")
	require.NoError(t, err)
	got.Data["kvp"] = "80"
	got.Location = "changed"

	again, err := reg.Get("g1")
	require.NoError(t, err)
	assert.Empty(t, again.Data["kvp"])
	assert.Equal(t, "G-1", again.Location)

	all := reg.All()
	all[0].Data["kvp"] = "90"
	again, _ = reg.Get("g1")
	assert.Empty(t, again.Data["kvp"])
}

func TestRegistry_Complete(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	_, err := reg.Complete("g1")
	assert.ErrorIs(t, err, ErrNothingRecorded)

	_, err = reg.UpdateFields("g1", map[string]string{"g1_mr": "5"})
	require.NoError(t, err)
	m, err := reg.Complete("g1")
	require.NoError(t, err)
	assert.True(t, m.IsComplete)

	m, err = reg.Reopen("g1")
	require.NoError(t, err)
	assert.False(t, m.IsComplete)
}

func TestRegistry_CompleteWithNoData(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	_, err := reg.SetNoData("g1", "SOMETHING ELSE")
	assert.ErrorIs(t, err, ErrInvalidReason)

	_, err = reg.SetNoData("g1", ReasonNoAccess)
	require.NoError(t, err)
	m, err := reg.Complete("g1")
	require.NoError(t, err)
	assert.True(t, m.IsComplete)
	assert.Equal(t, ReasonNoAccess, m.NoDataReason())

	m, err = reg.ClearNoData("g1")
	require.NoError(t, err)
	assert.Empty(t, m.NoDataReason())
	assert.False(t, m.IsComplete, "nothing left to justify completion")
}

func TestRegistry_UpdateFieldsIgnoresNoDataKey(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	m, err := reg.UpdateFields("g1", map[string]string{
		"kvp":           "80",
		KeyNoDataReason: ReasonRemoved,
	})
	require.NoError(t, err)
	assert.Equal(t, "80", m.Data["kvp"])
	assert.Empty(t, m.NoDataReason())
}

func TestRegistry_UpdateFieldsReopensWhenCleared(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))
	_, err := reg.UpdateFields("g1", map[string]string{"g1_mr": "5", "kvp": "80"})
	require.NoError(t, err)
	_, err = reg.Complete("g1")
	require.NoError(t, err)

	m, err := reg.UpdateFields("g1", map[string]string{"g1_mr": ""})
	require.NoError(t, err)
	assert.True(t, m.IsComplete, "kvp still recorded")

	m, err = reg.UpdateFields("g1", map[string]string{"kvp": ""})
	require.NoError(t, err)
	assert.False(t, m.IsComplete)

	_, err = reg.SetNoData("g1", ReasonRemoved)
	require.NoError(t, err)
	_, err = reg.Complete("g1")
	require.NoError(t, err)
	m, err = reg.UpdateFields("g1", map[string]string{"kvp": ""})
	require.NoError(t, err)
	assert.True(t, m.IsComplete, "no-data reason still justifies completion")
}

func TestRegistry_RemovePairMemberRemovesBoth(t *testing.T) {
	reg, sink := newTestRegistry()
	seed(t, reg, generalMachine("r", "RF-1 (R)"))
	f := generalMachine("f", "RF-1 (F)")
	f.InspectionType = CategoryFluoroscope
	seed(t, reg, f, generalMachine("other", "G-9"))
	sink.reset()

	require.NoError(t, reg.Remove("f"))

	assert.Equal(t, []string{"G-9"}, locations(reg.All()))
	assert.ElementsMatch(t, []string{"r", "f"}, sink.deletes)
}

func TestRegistry_RemoveTubeRenumbers(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))
	_, err := reg.UpdateFields("g1", map[string]string{KeyNumTubes: "3"})
	require.NoError(t, err)

	require.NoError(t, reg.Remove("g1"))

	all := reg.All()
	require.Len(t, all, 2)
	assert.ElementsMatch(t, []string{"G-1 (1)", "G-1 (2)"}, locations(all))
	for _, m := range all {
		assert.Equal(t, "2", m.Data[KeyNumTubes])
	}

	assert.ErrorIs(t, reg.Remove("g1"), ErrNotFound)
}

func TestRegistry_RemoveFacilityArchivesFirst(t *testing.T) {
	reg, sink := newTestRegistry()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return at }

	keep := generalMachine("k", "G-1")
	keep.EntityID = "200"
	seed(t, reg, generalMachine("a", "G-1"), generalMachine("b", "G-2"), keep)
	sink.reset()

	var kinds []EventKind
	reg.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })

	archive, err := reg.RemoveFacility("100")
	require.NoError(t, err)
	assert.Equal(t, "Valley Imaging", archive.Name)
	assert.Equal(t, at, archive.ArchivedAt)
	assert.Len(t, archive.Machines, 2)

	require.Len(t, sink.archives, 1)
	assert.ElementsMatch(t, []string{"a", "b"}, sink.deletes)
	assert.Equal(t, []EventKind{EventArchived, EventDeleted, EventDeleted}, kinds)

	assert.Equal(t, []string{"G-1"}, locations(reg.All()))
	require.Len(t, reg.Archives(), 1)

	_, err = reg.RemoveFacility("100")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_FacilityCompletedEvent(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("a", "G-1"), generalMachine("b", "G-2"))

	var mu sync.Mutex
	var completed []string
	unsubscribe := reg.Subscribe(func(ev Event) {
		if ev.Kind == EventFacilityCompleted {
			mu.Lock()
			completed = append(completed, ev.EntityID)
			mu.Unlock()
		}
	})

	for _, id := range []string{"a", "b"} {
		_, err := reg.SetNoData(id, ReasonNotInUse)
		require.NoError(t, err)
	}
	_, err := reg.Complete("a")
	require.NoError(t, err)
	assert.Empty(t, completed)

	_, err = reg.Complete("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"100"}, completed)

	// Already complete; no second event.
	_, err = reg.Complete("b")
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	unsubscribe()
	_, err = reg.Reopen("a")
	require.NoError(t, err)
	_, err = reg.Complete("a")
	require.NoError(t, err)
	assert.Len(t, completed, 1)
}

func TestRegistry_AddExtra(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	m, err := reg.AddExtra("100", Machine{
		Type:     "Dental Intraoral",
		Location: "EXTRA-1",
		Make:     "Planmeca",
	})
	require.NoError(t, err)
	assert.Equal(t, "m1", m.ID)
	assert.Equal(t, "Valley Imaging", m.RegistrantName)
	assert.Equal(t, CategoryDental, m.InspectionType)

	_, err = reg.AddExtra("100", Machine{Type: "Dental", Location: "G-1"})
	assert.ErrorIs(t, err, ErrDuplicateLocation)

	_, err = reg.AddExtra("999", Machine{Location: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_LoadDoesNotWrite(t *testing.T) {
	reg, sink := newTestRegistry()
	reg.Load([]Machine{generalMachine("g1", "G-1"), {ID: "g2", EntityID: "100", Location: "G-2", InspectionType: CategoryDental}}, nil)

	assert.Len(t, reg.All(), 2)
	m, err := reg.Get("g2")
	require.NoError(t, err)
	assert.NotNil(t, m.Data)
	assert.Empty(t, sink.upserts)
}

func TestRegistry_ConcurrentEdits(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := reg.UpdateFields("g1", map[string]string{
				"field_" + string(rune('a'+i)): "1",
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	m, err := reg.Get("g1")
	require.NoError(t, err)
	assert.Len(t, m.Data, 20, "no edit lost")
}
