package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChangeType_ToCombination(t *testing.T) {
	reg, sink := newTestRegistry()
	m := generalMachine("g1", "RF-9")
	m.Data = Data{"note": "checked"}
	seed(t, reg, m)
	sink.reset()

	pair, err := reg.ChangeType("g1", CategoryCombinationRF, "")
	require.NoError(t, err)
	require.Len(t, pair, 2)

	r, f := pair[0], pair[1]
	assert.Equal(t, "g1_R", r.ID)
	assert.Equal(t, "g1_F", f.ID)
	assert.Equal(t, CategoryGeneral, r.InspectionType)
	assert.Equal(t, CategoryFluoroscope, f.InspectionType)
	assert.Equal(t, "RF-9 (R)", r.Location)
	assert.Equal(t, "RF-9 (F)", f.Location)
	assert.Equal(t, "1", r.Data[KeyTubeNo])
	assert.Equal(t, "2", f.Data[KeyTubeNo])
	assert.Equal(t, "2", r.Data[KeyNumTubes])
	assert.Equal(t, "2", f.Data[KeyNumTubes])
	assert.Equal(t, "checked", r.Data["note"])

	_, err = reg.Get("g1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, reg.All(), 2)
	assert.Len(t, sink.upserts, 2)
	assert.Equal(t, []string{"g1"}, sink.deletes)
}

func TestChangeType_FromPairMember(t *testing.T) {
	reg, sink := newTestRegistry()
	_, err := reg.Import([]Row{
		{EntityName: "V (S / L / 1)", CredentialType: "Combination R&F", CredentialNumber: "RF-1", EntityID: "55"},
		{EntityName: "V (S / L / 1)", CredentialType: "Combination R&F", CredentialNumber: "RF-1", EntityID: "55"},
	})
	require.NoError(t, err)
	all := reg.All()
	require.Len(t, all, 2)
	rID, fID := all[0].ID, all[1].ID
	sink.reset()

	out, err := reg.ChangeType(rID, CategoryDental, "Dental Intraoral")
	require.NoError(t, err)
	require.Len(t, out, 1)

	survivor := out[0]
	assert.Equal(t, rID, survivor.ID)
	assert.Equal(t, "RF-1", survivor.Location)
	assert.Equal(t, CategoryDental, survivor.InspectionType)
	assert.Equal(t, "Dental Intraoral", survivor.Type)
	assert.NotContains(t, survivor.Data, KeyTubeNo)
	assert.NotContains(t, survivor.Data, KeyNumTubes)

	_, err = reg.Get(fID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, reg.All(), 1)
	assert.Equal(t, []string{fID}, sink.deletes)
}

func TestChangeType_FromPairMemberWithoutPartner(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("lonely", "RF-1 (F)"))

	out, err := reg.ChangeType("lonely", CategoryCT, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "RF-1", out[0].Location)
	assert.Equal(t, CategoryCT, out[0].InspectionType)
	assert.Equal(t, CategoryCT.Label(), out[0].Type)
}

func TestChangeType_InPlace(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	out, err := reg.ChangeType("g1", CategoryCabinet, "Baggage Scanner")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "g1", out[0].ID)
	assert.Equal(t, "G-1", out[0].Location)
	assert.Equal(t, CategoryCabinet, out[0].InspectionType)
	assert.Equal(t, "Baggage Scanner", out[0].Type)
}

func TestChangeType_Invalid(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))

	_, err := reg.ChangeType("g1", Category("laser"), "")
	assert.ErrorIs(t, err, ErrInvalidCategory)

	_, err = reg.ChangeType("missing", CategoryDental, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestChangeType_TubeSiblingToCombinationRenumbersRest(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))
	_, err := reg.UpdateFields("g1", map[string]string{KeyNumTubes: "3"})
	require.NoError(t, err)

	group, err := reg.SiblingsOf("g1")
	require.NoError(t, err)
	last := group[2]

	_, err = reg.ChangeType(last.ID, CategoryCombinationRF, "")
	require.NoError(t, err)

	rest, err := reg.SiblingsOf("g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"G-1 (1)", "G-1 (2)"}, locations(rest))
	for _, m := range rest {
		assert.Equal(t, "2", m.Data[KeyNumTubes])
	}
	_, err = reg.Get(last.ID + "_R")
	assert.NoError(t, err)
}

func TestChangeType_TubeSiblingToSingleTubeLeavesGroup(t *testing.T) {
	reg, sink := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))
	_, err := reg.UpdateFields("g1", map[string]string{KeyNumTubes: "3"})
	require.NoError(t, err)
	group, err := reg.SiblingsOf("g1")
	require.NoError(t, err)
	middle := group[1]
	sink.reset()

	out, err := reg.ChangeType(middle.ID, CategoryDental, "")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "G-1", out[0].Location)
	assert.Equal(t, CategoryDental, out[0].InspectionType)
	assert.Empty(t, out[0].Data[KeyTubeNo])
	assert.Empty(t, out[0].Data[KeyNumTubes])

	rest, err := reg.SiblingsOf("g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"G-1 (1)", "G-1 (2)"}, locations(rest))
	for _, m := range rest {
		assert.Equal(t, "2", m.Data[KeyNumTubes])
		assert.NotEqual(t, middle.ID, m.ID)
	}

	alone, err := reg.SiblingsOf(middle.ID)
	require.NoError(t, err)
	assert.Len(t, alone, 1)

	// Growing the general unit again must not pull the dental machine in.
	_, err = reg.UpdateFields("g1", map[string]string{KeyNumTubes: "3"})
	require.NoError(t, err)
	assert.Len(t, reg.All(), 4)
	m, err := reg.Get(middle.ID)
	require.NoError(t, err)
	assert.Equal(t, "G-1", m.Location)
}

func TestChangeType_TubeSiblingWithinMultiTubeKeepsGroup(t *testing.T) {
	reg, _ := newTestRegistry()
	seed(t, reg, generalMachine("g1", "G-1"))
	_, err := reg.UpdateFields("g1", map[string]string{KeyNumTubes: "2"})
	require.NoError(t, err)
	group, err := reg.SiblingsOf("g1")
	require.NoError(t, err)

	out, err := reg.ChangeType(group[1].ID, CategoryFluoroscope, "")
	require.NoError(t, err)
	assert.Equal(t, "G-1 (2)", out[0].Location)

	rest, err := reg.SiblingsOf("g1")
	require.NoError(t, err)
	assert.Len(t, rest, 2)
}
