package report

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"rlis-backend/internal/inventory"
)

func testBuilder() *Builder {
	b := NewBuilder("JD", "2006-01-02")
	b.Now = func() time.Time { return time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC) }
	return b
}

func machine(category inventory.Category, data inventory.Data) inventory.Machine {
	return inventory.Machine{
		ID:             "m1",
		FullDetails:    "GE / Definium / S1",
		Make:           "GE",
		Model:          "Definium",
		Serial:         "S1",
		Type:           "Radiographic (R&F)",
		InspectionType: category,
		Location:       "RF-10 (R)",
		RegistrantName: "Valley Imaging",
		EntityID:       "100",
		Data:           data,
	}
}

func TestBuild_CommonKeys(t *testing.T) {
	p := testBuilder().Build(machine(inventory.CategoryGeneral, inventory.Data{}))

	assert.Equal(t, "JD", p["inspector"])
	assert.Equal(t, "RF-10", p["registration"])
	assert.Equal(t, "Valley Imaging", p["registrant"])
	assert.Equal(t, "2024-05-06", p["date"])
	assert.Equal(t, "RADIOGRAPHIC (R&F)", p["type"])
	assert.Equal(t, "GE / Definium / S1", p["details"])
	assert.Equal(t, "1", p["tube_no"])
	assert.Equal(t, "1", p["num_tubes"])

	dental := testBuilder().Build(machine(inventory.CategoryDental, inventory.Data{inventory.KeyTubeNo: "2"}))
	assert.Equal(t, "2", dental["tube_no"])
	assert.NotContains(t, dental, "num_tubes")
}

func TestBuild_General(t *testing.T) {
	p := testBuilder().Build(machine(inventory.CategoryGeneral, inventory.Data{
		"g1_mr":  "5",
		"g2_mr1": "8",
		"g2_mr2": "0",
		"g2_mr3": "10",
		"g3_mr":  "",
	}))

	assert.Equal(t, "70", p["kvp1"])
	assert.Equal(t, "10", p["mas1"])
	assert.Equal(t, "16", p["mas2"])
	assert.Equal(t, "20", p["mas3"])
	assert.Equal(t, "40", p["mas4"])
	assert.Equal(t, "0.50", p["g1_calc"])
	assert.Equal(t, "9.00", p["g2_avg"])
	assert.Equal(t, "0.56", p["g2_calc"])
	assert.Equal(t, "", p["g3_calc"])
	assert.Equal(t, "<1", p["operator_scatter"])
	assert.Equal(t, "<1", p["door_scatter"])
}

func TestBuild_GeneralKeepsEnteredPresets(t *testing.T) {
	p := testBuilder().Build(machine(inventory.CategoryGeneral, inventory.Data{
		"mas1":             "20",
		"g1_mr":            "5",
		"operator_scatter": "2.1",
	}))
	assert.Equal(t, "20", p["mas1"])
	assert.Equal(t, "0.25", p["g1_calc"])
	assert.Equal(t, "2.1", p["operator_scatter"])
}

func TestBuild_Fluoroscope(t *testing.T) {
	tests := []struct {
		name string
		data inventory.Data
		want map[string]string
	}{
		{
			name: "hvl defaults kvp",
			data: inventory.Data{"hvl": "3.1", "physicist_hvl": "3.0", "physicist_hvl_kvp": "80", "ma": "2"},
			want: map[string]string{"hvl": "3.1 @ 120", "physicist_hvl": "3.0 @ 80", "preset_ma": "2"},
		},
		{
			name: "no hlc blanks boost",
			data: inventory.Data{"has_hlc": "false", "boost_kvp": "110", "boost_rate": "15"},
			want: map[string]string{"boost_kvp": "", "boost_rate": "", "hvl": ""},
		},
		{
			name: "hlc keeps boost",
			data: inventory.Data{"has_hlc": "true", "boost_kvp": "110"},
			want: map[string]string{"boost_kvp": "110"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testBuilder().Build(machine(inventory.CategoryFluoroscope, tt.data))
			for k, v := range tt.want {
				assert.Equal(t, v, p[k], k)
			}
		})
	}
}

func TestBuild_CTTechniqueLabels(t *testing.T) {
	p := testBuilder().Build(machine(inventory.CategoryCT, inventory.Data{"mas": "200"}))
	assert.Equal(t, "", p["ma"])
	assert.Equal(t, "", p["ma_label"])
	assert.Equal(t, "200", p["mas"])
	assert.Equal(t, "mAs", p["mas_label"])
	assert.Equal(t, "<1", p["operator_scatter"])
}

func TestBuild_AcceleratorRemapsManualFields(t *testing.T) {
	p := testBuilder().Build(machine(inventory.CategoryAccelerator, inventory.Data{
		"acc_max_energy":      "18 MV",
		"acc_license_number":  "L-77",
		"acc_rso_name":        "Dr. Hale",
		"acc_onboard_imaging": "Yes",
	}))
	assert.Equal(t, "18 MV", p["max_energy"])
	assert.Equal(t, "L-77", p["license_number"])
	assert.Equal(t, "Dr. Hale", p["rso_name"])
	assert.Equal(t, "Yes", p["onboard_imaging"])
	assert.Equal(t, "<1", p["door_scatter"])
	assert.Equal(t, "<1", p["console_scatter"])
}

func TestBuild_NoData(t *testing.T) {
	tests := []struct {
		category inventory.Category
		headline string
	}{
		{inventory.CategoryDental, "preset_kvp"},
		{inventory.CategoryGeneral, "note"},
		{inventory.CategoryAnalytical, "note"},
		{inventory.CategoryBoneDensity, "note"},
		{inventory.CategoryIndustrial, "note"},
		{inventory.CategoryFluoroscope, "kvp"},
		{inventory.CategoryCT, "time"},
		{inventory.CategoryCabinet, "entrance"},
		{inventory.CategoryCBCT, "six_foot"},
		{inventory.CategoryPanoramic, "six_foot"},
		{inventory.CategoryAccelerator, "door_scatter"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			data := inventory.Data{
				inventory.KeyNoDataReason: inventory.ReasonNotOperational,
				"operator_scatter":        "4",
				"g1_mr":                   "5",
				"kvp":                     "80",
			}
			p := testBuilder().Build(machine(tt.category, data))

			assert.Equal(t, inventory.ReasonNotOperational, p[tt.headline])
			v := newVariant(tt.category)
			eachFieldKeys(v, func(key string) {
				if key != tt.headline {
					assert.Equal(t, "", p[key], key)
				}
			})
			assert.Equal(t, "Valley Imaging", p["registrant"])
		})
	}
}

func TestBuild_CabinetNoData(t *testing.T) {
	p := testBuilder().Build(machine(inventory.CategoryCabinet, inventory.Data{
		inventory.KeyNoDataReason: inventory.ReasonNotOperational,
		"exit":                    "3",
	}))
	assert.Equal(t, "MACHINE NOT OPERATIONAL", p["entrance"])
	assert.Equal(t, "", p["exit"])
	assert.Equal(t, "", p["operator_scatter"])
}

func TestHasMeasurements(t *testing.T) {
	tests := []struct {
		name string
		m    inventory.Machine
		want bool
	}{
		{"empty", machine(inventory.CategoryGeneral, inventory.Data{}), false},
		{"reserved keys only", machine(inventory.CategoryGeneral, inventory.Data{inventory.KeyNumTubes: "2", inventory.KeyTubeNo: "1"}), false},
		{"unknown key", machine(inventory.CategoryCabinet, inventory.Data{"g1_mr": "5"}), false},
		{"reading", machine(inventory.CategoryCabinet, inventory.Data{"exit": "3"}), true},
		{"remapped field", machine(inventory.CategoryAccelerator, inventory.Data{"acc_rso_name": "Hale"}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasMeasurements(tt.m))
		})
	}
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "RF-10_general.docx", Filename(Payload{"registration": "RF-10"}, inventory.CategoryGeneral))
	assert.Equal(t, "A_B_C_ct.docx", Filename(Payload{"registration": "A/B C"}, inventory.CategoryCT))
	assert.Equal(t, "machine_dental.docx", Filename(Payload{}, inventory.CategoryDental))
}

func eachFieldKeys(v any, fn func(key string)) {
	eachField(v, func(tag fieldTag, _ reflect.Value) { fn(tag.key) })
}
