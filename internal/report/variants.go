package report

import (
	"strconv"
	"strings"

	"rlis-backend/internal/inventory"
)

const (
	lessThanOne   = "<1"
	defaultHVLKVP = "120"
	generalKVP    = "70"
	generalMAS1   = "10"
	generalMAS2   = "16"
	generalMAS3   = "20"
	generalMAS4   = "40"
	reproReadings = 4
	decimalPlaces = 2
)

// variant is the typed field set of one inspection category.
type variant interface {
	// headline is the template key that carries the no-data reason.
	headline() string
	applyDefaults()
}

func newVariant(c inventory.Category) variant {
	switch c {
	case inventory.CategoryGeneral:
		return &generalFields{}
	case inventory.CategoryFluoroscope:
		return &fluoroscopeFields{}
	case inventory.CategoryCT:
		return &ctFields{}
	case inventory.CategoryCabinet:
		return &cabinetFields{}
	case inventory.CategoryCBCT, inventory.CategoryPanoramic:
		return &panoramicFields{}
	case inventory.CategoryAnalytical, inventory.CategoryBoneDensity, inventory.CategoryIndustrial:
		return &shieldedFields{}
	case inventory.CategoryAccelerator:
		return &acceleratorFields{}
	default:
		return &dentalFields{}
	}
}

func defaultTo(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func number(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', decimalPlaces, 64)
}

// ratio returns num/den to two decimals, or "" when either side is zero.
func ratio(num, den string) string {
	n, d := number(num), number(den)
	if n == 0 || d == 0 {
		return ""
	}
	return formatNumber(n / d)
}

type dentalFields struct {
	PresetKVP       string `report:"preset_kvp"`
	PresetMA        string `report:"preset_ma"`
	PresetTime      string `report:"preset_time"`
	MeasuredKVP     string `report:"measured_kvp"`
	MeasuredTime    string `report:"measured_time"`
	Dose            string `report:"dose"`
	HVL             string `report:"hvl"`
	OperatorScatter string `report:"operator_scatter"`
	Note            string `report:"note"`
}

func (*dentalFields) headline() string { return "preset_kvp" }

func (f *dentalFields) applyDefaults() {
	defaultTo(&f.OperatorScatter, lessThanOne)
}

type panoramicFields struct {
	PresetKVP       string `report:"preset_kvp"`
	PresetMA        string `report:"preset_ma"`
	PresetTime      string `report:"preset_time"`
	MeasuredKVP     string `report:"measured_kvp"`
	MeasuredTime    string `report:"measured_time"`
	Dose            string `report:"dose"`
	SixFoot         string `report:"six_foot"`
	OperatorScatter string `report:"operator_scatter"`
	Note            string `report:"note"`
}

func (*panoramicFields) headline() string { return "six_foot" }

func (f *panoramicFields) applyDefaults() {
	defaultTo(&f.OperatorScatter, lessThanOne)
}

type generalFields struct {
	KVP1   string `report:"kvp1"`
	MAS1   string `report:"mas1"`
	KVP2   string `report:"kvp2"`
	MAS2   string `report:"mas2"`
	KVP3   string `report:"kvp3"`
	MAS3   string `report:"mas3"`
	MAS4   string `report:"mas4"`
	G1MR   string `report:"g1_mr"`
	G1KVP  string `report:"g1_kvp"`
	G1Calc string `report:"g1_calc,derived"`
	G2MR1  string `report:"g2_mr1"`
	G2MR2  string `report:"g2_mr2"`
	G2MR3  string `report:"g2_mr3"`
	G2MR4  string `report:"g2_mr4"`
	G2Avg  string `report:"g2_avg,derived"`
	G2Calc string `report:"g2_calc,derived"`
	G3MR   string `report:"g3_mr"`
	G3Calc string `report:"g3_calc,derived"`
	G4MR   string `report:"g4_mr"`
	HVL    string `report:"hvl"`
	// Scatter displays at the operator position and the door.
	OperatorScatter string `report:"operator_scatter"`
	DoorScatter     string `report:"door_scatter"`
	Note            string `report:"note"`
}

func (*generalFields) headline() string { return "note" }

func (f *generalFields) applyDefaults() {
	defaultTo(&f.KVP1, generalKVP)
	defaultTo(&f.KVP2, generalKVP)
	defaultTo(&f.KVP3, generalKVP)
	defaultTo(&f.MAS1, generalMAS1)
	defaultTo(&f.MAS2, generalMAS2)
	defaultTo(&f.MAS3, generalMAS3)
	defaultTo(&f.MAS4, generalMAS4)
	defaultTo(&f.OperatorScatter, lessThanOne)
	defaultTo(&f.DoorScatter, lessThanOne)

	f.G1Calc = ratio(f.G1MR, f.MAS1)
	f.G3Calc = ratio(f.G3MR, f.MAS3)

	var sum float64
	var n int
	for _, r := range [reproReadings]string{f.G2MR1, f.G2MR2, f.G2MR3, f.G2MR4} {
		if v := number(r); v > 0 {
			sum += v
			n++
		}
	}
	f.G2Avg, f.G2Calc = "", ""
	if n > 0 {
		avg := sum / float64(n)
		f.G2Avg = formatNumber(avg)
		if mas := number(f.MAS2); mas > 0 {
			f.G2Calc = formatNumber(avg / mas)
		}
	}
}

// shieldedFields covers enclosed analytical, bone density and industrial units.
type shieldedFields struct {
	KVP             string `report:"kvp"`
	MA              string `report:"ma"`
	SurfaceReading  string `report:"surface_reading"`
	OperatorScatter string `report:"operator_scatter"`
	DoorScatter     string `report:"door_scatter"`
	Interlocks      string `report:"interlocks"`
	Note            string `report:"note"`
}

func (*shieldedFields) headline() string { return "note" }

func (f *shieldedFields) applyDefaults() {
	defaultTo(&f.OperatorScatter, lessThanOne)
	defaultTo(&f.DoorScatter, lessThanOne)
}

type fluoroscopeFields struct {
	KVP               string `report:"kvp"`
	MA                string `report:"ma"`
	PresetMA          string `report:"preset_ma,from=fl_ma"`
	DoseRate          string `report:"dose_rate"`
	MaxRate           string `report:"max_rate"`
	HVLValue          string `report:"hvl_value,from=hvl"`
	HVLKVP            string `report:"hvl_kvp"`
	HVL               string `report:"hvl,derived"`
	PhysicistHVLValue string `report:"physicist_hvl_value,from=physicist_hvl"`
	PhysicistHVLKVP   string `report:"physicist_hvl_kvp"`
	PhysicistHVL      string `report:"physicist_hvl,derived"`
	HasHLC            string `report:"has_hlc"`
	BoostKVP          string `report:"boost_kvp"`
	BoostMA           string `report:"boost_ma"`
	BoostRate         string `report:"boost_rate"`
	OperatorScatter   string `report:"operator_scatter"`
	Note              string `report:"note"`
}

func (*fluoroscopeFields) headline() string { return "kvp" }

func (f *fluoroscopeFields) applyDefaults() {
	defaultTo(&f.PresetMA, f.MA)
	f.HVL = withKVP(f.HVLValue, f.HVLKVP)
	f.PhysicistHVL = withKVP(f.PhysicistHVLValue, f.PhysicistHVLKVP)
	if !truthy(f.HasHLC) {
		f.BoostKVP, f.BoostMA, f.BoostRate = "", "", ""
	}
}

func withKVP(value, kvp string) string {
	if value == "" {
		return ""
	}
	if kvp == "" {
		kvp = defaultHVLKVP
	}
	return value + " @ " + kvp
}

func truthy(s string) bool {
	switch strings.ToLower(s) {
	case "true", "yes", "y", "1", "on":
		return true
	}
	return false
}

type ctFields struct {
	KVP             string `report:"kvp"`
	MA              string `report:"ma"`
	MAS             string `report:"mas"`
	Time            string `report:"time"`
	SliceWidth      string `report:"slice_width"`
	CTDI            string `report:"ctdi"`
	OperatorScatter string `report:"operator_scatter"`
	Note            string `report:"note"`
	// Unit labels printed next to whichever technique value was supplied.
	MALabel  string `report:"ma_label,derived"`
	MASLabel string `report:"mas_label,derived"`
}

func (*ctFields) headline() string { return "time" }

func (f *ctFields) applyDefaults() {
	f.MALabel, f.MASLabel = "", ""
	if f.MA != "" {
		f.MALabel = "mA"
	}
	if f.MAS != "" {
		f.MASLabel = "mAs"
	}
	defaultTo(&f.OperatorScatter, lessThanOne)
}

type cabinetFields struct {
	KVP             string `report:"kvp"`
	MA              string `report:"ma"`
	Entrance        string `report:"entrance"`
	Exit            string `report:"exit"`
	OperatorScatter string `report:"operator_scatter"`
	Interlocks      string `report:"interlocks"`
	Note            string `report:"note"`
}

func (*cabinetFields) headline() string { return "entrance" }

func (f *cabinetFields) applyDefaults() {
	defaultTo(&f.Entrance, lessThanOne)
	defaultTo(&f.Exit, lessThanOne)
	defaultTo(&f.OperatorScatter, lessThanOne)
}

type acceleratorFields struct {
	DoorScatter     string `report:"door_scatter"`
	ConsoleScatter  string `report:"console_scatter"`
	MaxEnergy       string `report:"max_energy,from=acc_max_energy"`
	LicenseRequired string `report:"license_required,from=acc_license_required"`
	LicenseNumber   string `report:"license_number,from=acc_license_number"`
	RSOName         string `report:"rso_name,from=acc_rso_name"`
	OnboardImaging  string `report:"onboard_imaging,from=acc_onboard_imaging"`
	Note            string `report:"note"`
}

func (*acceleratorFields) headline() string { return "door_scatter" }

func (f *acceleratorFields) applyDefaults() {
	defaultTo(&f.DoorScatter, lessThanOne)
	defaultTo(&f.ConsoleScatter, lessThanOne)
}
