package inventory

import (
	"regexp"
	"strconv"
	"strings"
)

// Pair roles carried as location suffixes.
const (
	suffixRadiographic = " (R)"
	suffixFluoroscopic = " (F)"
)

var tubeSuffixRe = regexp.MustCompile(`\s\((\d+)\)$`)

// PairRole is the position of a machine inside a dual-role pair.
type PairRole int

const (
	PairNone PairRole = iota
	PairRadiographic
	PairFluoroscopic
)

// PairRoleOf reports the dual-role position encoded in location.
func PairRoleOf(location string) PairRole {
	switch {
	case strings.HasSuffix(location, suffixRadiographic):
		return PairRadiographic
	case strings.HasSuffix(location, suffixFluoroscopic):
		return PairFluoroscopic
	}
	return PairNone
}

// StripPairSuffix removes a trailing " (R)" or " (F)".
func StripPairSuffix(location string) string {
	location = strings.TrimSuffix(location, suffixRadiographic)
	return strings.TrimSuffix(location, suffixFluoroscopic)
}

// BaseLocation removes a trailing " (n)" tube suffix.
func BaseLocation(location string) string {
	return tubeSuffixRe.ReplaceAllString(location, "")
}

// TubeIndex returns the n of a trailing " (n)" suffix, or 0.
func TubeIndex(location string) int {
	m := tubeSuffixRe.FindStringSubmatch(location)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

// CleanLocation strips both pair and tube suffixes, yielding the
// registration number printed on reports.
func CleanLocation(location string) string {
	return strings.TrimSpace(BaseLocation(StripPairSuffix(location)))
}

func tubeLocation(base string, n int) string {
	return base + " (" + strconv.Itoa(n) + ")"
}

func sameUnit(a, b Machine) bool {
	return a.EntityID == b.EntityID &&
		a.Make == b.Make &&
		a.Model == b.Model &&
		a.Serial == b.Serial
}

// IsTubeSibling reports whether candidate belongs to the same multi-tube
// group as m: same facility, make, model, serial and base location, with
// both on the same side of the single/multi-tube divide. Pair members never
// form tube groups.
func IsTubeSibling(m, candidate Machine) bool {
	if PairRoleOf(m.Location) != PairNone || PairRoleOf(candidate.Location) != PairNone {
		return false
	}
	if m.InspectionType.MultiTube() != candidate.InspectionType.MultiTube() {
		return false
	}
	return sameUnit(m, candidate) && BaseLocation(m.Location) == BaseLocation(candidate.Location)
}

// IsPairPartner reports whether candidate is the opposite half of m's
// dual-role pair.
func IsPairPartner(m, candidate Machine) bool {
	role := PairRoleOf(m.Location)
	other := PairRoleOf(candidate.Location)
	if role == PairNone || other == PairNone || role == other || m.ID == candidate.ID {
		return false
	}
	return sameUnit(m, candidate) && StripPairSuffix(m.Location) == StripPairSuffix(candidate.Location)
}

func locationTaken(machines []Machine, entityID, location, exceptID string) bool {
	for _, m := range machines {
		if m.ID != exceptID && m.EntityID == entityID && m.Location == location {
			return true
		}
	}
	return false
}
