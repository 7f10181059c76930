package inventory

import (
	"regexp"
	"strings"
)

// Classification is the result of classifying a credential descriptor.
type Classification struct {
	Category Category
	// DualRole marks a combination R&F unit, which is imported as a
	// radiographic/fluoroscopic pair regardless of Category.
	DualRole bool
}

type categoryRule struct {
	category Category
	match    func(s string) bool
}

var ctWord = regexp.MustCompile(`\bct\b`)

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

func anyOf(needles ...string) func(string) bool {
	return func(s string) bool { return containsAny(s, needles...) }
}

// Order matters: first match wins. Analytical must precede CT because
// "diffraction" contains "ct", and CBCT must precede panoramic and CT.
var categoryRules = []categoryRule{
	{CategoryIndustrial, anyOf("industrial")},
	{CategoryAnalytical, anyOf("analytical", "diffraction", "fluorescence", "electron microscope", "xrf", "xrd")},
	{CategoryBoneDensity, anyOf("bone dens", "densitomet", "dexa", "dxa")},
	{CategoryCBCT, anyOf("cbct", "cone beam", "cone-beam", "panoramic ct", "panoramic/ct")},
	{CategoryPanoramic, anyOf("panoramic", "cephalometric")},
	{CategoryCT, func(s string) bool {
		return ctWord.MatchString(s) || containsAny(s, "tomograph")
	}},
	{CategoryCabinet, anyOf("cabinet", "security", "baggage")},
	{CategoryDental, anyOf("intraoral", "intra-oral", "intra oral")},
	{CategoryGeneral, anyOf("radiographic", "radiography", "general purpose")},
	{CategoryFluoroscope, anyOf("fluoro", "c-arm", "c arm", "carm")},
	{CategoryAccelerator, anyOf("accelerator", "linac", "linear acc")},
}

// Classify maps a free-text credential or license descriptor to an
// inspection category. Unrecognized descriptors default to dental.
func Classify(descriptor string) Classification {
	s := strings.ToLower(strings.TrimSpace(descriptor))

	out := Classification{Category: CategoryDental}
	for _, rule := range categoryRules {
		if rule.match(s) {
			out.Category = rule.category
			break
		}
	}

	out.DualRole = strings.Contains(s, "combination") && containsAny(s, "r&f", "r & f")
	return out
}
