package parse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoDetails is returned when an entity name carries no parenthesized
// make/model/serial block.
var ErrNoDetails = errors.New("no parenthesized machine details")

var (
	spaceRe  = regexp.MustCompile(`\s+`)
	makeRe   = regexp.MustCompile(`(?i)\bmake\s*[:\-]\s*(.+?)\s*(?:\s/\s|[,;]|$)`)
	modelRe  = regexp.MustCompile(`(?i)\bmodel\s*[:\-]\s*(.+?)\s*(?:\s/\s|[,;]|$)`)
	serialRe = regexp.MustCompile(`(?i)(?:\bserial(?:\s*(?:no\.?|number|#))?\s*[:#\-]?|\bs/n\s*[:#\-]?|\bsn\s*[:#])\s*(.+?)\s*(?:\s/\s|[,;]|$)`)
	splitRe  = regexp.MustCompile(`\s*[/,;]\s*`)
)

// ParsedEntity holds the facility and machine descriptor parsed from a
// spreadsheet entity name such as "Smile Dental (Gendex / GX-770 / 12345)".
type ParsedEntity struct {
	Facility string
	Details  string
	Make     string
	Model    string
	Serial   string
}

// ParseEntity splits a raw entity name into the facility name and the last
// parenthesized detail block, then extracts make, model and serial from the
// block. Parts that cannot be identified are left empty.
func ParseEntity(raw string) (ParsedEntity, error) {
	s := strings.TrimSpace(spaceRe.ReplaceAllString(raw, " "))

	closeIdx := strings.LastIndex(s, ")")
	if closeIdx < 0 {
		return ParsedEntity{}, fmt.Errorf("%w: %q", ErrNoDetails, raw)
	}
	openIdx := strings.LastIndex(s[:closeIdx], "(")
	if openIdx < 0 {
		return ParsedEntity{}, fmt.Errorf("%w: %q", ErrNoDetails, raw)
	}

	details := strings.TrimSpace(s[openIdx+1 : closeIdx])
	if details == "" {
		return ParsedEntity{}, fmt.Errorf("%w: %q", ErrNoDetails, raw)
	}

	facility := strings.TrimSpace(s[:openIdx])
	facility = strings.TrimSpace(strings.TrimRight(facility, "-–:,"))

	p := ParsedEntity{Facility: facility, Details: details}
	p.Make, p.Model, p.Serial = splitDetails(details)
	return p, nil
}

func splitDetails(details string) (mk, model, serial string) {
	labeled := false
	if m := makeRe.FindStringSubmatch(details); m != nil {
		mk, labeled = strings.TrimSpace(m[1]), true
	}
	if m := modelRe.FindStringSubmatch(details); m != nil {
		model, labeled = strings.TrimSpace(m[1]), true
	}
	if m := serialRe.FindStringSubmatch(details); m != nil {
		serial, labeled = strings.TrimSpace(m[1]), true
	}
	if labeled {
		return mk, model, serial
	}

	parts := splitRe.Split(details, -1)
	switch len(parts) {
	case 1:
		return "", "", ""
	case 2:
		return parts[0], parts[1], ""
	default:
		return parts[0], parts[1], strings.Join(parts[2:], " ")
	}
}
