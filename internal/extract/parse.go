package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnparsable = errors.New("extraction response is not a JSON object")

// ParseFields decodes a model reply into a field map. Code fences and text
// around the object are ignored. Null and empty values mean the field was
// not found and are left out.
func ParseFields(reply string) (map[string]string, error) {
	body := strings.TrimSpace(reply)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, ErrUnparsable
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparsable, err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		var s string
		switch val := v.(type) {
		case nil:
			continue
		case string:
			s = strings.TrimSpace(val)
		case float64:
			s = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				continue
			}
			s = string(b)
		}
		if s != "" && !strings.EqualFold(s, "null") {
			out[k] = s
		}
	}
	return out, nil
}

// Allowed keeps only the keys listed in fields.
func Allowed(values map[string]string, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		if v, ok := values[f]; ok {
			out[f] = v
		}
	}
	return out
}
