package report

import (
	"reflect"
	"strings"

	"rlis-backend/internal/inventory"
)

// Variant fields are plain strings tagged with their template key:
//
//	KVP string `report:"kvp"`                      // read from data["kvp"]
//	Max string `report:"max_energy,from=acc_max"` // read from data["acc_max"]
//	Avg string `report:"g2_avg,derived"`          // computed, never read
type fieldTag struct {
	key     string
	from    string
	derived bool
}

func parseTag(tag string) (fieldTag, bool) {
	if tag == "" || tag == "-" {
		return fieldTag{}, false
	}
	parts := strings.Split(tag, ",")
	ft := fieldTag{key: parts[0], from: parts[0]}
	for _, opt := range parts[1:] {
		switch {
		case opt == "derived":
			ft.derived = true
		case strings.HasPrefix(opt, "from="):
			ft.from = strings.TrimPrefix(opt, "from=")
		}
	}
	return ft, true
}

// eachField calls fn for every tagged string field of the struct v points to.
func eachField(v any, fn func(tag fieldTag, field reflect.Value)) {
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		tag, ok := parseTag(rt.Field(i).Tag.Get("report"))
		if !ok || rt.Field(i).Type.Kind() != reflect.String {
			continue
		}
		fn(tag, rv.Field(i))
	}
}

// bind copies the measurement fields from data into v.
func bind(v any, data inventory.Data) {
	eachField(v, func(tag fieldTag, f reflect.Value) {
		if !tag.derived {
			f.SetString(data.Get(tag.from))
		}
	})
}

// blank clears every field of v, derived ones included.
func blank(v any) {
	eachField(v, func(_ fieldTag, f reflect.Value) {
		f.SetString("")
	})
}

// flatten writes every field of v into out under its template key.
func flatten(v any, out map[string]string) {
	eachField(v, func(tag fieldTag, f reflect.Value) {
		out[tag.key] = f.String()
	})
}

// recorded reports whether any non-derived field of v holds a value.
func recorded(v any) bool {
	found := false
	eachField(v, func(tag fieldTag, f reflect.Value) {
		if !tag.derived && f.String() != "" {
			found = true
		}
	})
	return found
}
