package query

import (
	"encoding/json"
)

// Projection is a mongo-style field selection: either an inclusion list
// (id included by default unless explicitly excluded) or an exclusion list.
// Mixing the two modes is a parse error, except for excluding id inside an
// inclusion projection. Field names are the JSON names; projection is
// applied when rendering a record, not in the store.
type Projection struct {
	include   bool
	fields    map[string]bool
	excludeID bool
}

// Empty reports whether the projection selects the full record.
func (p Projection) Empty() bool {
	return len(p.fields) == 0 && !p.excludeID
}

// Allows reports whether the named JSON field survives the projection.
func (p Projection) Allows(field string) bool {
	if p.Empty() {
		return true
	}
	if field == "id" {
		return !p.excludeID
	}
	if p.include {
		return p.fields[field]
	}
	return !p.fields[field]
}

// ParseProjection parses a select parameter value.
func ParseProjection(raw string) (Projection, error) {
	if raw == "" {
		return Projection{}, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return Projection{}, &ParseError{"select"}
	}
	p := Projection{fields: map[string]bool{}}
	mode := 0 // 0 undecided, 1 include, -1 exclude
	for key, v := range doc {
		n, ok := v.(float64)
		if !ok {
			if b, isBool := v.(bool); isBool {
				n = 0
				if b {
					n = 1
				}
			} else {
				return Projection{}, &ParseError{"select"}
			}
		}
		field := key
		if field == "_id" {
			field = "id"
		}
		if n == 0 {
			if field == "id" {
				p.excludeID = true
				continue
			}
			if mode == 1 {
				return Projection{}, &ParseError{"select"}
			}
			mode = -1
			p.fields[field] = true
		} else {
			if mode == -1 {
				return Projection{}, &ParseError{"select"}
			}
			mode = 1
			p.fields[field] = true
		}
	}
	p.include = mode == 1
	return p, nil
}

// Apply renders a record (or slice of records) through the projection,
// returning the value untouched when the projection is empty. Records are
// flattened to their JSON shape so the result can go straight into the
// response envelope.
func (p Projection) Apply(v interface{}) interface{} {
	if p.Empty() {
		return v
	}
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var any interface{}
	if err := json.Unmarshal(b, &any); err != nil {
		return v
	}
	return p.applyValue(any)
}

func (p Projection) applyValue(v interface{}) interface{} {
	switch tv := v.(type) {
	case []interface{}:
		out := make([]interface{}, len(tv))
		for i, item := range tv {
			out[i] = p.applyValue(item)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(tv))
		for k, val := range tv {
			if p.Allows(k) {
				out[k] = val
			}
		}
		return out
	default:
		return v
	}
}
