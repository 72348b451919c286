// Package query turns the untyped where/sort/select/skip/limit/count request
// parameters into a validated, bounded query descriptor. Field names are
// checked against a per-collection whitelist and normalized to column names,
// and the filter grammar is a closed algebra (equality, comparison,
// membership, logical combination) so nothing client-supplied ever reaches
// the store unexamined.
package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Op is a filter operator.
type Op string

const (
	OpEq  Op = "$eq"
	OpNe  Op = "$ne"
	OpGt  Op = "$gt"
	OpGte Op = "$gte"
	OpLt  Op = "$lt"
	OpLte Op = "$lte"
	OpIn  Op = "$in"
	OpNin Op = "$nin"
	OpAnd Op = "$and"
	OpOr  Op = "$or"
)

// Filter is one node of the filter tree. Leaf nodes carry Field/Value,
// OpAnd/OpOr nodes carry Children.
type Filter struct {
	Op       Op
	Field    string
	Value    interface{}
	Values   []interface{}
	Children []Filter
}

// SortField is a single ORDER BY term.
type SortField struct {
	Field string
	Desc  bool
}

// Spec is the validated query descriptor handed to the store gateway.
// A nil Filter matches everything; Limit 0 means no cap.
type Spec struct {
	Filter     *Filter
	Sort       []SortField
	Projection Projection
	Skip       int
	Limit      int
	CountOnly  bool
}

// FieldMap maps the JSON field names a client may reference to the column
// names the store understands.
type FieldMap map[string]string

// TaskFields and UserFields are the referenceable fields per collection.
// Both the mongo-style "_id" and the plain "id" spellings are accepted.
var (
	TaskFields = FieldMap{
		"_id":              "id",
		"id":               "id",
		"name":             "name",
		"description":      "description",
		"deadline":         "deadline",
		"completed":        "completed",
		"assignedUser":     "assigned_user",
		"assignedUserName": "assigned_user_name",
		"dateCreated":      "date_created",
	}
	UserFields = FieldMap{
		"_id":          "id",
		"id":           "id",
		"name":         "name",
		"email":        "email",
		"pendingTasks": "pending_tasks",
		"dateCreated":  "date_created",
	}
)

// ParseError reports which parameter failed structured-value parsing. Its
// message is what the client sees.
type ParseError struct {
	Param string
}

func (e *ParseError) Error() string {
	return "Invalid " + e.Param + " parameter"
}

// Parse builds a Spec from raw query parameters. defaultLimit caps the
// result set when the client supplies no usable limit; pass 0 for no cap.
// The first malformed parameter aborts parsing.
func Parse(params map[string]string, fields FieldMap, defaultLimit int) (Spec, error) {
	spec := Spec{Limit: defaultLimit}

	if raw, ok := params["where"]; ok && raw != "" {
		f, err := parseWhere(raw, fields)
		if err != nil {
			return Spec{}, err
		}
		spec.Filter = f
	}

	if raw, ok := params["sort"]; ok && raw != "" {
		sort, err := parseSort(raw, fields)
		if err != nil {
			return Spec{}, err
		}
		spec.Sort = sort
	}

	if raw, ok := params["select"]; ok && raw != "" {
		proj, err := ParseProjection(raw)
		if err != nil {
			return Spec{}, err
		}
		spec.Projection = proj
	}

	if raw, ok := params["skip"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			spec.Skip = n
		}
	}

	if raw, ok := params["limit"]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			spec.Limit = n
		}
	}

	if params["count"] == "true" {
		spec.CountOnly = true
	}

	return spec, nil
}

func parseWhere(raw string, fields FieldMap) (*Filter, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, &ParseError{"where"}
	}
	if len(doc) == 0 {
		return nil, nil
	}
	f, err := parseFilterDoc(doc, fields)
	if err != nil {
		return nil, &ParseError{"where"}
	}
	return f, nil
}

// parseFilterDoc parses one JSON object into a filter node. Multiple keys
// combine as an implicit AND, matching the source DSL. An object with no
// constraints parses to nil, meaning match-all.
func parseFilterDoc(doc map[string]json.RawMessage, fields FieldMap) (*Filter, error) {
	var parts []Filter
	for key, raw := range doc {
		switch key {
		case "$and", "$or":
			var branches []map[string]json.RawMessage
			if err := json.Unmarshal(raw, &branches); err != nil || len(branches) == 0 {
				return nil, fmt.Errorf("%s expects a non-empty array of objects", key)
			}
			node := Filter{Op: OpAnd}
			if key == "$or" {
				node.Op = OpOr
			}
			matchAll := false
			for _, branch := range branches {
				child, err := parseFilterDoc(branch, fields)
				if err != nil {
					return nil, err
				}
				if child == nil {
					// An empty branch object matches every record: it makes
					// the whole $or unconditional and is a no-op inside $and.
					if node.Op == OpOr {
						matchAll = true
						break
					}
					continue
				}
				node.Children = append(node.Children, *child)
			}
			if matchAll || len(node.Children) == 0 {
				continue
			}
			parts = append(parts, node)
		default:
			col, ok := fields[key]
			if !ok {
				return nil, fmt.Errorf("unknown field %q", key)
			}
			conds, err := parseFieldCondition(col, raw)
			if err != nil {
				return nil, err
			}
			parts = append(parts, conds...)
		}
	}
	if len(parts) == 0 {
		return nil, nil
	}
	if len(parts) == 1 {
		return &parts[0], nil
	}
	return &Filter{Op: OpAnd, Children: parts}, nil
}

// parseFieldCondition handles the value side of a field entry: a scalar is
// implicit equality, an object is an operator map.
func parseFieldCondition(col string, raw json.RawMessage) ([]Filter, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch tv := v.(type) {
	case map[string]interface{}:
		var out []Filter
		for opKey, opVal := range tv {
			op := Op(opKey)
			switch op {
			case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte:
				if !scalar(opVal) {
					return nil, fmt.Errorf("%s wants a scalar value", opKey)
				}
				out = append(out, Filter{Op: op, Field: col, Value: opVal})
			case OpIn, OpNin:
				list, ok := opVal.([]interface{})
				if !ok {
					return nil, fmt.Errorf("%s wants an array", opKey)
				}
				for _, item := range list {
					if !scalar(item) {
						return nil, fmt.Errorf("%s wants scalar elements", opKey)
					}
				}
				out = append(out, Filter{Op: op, Field: col, Values: list})
			default:
				return nil, fmt.Errorf("unknown operator %q", opKey)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("empty condition for %q", col)
		}
		return out, nil
	case []interface{}:
		return nil, fmt.Errorf("array value for %q needs $in or $nin", col)
	default:
		if !scalar(v) {
			return nil, fmt.Errorf("unsupported value for %q", col)
		}
		return []Filter{{Op: OpEq, Field: col, Value: v}}, nil
	}
}

func scalar(v interface{}) bool {
	switch v.(type) {
	case string, float64, bool, nil:
		return true
	default:
		return false
	}
}

// parseSort walks the object with a token decoder so a multi-field sort
// keeps the order the client wrote.
func parseSort(raw string, fields FieldMap) ([]SortField, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil, &ParseError{"sort"}
	}
	var out []SortField
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, &ParseError{"sort"}
		}
		key, _ := keyTok.(string)
		col, ok := fields[key]
		if !ok {
			return nil, &ParseError{"sort"}
		}
		var dir interface{}
		if err := dec.Decode(&dir); err != nil {
			return nil, &ParseError{"sort"}
		}
		desc, err := sortDirection(dir)
		if err != nil {
			return nil, &ParseError{"sort"}
		}
		out = append(out, SortField{Field: col, Desc: desc})
	}
	return out, nil
}

func sortDirection(v interface{}) (desc bool, err error) {
	switch d := v.(type) {
	case float64:
		switch d {
		case 1:
			return false, nil
		case -1:
			return true, nil
		}
	case string:
		switch d {
		case "1", "asc", "ascending":
			return false, nil
		case "-1", "desc", "descending":
			return true, nil
		}
	}
	return false, fmt.Errorf("bad sort direction %v", v)
}
