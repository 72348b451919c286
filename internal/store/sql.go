package store

import (
	"fmt"
	"strings"

	"taskboard/internal/query"
)

// arrayColumns are the TEXT[] columns; an equality condition against one of
// them means array membership, not whole-array equality.
var arrayColumns = map[string]bool{
	"pending_tasks": true,
}

// buildSelect compiles a query descriptor into a full SELECT statement with
// positional placeholders. columns is the projection-independent column list
// (records are always scanned whole; field selection happens at render time).
func buildSelect(table, columns string, spec query.Spec) (string, []interface{}, error) {
	var sb strings.Builder
	var args []interface{}

	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM ")
	sb.WriteString(table)

	if spec.Filter != nil {
		clause, err := filterSQL(spec.Filter, &args)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(clause)
	}

	if len(spec.Sort) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, s := range spec.Sort {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(s.Field)
			if s.Desc {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}

	if spec.Limit > 0 {
		fmt.Fprintf(&sb, " LIMIT %d", spec.Limit)
	}
	if spec.Skip > 0 {
		fmt.Fprintf(&sb, " OFFSET %d", spec.Skip)
	}

	return sb.String(), args, nil
}

// buildCount compiles the count-only variant; sort, projection and
// pagination are ignored by contract.
func buildCount(table string, spec query.Spec) (string, []interface{}, error) {
	var args []interface{}
	sql := "SELECT COUNT(*) FROM " + table
	if spec.Filter != nil {
		clause, err := filterSQL(spec.Filter, &args)
		if err != nil {
			return "", nil, err
		}
		sql += " WHERE " + clause
	}
	return sql, args, nil
}

// filterSQL walks the filter tree appending arguments as it goes. Field
// names were whitelisted and normalized by the parser, so they are safe to
// interpolate; every value travels as a placeholder.
func filterSQL(f *query.Filter, args *[]interface{}) (string, error) {
	switch f.Op {
	case query.OpAnd, query.OpOr:
		if len(f.Children) == 0 {
			return "", fmt.Errorf("logical node %s has no children", f.Op)
		}
		joiner := " AND "
		if f.Op == query.OpOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(f.Children))
		for i := range f.Children {
			part, err := filterSQL(&f.Children[i], args)
			if err != nil {
				return "", err
			}
			parts = append(parts, part)
		}
		return "(" + strings.Join(parts, joiner) + ")", nil

	case query.OpEq:
		if arrayColumns[f.Field] {
			*args = append(*args, f.Value)
			return fmt.Sprintf("$%d = ANY(%s)", len(*args), f.Field), nil
		}
		if f.Value == nil {
			return f.Field + " IS NULL", nil
		}
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s = $%d", f.Field, len(*args)), nil

	case query.OpNe:
		if f.Value == nil {
			return f.Field + " IS NOT NULL", nil
		}
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s <> $%d", f.Field, len(*args)), nil

	case query.OpGt, query.OpGte, query.OpLt, query.OpLte:
		ops := map[query.Op]string{
			query.OpGt: ">", query.OpGte: ">=",
			query.OpLt: "<", query.OpLte: "<=",
		}
		*args = append(*args, f.Value)
		return fmt.Sprintf("%s %s $%d", f.Field, ops[f.Op], len(*args)), nil

	case query.OpIn, query.OpNin:
		if len(f.Values) == 0 {
			if f.Op == query.OpIn {
				return "FALSE", nil
			}
			return "TRUE", nil
		}
		placeholders := make([]string, 0, len(f.Values))
		for _, v := range f.Values {
			*args = append(*args, v)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(*args)))
		}
		not := ""
		if f.Op == query.OpNin {
			not = "NOT "
		}
		return fmt.Sprintf("%s %sIN (%s)", f.Field, not, strings.Join(placeholders, ", ")), nil

	default:
		return "", fmt.Errorf("unsupported filter operator %q", f.Op)
	}
}
