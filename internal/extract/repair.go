package extract

import (
	"slices"
	"sort"
	"strconv"
	"strings"
)

// tableHints mark keys whose values are expected to be tables.
var tableHints = []string{"formulation", "table", "data", "list", "array", "rows", "materials"}

// RepairTables normalizes table-shaped values in an extracted record.
// A record keyed only by row numbers ("1", "2", ...) becomes an array.
// Table values are those under a table-like key at any depth or under one
// of the record's arrayFields. An object with row-number keys becomes the
// array of rows 1..max (other keys are dropped), an object of objects
// becomes the list of its values and scalar list items are wrapped as
// {"data": v}. Null and all-null rows are dropped. Numeric-keyed objects
// anywhere else are left as they are.
func RepairTables(v any, arrayFields ...string) any {
	m, ok := v.(map[string]any)
	if !ok {
		return repairFields(v)
	}
	if rows := rowKeys(m); len(m) > 0 && len(rows) == len(m) {
		return numberedRows(m, rows)
	}
	out := make(map[string]any, len(m))
	for k, val := range m {
		val = repairFields(val)
		if isTableKey(k) || slices.Contains(arrayFields, k) {
			val = tableShape(val)
		}
		out[k] = val
	}
	return out
}

func repairFields(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			val = repairFields(val)
			if isTableKey(k) {
				val = tableShape(val)
			}
			out[k] = val
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = repairFields(item)
		}
		return out
	}
	return v
}

func isTableKey(key string) bool {
	lower := strings.ToLower(key)
	for _, hint := range tableHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// rowKeys returns the row numbers of m, starting at 1, in ascending order.
// Keys such as "0" or "01" are not row numbers.
func rowKeys(m map[string]any) []int {
	var rows []int
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil || n < 1 || strconv.Itoa(n) != k {
			continue
		}
		rows = append(rows, n)
	}
	sort.Ints(rows)
	return rows
}

func numberedRows(m map[string]any, keys []int) []any {
	rows := make([]any, 0, len(keys))
	for _, n := range keys {
		row := repairFields(m[strconv.Itoa(n)])
		switch r := row.(type) {
		case nil:
			continue
		case map[string]any:
			if allNull(r) {
				continue
			}
			rows = append(rows, r)
		default:
			rows = append(rows, map[string]any{"data": r})
		}
	}
	return rows
}

// tableShape coerces a table-like value into a list of row objects.
func tableShape(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 0 {
			return t
		}
		if rows := rowKeys(t); len(rows) > 0 {
			return numberedRows(t, rows)
		}
		keys := make([]string, 0, len(t))
		for k, val := range t {
			if _, ok := val.(map[string]any); !ok {
				return t
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([]any, len(keys))
		for i, k := range keys {
			rows[i] = t[k]
		}
		return rows
	case []any:
		for i, item := range t {
			if _, ok := item.(map[string]any); !ok {
				t[i] = map[string]any{"data": item}
			}
		}
		return t
	}
	return v
}

func allNull(m map[string]any) bool {
	for _, v := range m {
		if v != nil {
			return false
		}
	}
	return true
}
