package yield

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Flatten joins nested map keys with sep. Leaf values are formatted as text.
func Flatten(m map[string]any, sep string) map[string]string {
	out := make(map[string]string)
	flattenInto(out, "", m, sep)
	return out
}

func flattenInto(out map[string]string, prefix string, m map[string]any, sep string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + sep + k
		}
		switch val := v.(type) {
		case map[string]any:
			flattenInto(out, key, val, sep)
		case float64:
			out[key] = strconv.FormatFloat(val, 'f', -1, 64)
		case int64:
			out[key] = strconv.FormatInt(val, 10)
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(val)
		}
	}
}

// WriteCSV writes projected rows as delimited text with one header row.
// The header is the sorted union of flattened keys.
func WriteCSV(w io.Writer, views []map[string]any, sep string) error {
	flat := make([]map[string]string, len(views))
	keys := make(map[string]struct{})
	for i, v := range views {
		flat[i] = Flatten(v, sep)
		for k := range flat[i] {
			keys[k] = struct{}{}
		}
	}
	header := make([]string, 0, len(keys))
	for k := range keys {
		header = append(header, k)
	}
	sort.Strings(header)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(header))
	for _, row := range flat {
		for i, k := range header {
			record[i] = row[k]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSV exports the full series through FullView.
func (r *Result) WriteCSV(w io.Writer, sep string) error {
	views := make([]map[string]any, len(r.rows))
	for i, row := range r.rows {
		views[i] = FullView(row)
	}
	return WriteCSV(w, views, sep)
}
