package op

import "github.com/nickyhof/SheetDB/core"

// Decode pairs each header with the value at the same index. Missing
// trailing values decode as the empty string. position is recorded as the
// document's Row.
func Decode(headers []string, values []any, position int) core.Document {
	fields := make(map[string]any, len(headers))
	for i, header := range headers {
		if i < len(values) && values[i] != nil {
			fields[header] = values[i]
		} else {
			fields[header] = ""
		}
	}
	return core.Document{Fields: fields, Row: position}
}

// Encode produces a row aligned to headers. Headers absent from fields (or
// holding nil) encode as the empty string.
func Encode(headers []string, fields map[string]any) []any {
	values := make([]any, len(headers))
	for i, header := range headers {
		if value, ok := fields[header]; ok && value != nil {
			values[i] = value
		} else {
			values[i] = ""
		}
	}
	return values
}

// Position returns the physical row of the data row at index i of a
// ReadAll result.
func Position(i int) int {
	return core.HeaderRow + 1 + i
}
