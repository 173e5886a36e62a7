package sqlsite

import (
	"encoding/json"
	"strings"

	"spmapper"
)

// encodeValues serialises a field bag for the field_values column. Times
// become RFC 3339 strings; taxonomy and calculated error values keep their
// raw marked shape.
func encodeValues(values spmapper.FieldValues) (string, error) {
	if values == nil {
		values = spmapper.FieldValues{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// decodeValues parses a stored field bag. Integral numbers come back as
// int and the rest as float64.
func decodeValues(data string) (spmapper.FieldValues, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	values := make(spmapper.FieldValues, len(raw))
	for k, v := range raw {
		values[k] = normalize(v)
	}
	return values, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n)
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = normalize(e)
		}
		return t
	case []any:
		for i, e := range t {
			t[i] = normalize(e)
		}
		return t
	default:
		return v
	}
}
