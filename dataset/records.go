package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Record is one row object whose keys keep their input order.
type Record struct {
	Keys   []string
	Values []any
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for i, k := range r.Keys {
		if k == key {
			return r.Values[i], true
		}
	}
	return nil, false
}

// MarshalJSON writes the row as an object in key order. NaN and infinities become null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.Keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		value := r.Values[i]
		if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			value = nil
		}
		v, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a row object preserving key order. Numbers decode as
// float64; nested arrays and objects are kept as their raw JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("row must be a JSON object")
	}
	r.Keys = r.Keys[:0]
	r.Values = r.Values[:0]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected key token %v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		value, err := decodeCell(raw)
		if err != nil {
			return fmt.Errorf("column %q: %w", key, err)
		}
		r.Keys = append(r.Keys, key)
		r.Values = append(r.Values, value)
	}
	_, err = dec.Token()
	return err
}

func decodeCell(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, nil
	}
	switch trimmed[0] {
	case 'n':
		return nil, nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return nil, err
		}
		if b {
			return "True", nil
		}
		return "False", nil
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, err
		}
		return s, nil
	case '{', '[':
		return string(trimmed), nil
	default:
		f, err := strconv.ParseFloat(string(trimmed), 64)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
}

// FromRecords builds a table from row objects. Columns appear in order of
// first appearance; absent keys and nulls are missing. A column is numeric
// only when every present value is a number.
func FromRecords(rows []Record) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	var names []string
	seen := make(map[string]int)
	for _, row := range rows {
		for _, key := range row.Keys {
			if _, ok := seen[key]; !ok {
				seen[key] = len(names)
				names = append(names, key)
			}
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: rows have no columns", ErrNoData)
	}

	values := make([][]any, len(names))
	for i := range values {
		values[i] = make([]any, len(rows))
	}
	for r, row := range rows {
		for k, key := range row.Keys {
			values[seen[key]][r] = row.Values[k]
		}
	}

	columns := make([]*Column, len(names))
	for i, name := range names {
		columns[i] = columnFromValues(name, values[i])
	}
	return NewTable(columns...)
}

func columnFromValues(name string, values []any) *Column {
	missing := make([]bool, len(values))
	numeric := true
	for i, v := range values {
		switch v.(type) {
		case nil:
			missing[i] = true
		case float64:
		default:
			numeric = false
		}
	}
	if numeric {
		numbers := make([]float64, len(values))
		for i, v := range values {
			if f, ok := v.(float64); ok {
				numbers[i] = f
			}
		}
		return &Column{Name: name, Kind: Numeric, Numbers: numbers, Missing: missing}
	}
	strs := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			strs[i] = x
		case float64:
			strs[i] = FormatNumber(x)
		}
	}
	return &Column{Name: name, Kind: Categorical, Strings: strs, Missing: missing}
}

// Records renders the table as ordered row objects with missing cells as null.
func (t *Table) Records() []Record {
	names := t.Names()
	out := make([]Record, t.Rows())
	for i := range out {
		values := make([]any, len(t.columns))
		for j, col := range t.columns {
			values[j] = col.Value(i)
		}
		out[i] = Record{Keys: names, Values: values}
	}
	return out
}
