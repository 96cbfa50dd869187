package indexer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Row is one indexer record keyed by lower-cased column name
type Row map[string]interface{}

type queryRequest struct {
	Address string `json:"address"`
	Query   string `json:"query"`
}

type queryResponse struct {
	BlockHeight json.RawMessage   `json:"block_height"`
	Result      [][][]interface{} `json:"result"`
}

// decodeRows parses a /q response. The first row of a result is the header.
func decodeRows(body []byte) ([]Row, int64, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var resp queryResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, 0, fmt.Errorf("failed to decode indexer response: %w", err)
	}

	var height int64
	if len(resp.BlockHeight) > 0 {
		var raw interface{}
		d := json.NewDecoder(bytes.NewReader(resp.BlockHeight))
		d.UseNumber()
		if err := d.Decode(&raw); err == nil {
			height, _ = toInt(raw)
		}
	}

	if len(resp.Result) == 0 || len(resp.Result[0]) == 0 {
		return nil, height, nil
	}

	table := resp.Result[0]
	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.ToLower(fmt.Sprint(h))
	}

	rows := make([]Row, 0, len(table)-1)
	for _, values := range table[1:] {
		row := make(Row, len(headers))
		for i, h := range headers {
			if i < len(values) {
				row[h] = values[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, height, nil
}

// Int reads an integer column. Numbers, decimal strings and 0x hex strings
// are accepted.
func (r Row) Int(col string) (int64, error) {
	v, ok := r[col]
	if !ok {
		return 0, fmt.Errorf("missing column %q", col)
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("column %q: %w", col, err)
	}
	return n, nil
}

// Ints reads an array column, given either as a JSON array or as a string
// holding one.
func (r Row) Ints(col string) ([]int64, error) {
	v, ok := r[col]
	if !ok {
		return nil, fmt.Errorf("missing column %q", col)
	}

	var items []interface{}
	switch t := v.(type) {
	case []interface{}:
		items = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		dec := json.NewDecoder(strings.NewReader(s))
		dec.UseNumber()
		if err := dec.Decode(&items); err != nil {
			return nil, fmt.Errorf("column %q: %w", col, err)
		}
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("column %q: unexpected type %T", col, v)
	}

	out := make([]int64, len(items))
	for i, item := range items {
		n, err := toInt(item)
		if err != nil {
			return nil, fmt.Errorf("column %q[%d]: %w", col, i, err)
		}
		out[i] = n
	}
	return out, nil
}

func toInt(v interface{}) (int64, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		f, err := t.Float64()
		if err != nil {
			return 0, err
		}
		return int64(f), nil
	case string:
		s := strings.TrimSpace(t)
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			return strconv.ParseInt(s[2:], 16, 64)
		}
		return strconv.ParseInt(s, 10, 64)
	case float64:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
