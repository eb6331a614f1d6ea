package model

import (
	"bytes"
	"encoding/json"
	"hash/fnv"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// ValueKind tags which variant a FieldValue holds.
type ValueKind uint8

const (
	KindString ValueKind = iota
	KindInt
	KindList
)

// FieldValue is a single extracted stat: a string, an integer, or an ordered
// list of strings.
type FieldValue struct {
	kind ValueKind
	str  string
	num  int64
	list []string
}

// StringValue wraps a scalar string.
func StringValue(s string) FieldValue {
	return FieldValue{kind: KindString, str: s}
}

// IntValue wraps an integer.
func IntValue(n int64) FieldValue {
	return FieldValue{kind: KindInt, num: n}
}

// ListValue wraps an ordered list of strings. The slice is copied.
func ListValue(items []string) FieldValue {
	list := make([]string, len(items))
	copy(list, items)
	return FieldValue{kind: KindList, list: list}
}

func (v FieldValue) Kind() ValueKind { return v.kind }

// Int returns the integer value and whether the value is an integer.
func (v FieldValue) Int() (int64, bool) {
	return v.num, v.kind == KindInt
}

// List returns the list items, or nil for non-list values.
func (v FieldValue) List() []string {
	if v.kind != KindList {
		return nil
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out
}

// String renders the value as a single table cell: integers in decimal,
// lists as a JSON array, strings unchanged.
func (v FieldValue) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.num, 10)
	case KindList:
		b, _ := json.Marshal(v.list)
		return string(b)
	default:
		return v.str
	}
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindInt:
		return json.Marshal(v.num)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	default:
		return json.Marshal(v.str)
	}
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return eris.New("model: empty field value")
	}
	if bytes.Equal(data, []byte("null")) {
		return eris.New("model: null field value")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return eris.Wrap(err, "model: decode string field")
		}
		*v = StringValue(s)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return eris.Wrap(err, "model: decode list field")
		}
		*v = ListValue(items)
	default:
		var n int64
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Wrap(err, "model: decode integer field")
		}
		*v = IntValue(n)
	}
	return nil
}

// numericFields are coerced to integers when they parse as one.
var numericFields = map[string]bool{
	"episodes":  true,
	"members":   true,
	"favorites": true,
	"chapters":  true,
	"volumes":   true,
}

// IsNumericField reports whether a field name is subject to integer coercion.
func IsNumericField(name string) bool {
	return numericFields[name]
}

// Coerce converts scalar string values of numeric fields to integers after
// stripping thousands separators. Anything that does not parse is returned
// unchanged.
func Coerce(name string, v FieldValue) FieldValue {
	if !numericFields[name] || v.kind != KindString {
		return v
	}
	n, err := strconv.ParseInt(strings.ReplaceAll(v.str, ",", ""), 10, 64)
	if err != nil {
		return v
	}
	return IntValue(n)
}

// ParseCell is the inverse of FieldValue.String for a named column. Empty
// cells report ok=false (field absent).
func ParseCell(name, cell string) (FieldValue, bool) {
	if cell == "" {
		return FieldValue{}, false
	}
	if strings.HasPrefix(cell, "[") {
		var items []string
		if err := json.Unmarshal([]byte(cell), &items); err == nil {
			return ListValue(items), true
		}
	}
	return Coerce(name, StringValue(cell)), true
}

// Fields maps lowercase stat names to their values.
type Fields map[string]FieldValue

// UnmarshalJSON decodes a field map, treating null values as absent fields.
func (f *Fields) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: decode fields")
	}
	if raw == nil {
		*f = nil
		return nil
	}
	out := make(Fields, len(raw))
	for name, msg := range raw {
		if bytes.Equal(bytes.TrimSpace(msg), []byte("null")) {
			continue
		}
		var v FieldValue
		if err := v.UnmarshalJSON(msg); err != nil {
			return eris.Wrapf(err, "model: field %q", name)
		}
		out[name] = v
	}
	*f = out
	return nil
}

// Names returns the field names in sorted order.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Record is one scraped catalog entry.
type Record struct {
	ID        int64     `json:"id"`
	Kind      MediaType `json:"kind,omitempty"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	StatsURL  string    `json:"stats_url"`
	Rank      int       `json:"rank"`
	Fields    Fields    `json:"fields"`
	ScrapedAt time.Time `json:"scraped_at"`
}

// IdentityKey derives a stable integer from an entry URL. Catalog URLs carry
// a numeric id as their first all-digit path segment; URLs without one fall
// back to a 63-bit FNV-1a hash of the full URL. The key is unique only within
// one media type; stores identify a record by (Kind, ID).
func IdentityKey(rawURL string) int64 {
	if u, err := url.Parse(rawURL); err == nil {
		for _, seg := range strings.Split(u.Path, "/") {
			if seg == "" {
				continue
			}
			if !allDigits(seg) {
				continue
			}
			if n, err := strconv.ParseInt(seg, 10, 64); err == nil && n > 0 {
				return n
			}
		}
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(rawURL))
	return int64(h.Sum64() & (1<<63 - 1))
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
