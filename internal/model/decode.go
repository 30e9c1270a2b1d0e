package model

import (
	"encoding/json"
	"strconv"
	"time"
)

// Venue payloads omit fields, change their types between releases, and
// embed JSON arrays inside string fields. The helpers below decode with a
// fixed field-name priority and fall back to zero values instead of
// failing, so scoring continues on partial data. The priority order is
// stable; reordering it changes derived signals.

// Obj is a loosely typed venue payload object.
type Obj map[string]json.RawMessage

// DecodeObj parses raw JSON into an Obj, returning nil on malformed input.
func DecodeObj(raw json.RawMessage) Obj {
	if len(raw) == 0 {
		return nil
	}
	var o Obj
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil
	}
	return o
}

// DecodeArr parses raw JSON into a slice of Obj, returning nil on malformed input.
func DecodeArr(raw json.RawMessage) []Obj {
	if len(raw) == 0 {
		return nil
	}
	var a []json.RawMessage
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil
	}
	out := make([]Obj, 0, len(a))
	for _, item := range a {
		if o := DecodeObj(item); o != nil {
			out = append(out, o)
		}
	}
	return out
}

// Str returns the first present string field among names, else "".
func (o Obj) Str(names ...string) string {
	for _, name := range names {
		raw, ok := o[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

// Num returns the first field among names that parses as a number.
// String-encoded numbers ("123.4") are accepted; anything else yields 0.
func (o Obj) Num(names ...string) float64 {
	for _, name := range names {
		raw, ok := o[name]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f
			}
		}
	}
	return 0
}

// Int returns Num truncated to int64.
func (o Obj) Int(names ...string) int64 { return int64(o.Num(names...)) }

// Bool returns the first present boolean field among names, else false.
func (o Obj) Bool(names ...string) bool {
	for _, name := range names {
		raw, ok := o[name]
		if !ok {
			continue
		}
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			return b
		}
	}
	return false
}

// StrSlice decodes a field that is either a JSON array of strings or a
// JSON-encoded string holding such an array (the gamma API encodes outcomes
// this way). Unparseable input coerces silently to nil.
func (o Obj) StrSlice(names ...string) []string {
	for _, name := range names {
		raw, ok := o[name]
		if !ok {
			continue
		}
		var arr []string
		if err := json.Unmarshal(raw, &arr); err == nil {
			return arr
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
		}
	}
	return nil
}

// NumSlice decodes a field that is an array of numbers, an array of
// numeric strings, or a JSON-encoded string of either.
func (o Obj) NumSlice(names ...string) []float64 {
	for _, name := range names {
		raw, ok := o[name]
		if !ok {
			continue
		}
		if out := parseNumSlice(raw); out != nil {
			return out
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			if out := parseNumSlice([]byte(s)); out != nil {
				return out
			}
		}
	}
	return nil
}

func parseNumSlice(raw []byte) []float64 {
	var nums []float64
	if err := json.Unmarshal(raw, &nums); err == nil {
		return nums
	}
	var strs []string
	if err := json.Unmarshal(raw, &strs); err == nil {
		out := make([]float64, len(strs))
		for i, s := range strs {
			out[i], _ = strconv.ParseFloat(s, 64)
		}
		return out
	}
	return nil
}

// Time decodes the first field among names as RFC3339 or unix seconds.
// Zero time on failure.
func (o Obj) Time(names ...string) time.Time {
	for _, name := range names {
		raw, ok := o[name]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if t, err := time.Parse(time.RFC3339, s); err == nil {
				return t
			}
			if t, err := time.Parse("2006-01-02T15:04:05.999999Z07:00", s); err == nil {
				return t
			}
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil && f > 0 {
			// Heuristic: venues report either seconds or milliseconds.
			if f > 1e12 {
				return time.UnixMilli(int64(f)).UTC()
			}
			return time.Unix(int64(f), 0).UTC()
		}
	}
	return time.Time{}
}

// UnixSec decodes a timestamp field to unix seconds, accepting seconds or
// milliseconds since epoch.
func (o Obj) UnixSec(names ...string) int64 {
	t := o.Time(names...)
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
