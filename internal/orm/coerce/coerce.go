// Package coerce converts loosely typed transport input (form strings, JSON
// values) into the typed values a field or relationship expects.
package coerce

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/grimoire-wiki/grimoire/internal/orm/schema"
	"github.com/ohler55/ojg/oj"
	"github.com/spf13/cast"
)

var (
	// ErrInvalidValue is returned when a scalar cannot be converted to its field type
	ErrInvalidValue = errors.New("invalid value")
	// ErrInvalidID is returned when an identifier is not an integer
	ErrInvalidID = errors.New("invalid id")
)

// timestampLayouts are the ISO-8601 shapes accepted for datetime fields.
// Values without a zone are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Timestamp parses an ISO-8601 date or date-time
func Timestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not an ISO-8601 timestamp", ErrInvalidValue, s)
}

// IsBlank reports whether raw carries no value: nil or an empty string
func IsBlank(raw interface{}) bool {
	if raw == nil {
		return true
	}
	s, ok := raw.(string)
	return ok && s == ""
}

// Scalar converts raw to the Go value stored for f. A blank value becomes
// nil, except on text fields when keepBlankText is set, where it stays an
// empty string.
func Scalar(f *schema.Field, raw interface{}, keepBlankText bool) (interface{}, error) {
	if raw == nil {
		return nil, nil
	}
	if s, ok := raw.(string); ok && s == "" {
		if keepBlankText && f.Type.IsText() {
			return "", nil
		}
		return nil, nil
	}

	switch f.Type {
	case schema.TypeDatetime:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			return Timestamp(v)
		default:
			return nil, fmt.Errorf("%w: expected an ISO-8601 string, got %T", ErrInvalidValue, raw)
		}

	case schema.TypeInteger:
		n, err := Integer(raw)
		if err != nil {
			return nil, err
		}
		return n, nil

	case schema.TypeFloat:
		if s, ok := raw.(string); ok {
			raw = strings.TrimSpace(s)
		}
		n, err := cast.ToFloat64E(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v is not a number", ErrInvalidValue, raw)
		}
		return n, nil

	case schema.TypeBoolean:
		return Boolean(raw)

	case schema.TypeEnum:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v is not a label", ErrInvalidValue, raw)
		}
		label, ok := f.CanonicalEnum(strings.TrimSpace(s))
		if !ok {
			return nil, fmt.Errorf("%w: %q is not one of %s", ErrInvalidValue, s, strings.Join(f.EnumValues, ", "))
		}
		return label, nil

	default:
		s, err := cast.ToStringE(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: expected text, got %T", ErrInvalidValue, raw)
		}
		return s, nil
	}
}

// Integer converts raw to an int64. Strings must hold a base-10 integer;
// floats must be integral.
func Integer(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, v)
		}
		return n, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, v)
		}
		return int64(v), nil
	case float32:
		return Integer(float64(v))
	case bool:
		return 0, fmt.Errorf("%w: boolean is not an integer", ErrInvalidValue)
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, raw)
	}
	return n, nil
}

// Boolean converts raw to a bool. HTML checkbox values ("on"/"off") and
// "yes"/"no" are accepted alongside strconv.ParseBool spellings.
func Boolean(raw interface{}) (bool, error) {
	if s, ok := raw.(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "on", "yes", "y":
			return true, nil
		case "off", "no", "n":
			return false, nil
		}
	}
	b, err := cast.ToBoolE(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %v is not a boolean", ErrInvalidValue, raw)
	}
	return b, nil
}

// ID converts a single relationship member to an integer id
func ID(raw interface{}) (int64, error) {
	n, err := Integer(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidID, raw)
	}
	return n, nil
}

// IDList converts relationship-many input into a de-duplicated id list.
// nil, "" and empty lists clear the edge set. A string is parsed as JSON
// when possible: an array yields its members, any other JSON value is a
// single member; a string that is not JSON is itself the single member.
// Blank members are skipped; any other non-integer member fails the list.
func IDList(raw interface{}) ([]int64, error) {
	if IsBlank(raw) {
		return []int64{}, nil
	}

	var members []interface{}
	switch v := raw.(type) {
	case string:
		parsed, err := oj.ParseString(v)
		if err != nil {
			members = []interface{}{v}
		} else if list, ok := parsed.([]interface{}); ok {
			members = list
		} else {
			members = []interface{}{parsed}
		}
	case []interface{}:
		members = v
	case []string:
		for _, s := range v {
			members = append(members, s)
		}
	case []int64:
		for _, n := range v {
			members = append(members, n)
		}
	case []int:
		for _, n := range v {
			members = append(members, n)
		}
	case map[string]interface{}:
		return nil, fmt.Errorf("%w: expected a list of ids, got an object", ErrInvalidID)
	default:
		members = []interface{}{v}
	}

	ids := make([]int64, 0, len(members))
	seen := make(map[int64]bool, len(members))
	for _, m := range members {
		if IsBlank(m) {
			continue
		}
		id, err := ID(m)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

// SingleID converts relationship-one input. Blank input clears the edge and
// yields nil.
func SingleID(raw interface{}) (*int64, error) {
	if IsBlank(raw) {
		return nil, nil
	}
	switch raw.(type) {
	case []interface{}, []string, []int64, []int, map[string]interface{}:
		return nil, fmt.Errorf("%w: expected a single id, got %T", ErrInvalidID, raw)
	}
	id, err := ID(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// FromStorage normalizes a value scanned from the store into the Go type
// the field declares. Drivers differ: SQLite hands back []byte for text,
// int64 for booleans declared without a BOOLEAN column type, and strings
// for timestamps it could not recognize.
func FromStorage(f *schema.Field, v interface{}) interface{} {
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	if v == nil {
		return nil
	}

	switch f.Type {
	case schema.TypeBoolean:
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	case schema.TypeInteger:
		if n, err := cast.ToInt64E(v); err == nil {
			return n
		}
	case schema.TypeFloat:
		if n, err := cast.ToFloat64E(v); err == nil {
			return n
		}
	case schema.TypeDatetime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC()
		case string:
			if parsed, err := Timestamp(t); err == nil {
				return parsed
			}
		}
	}
	return v
}
