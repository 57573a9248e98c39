package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"gorm.io/datatypes"

	"gitlab.com/timkado/api/outreach-metrics-service/internal/apperrors"
	"gitlab.com/timkado/api/outreach-metrics-service/pkg/utils"
)

// RawPayload is a loosely typed JSON object received from a webhook, a NATS
// message or an API body. Field lookups accept camelCase and snake_case keys.
type RawPayload map[string]interface{}

// ParsePayload decodes data into a RawPayload. A top-level array yields its first
// object element and a lone "data" object is unwrapped.
func ParsePayload(data []byte) (RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: payload is not valid JSON: %v", apperrors.ErrValidation, err)
	}

	if arr, ok := v.([]interface{}); ok {
		if len(arr) == 0 {
			return nil, fmt.Errorf("%w: payload is an empty array", apperrors.ErrValidation)
		}
		v = arr[0]
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: payload must be a JSON object", apperrors.ErrValidation)
	}

	p := RawPayload(obj)
	if inner, ok := p["data"].(map[string]interface{}); ok && len(p) == 1 {
		p = RawPayload(inner)
	}
	return p, nil
}

// Has reports whether any casing of the field is present with a non-null value.
func (p RawPayload) Has(field string) bool {
	_, ok := p.lookup(field)
	return ok
}

// Int returns the field as an integer count. Absent or null fields report ok=false.
// Numbers and numeric strings are accepted; fractional values are rounded.
func (p RawPayload) Int(field string) (int64, bool, error) {
	f, ok, err := p.Float(field)
	if !ok || err != nil {
		return 0, ok, err
	}
	r := math.Round(f)
	if r >= 1<<63 || r < -(1<<63) {
		return 0, true, fmt.Errorf("%w: field %q out of range", apperrors.ErrValidation, field)
	}
	return int64(r), true, nil
}

// Float returns the field as a float.
func (p RawPayload) Float(field string) (float64, bool, error) {
	v, ok := p.lookup(field)
	if !ok {
		return 0, false, nil
	}

	var (
		f   float64
		err error
	)
	switch t := v.(type) {
	case json.Number:
		f, err = t.Float64()
	case float64:
		f = t
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false, nil
		}
		f, err = strconv.ParseFloat(s, 64)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err == nil && (math.IsNaN(f) || math.IsInf(f, 0)) {
		err = fmt.Errorf("not a finite number")
	}
	if err != nil {
		return 0, true, fmt.Errorf("%w: field %q is not numeric: %v", apperrors.ErrValidation, field, err)
	}
	return f, true, nil
}

// String returns the field as a string. Scalars are formatted, objects are JSON encoded.
func (p RawPayload) String(field string) (string, bool) {
	v, ok := p.lookup(field)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t), true
		}
		return string(b), true
	}
}

// StringPtr is String returning nil for absent or empty values.
func (p RawPayload) StringPtr(field string) *string {
	s, ok := p.String(field)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Time returns the field as a UTC time. Strings use the flexible layouts,
// numbers are unix seconds or milliseconds.
func (p RawPayload) Time(field string) (time.Time, bool, error) {
	v, ok := p.lookup(field)
	if !ok {
		return time.Time{}, false, nil
	}
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return time.Time{}, false, nil
		}
		ts, err := utils.ParseFlexibleTime(t)
		if err != nil {
			return time.Time{}, true, fmt.Errorf("%w: field %q is not a timestamp: %v", apperrors.ErrValidation, field, err)
		}
		return ts, true, nil
	default:
		n, _, err := p.Int(field)
		if err != nil {
			return time.Time{}, true, err
		}
		if n <= 0 {
			return time.Time{}, false, nil
		}
		return utils.EpochToTime(n), true, nil
	}
}

// JSON returns the field re-encoded as a JSON blob.
func (p RawPayload) JSON(field string) (datatypes.JSON, bool) {
	v, ok := p.lookup(field)
	if !ok {
		return nil, false
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return datatypes.JSON(b), true
}

// Raw returns the whole payload as a JSON blob.
func (p RawPayload) Raw() datatypes.JSON {
	b, err := json.Marshal(map[string]interface{}(p))
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// lookup resolves a dotted path; every segment is tried as given, then in
// snake_case, then in camelCase. Missing intermediate objects count as absent.
func (p RawPayload) lookup(path string) (interface{}, bool) {
	var cur interface{} = map[string]interface{}(p)
	for _, seg := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		found := false
		for _, key := range keyVariants(seg) {
			if v, ok := obj[key]; ok && v != nil {
				cur, found = v, true
				break
			}
		}
		if !found {
			return nil, false
		}
	}
	return cur, true
}

func keyVariants(key string) []string {
	snake, camel := toSnake(key), toCamel(key)
	out := []string{key}
	if snake != key {
		out = append(out, snake)
	}
	if camel != key && camel != snake {
		out = append(out, camel)
	}
	return out
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toCamel(s string) string {
	parts := strings.Split(s, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] == "" {
			continue
		}
		parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
	}
	return strings.Join(parts, "")
}
