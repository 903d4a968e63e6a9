// Package canon provides deterministic serialization and content hashing
// for structured records that must produce identical bytes for identical
// values regardless of map iteration order.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Serialize produces a canonical byte string for v: mapping keys are sorted
// lexicographically, array order is preserved, and primitives use standard
// JSON encoding (quoted strings, canonical numbers, literal bool/null).
//
// v must be JSON-marshalable (struct, map, slice, or primitive). Structs are
// first round-tripped through json.Marshal/Unmarshal into generic values so
// that field order never leaks into the output — only sorted keys do.
func Serialize(v interface{}) ([]byte, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, fmt.Errorf("canon: normalize: %w", err)
	}
	var buf []byte
	buf, err = appendValue(buf, generic)
	if err != nil {
		return nil, fmt.Errorf("canon: encode: %w", err)
	}
	return buf, nil
}

// Hash returns the SHA-256 hex digest of the canonical serialization of v.
func Hash(v interface{}) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// toGeneric round-trips v through encoding/json so struct field tags and
// pointer/omitempty semantics are resolved exactly as the stdlib would
// before canonical re-encoding.
func toGeneric(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}

func appendValue(buf []byte, v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return append(buf, "null"...), nil
	case bool:
		if val {
			return append(buf, "true"...), nil
		}
		return append(buf, "false"...), nil
	case float64:
		return append(buf, canonicalNumber(val)...), nil
	case string:
		return appendString(buf, val), nil
	case []interface{}:
		return appendArray(buf, val)
	case map[string]interface{}:
		return appendObject(buf, val)
	default:
		return nil, fmt.Errorf("unsupported type %T in canonical value", v)
	}
}

func appendArray(buf []byte, arr []interface{}) ([]byte, error) {
	buf = append(buf, '[')
	for i, el := range arr {
		if i > 0 {
			buf = append(buf, ',')
		}
		var err error
		buf, err = appendValue(buf, el)
		if err != nil {
			return nil, err
		}
	}
	return append(buf, ']'), nil
}

func appendObject(buf []byte, obj map[string]interface{}) ([]byte, error) {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf = append(buf, '{')
	for i, k := range keys {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendString(buf, k)
		buf = append(buf, ':')
		var err error
		buf, err = appendValue(buf, obj[k])
		if err != nil {
			return nil, err
		}
	}
	return append(buf, '}'), nil
}

// appendString appends a JSON-quoted string using the stdlib encoder so
// escaping rules (unicode, control characters) match json.Marshal exactly.
func appendString(buf []byte, s string) []byte {
	quoted, _ := json.Marshal(s)
	return append(buf, quoted...)
}

// canonicalNumber renders a float64 the way encoding/json decoded it,
// preferring an integer form when the value has no fractional part so
// "5" and "5.0" both serialize as "5" (matching json.Number semantics for
// values that round-tripped through interface{}).
func canonicalNumber(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
