package domain

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Canonical renders v as JSON with object keys sorted lexicographically
// and no extraneous whitespace. The audit hash chain depends on every
// writer producing byte-identical output for the same details map, so
// this function — not encoding/json's default map ordering, which
// already sorts string keys but is not guaranteed stable across nested
// values supplied as map[string]any — is the single source of truth for
// hashing.
func Canonical(v any) (string, error) {
	normalized, err := normalize(v)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(normalized); err != nil {
		return "", err
	}
	// json.Encoder.Encode appends a trailing newline; canonical form has
	// no extraneous whitespace at all.
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// normalize round-trips v through JSON so that map[string]any values
// produced from arbitrary Go structs are reduced to the same
// map[string]interface{}/[]interface{} shape encoding/json already sorts
// map keys for, then recursively re-sorts to make the ordering explicit
// rather than incidental.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return sortValue(generic), nil
}

func sortValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make(orderedMap, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, orderedPair{Key: k, Value: sortValue(t[k])})
		}
		return ordered
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = sortValue(item)
		}
		return out
	default:
		return t
	}
}

// orderedPair and orderedMap implement json.Marshaler so that
// map iteration order (randomized by Go at runtime) never leaks into the
// canonical output; the sort happens once in sortValue and is preserved
// verbatim during marshaling.
type orderedPair struct {
	Key   string
	Value any
}

type orderedMap []orderedPair

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(pair.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
