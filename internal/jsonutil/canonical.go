// Package jsonutil provides deterministic JSON encoding for cache keys:
// object keys sorted lexicographically at every level, no insignificant
// whitespace, numbers in their shortest round-trippable form.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Canonical returns the canonical JSON encoding of v. v is first round
// tripped through json.Marshal/Unmarshal so that Go structs, maps and
// slices are all normalized to the same any-tree before encoding; this is
// what guarantees map keys come out sorted regardless of the input's
// original encoding order.
func Canonical(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("jsonutil: marshal: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", fmt.Errorf("jsonutil: unmarshal: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, generic); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case float64:
		encodeNumber(buf, val)
	case string:
		encodeString(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("jsonutil: unsupported type %T", v)
	}
	return nil
}

func encodeNumber(buf *bytes.Buffer, f float64) {
	// encoding/json already produces the shortest round-trippable decimal
	// form for float64 when asked to marshal it directly.
	b, _ := json.Marshal(f)
	buf.Write(b)
}

func encodeString(buf *bytes.Buffer, s string) {
	// json.Marshal would also escape <, > and & for HTML safety; cache keys
	// keep them literal.
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte("\n")))
}
