// Package crypto implements the BTPS canonicalizer and crypto
// primitives: canonical serialization, RSA signing, AES-256-CBC hybrid
// encryption, and RSA key-wrap (spec §4.2).
package crypto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Canonicalize produces the deterministic byte representation used as
// the signing input: the envelope (as a generic map) with "signature"
// and "encryption" removed, re-marshaled with keys sorted
// lexicographically at every level and no insignificant whitespace
// (spec §4.2). HTML-escaping is disabled so '<', '>', '&' round-trip
// byte-for-byte.
func Canonicalize(envelope map[string]any) ([]byte, error) {
	stripped := make(map[string]any, len(envelope))
	for k, v := range envelope {
		if k == "signature" || k == "encryption" {
			continue
		}
		stripped[k] = v
	}

	ordered := sortValue(stripped)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(ordered); err != nil {
		return nil, fmt.Errorf("canonicalize: encode: %w", err)
	}
	// json.Encoder.Encode appends a trailing newline; the canonical
	// form has none.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// EnvelopeToMap round-trips v through JSON to obtain the generic
// map[string]any form Canonicalize expects, preserving struct tag
// names.
func EnvelopeToMap(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("canonicalize: unmarshal: %w", err)
	}
	return m, nil
}

// orderedMap preserves lexicographic key order through
// json.Marshaler, since Go's encoding/json otherwise re-sorts
// map[string]any keys on its own (which happens to already match what
// we want) but does not recurse the same guarantee into nested
// []any/map[string]any values explicitly enough to document the
// invariant — sortValue below makes the recursion explicit and
// intentional rather than relying on an implementation detail.
type orderedMap struct {
	keys   []string
	values map[string]any
}

func (m orderedMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := marshalNoEscape(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := marshalNoEscape(m.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// marshalNoEscape marshals v the same way the top-level Canonicalize
// encoder does (HTML-escaping disabled), so nested values round-trip
// byte-for-byte just like the top level — json.Marshal alone always
// re-enables HTML escaping regardless of the caller's encoder.
func marshalNoEscape(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// sortValue recursively replaces every map[string]any with an
// orderedMap whose keys are sorted, and recurses into slices.
func sortValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		values := make(map[string]any, len(t))
		for k, vv := range t {
			values[k] = sortValue(vv)
		}
		return orderedMap{keys: keys, values: values}
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = sortValue(vv)
		}
		return out
	default:
		return v
	}
}
