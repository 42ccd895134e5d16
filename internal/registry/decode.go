package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// member is one key/value pair of a JSON object.
type member struct {
	Key   string
	Value json.RawMessage
}

// decodeObject splits a JSON object into its members in document order.
// encoding/json maps lose key order, and registry iteration order decides
// which feature keeps a contested keyword.
func decodeObject(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotObject
	}

	var members []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("registry: unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("registry: value for %q: %w", key, err)
		}
		members = append(members, member{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	return members, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
