package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONBlob stores an arbitrary JSON document in a jsonb column.
type JSONBlob []byte

func (j JSONBlob) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}
	if !json.Valid(j) {
		return nil, fmt.Errorf("invalid JSON document")
	}
	return []byte(j), nil
}

func (j *JSONBlob) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*j = append((*j)[:0], v...)
	case string:
		*j = JSONBlob(v)
	default:
		return fmt.Errorf("failed to scan JSON blob: unsupported type %T", value)
	}
	return nil
}

// MarshalJSON emits the stored document as-is so callers see the original
// structure, not a base64 byte slice.
func (j JSONBlob) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSONBlob) UnmarshalJSON(data []byte) error {
	*j = append((*j)[:0], data...)
	return nil
}

// MustJSONBlob marshals v, panicking on failure. Intended for values built
// from in-memory structs that cannot fail to encode.
func MustJSONBlob(v interface{}) JSONBlob {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
