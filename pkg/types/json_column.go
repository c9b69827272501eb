package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONColumn stores any JSON-serializable value in a json/jsonb (or sqlite text) column.
type JSONColumn[T any] struct {
	Data T
}

// NewJSONColumn wraps v.
func NewJSONColumn[T any](v T) JSONColumn[T] {
	return JSONColumn[T]{Data: v}
}

// Value implements driver.Valuer.
func (c JSONColumn[T]) Value() (driver.Value, error) {
	raw, err := json.Marshal(c.Data)
	if err != nil {
		return nil, fmt.Errorf("marshal json column: %w", err)
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (c *JSONColumn[T]) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		var zero T
		c.Data = zero
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported json column source %T", value)
	}
	if len(raw) == 0 {
		var zero T
		c.Data = zero
		return nil
	}
	if err := json.Unmarshal(raw, &c.Data); err != nil {
		return fmt.Errorf("unmarshal json column: %w", err)
	}
	return nil
}

// MarshalJSON exposes the wrapped value directly.
func (c JSONColumn[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Data)
}

// UnmarshalJSON reads the wrapped value directly.
func (c *JSONColumn[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.Data)
}
