package erp

import (
	"bytes"
	"encoding/json"
	"fmt"
)

var jsonFalse = []byte("false")

// Many2One decodes relation fields sent as [id, "display name"], a bare id, or false.
type Many2One struct {
	ID   int64
	Name string
}

func (m *Many2One) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, jsonFalse) || bytes.Equal(data, []byte("null")) {
		*m = Many2One{}
		return nil
	}
	if data[0] == '[' {
		var pair []json.RawMessage
		if err := json.Unmarshal(data, &pair); err != nil {
			return fmt.Errorf("decode many2one: %w", err)
		}
		if len(pair) == 0 {
			*m = Many2One{}
			return nil
		}
		var out Many2One
		if err := json.Unmarshal(pair[0], &out.ID); err != nil {
			return fmt.Errorf("decode many2one id: %w", err)
		}
		if len(pair) > 1 {
			var name Text
			if err := json.Unmarshal(pair[1], &name); err != nil {
				return fmt.Errorf("decode many2one name: %w", err)
			}
			out.Name = string(name)
		}
		*m = out
		return nil
	}
	var id int64
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("decode many2one: %w", err)
	}
	*m = Many2One{ID: id}
	return nil
}

func (m Many2One) MarshalJSON() ([]byte, error) {
	if m.ID == 0 {
		return jsonFalse, nil
	}
	return json.Marshal(m.ID)
}

// Set reports whether the relation points at a record.
func (m Many2One) Set() bool {
	return m.ID != 0
}

// Text decodes char fields, which the ERP sends as false when empty.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, jsonFalse) || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode text: %w", err)
	}
	*t = Text(s)
	return nil
}

func (t Text) String() string {
	return string(t)
}

// decodeID accepts both a single id and a one-element id list.
func decodeID(raw json.RawMessage) (int64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("empty id payload")
	}
	if raw[0] == '[' {
		var ids []int64
		if err := json.Unmarshal(raw, &ids); err != nil {
			return 0, fmt.Errorf("decode id list: %w", err)
		}
		if len(ids) == 0 {
			return 0, fmt.Errorf("empty id list")
		}
		return ids[0], nil
	}
	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, fmt.Errorf("decode id: %w", err)
	}
	return id, nil
}
