package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/mbertholdt/docrag/helper"
)

// Metadata is the open key/value bag attached to chunks and messages, stored
// as JSONB. A handful of keys are reserved (see the Meta* constants); callers
// may add arbitrary extra keys alongside them.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage.
func (m Metadata) Value() (driver.Value, error) {
	return m.Marshal()
}

// Scan implements sql.Scanner for JSONB retrieval.
func (m *Metadata) Scan(value interface{}) error {
	return m.Unmarshal(value)
}

// Marshal encodes the metadata as JSON.
func (m Metadata) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// Unmarshal fills the metadata from a JSONB column value. SQL NULL becomes
// an empty map, never a nil one.
func (m *Metadata) Unmarshal(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case Metadata:
		*m = v
		return nil
	case []byte:
		return json.Unmarshal(v, m)
	default:
		return helper.NewError("byte assertion", errors.New("type assertion to []byte failed"))
	}
}

// Clone returns a shallow copy of the metadata map.
func (m Metadata) Clone() Metadata {
	clone := make(Metadata, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}
