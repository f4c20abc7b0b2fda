package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Note is a free-form annotation. The client-supplied fields live in one JSON column.
type Note struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time         `json:"created_at"`
	Fields    datatypes.JSONMap `json:"-" gorm:"not null"`
}

// TableName returns the explicit table name.
func (Note) TableName() string {
	return "notes"
}

// MarshalJSON flattens the client fields next to id and created_at.
func (n Note) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(n.Fields)+2)
	for k, v := range n.Fields {
		out[k] = v
	}
	out["id"] = n.ID
	out["created_at"] = n.CreatedAt
	return json.Marshal(out)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (n *Note) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &n.ID); err != nil {
			return err
		}
		delete(raw, "id")
	}
	if v, ok := raw["created_at"]; ok {
		if err := json.Unmarshal(v, &n.CreatedAt); err != nil {
			return err
		}
		delete(raw, "created_at")
	}
	n.Fields = datatypes.JSONMap{}
	for k, v := range raw {
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			return err
		}
		n.Fields[k] = val
	}
	return nil
}
