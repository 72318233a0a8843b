package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BaseModel provides the identity and timestamp columns shared by most tables
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func newBaseModel(id uuid.UUID, createdAt, updatedAt time.Time) BaseModel {
	return BaseModel{ID: id, CreatedAt: createdAt, UpdatedAt: updatedAt}
}

// encodeJSON serializes v for a text/jsonb column. Nil collections encode as empty.
func encodeJSON(v any, empty string) string {
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return empty
	}
	return string(b)
}

// decodeStrings reads a JSON string list column; malformed content reads as empty
func decodeStrings(raw string) []string {
	out := make([]string, 0)
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return make([]string, 0)
	}
	return out
}

// decodeStringMap reads a JSON object column; malformed content reads as empty
func decodeStringMap(raw string) map[string]string {
	out := make(map[string]string)
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return make(map[string]string)
	}
	return out
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
