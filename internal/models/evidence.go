package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Evidence types accepted by the store.
const (
	EvidenceTypeText       = "text"
	EvidenceTypeScreenshot = "screenshot"
)

// EvidenceMetadata describes an evidence payload. It is stored as a JSON column.
type EvidenceMetadata struct {
	Size         string `json:"size" binding:"required"`
	OriginalName string `json:"originalName,omitempty"`
}

// Value implements driver.Valuer.
func (m EvidenceMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *EvidenceMetadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = EvidenceMetadata{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata column type %T", src)
	}
	return json.Unmarshal(data, m)
}

// Evidence is a stored, encoded snippet of harmful content.
type Evidence struct {
	ID               int64            `json:"id" db:"id"`
	Type             string           `json:"type" db:"type"`
	EncryptedContent string           `json:"encryptedContent" db:"encrypted_content"`
	Metadata         EvidenceMetadata `json:"metadata" db:"metadata"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
}

// CreateEvidenceInput is the payload for creating an evidence record.
type CreateEvidenceInput struct {
	Type             string           `json:"type" binding:"required,oneof=text screenshot"`
	EncryptedContent string           `json:"encryptedContent" binding:"required"`
	Metadata         EvidenceMetadata `json:"metadata"`
}
