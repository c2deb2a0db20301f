package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Block types allowed in a post body.
const (
	BlockTypeText = "text"
	BlockTypeCode = "code"
)

// Block is a single segment of a post body: prose or a code block.
// Code blocks are materialized into Snippet rows keyed by their position
// in the body array.
type Block struct {
	Type     string `json:"type"`
	Content  string `json:"content"`
	Language string `json:"language,omitempty"`
}

// IsCode reports whether the block should become a snippet.
func (b Block) IsCode() bool {
	return b.Type == BlockTypeCode
}

// PostBody is an ordered list of blocks stored as a JSON column.
type PostBody []Block

// Value implements driver.Valuer for JSON storage.
func (pb PostBody) Value() (driver.Value, error) {
	if pb == nil {
		return "[]", nil
	}
	data, err := json.Marshal(pb)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for JSON storage.
func (pb *PostBody) Scan(value interface{}) error {
	if value == nil {
		*pb = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for PostBody: %T", value)
	}
	if len(data) == 0 {
		*pb = nil
		return nil
	}
	return json.Unmarshal(data, pb)
}
