package utils

import (
	"encoding/json"
)

// MarshalObject encodes fields as a JSON object. It returns nil for an empty
// map or when a value cannot be encoded, so the column is stored as NULL.
func MarshalObject(fields map[string]interface{}) []byte {
	if len(fields) == 0 {
		return nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return data
}
