// Package util holds small helpers that do not belong to a codec.
package util

import (
	"encoding/json"

	"github.com/google/uuid"
)

// NoDataNamespace scopes the identifiers of synthesised no-data tiles.
var NoDataNamespace = uuid.MustParse("6f0c1b7e-4d3a-5c52-9a1e-2b7d8e40c913")

// HashUUID returns the name based (SHA-1, version 5) UUID of the JSON form of
// value within namespace, or "" when value cannot be marshalled.
func HashUUID(namespace uuid.UUID, value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return uuid.NewSHA1(namespace, raw).String()
}
