package protocol

import (
	json "github.com/goccy/go-json"
)

// Serializer defines the contract for serializing and deserializing matching payloads.
// This allows the simulation orchestrator to choose its preferred format
// while interacting with the matching engine.
type Serializer interface {
	// Marshal serializes a Go value (e.g. MatchingData) into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal deserializes bytes into a Go value.
	// v must be a pointer to the target value.
	Unmarshal(data []byte, v any) error
}

// DefaultJSONSerializer encodes payloads as JSON.
type DefaultJSONSerializer struct{}

// Marshal implements Serializer.
func (DefaultJSONSerializer) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Serializer.
func (DefaultJSONSerializer) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
