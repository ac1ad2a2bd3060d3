package codec

import (
	"encoding/json"
	"fmt"
)

// Codec serializes opaque body payloads before dispatch and deserializes
// response bodies after a successful exchange. The engine is agnostic to
// the wire format; this is the boundary where bytes appear.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, target any) error
}

// JSON is the codec used for typical REST targets.
type JSON struct{}

func (JSON) ContentType() string { return "application/json" }

func (JSON) Marshal(v any) ([]byte, error) {
	// Pre-encoded payloads pass through untouched.
	switch t := v.(type) {
	case []byte:
		return t, nil
	case json.RawMessage:
		return t, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	return b, nil
}

func (JSON) Unmarshal(data []byte, target any) error {
	if target == nil {
		return nil
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
