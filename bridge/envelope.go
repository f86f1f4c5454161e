package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// The legacy /api envelope is one of three shapes: a bare object, an array
// of objects, or an array of {"error": {...}} entries. The bridge's batch
// semantics put the authoritative result last, so decoding keeps the last
// element (or the last error).

type legacyError struct {
	Error struct {
		Type        int    `json:"type"`
		Address     string `json:"address"`
		Description string `json:"description"`
	} `json:"error"`
}

func decodeLegacy[T any](body []byte) (T, error) {
	var zero T

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return zero, &ProtocolError{Msg: "empty response body"}
	}

	if trimmed[0] != '[' {
		var out T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return zero, fmt.Errorf("decode response: %w", err)
		}
		return out, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	if len(elems) == 0 {
		return zero, &ProtocolError{Msg: "expected non-empty array"}
	}

	last := elems[len(elems)-1]
	var fail legacyError
	if err := json.Unmarshal(last, &fail); err == nil && (fail.Error.Type != 0 || fail.Error.Description != "") {
		return zero, &BridgeError{Code: fail.Error.Type, Description: fail.Error.Description}
	}

	var out T
	if err := json.Unmarshal(last, &out); err != nil {
		return zero, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// The clip v2 envelope always carries both fields; a non-empty errors list
// wins over data unconditionally. An empty data list is a legitimate
// zero-resource result here, unlike the legacy shape.
type envelopeV2[T any] struct {
	Errors []struct {
		Description string `json:"description"`
	} `json:"errors"`
	Data []T `json:"data"`
}

func decodeV2[T any](body []byte) ([]T, error) {
	var env envelopeV2[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if n := len(env.Errors); n > 0 {
		return nil, &APIError{Description: env.Errors[n-1].Description}
	}
	return env.Data, nil
}
