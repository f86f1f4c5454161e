package bridge

import "fmt"

// BridgeError is an application-level failure reported through the legacy
// /api envelope, e.g. code 101 when the link button was not pressed before
// registering.
type BridgeError struct {
	Code        int
	Description string
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Description)
}

// APIError is an application-level failure reported through the clip v2
// envelope's errors list.
type APIError struct {
	Description string
}

func (e *APIError) Error() string {
	return "api error: " + e.Description
}

// ProtocolError marks a response that decoded fine but is structurally
// invalid for the operation, e.g. an empty legacy success array.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Msg
}

// StatusError is a non-2xx HTTP response, reported separately from
// envelope-level failures.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "unexpected status: " + e.Status
}
