package homeassistant

import "errors"

var (
	// ErrRequestFailed indicates a REST call failed or returned an error status.
	ErrRequestFailed = errors.New("homeassistant: request failed")

	// ErrUnauthorized indicates Home Assistant rejected the access token.
	ErrUnauthorized = errors.New("homeassistant: unauthorized")

	// ErrEntityNotFound indicates the entity does not exist.
	ErrEntityNotFound = errors.New("homeassistant: entity not found")

	// ErrUnsupportedAttribute indicates an attribute with no service mapping.
	ErrUnsupportedAttribute = errors.New("homeassistant: attribute has no service mapping")

	// ErrCommandFailed indicates a WebSocket command returned success=false.
	ErrCommandFailed = errors.New("homeassistant: websocket command failed")
)
