package dialogue

import "errors"

// Recoverable dialogue errors. None of them ends the conversation; each is
// carried on an Outcome together with a message for the user.
var (
	// ErrUnknownLocation is returned when a location name is not in the catalog.
	ErrUnknownLocation = errors.New("dialogue: unknown location")

	// ErrNoMatchingDevices is returned when the constraints match nothing.
	ErrNoMatchingDevices = errors.New("dialogue: no matching devices")

	// ErrAmbiguousMatch is returned when several devices match but one was expected.
	ErrAmbiguousMatch = errors.New("dialogue: ambiguous match")

	// ErrNotResolved is returned when submitting a form that still needs slots.
	ErrNotResolved = errors.New("dialogue: form not resolved")

	// ErrConversationNotFound is returned for an unknown or expired conversation.
	ErrConversationNotFound = errors.New("dialogue: conversation not found")

	// ErrUnknownForm is returned when a conversation names a form that does not exist.
	ErrUnknownForm = errors.New("dialogue: unknown form")
)
