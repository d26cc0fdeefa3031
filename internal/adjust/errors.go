package adjust

import "errors"

// Domain-specific errors for adjustments.
var (
	// ErrNonNumericAttribute is a per-device skip: the current value of the
	// attribute cannot be used for a relative change.
	ErrNonNumericAttribute = errors.New("adjust: attribute value is not numeric")

	// ErrAttributeMissing is a per-device skip: the device does not expose
	// the attribute being changed.
	ErrAttributeMissing = errors.New("adjust: device lacks attribute")

	// ErrNonNumericAmount is returned when an adjustment is requested without
	// a usable number.
	ErrNonNumericAmount = errors.New("adjust: amount is not numeric")

	// ErrDeviceNotFound is returned when a device id is not in the catalog or
	// unknown to the transport.
	ErrDeviceNotFound = errors.New("adjust: device not found")

	// ErrActionNotSupported is returned when a device has no action matching
	// the requested one.
	ErrActionNotSupported = errors.New("adjust: action not supported")

	// ErrStateUnavailable is returned by a StateReader with no state for a device.
	ErrStateUnavailable = errors.New("adjust: device state unavailable")
)
