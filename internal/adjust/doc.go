// Package adjust turns a resolved device set into device commands.
//
// The Engine never talks to devices itself. Commands go to a Dispatcher and
// current values come from a StateReader, both supplied by the caller, so
// the same engine drives MQTT, Home Assistant or a plain log.
//
// Batch semantics: every device is attempted. Per-device problems land in the
// Report as skips (nothing to do) or failures (the command could not be
// sent); the returned error is non-nil only when no device was applied and at
// least one failed.
package adjust
