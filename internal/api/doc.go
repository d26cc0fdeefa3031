// Package api implements the HTTP REST API and WebSocket server for the
// Gray Logic dialogue service.
//
// This package provides:
//   - conversation endpoints that drive the slot-filling dialogue turn by turn
//   - a one-shot match endpoint for resolving constraints without a dialogue
//   - read-only catalog endpoints and a catalog reload trigger
//   - the dialogue turn journal, when one is configured
//   - a WebSocket hub carrying the same turns and broadcasting turn outcomes
//   - middleware stack (request ID, logging, recovery, CORS, body size limit)
//
// # Architecture
//
// A voice front end (speech-to-text plus slot extraction) posts
// pre-segmented slot values as turns. The server passes them to
// dialogue.Service and returns the outcome and its prose message; resolved
// forms are executed by the adjustment engine behind the service.
//
// Authorisation is out of scope: deploy the service on a trusted network or
// behind a reverse proxy that authenticates callers.
package api
