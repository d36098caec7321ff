// Package transport carries DUA registration messages between a device
// and its Primary Backbone Router.
//
// The DUA manager depends only on the Client contract: a fire-and-forget
// send whose outcome arrives later through a ResponseHandler. "In flight"
// is a state, not a blocked goroutine.
//
// Two implementations are provided:
//   - Endpoint: one CBOR message per UDP datagram, with token-based
//     response matching and a per-request timeout
//   - Loopback: synchronous in-process delivery for tests
//
// Server is the Backbone Router side: it dispatches decoded requests to a
// RegistrationHandler and can push unsolicited address notifications to
// devices.
package transport
