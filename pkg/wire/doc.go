// Package wire defines the CBOR wire format for the DUA registration
// protocol spoken between a device and its Primary Backbone Router.
//
// Messages use CBOR (RFC 8949) with integer keys for compact encoding.
//
// # Message Types
//
// There are three message types:
//   - RegistrationRequest: device (or parent, on a child's behalf) to
//     Backbone Router
//   - RegistrationResponse: Backbone Router to device
//   - AddressNotification: unsolicited, informs a device that an address
//     it holds collides with one registered elsewhere; no response is
//     expected
//
// # Tokens
//
// Every request carries a client-generated token which the responder
// echoes back. The token pairs a response with its request and lets the
// client discard responses to requests it has since abandoned.
package wire
