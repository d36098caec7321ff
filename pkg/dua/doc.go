// Package dua manages the lifecycle of a Thread device's Domain Unicast
// Address: generating it from the Domain Prefix, registering it with the
// Primary Backbone Router, detecting duplicate-address collisions,
// persisting the chosen Interface Identifier across restarts, and - for
// child devices that cannot speak the registration protocol themselves -
// proxying registration on their behalf.
//
// # Registration States
//
// The address moves through four states: NotExist (no Domain Prefix or no
// address generated), ToRegister (address exists, unconfirmed),
// Registering (request outstanding) and Registered (confirmed). An address
// leaves NotExist only by being generated and returns there only by being
// removed; Registering is entered only from ToRegister.
//
// # Delays
//
// Three independent countdowns share one 1-second ticker: the
// re-registration delay (when the current registration must be
// refreshed), the check delay (when registration need is next evaluated)
// and the registration delay (grace period after a new router joins
// before proxy registration starts). The ticker runs exactly while at
// least one countdown is non-zero, so an idle device takes no wakeups.
//
// # Proxy Registration
//
// ProxyRegistrar is a separate unit composed into the Manager when the
// device parents constrained children. It tracks per-child state in two
// bitsets scanned in ascending index order and keeps at most one proxy
// request outstanding system-wide.
//
// # Concurrency
//
// All transitions run under one mutex. "In flight" is a token field, not
// a blocked goroutine: responses carry the request token, and a response
// whose token no longer matches (the request was cancelled by a topology
// change) is discarded without effect.
package dua
