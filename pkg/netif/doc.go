// Package netif abstracts the network-interface unicast address table.
//
// The DUA manager adds and removes the Domain Unicast Address as it is
// created and destroyed; the surrounding stack owns the real interface.
// Table is an in-memory implementation for tests and the simulator.
package netif
