// Package ip6 provides the IPv6 value types used by the DUA manager.
//
// A Domain Unicast Address (DUA) is built from the Domain Prefix advertised
// by the network infrastructure plus a 64-bit Interface Identifier (IID).
// The IID is either fixed (operator assigned) or derived pseudorandomly from
// the device's extended address.
//
// # IID Derivation
//
// Derived IIDs are produced with HKDF-SHA256 keyed by the device's EUI-64,
// salted with the network name, with the Duplicate Address Detection (DAD)
// counter mixed into the info string. Bumping the DAD counter therefore
// yields a fresh IID, while the same inputs always reproduce the same IID
// after a restart.
//
// # Reserved IIDs
//
// Certain IID values collide with well-known anycast or locator encodings
// and must never be assigned to a DUA:
//   - all-zero (subnet-router anycast)
//   - the locator pattern 0000:00ff:fe00:xxxx
//   - the reserved anycast range 0000:0000:0000:ff80 - ffff
package ip6
