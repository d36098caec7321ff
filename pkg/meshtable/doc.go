// Package meshtable provides the bounded child table and the bitsets used
// by the proxy registrar.
//
// A parent keeps one slot per attached child, addressed by a small index.
// ChildMask is a fixed-capacity bitset over those indices; all scans are in
// ascending index order, which is the documented selection order for proxy
// registration.
package meshtable
