package ip6

import (
	"fmt"
	"net"
)

// AddressSize is the size of an IPv6 address in bytes.
const AddressSize = 16

// IIDSize is the size of an Interface Identifier in bytes.
const IIDSize = 8

// Address is a 16-byte IPv6 address.
type Address [AddressSize]byte

// IsUnspecified returns true if the address is all zeros (::).
func (a Address) IsUnspecified() bool {
	return a == Address{}
}

// IID returns the Interface Identifier portion (low 64 bits) of the address.
func (a Address) IID() InterfaceIdentifier {
	var iid InterfaceIdentifier
	copy(iid[:], a[IIDSize:])
	return iid
}

// String returns the canonical textual form of the address.
func (a Address) String() string {
	return net.IP(a[:]).String()
}

// ParseAddress parses a textual IPv6 address.
func ParseAddress(s string) (Address, error) {
	var addr Address
	ip := net.ParseIP(s)
	if ip == nil {
		return addr, fmt.Errorf("invalid IPv6 address: %q", s)
	}
	ip16 := ip.To16()
	if ip16 == nil || ip.To4() != nil {
		return addr, fmt.Errorf("not an IPv6 address: %q", s)
	}
	copy(addr[:], ip16)
	return addr, nil
}

// Prefix is an IPv6 prefix: the high-order Length bits of Address are
// significant.
type Prefix struct {
	Address Address
	Length  uint8
}

// IsValid reports whether the prefix has a usable length for DUA
// construction. Domain Prefixes are at most 64 bits so the full IID
// fits below them.
func (p Prefix) IsValid() bool {
	return p.Length > 0 && p.Length <= 64
}

// Matches reports whether addr falls within the prefix.
func (p Prefix) Matches(addr Address) bool {
	bits := int(p.Length)
	for i := 0; i < AddressSize && bits > 0; i++ {
		n := bits
		if n > 8 {
			n = 8
		}
		mask := byte(0xff) << (8 - n)
		if p.Address[i]&mask != addr[i]&mask {
			return false
		}
		bits -= n
	}
	return true
}

// Equal reports whether two prefixes are identical.
func (p Prefix) Equal(other Prefix) bool {
	return p.Length == other.Length && p.Address == other.Address
}

// String returns the prefix in CIDR notation.
func (p Prefix) String() string {
	return fmt.Sprintf("%s/%d", p.Address, p.Length)
}

// AddressFrom builds a full address from a Domain Prefix and an Interface
// Identifier. Prefix bits beyond the prefix length are zeroed before the
// IID is placed in the low 64 bits.
func AddressFrom(prefix Prefix, iid InterfaceIdentifier) Address {
	var addr Address
	bits := int(prefix.Length)
	for i := 0; i < IIDSize && bits > 0; i++ {
		n := bits
		if n > 8 {
			n = 8
		}
		mask := byte(0xff) << (8 - n)
		addr[i] = prefix.Address[i] & mask
		bits -= n
	}
	copy(addr[IIDSize:], iid[:])
	return addr
}
