package ip6

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// IID derivation errors.
var (
	// ErrReservedIID indicates an IID value that collides with a
	// well-known anycast or locator encoding.
	ErrReservedIID = errors.New("reserved interface identifier")

	// ErrDerivationFailed indicates the HKDF stream could not produce a
	// usable (non-reserved) IID.
	ErrDerivationFailed = errors.New("interface identifier derivation failed")
)

// derivationInfo labels the HKDF expansion for DUA IID derivation.
const derivationInfo = "Thread DUA IID"

// maxDerivationAttempts bounds how many HKDF blocks are consumed when the
// stream happens to produce reserved values.
const maxDerivationAttempts = 8

// InterfaceIdentifier is the 64-bit low-order portion of an IPv6 address.
type InterfaceIdentifier [IIDSize]byte

// IsUnspecified returns true if the IID is all zeros.
func (iid InterfaceIdentifier) IsUnspecified() bool {
	return iid == InterfaceIdentifier{}
}

// IsReserved reports whether the IID collides with a well-known encoding:
// the subnet-router anycast (all zeros), the reserved anycast range
// (0000:0000:0000:ff80 - ffff) or the locator pattern (0000:00ff:fe00:xxxx).
func (iid InterfaceIdentifier) IsReserved() bool {
	if iid.IsUnspecified() {
		return true
	}
	if iid[0] == 0 && iid[1] == 0 && iid[2] == 0 && iid[3] == 0 &&
		iid[4] == 0 && iid[5] == 0 && iid[6] >= 0x80 {
		return true
	}
	if iid[0] == 0 && iid[1] == 0 && iid[2] == 0 && iid[3] == 0 &&
		iid[4] == 0x00 && iid[5] == 0xff && iid[6] == 0xfe {
		return true
	}
	return false
}

// String returns the IID as 16 lowercase hex digits.
func (iid InterfaceIdentifier) String() string {
	return hex.EncodeToString(iid[:])
}

// ParseInterfaceIdentifier parses 16 hex digits into an IID.
func ParseInterfaceIdentifier(s string) (InterfaceIdentifier, error) {
	var iid InterfaceIdentifier
	b, err := hex.DecodeString(s)
	if err != nil {
		return iid, fmt.Errorf("invalid interface identifier %q: %w", s, err)
	}
	if len(b) != IIDSize {
		return iid, fmt.Errorf("invalid interface identifier length: got %d bytes, want %d", len(b), IIDSize)
	}
	copy(iid[:], b)
	return iid, nil
}

// DeriveInterfaceIdentifier derives a pseudorandom IID from the device's
// extended address (EUI-64), the network name and the current DAD counter.
// The same inputs always produce the same IID, so a restart reproduces the
// previous address; bumping the DAD counter after a collision produces a
// fresh one.
func DeriveInterfaceIdentifier(extAddress [IIDSize]byte, networkName string, dadCounter uint8) (InterfaceIdentifier, error) {
	info := []byte(derivationInfo)
	info = append(info, dadCounter)

	reader := hkdf.New(sha256.New, extAddress[:], []byte(networkName), info)

	var iid InterfaceIdentifier
	for attempt := 0; attempt < maxDerivationAttempts; attempt++ {
		if _, err := io.ReadFull(reader, iid[:]); err != nil {
			return InterfaceIdentifier{}, fmt.Errorf("%w: %v", ErrDerivationFailed, err)
		}
		if !iid.IsReserved() {
			return iid, nil
		}
	}
	return InterfaceIdentifier{}, ErrDerivationFailed
}
