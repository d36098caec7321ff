package ip6

import (
	"testing"
)

func mustParsePrefix(t *testing.T, addr string, length uint8) Prefix {
	t.Helper()
	a, err := ParseAddress(addr)
	if err != nil {
		t.Fatalf("ParseAddress(%q) failed: %v", addr, err)
	}
	return Prefix{Address: a, Length: length}
}

func TestAddressFrom(t *testing.T) {
	prefix := mustParsePrefix(t, "fd00:7d03:7d03:7d03::", 64)
	iid := InterfaceIdentifier{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	addr := AddressFrom(prefix, iid)

	if got, want := addr.String(), "fd00:7d03:7d03:7d03:102:304:506:708"; got != want {
		t.Errorf("AddressFrom() = %s, want %s", got, want)
	}
	if addr.IID() != iid {
		t.Errorf("IID() = %s, want %s", addr.IID(), iid)
	}
	if !prefix.Matches(addr) {
		t.Error("Matches() = false for address built from prefix")
	}
}

func TestAddressFromShortPrefix(t *testing.T) {
	// A /48 prefix must have bytes 6-7 zeroed even if the prefix
	// address carries garbage there.
	prefix := mustParsePrefix(t, "fd00:7d03:7d03:ffff::", 48)
	iid := InterfaceIdentifier{0xaa, 0, 0, 0, 0, 0, 0, 0x01}

	addr := AddressFrom(prefix, iid)
	if addr[6] != 0 || addr[7] != 0 {
		t.Errorf("AddressFrom() kept bits beyond prefix length: %s", addr)
	}
}

func TestPrefixMatches(t *testing.T) {
	prefix := mustParsePrefix(t, "fd00:7d03:7d03:7d03::", 64)

	tests := []struct {
		name string
		addr string
		want bool
	}{
		{"Inside", "fd00:7d03:7d03:7d03::1", true},
		{"Outside", "fd00:7d03:7d03:7d04::1", false},
		{"Unspecified", "::", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, err := ParseAddress(tt.addr)
			if err != nil {
				t.Fatalf("ParseAddress(%q) failed: %v", tt.addr, err)
			}
			if got := prefix.Matches(addr); got != tt.want {
				t.Errorf("Matches(%s) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestIIDIsReserved(t *testing.T) {
	tests := []struct {
		name string
		iid  InterfaceIdentifier
		want bool
	}{
		{"AllZero", InterfaceIdentifier{}, true},
		{"ReservedAnycastLow", InterfaceIdentifier{0, 0, 0, 0, 0, 0, 0x80, 0x00}, true},
		{"ReservedAnycastHigh", InterfaceIdentifier{0, 0, 0, 0, 0, 0, 0xff, 0xff}, true},
		{"Locator", InterfaceIdentifier{0, 0, 0, 0, 0x00, 0xff, 0xfe, 0x00}, true},
		{"Normal", InterfaceIdentifier{0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88}, false},
		{"NearAnycast", InterfaceIdentifier{0, 0, 0, 0, 0, 0, 0x7f, 0xff}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.iid.IsReserved(); got != tt.want {
				t.Errorf("IsReserved(%s) = %v, want %v", tt.iid, got, tt.want)
			}
		})
	}
}

func TestDeriveInterfaceIdentifier(t *testing.T) {
	ext := [IIDSize]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77}

	iid0, err := DeriveInterfaceIdentifier(ext, "OpenThreadDemo", 0)
	if err != nil {
		t.Fatalf("DeriveInterfaceIdentifier() failed: %v", err)
	}
	if iid0.IsReserved() {
		t.Errorf("derived IID %s is reserved", iid0)
	}

	// Same inputs reproduce the same IID (restart behavior).
	again, err := DeriveInterfaceIdentifier(ext, "OpenThreadDemo", 0)
	if err != nil {
		t.Fatalf("DeriveInterfaceIdentifier() failed: %v", err)
	}
	if again != iid0 {
		t.Errorf("derivation not deterministic: %s != %s", again, iid0)
	}

	// Bumping the DAD counter yields a different IID.
	iid1, err := DeriveInterfaceIdentifier(ext, "OpenThreadDemo", 1)
	if err != nil {
		t.Fatalf("DeriveInterfaceIdentifier() failed: %v", err)
	}
	if iid1 == iid0 {
		t.Error("DAD counter bump did not change the derived IID")
	}

	// Network name also feeds derivation.
	other, err := DeriveInterfaceIdentifier(ext, "OtherNetwork", 0)
	if err != nil {
		t.Fatalf("DeriveInterfaceIdentifier() failed: %v", err)
	}
	if other == iid0 {
		t.Error("network name does not affect the derived IID")
	}
}

func TestParseInterfaceIdentifier(t *testing.T) {
	iid, err := ParseInterfaceIdentifier("1122334455667788")
	if err != nil {
		t.Fatalf("ParseInterfaceIdentifier() failed: %v", err)
	}
	if iid.String() != "1122334455667788" {
		t.Errorf("String() = %s, want 1122334455667788", iid)
	}

	if _, err := ParseInterfaceIdentifier("112233"); err == nil {
		t.Error("ParseInterfaceIdentifier() accepted a short value")
	}
	if _, err := ParseInterfaceIdentifier("zz22334455667788"); err == nil {
		t.Error("ParseInterfaceIdentifier() accepted non-hex input")
	}
}
