package netif

import (
	"testing"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

func TestTableAddRemove(t *testing.T) {
	table := NewTable()
	addr, err := ip6.ParseAddress("fd00:7d03:7d03:7d03::1")
	if err != nil {
		t.Fatalf("ParseAddress failed: %v", err)
	}

	var changes []bool
	table.OnChange(func(a ip6.Address, added bool) {
		if a != addr {
			t.Errorf("OnChange address = %s, want %s", a, addr)
		}
		changes = append(changes, added)
	})

	if err := table.AddUnicastAddress(addr); err != nil {
		t.Fatalf("AddUnicastAddress() failed: %v", err)
	}
	if !table.Has(addr) {
		t.Error("Has() = false after add")
	}
	if err := table.AddUnicastAddress(addr); err != ErrAddressExists {
		t.Errorf("duplicate add error = %v, want ErrAddressExists", err)
	}

	if err := table.RemoveUnicastAddress(addr); err != nil {
		t.Fatalf("RemoveUnicastAddress() failed: %v", err)
	}
	if table.Has(addr) {
		t.Error("Has() = true after remove")
	}
	if err := table.RemoveUnicastAddress(addr); err != ErrAddressNotFound {
		t.Errorf("second remove error = %v, want ErrAddressNotFound", err)
	}

	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("changes = %v, want [true false]", changes)
	}
	if len(table.Addresses()) != 0 {
		t.Errorf("Addresses() = %v, want empty", table.Addresses())
	}
}
