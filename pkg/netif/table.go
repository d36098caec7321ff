package netif

import (
	"errors"
	"sync"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

// Address table errors.
var (
	ErrAddressExists   = errors.New("address already assigned")
	ErrAddressNotFound = errors.New("address not assigned")
)

// AddressTable is the contract the DUA manager uses to expose its address
// on the network interface.
type AddressTable interface {
	// AddUnicastAddress assigns an address to the interface.
	AddUnicastAddress(addr ip6.Address) error

	// RemoveUnicastAddress withdraws an address from the interface.
	RemoveUnicastAddress(addr ip6.Address) error
}

// Table is an in-memory unicast address table.
type Table struct {
	mu        sync.Mutex
	addresses map[ip6.Address]struct{}

	// onChange is invoked after every successful add or remove.
	onChange func(addr ip6.Address, added bool)
}

// NewTable creates an empty address table.
func NewTable() *Table {
	return &Table{addresses: make(map[ip6.Address]struct{})}
}

// OnChange sets a callback invoked after every successful add or remove.
func (t *Table) OnChange(fn func(addr ip6.Address, added bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onChange = fn
}

// AddUnicastAddress assigns an address to the interface.
func (t *Table) AddUnicastAddress(addr ip6.Address) error {
	t.mu.Lock()
	if _, ok := t.addresses[addr]; ok {
		t.mu.Unlock()
		return ErrAddressExists
	}
	t.addresses[addr] = struct{}{}
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(addr, true)
	}
	return nil
}

// RemoveUnicastAddress withdraws an address from the interface.
func (t *Table) RemoveUnicastAddress(addr ip6.Address) error {
	t.mu.Lock()
	if _, ok := t.addresses[addr]; !ok {
		t.mu.Unlock()
		return ErrAddressNotFound
	}
	delete(t.addresses, addr)
	fn := t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(addr, false)
	}
	return nil
}

// Has reports whether the address is currently assigned.
func (t *Table) Has(addr ip6.Address) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.addresses[addr]
	return ok
}

// Addresses returns a snapshot of the assigned addresses.
func (t *Table) Addresses() []ip6.Address {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]ip6.Address, 0, len(t.addresses))
	for addr := range t.addresses {
		out = append(out, addr)
	}
	return out
}

// Compile-time interface satisfaction check.
var _ AddressTable = (*Table)(nil)
