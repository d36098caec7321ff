package meshtable

import (
	"errors"
	"sync"
	"time"

	"github.com/thread-protocol/dua-go/pkg/ip6"
)

// DefaultMaxChildren is the default child table capacity.
const DefaultMaxChildren = 32

// Table errors.
var (
	ErrIndexOutOfRange = errors.New("child index out of range")
	ErrNoSuchChild     = errors.New("no child at index")
)

// ChildDuaState describes a change to a child's Domain Unicast Address,
// as reported by the child in a mesh-local update message.
type ChildDuaState uint8

const (
	// DuaUnchanged indicates the child reported no DUA change.
	DuaUnchanged ChildDuaState = 0

	// DuaAdded indicates the child announced a new DUA.
	DuaAdded ChildDuaState = 1

	// DuaChanged indicates the child replaced its DUA.
	DuaChanged ChildDuaState = 2

	// DuaRemoved indicates the child withdrew its DUA (or detached).
	DuaRemoved ChildDuaState = 3
)

// String returns the state name.
func (s ChildDuaState) String() string {
	switch s {
	case DuaUnchanged:
		return "UNCHANGED"
	case DuaAdded:
		return "ADDED"
	case DuaChanged:
		return "CHANGED"
	case DuaRemoved:
		return "REMOVED"
	default:
		return "UNKNOWN"
	}
}

// Child is one slot in the parent's child table.
type Child struct {
	// Index is the child's slot in the table.
	Index int

	// MeshLocalIID identifies the child on the mesh.
	MeshLocalIID ip6.InterfaceIdentifier

	// DomainUnicastAddress is the child's self-generated DUA, valid only
	// when HasDua is true.
	DomainUnicastAddress ip6.Address

	// HasDua indicates whether the child currently announces a DUA.
	HasDua bool

	// LastTransaction is when the parent last heard from the child.
	LastTransaction time.Time
}

// Table is a bounded, index-addressed child table.
type Table struct {
	mu       sync.RWMutex
	children []*Child
}

// NewTable creates a table with the given capacity. A non-positive
// capacity falls back to DefaultMaxChildren.
func NewTable(maxChildren int) *Table {
	if maxChildren <= 0 {
		maxChildren = DefaultMaxChildren
	}
	return &Table{children: make([]*Child, maxChildren)}
}

// Capacity returns the table capacity.
func (t *Table) Capacity() int {
	return len(t.children)
}

// Attach places a child at the given index, replacing any previous
// occupant of the slot.
func (t *Table) Attach(index int, meshLocalIID ip6.InterfaceIdentifier) (*Child, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.children) {
		return nil, ErrIndexOutOfRange
	}
	child := &Child{
		Index:           index,
		MeshLocalIID:    meshLocalIID,
		LastTransaction: time.Now(),
	}
	t.children[index] = child
	return child, nil
}

// Detach removes the child at the given index.
func (t *Table) Detach(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.children) {
		return ErrIndexOutOfRange
	}
	if t.children[index] == nil {
		return ErrNoSuchChild
	}
	t.children[index] = nil
	return nil
}

// Get returns the child at the given index, or nil if the slot is empty.
func (t *Table) Get(index int) *Child {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.children) {
		return nil
	}
	return t.children[index]
}

// SetDua records the child's announced DUA and refreshes its
// last-transaction time.
func (t *Table) SetDua(index int, dua ip6.Address) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.children) {
		return ErrIndexOutOfRange
	}
	child := t.children[index]
	if child == nil {
		return ErrNoSuchChild
	}
	child.DomainUnicastAddress = dua
	child.HasDua = true
	child.LastTransaction = time.Now()
	return nil
}

// ClearDua withdraws the child's DUA.
func (t *Table) ClearDua(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index >= len(t.children) {
		return ErrIndexOutOfRange
	}
	child := t.children[index]
	if child == nil {
		return ErrNoSuchChild
	}
	child.DomainUnicastAddress = ip6.Address{}
	child.HasDua = false
	return nil
}

// Count returns the number of occupied slots.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, c := range t.children {
		if c != nil {
			n++
		}
	}
	return n
}
