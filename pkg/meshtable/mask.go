package meshtable

// ChildMask is a fixed-capacity bitset indexed by child slot.
// The zero value of a word is all-clear; capacity is set at construction.
type ChildMask struct {
	bits []uint64
	size int
}

// NewChildMask creates a mask with capacity for size child slots.
func NewChildMask(size int) *ChildMask {
	return &ChildMask{
		bits: make([]uint64, (size+63)/64),
		size: size,
	}
}

// Size returns the mask capacity.
func (m *ChildMask) Size() int {
	return m.size
}

// Set sets the bit for the given index. Out-of-range indices are ignored.
func (m *ChildMask) Set(index int) {
	if index < 0 || index >= m.size {
		return
	}
	m.bits[index/64] |= 1 << uint(index%64)
}

// Clear clears the bit for the given index.
func (m *ChildMask) Clear(index int) {
	if index < 0 || index >= m.size {
		return
	}
	m.bits[index/64] &^= 1 << uint(index%64)
}

// Has returns true if the bit for the given index is set.
func (m *ChildMask) Has(index int) bool {
	if index < 0 || index >= m.size {
		return false
	}
	return m.bits[index/64]&(1<<uint(index%64)) != 0
}

// NextSet returns the first set index >= from, scanning ascending.
// Returns -1 if no bit at or above from is set.
func (m *ChildMask) NextSet(from int) int {
	if from < 0 {
		from = 0
	}
	for i := from; i < m.size; i++ {
		if m.bits[i/64]&(1<<uint(i%64)) != 0 {
			return i
		}
	}
	return -1
}

// IsEmpty returns true if no bit is set.
func (m *ChildMask) IsEmpty() bool {
	for _, w := range m.bits {
		if w != 0 {
			return false
		}
	}
	return true
}

// ClearAll clears every bit.
func (m *ChildMask) ClearAll() {
	for i := range m.bits {
		m.bits[i] = 0
	}
}
