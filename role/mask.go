package role

import "math/bits"

// Mask is a set of role bits.
type Mask uint64

// Has reports whether bit is set.
func (m Mask) Has(bit int) bool {
	if bit < 0 || bit >= MaxRoles {
		return false
	}
	return m&(1<<bit) != 0
}

// Set adds bit to the mask.
func (m *Mask) Set(bit int) {
	if bit < 0 || bit >= MaxRoles {
		return
	}
	*m |= 1 << bit
}

// Intersects reports whether m and other share at least one role.
func (m Mask) Intersects(other Mask) bool {
	return m&other != 0
}

// Empty reports whether no role is set.
func (m Mask) Empty() bool {
	return m == 0
}

// Count returns the number of roles in the mask.
func (m Mask) Count() int {
	return bits.OnesCount64(uint64(m))
}
