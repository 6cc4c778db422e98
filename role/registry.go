package role

import (
	"errors"
	"strings"
	"sync"
)

// MaxRoles is the number of distinct roles a [Registry] can hold.
const MaxRoles = 64

var (
	// ErrRegistryFrozen is returned by Register after Freeze.
	ErrRegistryFrozen = errors.New("role registry frozen")
	// ErrEmptyName is returned when a role name is blank.
	ErrEmptyName = errors.New("role name cannot be empty")
	// ErrDuplicate is returned when a role is registered twice.
	ErrDuplicate = errors.New("role already registered")
	// ErrLimitExceeded is returned when more than MaxRoles roles are registered.
	ErrLimitExceeded = errors.New("role limit exceeded")
	// ErrUnknownRole is returned by MaskOf in strict mode for unregistered names.
	ErrUnknownRole = errors.New("unknown role")
)

// Registry maps role names to bit positions within a [Mask].
// Names are case-sensitive; the backend's spelling ("CLIENT", "CONTRACTOR") is kept.
type Registry struct {
	mu        sync.RWMutex
	nameToBit map[string]int
	bitToName map[int]string
	frozen    bool
}

// NewRegistry creates a registry pre-populated with names, in order.
func NewRegistry(names ...string) (*Registry, error) {
	r := &Registry{
		nameToBit: make(map[string]int),
		bitToName: make(map[int]string),
	}
	for _, name := range names {
		if _, err := r.Register(name); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register assigns the next available bit to the named role.
// Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrRegistryFrozen
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return -1, ErrEmptyName
	}

	if _, exists := r.nameToBit[name]; exists {
		return -1, ErrDuplicate
	}

	nextBit := len(r.nameToBit)
	if nextBit >= MaxRoles {
		return -1, ErrLimitExceeded
	}

	r.nameToBit[name] = nextBit
	r.bitToName[nextBit] = name

	return nextBit, nil
}

// Bit returns the bit index for the named role, or false if not registered.
func (r *Registry) Bit(name string) (int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	bit, ok := r.nameToBit[name]
	return bit, ok
}

// Name returns the role name for the given bit index, or false if unassigned.
func (r *Registry) Name(bit int) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.bitToName[bit]
	return name, ok
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered roles.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nameToBit)
}

// MaskOf builds a mask from names. Unregistered names are skipped, so an identity
// carrying a role this process does not know about gains nothing from it.
func (r *Registry) MaskOf(names []string) Mask {
	var m Mask
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		if bit, ok := r.nameToBit[name]; ok {
			m.Set(bit)
		}
	}
	return m
}

// StrictMaskOf is MaskOf but fails on the first unregistered name. Used when the
// names come from configuration rather than from the backend.
func (r *Registry) StrictMaskOf(names []string) (Mask, error) {
	var m Mask
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, name := range names {
		bit, ok := r.nameToBit[name]
		if !ok {
			return 0, errors.Join(ErrUnknownRole, errors.New(name))
		}
		m.Set(bit)
	}
	return m, nil
}

// Names returns the registered names contained in m, in bit order.
func (r *Registry) Names(m Mask) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, m.Count())
	for bit := 0; bit < MaxRoles; bit++ {
		if !m.Has(bit) {
			continue
		}
		if name, ok := r.bitToName[bit]; ok {
			out = append(out, name)
		}
	}
	return out
}
