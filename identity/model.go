package identity

import (
	"slices"

	"github.com/MrEthical07/goGuard/role"
)

// Identity is the profile returned by GET /users/me.
type Identity struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Name       string   `json:"name"`
	Roles      []string `json:"roles"`
	IsVerified bool     `json:"isVerified"`
	IsLocked   bool     `json:"isLocked"`
}

// Clone returns a deep copy. A nil receiver returns nil.
func (i *Identity) Clone() *Identity {
	if i == nil {
		return nil
	}
	out := *i
	out.Roles = slices.Clone(i.Roles)
	return &out
}

// HasRole reports whether name is in the role set.
func (i *Identity) HasRole(name string) bool {
	if i == nil {
		return false
	}
	return slices.Contains(i.Roles, name)
}

// Mask resolves the role set against reg. Roles unknown to reg are dropped.
func (i *Identity) Mask(reg *role.Registry) role.Mask {
	if i == nil || reg == nil {
		return 0
	}
	return reg.MaskOf(i.Roles)
}
