package role

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryAssignsSequentialBits(t *testing.T) {
	r, err := NewRegistry("ADMIN", "CLIENT", "CONTRACTOR")
	require.NoError(t, err)

	bit, ok := r.Bit("CONTRACTOR")
	require.True(t, ok)
	assert.Equal(t, 2, bit)

	name, ok := r.Name(1)
	require.True(t, ok)
	assert.Equal(t, "CLIENT", name)
	assert.Equal(t, 3, r.Count())
}

func TestRegistryRejectsInvalidRegistrations(t *testing.T) {
	r, err := NewRegistry("ADMIN")
	require.NoError(t, err)

	_, err = r.Register("ADMIN")
	assert.True(t, errors.Is(err, ErrDuplicate))

	_, err = r.Register("   ")
	assert.True(t, errors.Is(err, ErrEmptyName))

	r.Freeze()
	_, err = r.Register("CLIENT")
	assert.True(t, errors.Is(err, ErrRegistryFrozen))
}

func TestRegistryLimit(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)
	for i := 0; i < MaxRoles; i++ {
		_, err := r.Register(string(rune('A'+i%26)) + string(rune('a'+i/26)))
		require.NoError(t, err)
	}
	_, err = r.Register("overflow")
	assert.True(t, errors.Is(err, ErrLimitExceeded))
}

func TestMaskOfIgnoresUnknownRoles(t *testing.T) {
	r, err := NewRegistry("CLIENT", "CONTRACTOR")
	require.NoError(t, err)

	m := r.MaskOf([]string{"CONTRACTOR", "SUPERUSER"})
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, []string{"CONTRACTOR"}, r.Names(m))
}

func TestStrictMaskOfFailsOnUnknownRole(t *testing.T) {
	r, err := NewRegistry("CLIENT")
	require.NoError(t, err)

	_, err = r.StrictMaskOf([]string{"CLIENT", "ROOT"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownRole))
	assert.Contains(t, err.Error(), "ROOT")
}

func TestMaskIntersects(t *testing.T) {
	r, err := NewRegistry("ADMIN", "CLIENT", "CONTRACTOR")
	require.NoError(t, err)

	required := r.MaskOf([]string{"CLIENT"})
	assert.False(t, r.MaskOf([]string{"CONTRACTOR"}).Intersects(required))
	assert.True(t, r.MaskOf([]string{"CONTRACTOR", "CLIENT"}).Intersects(required))
	assert.False(t, Mask(0).Intersects(required))
}

func TestMaskSetBounds(t *testing.T) {
	var m Mask
	m.Set(-1)
	m.Set(MaxRoles)
	assert.True(t, m.Empty())

	m.Set(5)
	assert.True(t, m.Has(5))
	assert.False(t, m.Empty())
	assert.False(t, m.Has(4))
	assert.False(t, m.Has(70))
}
