package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalName(t *testing.T) {
	cases := []struct {
		subject string
		want    string
	}{
		{"Math", "allocation_math"},
		{"  Data   Structures ", "allocation_data_structures"},
		{"Web\tTech\n2", "allocation_web_tech_2"},
		{"os-lab_1", "allocation_os-lab_1"},
	}
	for _, tc := range cases {
		got, err := CanonicalName(tc.subject)
		require.NoError(t, err, tc.subject)
		assert.Equal(t, tc.want, got)
		assert.True(t, IsCanonicalName(got))
	}
}

func TestCanonicalName_Idempotent(t *testing.T) {
	name, err := CanonicalName("Computer Networks")
	require.NoError(t, err)

	// stripping the fixed prefix and canonicalizing again yields the same name
	again, err := CanonicalName(name[len(DatasetPrefix):])
	require.NoError(t, err)
	assert.Equal(t, name, again)
}

func TestCanonicalName_Rejects(t *testing.T) {
	bad := []string{"", "   ", "math; DROP TABLE rooms", "phy`sics", "数学", "a/b"}
	for _, s := range bad {
		_, err := CanonicalName(s)
		require.Error(t, err, s)
		assert.True(t, errors.Is(err, ErrValidation), s)
	}
}

func TestCanonicalName_TooLong(t *testing.T) {
	long := make([]byte, MaxCanonicalNameLen)
	for i := range long {
		long[i] = 'a'
	}
	_, err := CanonicalName(string(long))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestIsCanonicalName(t *testing.T) {
	assert.True(t, IsCanonicalName("allocation_math"))
	assert.False(t, IsCanonicalName("math"))
	assert.False(t, IsCanonicalName("allocation_"))
	assert.False(t, IsCanonicalName("allocation_Math"))
	assert.False(t, IsCanonicalName("allocation_a b"))
}
