package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOrder(t *testing.T) {
	tests := []struct {
		in   string
		want Order
	}{
		{"first", First},
		{" LAST ", Last},
		{"before:last", Before("last")},
		{"after:first", After("first")},
		{"Before:Probe_1", Before("Probe_1")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOrder(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, mustParse(t, got.String()))
		})
	}
}

func TestParseOrder_Invalid(t *testing.T) {
	for _, in := range []string{"", "middle", "before:", "after", "around:first"} {
		_, err := ParseOrder(in)
		assert.ErrorIs(t, err, ErrInvalidOrder, in)
	}
}

func TestOrder_Relative(t *testing.T) {
	assert.False(t, First.Relative())
	assert.False(t, Last.Relative())
	assert.True(t, Before("x").Relative())
	assert.True(t, After("x").Relative())
}

func mustParse(t *testing.T, s string) Order {
	t.Helper()
	o, err := ParseOrder(s)
	require.NoError(t, err)
	return o
}
