package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.keploy.io/tcxchain/pkg/models"
	"go.keploy.io/tcxchain/pkg/packet"
)

func defaultSpecs() []models.InstanceSpec {
	return []models.InstanceSpec{
		{ID: 0, Name: "first", Program: "first", Order: models.First},
		{ID: 1, Name: "last", Program: "last", Order: models.Last},
	}
}

func TestChain_OrderIndependentOfInsertSequence(t *testing.T) {
	specs := defaultSpecs()

	forward, err := NewChain(specs)
	require.NoError(t, err)
	backward, err := NewChain([]models.InstanceSpec{specs[1], specs[0]})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "last"}, forward.Names())
	assert.Equal(t, []string{"first", "last"}, backward.Names())
}

func TestChain_FirstAndLastSurviveMiddleInstances(t *testing.T) {
	c, err := NewChain(append(defaultSpecs(),
		models.InstanceSpec{ID: 2, Name: "mid", Order: models.After("first")},
		models.InstanceSpec{ID: 3, Name: "late", Order: models.Before("last")},
	))
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "mid", "late", "last"}, c.Names())
	assert.Equal(t, 4, c.Len())
}

func TestChain_InsertErrors(t *testing.T) {
	c, err := NewChain(defaultSpecs())
	require.NoError(t, err)

	err = c.Insert(Instance{Name: "first"}, models.Last)
	assert.ErrorIs(t, err, ErrDuplicateInstance)

	err = c.Insert(Instance{Name: "x"}, models.Before("nobody"))
	assert.ErrorIs(t, err, ErrUnknownPeer)

	err = c.Insert(Instance{Name: "y"}, models.Order{})
	assert.ErrorIs(t, err, models.ErrInvalidOrder)

	assert.Equal(t, 2, c.Len())
}

func TestChain_ICMPRunsBothInOrder(t *testing.T) {
	c, err := NewChain(defaultSpecs())
	require.NoError(t, err)

	v := c.Run(packet.NewBuffer(icmpFrame(t)))
	assert.Equal(t, ActionNext, v.Action)
	assert.Empty(t, v.TerminatedBy)
	assert.Equal(t, []string{"first", "last"}, v.Invoked)
	require.Len(t, v.Diagnostics, 2)
	assert.Equal(t, "first", v.Diagnostics[0].Instance)
	assert.Equal(t, "last", v.Diagnostics[1].Instance)
}

func TestChain_NonICMPStopsAtFirst(t *testing.T) {
	c, err := NewChain(defaultSpecs())
	require.NoError(t, err)

	for _, raw := range [][]byte{tcpFrame(t), udpFrame(t), icmpFrame(t)[:10]} {
		v := c.Run(packet.NewBuffer(raw))
		assert.Equal(t, ActionPass, v.Action)
		assert.Equal(t, "first", v.TerminatedBy)
		assert.Equal(t, []string{"first"}, v.Invoked)
		assert.Empty(t, v.Diagnostics)
	}
}

func TestChain_Empty(t *testing.T) {
	v := (&Chain{}).Run(packet.NewBuffer(icmpFrame(t)))
	assert.Equal(t, ActionNext, v.Action)
	assert.Empty(t, v.Invoked)
}
