package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsys/agentmesh/wire"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := New(nil)
	rec1 := reg.Register(wire.AgentID(1), "planner", "1.0", []wire.MessageType{wire.MessageTypeOptimizationHint})
	require.Equal(t, StateActive, rec1.State)

	rec2 := reg.Register(wire.AgentID(1), "planner", "1.1", []wire.MessageType{wire.MessageTypeOptimizationHint, wire.MessageTypeConfigurationUpdate})
	require.Equal(t, 1, reg.Count())
	require.Equal(t, "1.1", rec2.Version)
	require.Equal(t, []wire.MessageType{wire.MessageTypeOptimizationHint, wire.MessageTypeConfigurationUpdate}, rec2.Capabilities)
}

func TestIsActiveUsesLivenessTimeout(t *testing.T) {
	reg := New(&Config{AgentTimeout: 20 * time.Millisecond})
	reg.Register(wire.AgentID(1), "worker", "1.0", nil)
	require.True(t, reg.IsActive(wire.AgentID(1)))

	time.Sleep(30 * time.Millisecond)
	require.False(t, reg.IsActive(wire.AgentID(1)))

	require.NoError(t, reg.Heartbeat(wire.AgentID(1)))
	require.True(t, reg.IsActive(wire.AgentID(1)))
}

func TestHeartbeatUnknownAgentErrors(t *testing.T) {
	reg := New(nil)
	err := reg.Heartbeat(wire.AgentID(99))
	require.Error(t, err)
}

func TestSweepExpiredMarksDisconnected(t *testing.T) {
	reg := New(&Config{AgentTimeout: 10 * time.Millisecond})
	reg.Register(wire.AgentID(1), "a", "1.0", nil)
	reg.Register(wire.AgentID(2), "b", "1.0", nil)

	time.Sleep(20 * time.Millisecond)
	expired := reg.SweepExpired()
	require.ElementsMatch(t, []wire.AgentID{1, 2}, expired)

	rec, ok := reg.Get(wire.AgentID(1))
	require.True(t, ok)
	require.Equal(t, StateDisconnected, rec.State)

	// A second sweep with nothing newly expired reports nothing again.
	require.Empty(t, reg.SweepExpired())
}

func TestListActiveExcludesExpired(t *testing.T) {
	reg := New(&Config{AgentTimeout: 10 * time.Millisecond})
	reg.Register(wire.AgentID(1), "a", "1.0", nil)
	time.Sleep(20 * time.Millisecond)
	reg.Register(wire.AgentID(2), "b", "1.0", nil)

	active := reg.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, wire.AgentID(2), active[0].ID)
}

func TestUnregisterRemovesAgent(t *testing.T) {
	reg := New(nil)
	reg.Register(wire.AgentID(1), "a", "1.0", nil)
	reg.Unregister(wire.AgentID(1))
	require.Equal(t, 0, reg.Count())
	require.False(t, reg.IsActive(wire.AgentID(1)))
}
