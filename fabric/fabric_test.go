package fabric

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsys/agentmesh/registry"
	"github.com/kestrelsys/agentmesh/wire"
)

type recordingHandler struct {
	mu       sync.Mutex
	received []*wire.Message
}

func (h *recordingHandler) HandleMessage(msg *wire.Message) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, msg)
	return true
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.received)
}

func newTestFabric(t *testing.T) (*Fabric, *registry.Registry) {
	t.Helper()
	reg := registry.New(nil)
	f := New(&Config{
		InboxCapacity:        16,
		PriorityListCapacity: 8,
		HeartbeatInterval:    10 * time.Millisecond,
	}, reg, nil)
	require.NoError(t, f.Start(context.Background()))
	t.Cleanup(func() { _ = f.Close() })
	return f, reg
}

func TestSendDeliversToRegisteredHandler(t *testing.T) {
	f, reg := newTestFabric(t)
	reg.Register(wire.AgentID(1), "caller", "1.0", nil)
	reg.Register(wire.AgentID(2), "worker", "1.0", nil)

	h := &recordingHandler{}
	f.RegisterHandler(wire.AgentID(2), h)

	require.NoError(t, f.Send(wire.AgentID(1), wire.AgentID(2), wire.MessageTypeOptimizationHint, []byte("do it")))

	require.Eventually(t, func() bool { return h.count() == 1 }, time.Second, time.Millisecond)
}

func TestSendToUnregisteredRecipientErrors(t *testing.T) {
	f, reg := newTestFabric(t)
	reg.Register(wire.AgentID(1), "caller", "1.0", nil)
	err := f.Send(wire.AgentID(1), wire.AgentID(99), wire.MessageTypeOptimizationHint, nil)
	require.Error(t, err)
}

func TestBroadcastReachesEveryActiveAgentExceptSender(t *testing.T) {
	f, reg := newTestFabric(t)
	reg.Register(wire.AgentID(1), "a", "1.0", nil)
	reg.Register(wire.AgentID(2), "b", "1.0", nil)
	reg.Register(wire.AgentID(3), "c", "1.0", nil)

	h2 := &recordingHandler{}
	h3 := &recordingHandler{}
	f.RegisterHandler(wire.AgentID(2), h2)
	f.RegisterHandler(wire.AgentID(3), h3)

	n, err := f.Broadcast(wire.AgentID(1), wire.MessageTypeConfigurationUpdate, wire.PriorityNormal, []byte("status"))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.Eventually(t, func() bool { return h2.count() == 1 && h3.count() == 1 }, time.Second, time.Millisecond)
}

func TestHighPriorityMessageDispatchedAheadOfNormal(t *testing.T) {
	f, reg := newTestFabric(t)
	reg.Register(wire.AgentID(1), "caller", "1.0", nil)
	reg.Register(wire.AgentID(2), "worker", "1.0", nil)

	var mu sync.Mutex
	var order []string
	h := HandlerFunc(func(msg *wire.Message) bool {
		mu.Lock()
		order = append(order, string(msg.PayloadBytes()))
		mu.Unlock()
		return true
	})
	f.RegisterHandler(wire.AgentID(2), h)

	require.NoError(t, f.SendPriority(wire.AgentID(1), wire.AgentID(2), wire.MessageTypeOptimizationHint, wire.PriorityNormal, []byte("normal")))
	require.NoError(t, f.SendPriority(wire.AgentID(1), wire.AgentID(2), wire.MessageTypeOptimizationHint, wire.PriorityCritical, []byte("critical")))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "critical", order[0])
}

func TestHeartbeatTimeoutEmitsSyntheticShutdown(t *testing.T) {
	reg := registry.New(&registry.Config{AgentTimeout: 15 * time.Millisecond})
	f := New(&Config{
		InboxCapacity:        8,
		PriorityListCapacity: 8,
		HeartbeatInterval:    5 * time.Millisecond,
	}, reg, nil)
	require.NoError(t, f.Start(context.Background()))
	defer f.Close()

	reg.Register(wire.AgentID(5), "flaky", "1.0", nil)

	h := &recordingHandler{}
	f.RegisterHandler(wire.AgentID(5), h)

	require.Eventually(t, func() bool { return h.count() >= 1 }, time.Second, time.Millisecond)

	last := h.received[len(h.received)-1]
	require.Equal(t, wire.MessageTypeAgentShutdown, last.Type)
	require.False(t, reg.IsActive(wire.AgentID(5)))
}

func TestHeartbeatRefreshesLiveness(t *testing.T) {
	reg := registry.New(&registry.Config{AgentTimeout: 30 * time.Millisecond})
	f := New(&Config{
		InboxCapacity:        8,
		PriorityListCapacity: 8,
		HeartbeatInterval:    5 * time.Millisecond,
	}, reg, nil)
	require.NoError(t, f.Start(context.Background()))
	defer f.Close()

	reg.Register(wire.AgentID(7), "steady", "1.0", nil)

	for i := 0; i < 5; i++ {
		time.Sleep(10 * time.Millisecond)
		require.NoError(t, f.Heartbeat(wire.AgentID(7)))
	}
	require.True(t, reg.IsActive(wire.AgentID(7)))
}

func TestHeartbeatUnknownAgentErrors(t *testing.T) {
	f, _ := newTestFabric(t)
	require.Error(t, f.Heartbeat(wire.AgentID(123)))
}

func TestLocalAgentHeartbeatBroadcastsToOthers(t *testing.T) {
	reg := registry.New(nil)
	f := New(&Config{
		InboxCapacity:        8,
		PriorityListCapacity: 8,
		HeartbeatInterval:    5 * time.Millisecond,
		LocalAgentID:         wire.AgentID(1),
	}, reg, nil)
	require.NoError(t, f.Start(context.Background()))
	defer f.Close()

	reg.Register(wire.AgentID(1), "local", "1.0", nil)
	reg.Register(wire.AgentID(2), "peer", "1.0", nil)

	h := &recordingHandler{}
	f.RegisterHandler(wire.AgentID(2), h)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		for _, m := range h.received {
			if m.Type == wire.MessageTypeAgentHeartbeat {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
}

func TestDiscoveryRespondsWithAgentDescription(t *testing.T) {
	f, reg := newTestFabric(t)
	reg.Register(wire.AgentID(1), "prober", "1.0", nil)
	reg.Register(wire.AgentID(2), "worker", "2.0", nil)

	prober := &recordingHandler{}
	f.RegisterHandler(wire.AgentID(1), prober)

	require.NoError(t, f.Send(wire.AgentID(1), wire.AgentID(2), wire.MessageTypeAgentDiscovery, nil))

	require.Eventually(t, func() bool { return prober.count() == 1 }, time.Second, time.Millisecond)

	reply := prober.received[0]
	require.Equal(t, wire.MessageTypeAgentDiscovery, reply.Type)
	require.Equal(t, wire.AgentID(2), reply.Sender)
	require.Equal(t, "worker/2.0", string(reply.PayloadBytes()))
}

func TestPriorityListEvictsLowBeforeCritical(t *testing.T) {
	pl := newPriorityList(2)

	low := wire.NewMessage(wire.MessageTypeErrorReport, 1, 2, wire.PriorityLow, []byte("low"))
	normal := wire.NewMessage(wire.MessageTypeErrorReport, 1, 2, wire.PriorityNormal, []byte("normal"))
	critical := wire.NewMessage(wire.MessageTypeErrorReport, 1, 2, wire.PriorityCritical, []byte("critical"))

	require.True(t, pl.push(low))
	require.True(t, pl.push(normal))
	require.True(t, pl.push(critical)) // evicts low

	require.Equal(t, 2, pl.len())
	first := pl.popHighest()
	require.Equal(t, "critical", string(first.PayloadBytes()))
	second := pl.popHighest()
	require.Equal(t, "normal", string(second.PayloadBytes()))
}
