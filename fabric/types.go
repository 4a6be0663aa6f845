package fabric

import (
	"time"

	"github.com/kestrelsys/agentmesh/wire"
)

// Handler processes one delivered message. It returns false to signal
// the fabric that delivery failed; the fabric logs a warning and does
// not retry. A failed delivery is not added to Stats.Delivered, and no
// separate handler-failure counter is kept.
type Handler interface {
	HandleMessage(msg *wire.Message) bool
}

// HandlerFunc adapts a plain function to a Handler.
type HandlerFunc func(msg *wire.Message) bool

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(msg *wire.Message) bool {
	return f(msg)
}

// Config configures a Fabric's worker cadence and queue sizing.
type Config struct {
	// InboxCapacity bounds each agent's per-agent message ring.
	InboxCapacity int
	// PriorityListCapacity bounds the shared high/critical priority
	// list drained ahead of per-agent inboxes.
	PriorityListCapacity int
	// AgentTimeout is not read by the Fabric. The heartbeat worker's
	// expiry sweep uses the timeout of the registry.Registry the Fabric
	// was created with (registry.Config.AgentTimeout).
	AgentTimeout time.Duration
	// HeartbeatInterval is how often the heartbeat worker sweeps for
	// expired agents and emits the local agent's own heartbeat.
	HeartbeatInterval time.Duration
	// LocalAgentID is the agent id the heartbeat worker refreshes and
	// announces on every tick. AgentIDBroadcast (the zero value) disables
	// self-heartbeat emission, leaving only the expiry sweep active.
	LocalAgentID wire.AgentID
	// DiscoveryInterval is how often the discovery worker broadcasts an
	// AGENT_DISCOVERY probe. Zero disables proactive discovery; the
	// fabric still answers probes it receives.
	DiscoveryInterval time.Duration
}

// DefaultConfig returns sensible defaults for a Fabric.
func DefaultConfig() *Config {
	return &Config{
		InboxCapacity:        256,
		PriorityListCapacity: 64,
		AgentTimeout:         5 * time.Second,
		HeartbeatInterval:    1 * time.Second,
		LocalAgentID:         wire.AgentIDBroadcast,
		DiscoveryInterval:    0,
	}
}
