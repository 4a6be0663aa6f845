// Package registry tracks the agents known to the Communication
// Fabric: who they are, what they can do, and whether they are still
// alive.
package registry

import (
	"sync"
	"time"

	"github.com/kestrelsys/agentmesh/internal/coreerr"
	"github.com/kestrelsys/agentmesh/wire"
)

// State is the lifecycle state of a registered agent.
type State int

const (
	StateUnknown State = iota
	StateActive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// DefaultAgentTimeout is how long an agent may go without a heartbeat
// before it is considered disconnected.
const DefaultAgentTimeout = 5 * time.Second

// Record describes one registered agent.
type Record struct {
	ID            wire.AgentID
	Name          string
	Version       string
	Capabilities  []wire.MessageType
	State         State
	LastHeartbeat time.Time
	MessagesSent  uint64
	MessagesRecv  uint64
}

func (r Record) clone() Record {
	caps := make([]wire.MessageType, len(r.Capabilities))
	copy(caps, r.Capabilities)
	r.Capabilities = caps
	return r
}

// Handles reports whether id declared capability to handle msgType at
// registration time.
func (r Record) Handles(msgType wire.MessageType) bool {
	for _, c := range r.Capabilities {
		if c == msgType {
			return true
		}
	}
	return false
}

// Config configures a Registry's liveness policy.
type Config struct {
	// AgentTimeout is the maximum allowed gap since the last heartbeat
	// before IsActive/sweep consider an agent disconnected.
	AgentTimeout time.Duration
}

// DefaultConfig returns a Registry configuration using
// DefaultAgentTimeout.
func DefaultConfig() *Config {
	return &Config{AgentTimeout: DefaultAgentTimeout}
}

// Registry is the concurrency-safe store of Records, keyed by agent
// id. Liveness is always computed from LastHeartbeat against the
// configured timeout rather than from a stored boolean, so a Registry
// never needs an explicit background sweep to stay correct — ListActive
// and IsActive are always accurate at call time. Callers that want to
// emit synthetic shutdown events still run their own periodic sweep
// (see fabric's heartbeat worker) to notice the transition promptly.
type Registry struct {
	mu      sync.RWMutex
	agents  map[wire.AgentID]*Record
	timeout time.Duration
}

// New creates an empty Registry.
func New(cfg *Config) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	timeout := cfg.AgentTimeout
	if timeout <= 0 {
		timeout = DefaultAgentTimeout
	}
	return &Registry{
		agents:  make(map[wire.AgentID]*Record),
		timeout: timeout,
	}
}

// Register adds or refreshes an agent. Registration is idempotent by
// id: calling it again for an id already known updates name, version
// and capabilities in place and moves the agent back to Active,
// exactly as re-registering a device renegotiates its parameters
// rather than erroring.
func (reg *Registry) Register(id wire.AgentID, name, version string, capabilities []wire.MessageType) *Record {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	caps := make([]wire.MessageType, len(capabilities))
	copy(caps, capabilities)

	if rec, ok := reg.agents[id]; ok {
		rec.Name = name
		rec.Version = version
		rec.Capabilities = caps
		rec.State = StateActive
		rec.LastHeartbeat = time.Now()
		out := rec.clone()
		return &out
	}

	rec := &Record{
		ID:            id,
		Name:          name,
		Version:       version,
		Capabilities:  caps,
		State:         StateActive,
		LastHeartbeat: time.Now(),
	}
	reg.agents[id] = rec
	out := rec.clone()
	return &out
}

// Unregister removes an agent from the registry. It is a no-op if the
// id is not known.
func (reg *Registry) Unregister(id wire.AgentID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.agents, id)
}

// Heartbeat refreshes an agent's liveness timestamp. It returns an
// unknown-recipient error if the agent is not registered.
func (reg *Registry) Heartbeat(id wire.AgentID) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	rec, ok := reg.agents[id]
	if !ok {
		return coreerr.New("registry.Heartbeat", coreerr.CodeUnknownRecipient, "agent not registered")
	}
	rec.LastHeartbeat = time.Now()
	if rec.State == StateDisconnected {
		rec.State = StateActive
	}
	return nil
}

// RecordSent increments the sent-message counter for id, if known.
func (reg *Registry) RecordSent(id wire.AgentID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if rec, ok := reg.agents[id]; ok {
		rec.MessagesSent++
	}
}

// RecordReceived increments the received-message counter for id, if known.
func (reg *Registry) RecordReceived(id wire.AgentID) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if rec, ok := reg.agents[id]; ok {
		rec.MessagesRecv++
	}
}

// Get returns a copy of the record for id, and whether it exists.
func (reg *Registry) Get(id wire.AgentID) (Record, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rec, ok := reg.agents[id]
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// IsActive reports whether id is registered and has sent a heartbeat
// within the configured timeout, computed live from the monotonic
// clock diff rather than a stored flag.
func (reg *Registry) IsActive(id wire.AgentID) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	rec, ok := reg.agents[id]
	if !ok {
		return false
	}
	return time.Since(rec.LastHeartbeat) < reg.timeout
}

// ListActive returns a copy of every record currently within the
// liveness timeout.
func (reg *Registry) ListActive() []Record {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]Record, 0, len(reg.agents))
	for _, rec := range reg.agents {
		if time.Since(rec.LastHeartbeat) < reg.timeout {
			out = append(out, rec.clone())
		}
	}
	return out
}

// SweepExpired marks every agent whose last heartbeat exceeds the
// configured timeout as Disconnected and returns their ids. Callers
// (the fabric's heartbeat worker) use this to decide which agents to
// emit a synthetic AGENT_SHUTDOWN for.
func (reg *Registry) SweepExpired() []wire.AgentID {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	var expired []wire.AgentID
	for id, rec := range reg.agents {
		if rec.State != StateDisconnected && time.Since(rec.LastHeartbeat) >= reg.timeout {
			rec.State = StateDisconnected
			expired = append(expired, id)
		}
	}
	return expired
}

// Count returns the number of known agents regardless of liveness.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.agents)
}
