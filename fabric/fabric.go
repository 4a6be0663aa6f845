// Package fabric implements the Agent Communication Fabric: typed
// message routing between registered agents over per-agent lock-free
// inboxes, with a bounded priority fast path, heartbeat-driven
// liveness sweeps, and discovery probing.
package fabric

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelsys/agentmesh/internal/coreerr"
	"github.com/kestrelsys/agentmesh/internal/logging"
	"github.com/kestrelsys/agentmesh/registry"
	"github.com/kestrelsys/agentmesh/ring"
	"github.com/kestrelsys/agentmesh/wire"
)

// agentInbox pairs a per-agent SPSC ring with a mutex guarding
// enqueue. Ring is strictly single-producer, but Send/Broadcast can be
// called concurrently by many callers, so producers are serialized
// here; the dispatch worker remains the single, lock-free consumer.
type agentInbox struct {
	ring   *ring.Ring[*wire.Message]
	sendMu sync.Mutex
}

// Fabric routes Messages between registered agents.
type Fabric struct {
	cfg      Config
	logger   *logging.Logger
	registry *registry.Registry

	inboxMu sync.RWMutex
	inboxes map[wire.AgentID]*agentInbox
	order   []wire.AgentID // round-robin dispatch order, rebuilt on membership change

	handlerMu sync.RWMutex
	handlers  map[wire.AgentID]Handler

	priority *priorityList

	nextMessageID  atomic.Uint64
	sentCount      atomic.Uint64
	deliveredCount atomic.Uint64
	droppedCount   atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once
}

// New creates a Fabric bound to reg for liveness tracking. logger may
// be nil, in which case logging.Default() is used.
func New(cfg *Config, reg *registry.Registry, logger *logging.Logger) *Fabric {
	c := DefaultConfig()
	if cfg != nil {
		c = cfg
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Fabric{
		cfg:      *c,
		logger:   logger.WithComponent("fabric"),
		registry: reg,
		inboxes:  make(map[wire.AgentID]*agentInbox),
		handlers: make(map[wire.AgentID]Handler),
		priority: newPriorityList(c.PriorityListCapacity),
	}
}

// RegisterHandler associates h with id, creating that agent's inbox if
// it does not already exist. Calling it again for the same id replaces
// the handler.
func (f *Fabric) RegisterHandler(id wire.AgentID, h Handler) {
	f.ensureInbox(id)
	f.handlerMu.Lock()
	f.handlers[id] = h
	f.handlerMu.Unlock()
}

// UnregisterHandler removes the handler for id. The agent's inbox
// remains so that in-flight sends do not error; the dispatch worker
// keeps draining it and counts each message that has no handler as
// dropped.
func (f *Fabric) UnregisterHandler(id wire.AgentID) {
	f.handlerMu.Lock()
	delete(f.handlers, id)
	f.handlerMu.Unlock()
}

// UnregisterAgent drains and releases id's inbox, removes its handler,
// and removes it from the registry, mirroring the registry's
// unregister_agent contract for the inbox the Fabric owns.
func (f *Fabric) UnregisterAgent(id wire.AgentID) {
	f.inboxMu.Lock()
	if ib, ok := f.inboxes[id]; ok {
		for {
			if _, err := ib.ring.TryDequeue(); err != nil {
				break
			}
		}
		delete(f.inboxes, id)
		for i, oid := range f.order {
			if oid == id {
				f.order = append(f.order[:i], f.order[i+1:]...)
				break
			}
		}
	}
	f.inboxMu.Unlock()

	f.UnregisterHandler(id)
	if f.registry != nil {
		f.registry.Unregister(id)
	}
}

// Heartbeat refreshes id's liveness timestamp in the registry. Agents
// call this to signal they are still alive; the heartbeat worker sweeps
// whichever agents stop calling it.
func (f *Fabric) Heartbeat(id wire.AgentID) error {
	if f.registry == nil {
		return coreerr.New("fabric.Heartbeat", coreerr.CodeUnknownRecipient, "fabric has no registry")
	}
	return f.registry.Heartbeat(id)
}

func (f *Fabric) ensureInbox(id wire.AgentID) *agentInbox {
	f.inboxMu.RLock()
	ib, ok := f.inboxes[id]
	f.inboxMu.RUnlock()
	if ok {
		return ib
	}

	f.inboxMu.Lock()
	defer f.inboxMu.Unlock()
	if ib, ok = f.inboxes[id]; ok {
		return ib
	}
	ib = &agentInbox{ring: ring.New[*wire.Message](f.cfg.InboxCapacity)}
	f.inboxes[id] = ib
	f.order = append(f.order, id)
	return ib
}

// Send delivers a normal-priority message from sender to recipient.
func (f *Fabric) Send(sender, recipient wire.AgentID, msgType wire.MessageType, payload []byte) error {
	return f.SendPriority(sender, recipient, msgType, wire.PriorityNormal, payload)
}

// SendPriority delivers a message from sender to recipient at the
// given priority. High and Critical priority messages are routed
// through the bounded priority fast path; Low and Normal go to the
// recipient's per-agent inbox.
func (f *Fabric) SendPriority(sender, recipient wire.AgentID, msgType wire.MessageType, priority wire.MessagePriority, payload []byte) error {
	if !priority.IsValid() {
		return coreerr.New("fabric.Send", coreerr.CodeInvalidMessage, "priority out of range")
	}
	if !msgType.IsValid() {
		return coreerr.New("fabric.Send", coreerr.CodeInvalidMessage, "message type not in closed enumeration")
	}
	if len(payload) > wire.MaxPayload {
		return coreerr.New("fabric.Send", coreerr.CodeInvalidMessage, "payload exceeds MaxPayload")
	}
	if f.registry != nil && !f.registry.IsActive(sender) {
		return coreerr.New("fabric.Send", coreerr.CodeUnknownRecipient, "sender not registered or inactive")
	}
	if f.registry != nil && !f.registry.IsActive(recipient) && recipient != wire.AgentIDBroadcast {
		return coreerr.New("fabric.Send", coreerr.CodeUnknownRecipient, "recipient not registered or inactive")
	}

	msg := wire.NewMessage(msgType, sender, recipient, priority, payload)
	msg.Timestamp = uint64(time.Now().UnixNano())
	msg.MessageID = f.nextMessageID.Add(1)

	return f.route(msg)
}

// Broadcast delivers msgType/payload to every currently active agent
// except sender, returning how many agents it was successfully queued
// for.
func (f *Fabric) Broadcast(sender wire.AgentID, msgType wire.MessageType, priority wire.MessagePriority, payload []byte) (int, error) {
	if !priority.IsValid() {
		return 0, coreerr.New("fabric.Broadcast", coreerr.CodeInvalidMessage, "priority out of range")
	}
	if f.registry == nil {
		return 0, coreerr.New("fabric.Broadcast", coreerr.CodeInvalidMessage, "broadcast requires a registry")
	}

	delivered := 0
	for _, rec := range f.registry.ListActive() {
		if rec.ID == sender {
			continue
		}
		msg := wire.NewMessage(msgType, sender, rec.ID, priority, payload)
		msg.Timestamp = uint64(time.Now().UnixNano())
		msg.MessageID = f.nextMessageID.Add(1)
		if err := f.route(msg); err == nil {
			delivered++
		}
	}
	return delivered, nil
}

// route enqueues msg onto the priority list or the recipient's inbox.
func (f *Fabric) route(msg *wire.Message) error {
	if msg.Priority >= wire.PriorityHigh {
		if !f.priority.push(msg) {
			f.droppedCount.Add(1)
			return coreerr.New("fabric.route", coreerr.CodeQueueFull, "priority list full")
		}
		f.sentCount.Add(1)
		if f.registry != nil {
			f.registry.RecordSent(msg.Sender)
		}
		return nil
	}

	ib := f.ensureInbox(msg.Recipient)
	ib.sendMu.Lock()
	err := ib.ring.TryEnqueue(msg)
	ib.sendMu.Unlock()
	if err != nil {
		f.droppedCount.Add(1)
		return coreerr.Wrap("fabric.route", coreerr.CodeQueueFull, err)
	}
	f.sentCount.Add(1)
	if f.registry != nil {
		f.registry.RecordSent(msg.Sender)
	}
	return nil
}

// respondToDiscovery answers an AGENT_DISCOVERY probe addressed to
// msg.Recipient by sending a description of that agent straight back to
// msg.Sender, satisfying the discovery worker's half of the contract
// that it "responds to AGENT_DISCOVERY messages with a description of
// the local agent." Replies are flagged so they are never themselves
// answered, and probes whose sender is the AgentIDUnknown sentinel or
// the broadcast address are ignored since there is no real agent to
// reply to.
func (f *Fabric) respondToDiscovery(msg *wire.Message) {
	if msg.Type != wire.MessageTypeAgentDiscovery || msg.Flags&wire.FlagDiscoveryReply != 0 {
		return
	}
	if msg.Sender == wire.AgentIDUnknown || msg.Sender == wire.AgentIDBroadcast {
		return
	}
	if f.registry == nil {
		return
	}
	rec, ok := f.registry.Get(msg.Recipient)
	if !ok {
		return
	}
	desc := rec.Name + "/" + rec.Version
	reply := wire.NewMessage(wire.MessageTypeAgentDiscovery, msg.Recipient, msg.Sender, wire.PriorityLow, []byte(desc))
	reply.Timestamp = uint64(time.Now().UnixNano())
	reply.MessageID = f.nextMessageID.Add(1)
	reply.Flags |= wire.FlagDiscoveryReply
	_ = f.route(reply)
}

// deliver invokes the handler registered for msg.Recipient, if any,
// and records delivery/failure counters and registry stats.
func (f *Fabric) deliver(msg *wire.Message) {
	f.respondToDiscovery(msg)

	f.handlerMu.RLock()
	h, ok := f.handlers[msg.Recipient]
	f.handlerMu.RUnlock()
	if !ok {
		f.droppedCount.Add(1)
		return
	}

	ok = h.HandleMessage(msg)
	if !ok {
		f.logger.Warn("handler reported failure", "recipient", msg.Recipient, "type", msg.Type)
		return
	}
	f.deliveredCount.Add(1)
	if f.registry != nil {
		f.registry.RecordReceived(msg.Recipient)
	}
}

// Stats is a point-in-time snapshot of fabric-wide counters.
type Stats struct {
	Sent           uint64
	Delivered      uint64
	Dropped        uint64
	PriorityQueued uint64
}

// Stats returns a snapshot of the fabric's counters.
func (f *Fabric) Stats() Stats {
	return Stats{
		Sent:           f.sentCount.Load(),
		Delivered:      f.deliveredCount.Load(),
		Dropped:        f.droppedCount.Load() + f.priority.droppedCount(),
		PriorityQueued: uint64(f.priority.len()),
	}
}
