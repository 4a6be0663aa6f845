package fabric

import (
	"context"
	"time"

	"github.com/kestrelsys/agentmesh/wire"
)

// Start launches the dispatch, heartbeat, and discovery workers. It
// blocks until each worker has signaled it is ready, mirroring the
// teacher's Start/ioLoop started-channel handshake so callers never
// observe a Fabric that is "started" but not yet draining messages.
func (f *Fabric) Start(ctx context.Context) error {
	var err error
	f.startOnce.Do(func() {
		f.ctx, f.cancel = context.WithCancel(ctx)

		ready := make(chan struct{}, 3)
		f.wg.Add(3)
		go f.dispatchLoop(ready)
		go f.heartbeatLoop(ready)
		go f.discoveryLoop(ready)

		for i := 0; i < 3; i++ {
			<-ready
		}
		f.logger.Info("fabric started")
	})
	return err
}

// Stop cancels all workers without waiting for them to exit. It is
// idempotent.
func (f *Fabric) Stop() {
	f.stopOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
		}
	})
}

// Close stops the fabric and waits for every worker to exit.
func (f *Fabric) Close() error {
	f.Stop()
	f.wg.Wait()
	f.logger.Info("fabric closed")
	return nil
}

// dispatchLoop drains the priority list ahead of a round-robin pass
// over per-agent inboxes, invoking handlers outside any lock.
func (f *Fabric) dispatchLoop(ready chan<- struct{}) {
	defer f.wg.Done()
	ready <- struct{}{}

	idle := 0
	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		did := f.drainPriority()
		did = f.dispatchRoundRobin() || did

		if !did {
			idle++
			backoff := time.Duration(idle) * time.Millisecond
			if backoff > 20*time.Millisecond {
				backoff = 20 * time.Millisecond
			}
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(backoff):
			}
			continue
		}
		idle = 0
	}
}

func (f *Fabric) drainPriority() bool {
	any := false
	for {
		msg := f.priority.popHighest()
		if msg == nil {
			return any
		}
		f.deliver(msg)
		any = true
	}
}

// dispatchRoundRobin dequeues at most one message from each agent's
// inbox per pass, in rotation order, so no single busy inbox starves
// the others.
func (f *Fabric) dispatchRoundRobin() bool {
	f.inboxMu.RLock()
	order := f.order
	f.inboxMu.RUnlock()

	did := false
	for _, id := range order {
		f.inboxMu.RLock()
		ib := f.inboxes[id]
		f.inboxMu.RUnlock()
		if ib == nil {
			continue
		}
		msg, err := ib.ring.TryDequeue()
		if err != nil {
			continue
		}
		f.deliver(msg)
		did = true
	}
	return did
}

// heartbeatLoop periodically emits the local agent's own heartbeat, then
// sweeps the registry for expired agents and synthesizes an
// AGENT_SHUTDOWN delivery for each before unregistering it.
func (f *Fabric) heartbeatLoop(ready chan<- struct{}) {
	defer f.wg.Done()
	ready <- struct{}{}

	if f.registry == nil {
		return
	}
	interval := f.cfg.HeartbeatInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			if f.cfg.LocalAgentID != wire.AgentIDBroadcast {
				if err := f.Heartbeat(f.cfg.LocalAgentID); err != nil {
					f.logger.Warn("local heartbeat refresh failed", "agent", f.cfg.LocalAgentID, "error", err)
				}
				if _, err := f.Broadcast(f.cfg.LocalAgentID, wire.MessageTypeAgentHeartbeat, wire.PriorityLow, nil); err != nil {
					f.logger.Warn("local heartbeat broadcast failed", "agent", f.cfg.LocalAgentID, "error", err)
				}
			}

			for _, id := range f.registry.SweepExpired() {
				f.logger.Warn("agent expired", "agent", id)
				msg := wire.NewMessage(wire.MessageTypeAgentShutdown, wire.AgentIDUnknown, id, wire.PriorityHigh, nil)
				msg.Timestamp = uint64(time.Now().UnixNano())
				f.deliver(msg)
				f.UnregisterAgent(id)
			}
		}
	}
}

// discoveryLoop optionally emits a proactive AGENT_DISCOVERY probe on a
// fixed interval when DiscoveryInterval is configured. Answering
// incoming probes is handled synchronously by respondToDiscovery from
// deliver, so it runs regardless of whether this loop is active.
func (f *Fabric) discoveryLoop(ready chan<- struct{}) {
	defer f.wg.Done()
	ready <- struct{}{}

	if f.cfg.DiscoveryInterval <= 0 {
		return
	}
	ticker := time.NewTicker(f.cfg.DiscoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			_, _ = f.Broadcast(wire.AgentIDUnknown, wire.MessageTypeAgentDiscovery, wire.PriorityNormal, nil)
		}
	}
}
