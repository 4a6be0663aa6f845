package agentmesh

import (
	"sync"

	"github.com/kestrelsys/agentmesh/fabric"
	"github.com/kestrelsys/agentmesh/optimize"
	"github.com/kestrelsys/agentmesh/wire"
)

var (
	_ fabric.Handler               = (*MockHandler)(nil)
	_ optimize.PerformanceExecutor = (*MockPerformanceExecutor)(nil)
	_ optimize.UXExecutor          = (*MockUXExecutor)(nil)
)

// MockHandler is a fabric.Handler that records every message it
// receives and lets tests script per-call success/failure, mirroring
// the teacher's MockBackend call-count-and-canned-response shape.
type MockHandler struct {
	mu       sync.Mutex
	received []*wire.Message
	fail     bool
}

// HandleMessage records msg and returns the configured outcome.
func (m *MockHandler) HandleMessage(msg *wire.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, msg)
	return !m.fail
}

// SetFail configures whether future HandleMessage calls report failure.
func (m *MockHandler) SetFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

// Received returns a copy of every message handled so far.
func (m *MockHandler) Received() []*wire.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*wire.Message, len(m.received))
	copy(out, m.received)
	return out
}

// CallCount returns how many times HandleMessage was invoked.
func (m *MockHandler) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// Reset clears recorded calls and restores the default (succeed) outcome.
func (m *MockHandler) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = nil
	m.fail = false
}

// MockPerformanceExecutor records every performance/hybrid action
// dispatched to it and lets tests script success/failure.
type MockPerformanceExecutor struct {
	mu    sync.Mutex
	calls []optimize.Action
	fail  bool
}

// ExecutePerformance records action and returns the configured outcome.
func (m *MockPerformanceExecutor) ExecutePerformance(action optimize.Action, _ map[string]float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, action)
	return !m.fail
}

// SetFail configures whether future calls report failure.
func (m *MockPerformanceExecutor) SetFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

// Calls returns a copy of every action dispatched so far.
func (m *MockPerformanceExecutor) Calls() []optimize.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]optimize.Action, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and restores the default (succeed) outcome.
func (m *MockPerformanceExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.fail = false
}

// MockUXExecutor records every UX action dispatched to it and lets
// tests script success/failure.
type MockUXExecutor struct {
	mu    sync.Mutex
	calls []optimize.Action
	fail  bool
}

// ExecuteUX records action and returns the configured outcome.
func (m *MockUXExecutor) ExecuteUX(action optimize.Action, _ map[string]float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, action)
	return !m.fail
}

// SetFail configures whether future calls report failure.
func (m *MockUXExecutor) SetFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

// Calls returns a copy of every action dispatched so far.
func (m *MockUXExecutor) Calls() []optimize.Action {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]optimize.Action, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls and restores the default (succeed) outcome.
func (m *MockUXExecutor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.fail = false
}
