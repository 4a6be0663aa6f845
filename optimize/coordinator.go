package optimize

import (
	"sort"
	"sync"
	"time"
)

// PerformanceExecutor applies a performance or hybrid action on the
// host's behalf, returning whether it succeeded. This is the
// integration point the spec's original source exposed as a
// std::function callback; here it is a small interface so a host can
// supply a stateful implementation instead of a closure.
type PerformanceExecutor interface {
	ExecutePerformance(action Action, params map[string]float64) bool
}

// UXExecutor applies a UX action on the host's behalf.
type UXExecutor interface {
	ExecuteUX(action Action, params map[string]float64) bool
}

// PerformanceExecutorFunc adapts a function to a PerformanceExecutor.
type PerformanceExecutorFunc func(action Action, params map[string]float64) bool

// ExecutePerformance calls f.
func (f PerformanceExecutorFunc) ExecutePerformance(action Action, params map[string]float64) bool {
	return f(action, params)
}

// UXExecutorFunc adapts a function to a UXExecutor.
type UXExecutorFunc func(action Action, params map[string]float64) bool

// ExecuteUX calls f.
func (f UXExecutorFunc) ExecuteUX(action Action, params map[string]float64) bool {
	return f(action, params)
}

// NoOpPerformanceExecutor accepts every action without doing anything,
// reporting success. It is the default when no host executor is set.
type NoOpPerformanceExecutor struct{}

// ExecutePerformance always reports success.
func (NoOpPerformanceExecutor) ExecutePerformance(Action, map[string]float64) bool { return true }

// NoOpUXExecutor accepts every action without doing anything,
// reporting success.
type NoOpUXExecutor struct{}

// ExecuteUX always reports success.
func (NoOpUXExecutor) ExecuteUX(Action, map[string]float64) bool { return true }

// DispatchResult records the outcome of dispatching one Proposal.
type DispatchResult struct {
	Proposal Proposal
	Success  bool
}

// CoordinatorMetrics is a point-in-time snapshot of a Coordinator's counters.
type CoordinatorMetrics struct {
	TotalOptimizations    uint64
	ConflictResolutions   uint64
	SystemEfficiencyScore float64
	OptimizationRate      float64 // optimizations per second since creation
}

// Coordinator arbitrates proposals from the Performance and UX loops:
// it resolves same-resource opposite-direction conflicts, orders what
// survives by strategy-biased priority, and dispatches each surviving
// proposal through the matching host executor.
type Coordinator struct {
	mu sync.Mutex

	strategy     Strategy
	perfExecutor PerformanceExecutor
	uxExecutor   UXExecutor

	pending []Proposal

	totalOptimizations  uint64
	conflictResolutions uint64
	createdAt           time.Time

	perfTotal, perfSuccess uint64
	uxTotal, uxSuccess     uint64
	score                  float64
}

// New creates a Coordinator using NoOp executors until
// SetPerformanceExecutor/SetUXExecutor are called.
func New(strategy Strategy) *Coordinator {
	return &Coordinator{
		strategy:     strategy,
		perfExecutor: NoOpPerformanceExecutor{},
		uxExecutor:   NoOpUXExecutor{},
		createdAt:    time.Now(),
	}
}

// SetPerformanceExecutor installs the host's performance/hybrid executor.
func (c *Coordinator) SetPerformanceExecutor(e PerformanceExecutor) {
	c.mu.Lock()
	c.perfExecutor = e
	c.mu.Unlock()
}

// SetUXExecutor installs the host's UX executor.
func (c *Coordinator) SetUXExecutor(e UXExecutor) {
	c.mu.Lock()
	c.uxExecutor = e
	c.mu.Unlock()
}

// SetStrategy updates the coordination strategy used to bias ties.
func (c *Coordinator) SetStrategy(s Strategy) {
	c.mu.Lock()
	c.strategy = s
	c.mu.Unlock()
}

// Submit enqueues proposals for the next Coordinate call.
func (c *Coordinator) Submit(proposals ...Proposal) {
	c.mu.Lock()
	c.pending = append(c.pending, proposals...)
	c.mu.Unlock()
}

// Coordinate resolves conflicts among every pending proposal,
// prioritizes what survives, dispatches each in order, and clears the
// pending queue.
func (c *Coordinator) Coordinate() []DispatchResult {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	strategy := c.strategy
	c.mu.Unlock()

	resolved, conflicts := resolveConflicts(batch)
	perfRate, uxRate := c.familySuccessRates()
	prioritize(resolved, strategy, perfRate, uxRate)

	results := make([]DispatchResult, 0, len(resolved))
	for _, p := range resolved {
		results = append(results, c.dispatch(p))
	}

	c.mu.Lock()
	c.conflictResolutions += uint64(conflicts)
	c.mu.Unlock()

	return results
}

func (c *Coordinator) dispatch(p Proposal) DispatchResult {
	var success bool
	switch p.Action.Family() {
	case FamilyUX:
		c.mu.Lock()
		exec := c.uxExecutor
		c.mu.Unlock()
		success = exec.ExecuteUX(p.Action, p.Parameters)
		c.mu.Lock()
		c.uxTotal++
		if success {
			c.uxSuccess++
		}
		c.mu.Unlock()
	default: // Performance and Hybrid share the performance executor.
		c.mu.Lock()
		exec := c.perfExecutor
		c.mu.Unlock()
		success = exec.ExecutePerformance(p.Action, p.Parameters)
		c.mu.Lock()
		c.perfTotal++
		if success {
			c.perfSuccess++
		}
		c.mu.Unlock()
	}

	c.mu.Lock()
	c.totalOptimizations++
	if success {
		c.score = clamp01(c.score*0.9 + p.ExpectedImprovement*0.1)
	}
	c.mu.Unlock()

	return DispatchResult{Proposal: p, Success: success}
}

func (c *Coordinator) familySuccessRates() (perf, ux float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	perf = 1.0
	ux = 1.0
	if c.perfTotal > 0 {
		perf = float64(c.perfSuccess) / float64(c.perfTotal)
	}
	if c.uxTotal > 0 {
		ux = float64(c.uxSuccess) / float64(c.uxTotal)
	}
	return perf, ux
}

// Metrics returns a snapshot of the coordinator's counters.
func (c *Coordinator) Metrics() CoordinatorMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.createdAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(c.totalOptimizations) / elapsed
	}
	return CoordinatorMetrics{
		TotalOptimizations:    c.totalOptimizations,
		ConflictResolutions:   c.conflictResolutions,
		SystemEfficiencyScore: c.score,
		OptimizationRate:      rate,
	}
}

// resolveConflicts groups proposals by resource and, for any resource
// with both a positive- and negative-direction proposal, keeps only
// the lexicographically best one: highest priority, then highest
// expected improvement, then earliest timestamp (the proposal that
// was already in flight wins over one that just arrived). It returns
// the surviving proposals and how many resource-level conflicts it
// resolved.
func resolveConflicts(proposals []Proposal) ([]Proposal, int) {
	byResource := make(map[string][]Proposal)
	var unresourced []Proposal
	for _, p := range proposals {
		r := p.Action.Resource()
		if r == "" {
			unresourced = append(unresourced, p)
			continue
		}
		byResource[r] = append(byResource[r], p)
	}

	survivors := append([]Proposal{}, unresourced...)
	conflicts := 0

	for _, group := range byResource {
		hasPositive, hasNegative := false, false
		for _, p := range group {
			d := p.direction()
			if d > 0 {
				hasPositive = true
			} else if d < 0 {
				hasNegative = true
			}
		}
		if hasPositive && hasNegative {
			conflicts++
			survivors = append(survivors, bestOf(group))
			continue
		}
		survivors = append(survivors, group...)
	}

	return survivors, conflicts
}

func bestOf(group []Proposal) Proposal {
	best := group[0]
	for _, p := range group[1:] {
		if better(p, best) {
			best = p
		}
	}
	return best
}

// better reports whether a outranks b: higher priority wins, then
// higher expected improvement, then the earlier timestamp.
func better(a, b Proposal) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.ExpectedImprovement != b.ExpectedImprovement {
		return a.ExpectedImprovement > b.ExpectedImprovement
	}
	return a.Timestamp.Before(b.Timestamp)
}

// prioritize sorts proposals in place, highest priority first, biasing
// ties according to strategy. Strategy bonuses stay below 1 so they
// never override a difference in integer priority.
func prioritize(proposals []Proposal, strategy Strategy, perfSuccessRate, uxSuccessRate float64) {
	weight := func(p Proposal) float64 {
		w := float64(p.Priority)
		switch strategy {
		case StrategyPerformanceFirst:
			if p.Action.Family() == FamilyPerformance {
				w += 0.5
			}
		case StrategyUXFirst:
			if p.Action.Family() == FamilyUX {
				w += 0.5
			}
		case StrategyAdaptive:
			switch p.Action.Family() {
			case FamilyPerformance:
				w += perfSuccessRate * 0.5
			case FamilyUX:
				w += uxSuccessRate * 0.5
			}
		}
		return w
	}

	sort.SliceStable(proposals, func(i, j int) bool {
		wi, wj := weight(proposals[i]), weight(proposals[j])
		if wi != wj {
			return wi > wj
		}
		if proposals[i].ExpectedImprovement != proposals[j].ExpectedImprovement {
			return proposals[i].ExpectedImprovement > proposals[j].ExpectedImprovement
		}
		return proposals[i].Timestamp.Before(proposals[j].Timestamp)
	})
}
