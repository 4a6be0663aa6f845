package optimize

import (
	"sync"
	"time"
)

// DefaultHistoryCapacity bounds each UX metric's trend history.
const DefaultHistoryCapacity = 30

// UXMetrics is a point-in-time snapshot of a UXLoop's tracked values.
type UXMetrics struct {
	EngagementLevel    float64
	FrustrationIndex   float64
	UsabilityScore     float64
	InteractionLatency float64
	VisualConsistency  float64
	OverallUXScore     float64
}

// UXLoop tracks clamped [0,1] user-experience signals and proposes
// interface/interaction adjustments when the latest frustration sample
// is high or the latest engagement sample is low. A bounded history per
// metric feeds a least-squares trend that picks which action to propose.
type UXLoop struct {
	mu sync.Mutex

	engagement  float64
	frustration float64
	usability   float64
	latencyMs   float64
	consistency float64

	engagementHistory  []float64
	frustrationHistory []float64
	usabilityHistory   []float64

	historyCap int
	lastUpdate time.Time
}

// NewUXLoop creates a UXLoop with the default history capacity.
func NewUXLoop() *UXLoop {
	return &UXLoop{historyCap: DefaultHistoryCapacity, lastUpdate: time.Now()}
}

// UpdateEngagementLevel records a clamped [0,1] engagement sample.
func (l *UXLoop) UpdateEngagementLevel(level float64) {
	l.mu.Lock()
	l.engagement = clamp01(level)
	l.engagementHistory = pushHistory(l.engagementHistory, l.engagement, l.historyCap)
	l.lastUpdate = time.Now()
	l.mu.Unlock()
}

// UpdateFrustrationIndex records a clamped [0,1] frustration sample.
func (l *UXLoop) UpdateFrustrationIndex(index float64) {
	l.mu.Lock()
	l.frustration = clamp01(index)
	l.frustrationHistory = pushHistory(l.frustrationHistory, l.frustration, l.historyCap)
	l.lastUpdate = time.Now()
	l.mu.Unlock()
}

// UpdateUsabilityScore records a clamped [0,1] usability sample.
func (l *UXLoop) UpdateUsabilityScore(score float64) {
	l.mu.Lock()
	l.usability = clamp01(score)
	l.usabilityHistory = pushHistory(l.usabilityHistory, l.usability, l.historyCap)
	l.lastUpdate = time.Now()
	l.mu.Unlock()
}

// UpdateInteractionLatency records the latest interaction latency, in
// milliseconds. Latency is not clamped to [0,1] and does not factor into
// Score; it is reported through Metrics for observability only.
func (l *UXLoop) UpdateInteractionLatency(ms float64) {
	l.mu.Lock()
	l.latencyMs = ms
	l.mu.Unlock()
}

// UpdateVisualConsistency records a clamped [0,1] visual-consistency sample.
func (l *UXLoop) UpdateVisualConsistency(consistency float64) {
	l.mu.Lock()
	l.consistency = clamp01(consistency)
	l.mu.Unlock()
}

func pushHistory(h []float64, v float64, cap int) []float64 {
	h = append(h, v)
	if len(h) > cap {
		h = h[len(h)-cap:]
	}
	return h
}

// leastSquaresSlope returns the slope of the best-fit line through
// data, treated as evenly spaced samples at x=0,1,2,...
func leastSquaresSlope(data []float64) float64 {
	n := len(data)
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range data {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (nf*sumXY - sumX*sumY) / denom
}

// Score computes the overall UX score from the current samples:
// the average of engagement, the inverse of frustration, and usability.
func (l *UXLoop) Score() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.score()
}

func (l *UXLoop) score() float64 {
	return clamp01((l.engagement + (1 - l.frustration) + l.usability) / 3)
}

// Metrics returns a snapshot of the loop's current values.
func (l *UXLoop) Metrics() UXMetrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return UXMetrics{
		EngagementLevel:    l.engagement,
		FrustrationIndex:   l.frustration,
		UsabilityScore:     l.usability,
		InteractionLatency: l.latencyMs,
		VisualConsistency:  l.consistency,
		OverallUXScore:     l.score(),
	}
}

// GenerateProposals emits one UX optimization proposal when frustration
// exceeds 0.7 and one when a recorded engagement sample is below 0.5
// (so up to two per call), biasing the specific action toward whichever
// trend (frustration rising, engagement falling) is steeper. Before any
// engagement sample has been recorded, engagement triggers nothing.
func (l *UXLoop) GenerateProposals() []Proposal {
	l.mu.Lock()
	defer l.mu.Unlock()

	var proposals []Proposal
	now := time.Now()

	frustrationTrend := leastSquaresSlope(l.frustrationHistory)
	engagementTrend := leastSquaresSlope(l.engagementHistory)

	if l.frustration > 0.7 {
		action := ActionAdjustControlSensitivity
		if frustrationTrend > 0 && absf(frustrationTrend) >= absf(engagementTrend) {
			action = ActionChangeVisualFeedback
		}
		proposals = append(proposals, Proposal{
			Action: action,
			Parameters: map[string]float64{
				"direction":   -1,
				"frustration": l.frustration,
				"trend":       frustrationTrend,
			},
			ExpectedImprovement: clamp01(l.frustration - 0.5),
			Priority:            priorityFromSeverity(l.frustration),
			Timestamp:           now,
		})
	}

	if len(l.engagementHistory) > 0 && l.engagement < 0.5 {
		action := ActionUpdateInteractionZones
		if engagementTrend < 0 {
			action = ActionModifyUILayout
		}
		proposals = append(proposals, Proposal{
			Action: action,
			Parameters: map[string]float64{
				"direction":  1,
				"engagement": l.engagement,
				"trend":      engagementTrend,
			},
			ExpectedImprovement: clamp01(0.5 - l.engagement),
			Priority:            priorityFromSeverity(1 - l.engagement),
			Timestamp:           now,
		})
	}

	return proposals
}

func priorityFromSeverity(severity float64) uint32 {
	return clampPriority(uint32(clamp01(severity)*3) + 1)
}
