// Package agentmesh wires together the Communication Fabric, the
// Metrics Pipeline, and the dual optimization loops into one
// cooperating core, mirroring the way the teacher's CreateAndServe
// assembles a controller, queue runners, and metrics into one Device.
package agentmesh

import (
	"context"
	"sync"

	"github.com/kestrelsys/agentmesh/fabric"
	"github.com/kestrelsys/agentmesh/internal/logging"
	"github.com/kestrelsys/agentmesh/optimize"
	"github.com/kestrelsys/agentmesh/registry"
	"github.com/kestrelsys/agentmesh/telemetry"
)

// Options configures a Core's components. Any nil sub-config falls
// back to that component's own defaults.
type Options struct {
	Registry  *registry.Config
	Fabric    *fabric.Config
	Telemetry *telemetry.Config
	Strategy  optimize.Strategy
	Logger    *logging.Logger
}

// Core is one assembled agent cooperation instance: a registry, a
// communication fabric, a telemetry pipeline, and the dual
// optimization loops feeding a coordinator.
type Core struct {
	Registry    *registry.Registry
	Fabric      *fabric.Fabric
	Telemetry   *telemetry.Pipeline
	Performance *optimize.PerformanceLoop
	UX          *optimize.UXLoop
	Coordinator *optimize.Coordinator

	logger *logging.Logger

	mu              sync.Mutex
	telemetryRunner *telemetry.Runner
	started         bool
}

// New assembles a Core from Options. Nothing is started; call Start
// to launch the fabric and telemetry workers.
func New(opts *Options) *Core {
	if opts == nil {
		opts = &Options{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	reg := registry.New(opts.Registry)
	f := fabric.New(opts.Fabric, reg, logger)
	pipeline := telemetry.New(opts.Telemetry)
	coordinator := optimize.New(opts.Strategy)

	return &Core{
		Registry:    reg,
		Fabric:      f,
		Telemetry:   pipeline,
		Performance: optimize.NewPerformanceLoop(opts.Strategy),
		UX:          optimize.NewUXLoop(),
		Coordinator: coordinator,
		logger:      logger.WithComponent("core"),
	}
}

// Start launches the fabric's dispatch/heartbeat/discovery workers
// and the telemetry pipeline's collection/processing workers.
func (c *Core) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return nil
	}
	if err := c.Fabric.Start(ctx); err != nil {
		return err
	}
	c.telemetryRunner = c.Telemetry.Start(ctx)
	c.started = true
	c.logger.Info("core started")
	return nil
}

// Stop cancels every background worker without waiting for them to exit.
func (c *Core) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Fabric.Stop()
	if c.telemetryRunner != nil {
		c.telemetryRunner.Stop()
	}
}

// Close stops the core and waits for every worker to exit.
func (c *Core) Close() error {
	c.Stop()
	_ = c.Fabric.Close()
	c.mu.Lock()
	runner := c.telemetryRunner
	c.mu.Unlock()
	if runner != nil {
		_ = runner.Close()
	}
	c.logger.Info("core closed")
	return nil
}

// RunOptimizationCycle gathers proposals from both optimization loops,
// submits them to the Coordinator, and runs one coordination pass,
// returning the dispatch outcome for every surviving proposal.
func (c *Core) RunOptimizationCycle() []optimize.DispatchResult {
	proposals := append(c.Performance.GenerateProposals(), c.UX.GenerateProposals()...)
	if len(proposals) == 0 {
		return nil
	}
	c.Coordinator.Submit(proposals...)
	results := c.Coordinator.Coordinate()
	for _, r := range results {
		switch r.Proposal.Action.Family() {
		case optimize.FamilyUX:
			// UX loop metrics are informational only; success/failure
			// feedback flows back through the executor's own side
			// effects rather than a loop-level counter.
		default:
			c.Performance.RecordResult(r.Success, r.Proposal.ExpectedImprovement)
		}
	}
	return results
}
