// Package telemetry implements the Metrics Pipeline: fixed-layout
// telemetry frames accumulated from four data sources, published onto
// a lock-free buffer, and fanned out to synchronous real-time
// subscribers and a batched processing worker.
package telemetry

import (
	"time"

	"github.com/kestrelsys/agentmesh/wire"
)

// Subscriber receives every frame synchronously as it is collected.
// Implementations must not block the collection worker for long —
// this mirrors the teacher's Observer contract, whose doc comment
// requires implementations be safe to call from the hot path.
type Subscriber interface {
	OnFrame(f *wire.Frame)
}

// SubscriberFunc adapts a function to a Subscriber.
type SubscriberFunc func(f *wire.Frame)

// OnFrame calls fn.
func (fn SubscriberFunc) OnFrame(f *wire.Frame) { fn(f) }

// NoOpSubscriber discards every frame. It is the default when no
// real-time subscriber is configured.
type NoOpSubscriber struct{}

// OnFrame does nothing.
func (NoOpSubscriber) OnFrame(*wire.Frame) {}

// BatchHandler receives a batch of frames drained from the buffer by
// the processing worker.
type BatchHandler interface {
	OnBatch(frames []*wire.Frame)
}

// BatchHandlerFunc adapts a function to a BatchHandler.
type BatchHandlerFunc func(frames []*wire.Frame)

// OnBatch calls fn.
func (fn BatchHandlerFunc) OnBatch(frames []*wire.Frame) { fn(frames) }

// Config configures a Pipeline's cadence and buffering.
type Config struct {
	// CollectionHz is how many frames per second the collection worker
	// finalizes and publishes.
	CollectionHz float64
	// BufferCapacity bounds the lock-free frame buffer between the
	// collection and processing workers.
	BufferCapacity int
	// BatchSize is the maximum number of frames the processing worker
	// drains per tick before invoking its BatchHandler.
	BatchSize int
	// BatchInterval is how often the processing worker attempts to
	// drain a batch, independent of CollectionHz.
	BatchInterval time.Duration
	// Compress selects gzip-compressed wire encoding for Serialize.
	Compress bool
}

// DefaultConfig returns a Pipeline configuration collecting at 60Hz
// with a 128-frame buffer, batched every 500ms up to 30 frames.
func DefaultConfig() *Config {
	return &Config{
		CollectionHz:   60,
		BufferCapacity: 128,
		BatchSize:      30,
		BatchInterval:  500 * time.Millisecond,
		Compress:       false,
	}
}
