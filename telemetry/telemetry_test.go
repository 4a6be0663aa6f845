package telemetry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kestrelsys/agentmesh/wire"
)

func TestFrameSerializeRoundTrip(t *testing.T) {
	p := New(nil)
	p.RecordPerformance(wire.PerformanceSection{GPUUtilization: 0.5, QueueDepth: 2})
	p.RecordUX(wire.UXSection{Engagement: 0.9})

	f, err := p.CollectFrame()
	require.NoError(t, err)

	raw, err := p.Serialize(f)
	require.NoError(t, err)

	got, err := p.Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestFrameSerializeRoundTripCompressed(t *testing.T) {
	p := New(&Config{Compress: true, BufferCapacity: 8, BatchSize: 4})
	p.RecordVisual(wire.VisualSection{Luminance: 0.3, PixelsChanged: 10})

	f, err := p.CollectFrame()
	require.NoError(t, err)

	raw, err := p.Serialize(f)
	require.NoError(t, err)

	got, err := p.Deserialize(raw)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestSerializeFramesRoundTrip(t *testing.T) {
	p := New(nil)
	var frames []*wire.Frame
	for i := 0; i < 5; i++ {
		p.RecordPerformance(wire.PerformanceSection{QueueDepth: uint32(i)})
		f, err := p.CollectFrame()
		require.NoError(t, err)
		frames = append(frames, f)
	}

	raw, err := p.SerializeFrames(frames)
	require.NoError(t, err)
	require.Len(t, raw, wire.FrameSize*len(frames))

	got, err := p.DeserializeFrames(raw)
	require.NoError(t, err)
	require.Equal(t, frames, got)
}

func TestSerializeFramesRoundTripCompressed(t *testing.T) {
	p := New(&Config{Compress: true, BufferCapacity: 8, BatchSize: 4})
	var frames []*wire.Frame
	for i := 0; i < 3; i++ {
		p.RecordVisual(wire.VisualSection{PixelsChanged: uint32(i)})
		f, err := p.CollectFrame()
		require.NoError(t, err)
		frames = append(frames, f)
	}

	raw, err := p.SerializeFrames(frames)
	require.NoError(t, err)

	got, err := p.DeserializeFrames(raw)
	require.NoError(t, err)
	require.Equal(t, frames, got)
}

func TestDeserializeFramesRejectsPartialFrame(t *testing.T) {
	p := New(nil)
	_, err := p.DeserializeFrames(make([]byte, wire.FrameSize+1))
	require.Error(t, err)
}

func TestRealTimeSubscriberCalledSynchronously(t *testing.T) {
	p := New(nil)
	var got *wire.Frame
	p.Subscribe(SubscriberFunc(func(f *wire.Frame) { got = f }))

	p.RecordPerformance(wire.PerformanceSection{FrameTime: 16.6})
	f, err := p.CollectFrame()
	require.NoError(t, err)
	require.Same(t, f, got)
}

func TestDrainPendingReturnsBatchInOrder(t *testing.T) {
	p := New(&Config{BufferCapacity: 8, BatchSize: 4})
	for i := 0; i < 4; i++ {
		p.RecordPerformance(wire.PerformanceSection{QueueDepth: uint32(i)})
		_, err := p.CollectFrame()
		require.NoError(t, err)
	}

	batch := p.DrainPending(0)
	require.Len(t, batch, 4)
	for i, f := range batch {
		require.Equal(t, uint32(i), f.Performance.QueueDepth)
	}
}

func TestCollectFrameReportsDroppedWhenBufferFull(t *testing.T) {
	p := New(&Config{BufferCapacity: 2, BatchSize: 2})
	for i := 0; i < 2; i++ {
		_, err := p.CollectFrame()
		require.NoError(t, err)
	}
	_, err := p.CollectFrame()
	require.Error(t, err)
	require.Equal(t, uint64(1), p.Stats().Dropped)
}

func TestPipelineWorkersCollectAndBatch(t *testing.T) {
	p := New(&Config{
		CollectionHz:   200,
		BufferCapacity: 64,
		BatchSize:      10,
		BatchInterval:  20 * time.Millisecond,
	})

	var mu sync.Mutex
	var batches int
	p.SetBatchHandler(BatchHandlerFunc(func(frames []*wire.Frame) {
		mu.Lock()
		batches++
		mu.Unlock()
	}))

	r := p.Start(context.Background())
	defer r.Close()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return batches > 0
	}, time.Second, 5*time.Millisecond)
}
