package telemetry

import (
	"bytes"
	"compress/gzip"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kestrelsys/agentmesh/internal/coreerr"
	"github.com/kestrelsys/agentmesh/ring"
	"github.com/kestrelsys/agentmesh/wire"
)

// Pipeline accumulates per-frame samples from up to four sources and
// publishes a fixed-layout wire.Frame each collection tick.
type Pipeline struct {
	cfg Config

	accMu       sync.Mutex
	accumulator wire.Frame

	buffer *ring.Ring[*wire.Frame]

	subMu       sync.RWMutex
	subscribers []Subscriber

	batchMu sync.RWMutex
	batch   BatchHandler

	collectedCount atomic.Uint64
	droppedCount   atomic.Uint64
}

// New creates a Pipeline. cfg may be nil for DefaultConfig.
func New(cfg *Config) *Pipeline {
	c := DefaultConfig()
	if cfg != nil {
		c = cfg
	}
	return &Pipeline{
		cfg:    *c,
		buffer: ring.New[*wire.Frame](c.BufferCapacity),
	}
}

// Subscribe adds a real-time subscriber, invoked synchronously on
// every collected frame.
func (p *Pipeline) Subscribe(s Subscriber) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	p.subscribers = append(p.subscribers, s)
}

// SetBatchHandler sets the handler the processing worker invokes with
// each drained batch. Passing nil disables batch processing.
func (p *Pipeline) SetBatchHandler(h BatchHandler) {
	p.batchMu.Lock()
	defer p.batchMu.Unlock()
	p.batch = h
}

// RecordPerformance overwrites the performance section of the frame
// currently being accumulated.
func (p *Pipeline) RecordPerformance(s wire.PerformanceSection) {
	p.accMu.Lock()
	p.accumulator.Performance = s
	p.accMu.Unlock()
}

// RecordInteraction overwrites the interaction section of the frame
// currently being accumulated.
func (p *Pipeline) RecordInteraction(s wire.InteractionSection) {
	p.accMu.Lock()
	p.accumulator.Interaction = s
	p.accMu.Unlock()
}

// RecordVisual overwrites the visual section of the frame currently
// being accumulated.
func (p *Pipeline) RecordVisual(s wire.VisualSection) {
	p.accMu.Lock()
	p.accumulator.Visual = s
	p.accMu.Unlock()
}

// RecordUX overwrites the UX section of the frame currently being
// accumulated.
func (p *Pipeline) RecordUX(s wire.UXSection) {
	p.accMu.Lock()
	p.accumulator.UX = s
	p.accMu.Unlock()
}

// CollectFrame finalizes the current accumulator into a Frame,
// notifies real-time subscribers synchronously, and publishes it onto
// the lock-free buffer for the processing worker. It returns the
// published frame, or an error if the buffer is full (the frame is
// still delivered to subscribers either way).
func (p *Pipeline) CollectFrame() (*wire.Frame, error) {
	p.accMu.Lock()
	frame := p.accumulator
	p.accMu.Unlock()
	frame.Timestamp = uint64(time.Now().UnixNano())

	f := &frame
	p.collectedCount.Add(1)

	p.subMu.RLock()
	subs := p.subscribers
	p.subMu.RUnlock()
	for _, s := range subs {
		s.OnFrame(f)
	}

	if err := p.buffer.TryEnqueue(f); err != nil {
		p.droppedCount.Add(1)
		return f, coreerr.New("telemetry.CollectFrame", coreerr.CodeQueueFull, "frame buffer full")
	}
	return f, nil
}

// TryNextFrame dequeues a single frame from the buffer, or returns an
// error if none is available.
func (p *Pipeline) TryNextFrame() (*wire.Frame, error) {
	f, err := p.buffer.TryDequeue()
	if err != nil {
		return nil, coreerr.New("telemetry.TryNextFrame", coreerr.CodeQueueFull, "buffer empty")
	}
	return f, nil
}

// DrainPending dequeues up to max frames (0 means BatchSize) from the
// buffer and returns them in arrival order.
func (p *Pipeline) DrainPending(max int) []*wire.Frame {
	if max <= 0 {
		max = p.cfg.BatchSize
	}
	out := make([]*wire.Frame, 0, max)
	for i := 0; i < max; i++ {
		f, err := p.buffer.TryDequeue()
		if err != nil {
			break
		}
		out = append(out, f)
	}
	return out
}

// Stats reports collection/drop counters.
type Stats struct {
	Collected uint64
	Dropped   uint64
	Buffered  int
}

// Stats returns a snapshot of the pipeline's counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Collected: p.collectedCount.Load(),
		Dropped:   p.droppedCount.Load(),
		Buffered:  p.buffer.Size(),
	}
}

// Serialize encodes f using the wire format, gzip-compressing it when
// the pipeline is configured with Compress.
func (p *Pipeline) Serialize(f *wire.Frame) ([]byte, error) {
	raw := wire.MarshalFrame(f)
	if !p.cfg.Compress {
		return raw, nil
	}
	buf := getGzipBuf()
	defer putGzipBuf(buf)
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, coreerr.Wrap("telemetry.Serialize", coreerr.CodeInvalidMessage, err)
	}
	if err := zw.Close(); err != nil {
		return nil, coreerr.Wrap("telemetry.Serialize", coreerr.CodeInvalidMessage, err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// Deserialize decodes a frame previously produced by Serialize.
func (p *Pipeline) Deserialize(data []byte) (*wire.Frame, error) {
	raw, err := p.decompress(data)
	if err != nil {
		return nil, err
	}
	return wire.UnmarshalFrame(raw)
}

// SerializeFrames encodes a vector of frames back to back (N*FrameSize
// raw bytes), gzip-compressing the whole blob when the pipeline is
// configured with Compress.
func (p *Pipeline) SerializeFrames(frames []*wire.Frame) ([]byte, error) {
	raw := make([]byte, 0, len(frames)*wire.FrameSize)
	for _, f := range frames {
		raw = append(raw, wire.MarshalFrame(f)...)
	}
	if !p.cfg.Compress {
		return raw, nil
	}
	buf := getGzipBuf()
	defer putGzipBuf(buf)
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, coreerr.Wrap("telemetry.SerializeFrames", coreerr.CodeInvalidMessage, err)
	}
	if err := zw.Close(); err != nil {
		return nil, coreerr.Wrap("telemetry.SerializeFrames", coreerr.CodeInvalidMessage, err)
	}
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// DeserializeFrames decodes a vector of frames previously produced by
// SerializeFrames. It rejects input whose decompressed length is not an
// exact multiple of FrameSize.
func (p *Pipeline) DeserializeFrames(data []byte) ([]*wire.Frame, error) {
	raw, err := p.decompress(data)
	if err != nil {
		return nil, err
	}
	if len(raw)%wire.FrameSize != 0 {
		return nil, coreerr.New("telemetry.DeserializeFrames", coreerr.CodeInvalidMessage, "length not a multiple of FrameSize")
	}
	n := len(raw) / wire.FrameSize
	out := make([]*wire.Frame, 0, n)
	for i := 0; i < n; i++ {
		chunk := raw[i*wire.FrameSize : (i+1)*wire.FrameSize]
		f, err := wire.UnmarshalFrame(chunk)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// decompress returns data unchanged when the pipeline is not configured
// with Compress, or its gunzipped contents otherwise.
func (p *Pipeline) decompress(data []byte) ([]byte, error) {
	if !p.cfg.Compress {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, coreerr.Wrap("telemetry.decompress", coreerr.CodeInvalidMessage, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, coreerr.Wrap("telemetry.decompress", coreerr.CodeInvalidMessage, err)
	}
	return raw, nil
}
