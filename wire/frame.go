package wire

// Frame is a fixed 136-byte telemetry record: an 8-byte timestamp
// followed by four 32-byte sections. Every section is padded out to
// 32 bytes so that FrameSize stays a constant regardless of which
// fields a given collector actually populates — this is what lets the
// Metrics Pipeline treat frames as opaque fixed records end to end.
type Frame struct {
	Timestamp   uint64
	Performance PerformanceSection
	Interaction InteractionSection
	Visual      VisualSection
	UX          UXSection
}

// PerformanceSection carries frame-rate and resource-pressure samples.
type PerformanceSection struct {
	GPUUtilization float32
	MemoryUsage    uint64
	FrameTime      float32
	ComputeTime    float32
	QueueDepth     uint32
}

// InteractionSection carries raw input-device samples.
type InteractionSection struct {
	CursorX              float32
	CursorY              float32
	ButtonMask           uint32
	KeyMask              uint32
	InteractionIntensity float32
	EventCount           uint32
}

// VisualSection carries on-screen rendering samples.
type VisualSection struct {
	Luminance         float32
	Contrast          float32
	PixelsChanged     uint32
	TrianglesRendered uint32
	DominantColorRGBA uint32
}

// UXSection carries derived user-experience samples.
type UXSection struct {
	Usability            float32
	Engagement           float32
	Frustration          float32
	PatternCount         uint32
	TotalInteractionTime uint64
}
