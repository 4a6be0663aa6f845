package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageSizesAreFixed(t *testing.T) {
	require.Equal(t, 32, HeaderSize)
	require.Equal(t, 4064, MaxPayload)
	require.Equal(t, 4096, MessageSize)
	require.Equal(t, HeaderSize+MaxPayload, MessageSize)
}

func TestFrameSizeIsFixed(t *testing.T) {
	require.Equal(t, 136, FrameSize)
	require.Equal(t, 8+4*32, FrameSize)
}

func TestMessageRoundTrip(t *testing.T) {
	payload := []byte("optimize grid_size -1")
	m := NewMessage(MessageTypeOptimizationHint, AgentID(1), AgentID(2), PriorityHigh, payload)
	m.Timestamp = 1234567890
	m.MessageID = 42

	buf := MarshalMessage(m)
	require.Len(t, buf, MessageSize)

	got, err := UnmarshalMessage(buf)
	require.NoError(t, err)
	require.Equal(t, m.Timestamp, got.Timestamp)
	require.Equal(t, m.MessageID, got.MessageID)
	require.Equal(t, m.Type, got.Type)
	require.Equal(t, m.Sender, got.Sender)
	require.Equal(t, m.Recipient, got.Recipient)
	require.Equal(t, m.Priority, got.Priority)
	require.Equal(t, m.PayloadSize, got.PayloadSize)
	require.Equal(t, payload, got.PayloadBytes())
}

func TestMessageRoundTripEmptyPayload(t *testing.T) {
	m := NewMessage(MessageTypeAgentHeartbeat, AgentID(3), AgentIDBroadcast, PriorityLow, nil)
	buf := MarshalMessage(m)
	got, err := UnmarshalMessage(buf)
	require.NoError(t, err)
	require.Equal(t, uint16(0), got.PayloadSize)
	require.Empty(t, got.PayloadBytes())
}

func TestMessagePayloadTruncated(t *testing.T) {
	oversized := make([]byte, MaxPayload+100)
	for i := range oversized {
		oversized[i] = byte(i)
	}
	m := NewMessage(MessageTypeErrorReport, AgentID(1), AgentID(2), PriorityNormal, oversized)
	require.Equal(t, MaxPayload, int(m.PayloadSize))
	require.True(t, m.IsValid())
}

func TestMessageIsValidRejectsBadPriority(t *testing.T) {
	m := NewMessage(MessageTypeErrorReport, AgentID(1), AgentID(2), PriorityNormal, nil)
	m.Priority = MessagePriority(200)
	require.False(t, m.IsValid())
}

func TestUnmarshalMessageRejectsWrongSize(t *testing.T) {
	_, err := UnmarshalMessage(make([]byte, MessageSize-1))
	require.Error(t, err)
}

func TestFrameRoundTrip(t *testing.T) {
	f := &Frame{
		Timestamp: 999,
		Performance: PerformanceSection{
			GPUUtilization: 0.75,
			MemoryUsage:    1 << 20,
			FrameTime:      16.67,
			ComputeTime:    4.2,
			QueueDepth:     3,
		},
		Interaction: InteractionSection{
			CursorX:              0.5,
			CursorY:              0.25,
			ButtonMask:           0b101,
			KeyMask:              0xFF,
			InteractionIntensity: 0.9,
			EventCount:           12,
		},
		Visual: VisualSection{
			Luminance:         0.6,
			Contrast:          0.4,
			PixelsChanged:     4096,
			TrianglesRendered: 250000,
			DominantColorRGBA: 0xAABBCCDD,
		},
		UX: UXSection{
			Usability:            0.8,
			Engagement:           0.7,
			Frustration:          0.2,
			PatternCount:         5,
			TotalInteractionTime: 60000,
		},
	}

	buf := MarshalFrame(f)
	require.Len(t, buf, FrameSize)

	got, err := UnmarshalFrame(buf)
	require.NoError(t, err)
	require.Equal(t, f, got)
}

func TestUnmarshalFrameRejectsWrongSize(t *testing.T) {
	_, err := UnmarshalFrame(make([]byte, FrameSize+1))
	require.Error(t, err)
}
