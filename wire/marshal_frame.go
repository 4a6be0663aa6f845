package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

func putFloat32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
}

func getFloat32(buf []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf))
}

// MarshalFrame encodes f into a fixed FrameSize-byte buffer.
func MarshalFrame(f *Frame) []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint64(buf[0:8], f.Timestamp)

	off := 8
	p := buf[off : off+sectionSize]
	putFloat32(p[0:4], f.Performance.GPUUtilization)
	binary.LittleEndian.PutUint64(p[4:12], f.Performance.MemoryUsage)
	putFloat32(p[12:16], f.Performance.FrameTime)
	putFloat32(p[16:20], f.Performance.ComputeTime)
	binary.LittleEndian.PutUint32(p[20:24], f.Performance.QueueDepth)
	// p[24:32] reserved/padding, left zero.

	off += sectionSize
	i := buf[off : off+sectionSize]
	putFloat32(i[0:4], f.Interaction.CursorX)
	putFloat32(i[4:8], f.Interaction.CursorY)
	binary.LittleEndian.PutUint32(i[8:12], f.Interaction.ButtonMask)
	binary.LittleEndian.PutUint32(i[12:16], f.Interaction.KeyMask)
	putFloat32(i[16:20], f.Interaction.InteractionIntensity)
	binary.LittleEndian.PutUint32(i[20:24], f.Interaction.EventCount)

	off += sectionSize
	v := buf[off : off+sectionSize]
	putFloat32(v[0:4], f.Visual.Luminance)
	putFloat32(v[4:8], f.Visual.Contrast)
	binary.LittleEndian.PutUint32(v[8:12], f.Visual.PixelsChanged)
	binary.LittleEndian.PutUint32(v[12:16], f.Visual.TrianglesRendered)
	binary.LittleEndian.PutUint32(v[16:20], f.Visual.DominantColorRGBA)

	off += sectionSize
	u := buf[off : off+sectionSize]
	putFloat32(u[0:4], f.UX.Usability)
	putFloat32(u[4:8], f.UX.Engagement)
	putFloat32(u[8:12], f.UX.Frustration)
	binary.LittleEndian.PutUint32(u[12:16], f.UX.PatternCount)
	binary.LittleEndian.PutUint64(u[16:24], f.UX.TotalInteractionTime)

	return buf
}

// UnmarshalFrame decodes buf into a new Frame. buf must be exactly
// FrameSize bytes.
func UnmarshalFrame(buf []byte) (*Frame, error) {
	if len(buf) != FrameSize {
		return nil, fmt.Errorf("wire: frame buffer has %d bytes, want %d", len(buf), FrameSize)
	}
	f := &Frame{Timestamp: binary.LittleEndian.Uint64(buf[0:8])}

	off := 8
	p := buf[off : off+sectionSize]
	f.Performance = PerformanceSection{
		GPUUtilization: getFloat32(p[0:4]),
		MemoryUsage:    binary.LittleEndian.Uint64(p[4:12]),
		FrameTime:      getFloat32(p[12:16]),
		ComputeTime:    getFloat32(p[16:20]),
		QueueDepth:     binary.LittleEndian.Uint32(p[20:24]),
	}

	off += sectionSize
	i := buf[off : off+sectionSize]
	f.Interaction = InteractionSection{
		CursorX:              getFloat32(i[0:4]),
		CursorY:              getFloat32(i[4:8]),
		ButtonMask:           binary.LittleEndian.Uint32(i[8:12]),
		KeyMask:              binary.LittleEndian.Uint32(i[12:16]),
		InteractionIntensity: getFloat32(i[16:20]),
		EventCount:           binary.LittleEndian.Uint32(i[20:24]),
	}

	off += sectionSize
	v := buf[off : off+sectionSize]
	f.Visual = VisualSection{
		Luminance:         getFloat32(v[0:4]),
		Contrast:          getFloat32(v[4:8]),
		PixelsChanged:     binary.LittleEndian.Uint32(v[8:12]),
		TrianglesRendered: binary.LittleEndian.Uint32(v[12:16]),
		DominantColorRGBA: binary.LittleEndian.Uint32(v[16:20]),
	}

	off += sectionSize
	u := buf[off : off+sectionSize]
	f.UX = UXSection{
		Usability:            getFloat32(u[0:4]),
		Engagement:           getFloat32(u[4:8]),
		Frustration:          getFloat32(u[8:12]),
		PatternCount:         binary.LittleEndian.Uint32(u[12:16]),
		TotalInteractionTime: binary.LittleEndian.Uint64(u[16:24]),
	}

	return f, nil
}
