package wire

import (
	"encoding/binary"
	"fmt"
)

// MarshalMessage encodes m into a fixed MessageSize-byte buffer using
// explicit little-endian field writes, mirroring the teacher's
// per-field PutUint32/PutUint64 style rather than a reflection-based
// codec. It never returns an error: every Message field width is fixed.
func MarshalMessage(m *Message) []byte {
	buf := make([]byte, MessageSize)
	binary.LittleEndian.PutUint64(buf[0:8], m.Timestamp)
	binary.LittleEndian.PutUint64(buf[8:16], m.MessageID)
	binary.LittleEndian.PutUint32(buf[16:20], uint32(m.Type))
	binary.LittleEndian.PutUint32(buf[20:24], uint32(m.Sender))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(m.Recipient))
	buf[28] = byte(m.Priority)
	binary.LittleEndian.PutUint16(buf[29:31], m.PayloadSize)
	buf[31] = m.Flags
	copy(buf[HeaderSize:], m.Payload[:])
	return buf
}

// UnmarshalMessage decodes buf into a new Message. buf must be exactly
// MessageSize bytes.
func UnmarshalMessage(buf []byte) (*Message, error) {
	if len(buf) != MessageSize {
		return nil, fmt.Errorf("wire: message buffer has %d bytes, want %d", len(buf), MessageSize)
	}
	m := &Message{
		Timestamp:   binary.LittleEndian.Uint64(buf[0:8]),
		MessageID:   binary.LittleEndian.Uint64(buf[8:16]),
		Type:        MessageType(binary.LittleEndian.Uint32(buf[16:20])),
		Sender:      AgentID(binary.LittleEndian.Uint32(buf[20:24])),
		Recipient:   AgentID(binary.LittleEndian.Uint32(buf[24:28])),
		Priority:    MessagePriority(buf[28]),
		PayloadSize: binary.LittleEndian.Uint16(buf[29:31]),
		Flags:       buf[31],
	}
	copy(m.Payload[:], buf[HeaderSize:])
	return m, nil
}
