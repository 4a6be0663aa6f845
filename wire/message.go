package wire

import "fmt"

// Message is a fixed 4096-byte record exchanged over the Communication
// Fabric. The header occupies the first 32 bytes; Payload fills the
// remainder regardless of how much of it is actually used (PayloadSize
// records the meaningful prefix).
//
// The pre-distillation header also carried a 5-byte reserved[] tail
// alongside these same fields, which does not fit inside the 32-byte
// header this wire format commits to (timestamp..flags already sum to
// exactly 32 bytes). Flags is kept as the header's single
// reserved-for-future-use byte; see DESIGN.md for the resolution.
type Message struct {
	Timestamp   uint64
	MessageID   uint64
	Type        MessageType
	Sender      AgentID
	Recipient   AgentID
	Priority    MessagePriority
	PayloadSize uint16
	Flags       uint8
	Payload     [MaxPayload]byte
}

// FlagDiscoveryReply marks an AGENT_DISCOVERY message as a reply to a
// probe rather than the probe itself, so the Fabric's discovery
// responder does not reply to its own replies.
const FlagDiscoveryReply uint8 = 0x01

// NewMessage builds a Message with the given header fields and copies
// payload into Payload, truncating to MaxPayload if necessary and
// setting PayloadSize to the copied length.
func NewMessage(msgType MessageType, sender, recipient AgentID, priority MessagePriority, payload []byte) *Message {
	m := &Message{
		Type:      msgType,
		Sender:    sender,
		Recipient: recipient,
		Priority:  priority,
	}
	n := copy(m.Payload[:], payload)
	m.PayloadSize = uint16(n)
	return m
}

// IsValid reports whether the message satisfies the wire-format
// invariants: the sender exists, the payload size is within bounds, and
// the type tag belongs to the closed enumerated set. Existence of the
// sender in the registry is a Fabric-level concern the Fabric checks
// when sending; here IsValid only rules out the reserved sentinel.
func (m *Message) IsValid() bool {
	if !m.Priority.IsValid() {
		return false
	}
	if int(m.PayloadSize) > MaxPayload {
		return false
	}
	if !m.Type.IsValid() {
		return false
	}
	if m.Sender == AgentIDUnknown {
		return false
	}
	return true
}

// PayloadBytes returns the meaningful prefix of Payload, per PayloadSize.
func (m *Message) PayloadBytes() []byte {
	n := int(m.PayloadSize)
	if n > MaxPayload {
		n = MaxPayload
	}
	return m.Payload[:n]
}

func (m *Message) String() string {
	return fmt.Sprintf("Message{type=0x%04X sender=%d recipient=%d priority=%d size=%d}",
		uint32(m.Type), m.Sender, m.Recipient, m.Priority, m.PayloadSize)
}
