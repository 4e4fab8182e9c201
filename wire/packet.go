package wire

import (
	"github.com/ambercast/relay/common"
	"github.com/ambercast/relay/errcode"
)

// Packet is the decoded unit of protocol communication.
type Packet struct {
	Opcode Opcode

	// Namespace is nil when the packet carries no namespace field. When
	// present it always starts with '/'.
	Namespace *string

	// ID is nil when the packet carries no acknowledgment id.
	ID *uint64

	// AttachmentsExpected is the declared count of binary frames that
	// follow this packet. It is always 0 for non-binary opcodes.
	AttachmentsExpected int

	// HasPayload distinguishes an absent payload from a JSON `null`
	// payload.
	HasPayload bool

	// Payload is the decoded JSON tree: nil, bool, float64, string,
	// []interface{}, or map[string]interface{}. Meaningful only when
	// HasPayload is true.
	Payload interface{}

	// Attachments accumulates binary frames as they arrive; its length
	// never exceeds AttachmentsExpected.
	Attachments [][]byte
}

// EventName returns the first element of an Event/BinaryEvent payload
// array, and whether it was present and a string.
func (p *Packet) EventName() (string, bool) {
	arr, ok := p.Payload.([]interface{})
	if !ok || len(arr) == 0 {
		return "", false
	}
	name, ok := arr[0].(string)
	return name, ok
}

// EventParams returns the elements of an Event/BinaryEvent payload array
// following the event name.
func (p *Packet) EventParams() []interface{} {
	arr, ok := p.Payload.([]interface{})
	if !ok || len(arr) <= 1 {
		return nil
	}
	return arr[1:]
}

// Validate checks the packet against the invariants of the data model,
// independent of how the packet was constructed (decoded from the wire or
// built in memory for encoding).
func (p *Packet) Validate() error {
	if !p.Opcode.Valid() {
		return errcode.ErrCodeInvalidOpcode.WithArgs(byte(p.Opcode))
	}

	if p.Namespace != nil {
		if err := common.ValidateNamespace(*p.Namespace); err != nil {
			return errcode.ErrCodeInvalidNamespace.WithArgs(err.Error())
		}
	}

	if p.Opcode.IsBinary() != (p.AttachmentsExpected > 0) {
		if !p.Opcode.IsBinary() && p.AttachmentsExpected > 0 {
			return errcode.ErrCodeNonBinaryHasAttachments
		}
	}

	switch p.Opcode {
	case Event, BinaryEvent:
		arr, ok := p.Payload.([]interface{})
		if !p.HasPayload || !ok {
			return errcode.ErrCodePacketDataNotArray
		}
		if len(arr) == 0 {
			return errcode.ErrCodeNoEvent
		}
	case Ack, BinaryAck:
		if p.ID == nil {
			return errcode.ErrCodeAckIDMissing
		}
	}

	return nil
}
