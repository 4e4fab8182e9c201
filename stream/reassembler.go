// Package stream implements the per-connection frame reassembler: it merges
// the binary frames that follow a BinaryEvent or BinaryAck text frame back
// into a single wire.Packet before the packet is handed to dispatch.
package stream

import (
	"sync"

	"github.com/ambercast/relay/errcode"
	"github.com/ambercast/relay/wire"
)

// FrameKind distinguishes the two frame types a transport may deliver.
type FrameKind int

const (
	// Text frames carry an encoded wire.Packet.
	Text FrameKind = iota
	// Binary frames carry one raw attachment.
	Binary
)

// Reassembler holds the awaiting-attachments state for a single Connection.
// It is safe for concurrent use, though in practice a Connection feeds it
// from a single reader goroutine.
type Reassembler struct {
	mu       sync.Mutex
	buffered *wire.Packet
}

// New returns a Reassembler in the Idle state.
func New() *Reassembler {
	return &Reassembler{}
}

// Feed processes one frame and advances the state machine.
//
// ready is non-nil exactly when a complete packet is available for
// dispatch. violation is non-nil when this frame was itself a protocol
// violation (a text frame arriving while attachments were still expected,
// or a binary frame arriving with none expected); violation does not
// prevent ready/err from also being populated, since the conservative
// policy is to discard the stale buffered packet and keep processing the
// new frame as if the reassembler had been Idle. err is a decode error of
// the frame's own contents.
func (r *Reassembler) Feed(kind FrameKind, data []byte) (ready *wire.Packet, violation error, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch kind {
	case Text:
		if r.buffered != nil {
			violation = errcode.ErrCodeUnexpectedTextFrame
			r.buffered = nil
		}

		p, err := wire.Decode(data)
		if err != nil {
			return nil, violation, err
		}

		if p.Opcode.IsBinary() && p.AttachmentsExpected > 0 {
			r.buffered = p
			return nil, violation, nil
		}

		return p, violation, nil

	case Binary:
		if r.buffered == nil {
			return nil, errcode.ErrCodeInvalidPacket, nil
		}

		r.buffered.Attachments = append(r.buffered.Attachments, data)
		if len(r.buffered.Attachments) < r.buffered.AttachmentsExpected {
			return nil, nil, nil
		}

		p := r.buffered
		r.buffered = nil

		injected, err := wire.Inject(p.Payload, p.Attachments)
		if err != nil {
			return nil, nil, err
		}
		p.Payload = injected

		return p, nil, nil

	default:
		return nil, nil, errcode.ErrCodeInvalidPacket
	}
}

// Awaiting reports whether the reassembler currently holds a buffered
// packet, i.e. is in the Awaiting state.
func (r *Reassembler) Awaiting() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffered != nil
}

// Reset discards any buffered packet, returning the reassembler to Idle.
// Used when the underlying connection is closing.
func (r *Reassembler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffered = nil
}
