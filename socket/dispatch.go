package socket

import (
	"github.com/ambercast/relay/errcode"
	"github.com/ambercast/relay/metrics"
	"github.com/ambercast/relay/stream"
	"github.com/ambercast/relay/transport"
	"github.com/ambercast/relay/wire"
)

// handleFrame is registered as the transport's MessageHandler. It feeds
// the frame through the reassembler and reacts to whatever comes out:
// a violation and/or a decode error are reported to the peer as an Error
// packet and otherwise swallowed (the Connection is not torn down); a
// ready packet is dispatched.
func (c *Connection) handleFrame(kind transport.FrameKind, data []byte) {
	streamKind := stream.Text
	if kind == transport.Binary {
		streamKind = stream.Binary
	}

	ready, violation, err := c.reassembler.Feed(streamKind, data)

	if violation != nil {
		c.replyError(violation)
	}
	if err != nil {
		c.replyError(err)
		return
	}
	if ready != nil {
		c.handlePacket(ready)
	}
}

// replyError sends an Error opcode packet back to the peer carrying a
// diagnostic string derived from err, per the FramingError/
// ProtocolStateError reply policy: the core replies and continues, it
// does not close the Connection.
func (c *Connection) replyError(err error) {
	label := "unknown"
	if coder, ok := err.(errcode.ErrorCoder); ok {
		label = coder.ErrorCode().String()
	}
	metrics.FramingErrors.WithValues(label).Inc(1)

	p := &wire.Packet{
		Opcode:     wire.Error,
		Namespace:  c.namespaceSnapshot(),
		HasPayload: true,
		Payload:    err.Error(),
	}
	_ = c.sendPacket(p)
}

func (c *Connection) handlePacket(p *wire.Packet) {
	switch p.Opcode {
	case wire.Connect:
		c.setNamespace(p.Namespace)
	case wire.Disconnect:
		go c.Close("peer requested disconnect")
	case wire.Event, wire.BinaryEvent:
		c.dispatchEvent(p)
	case wire.Ack, wire.BinaryAck:
		c.dispatchAck(p)
	case wire.Error:
		c.dispatchError(p)
	}
}

func (c *Connection) dispatchEvent(p *wire.Packet) {
	name, _ := p.EventName()
	params := p.EventParams()

	c.callbacksMu.RLock()
	handler, ok := c.callbacks[name]
	c.callbacksMu.RUnlock()

	var result []interface{}
	if ok {
		metrics.EventsDispatched.WithValues(name).Inc(1)
		result = handler(params, p.Attachments)
	} else {
		result = []interface{}{}
	}

	if p.ID == nil {
		return
	}

	extracted, attachments := wire.Extract(result)
	opcode := wire.Ack
	if len(attachments) > 0 {
		opcode = wire.BinaryAck
	}

	ack := &wire.Packet{
		Opcode:              opcode,
		Namespace:           p.Namespace,
		ID:                  p.ID,
		AttachmentsExpected: len(attachments),
		HasPayload:          true,
		Payload:             extracted,
		Attachments:         attachments,
	}
	_ = c.sendPacket(ack)
}

func (c *Connection) dispatchAck(p *wire.Packet) {
	if p.ID == nil {
		return
	}

	c.pendingMu.Lock()
	cb, ok := c.pendingAcks[*p.ID]
	if ok {
		delete(c.pendingAcks, *p.ID)
	}
	c.pendingMu.Unlock()

	if !ok {
		return
	}

	params, _ := p.Payload.([]interface{})
	cb(params, p.Attachments)
}

func (c *Connection) dispatchError(p *wire.Packet) {
	handler := c.errorHandler()
	if handler == nil {
		return
	}
	message, _ := p.Payload.(string)
	handler(message)
}
