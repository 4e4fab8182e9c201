// Package tcp is a reference transport.Conn implementation: a minimal
// length-prefixed framing directly over net.Conn. It exists so cmd/relayd
// and the integration tests have a concrete, runnable transport; the
// protocol core itself depends only on the transport.Conn interface.
package tcp

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"sync"

	"github.com/ambercast/relay/transport"
)

const (
	headerSize = 5 // 1-byte frame-kind tag + 4-byte big-endian length

	tagText   byte = 0
	tagBinary byte = 1
)

// Conn frames transport.Text/transport.Binary messages over a net.Conn as
// a 1-byte kind tag, a 4-byte big-endian length, and the payload.
type Conn struct {
	nc net.Conn
	id string

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	onMsg     transport.MessageHandler
	onClose   transport.CloseHandler

	closeOnce sync.Once
}

// New wraps nc, assigns it id, and starts its read loop. The read loop
// runs until nc is closed or a framing error occurs, at which point the
// registered CloseHandler fires.
func New(nc net.Conn, id string) *Conn {
	c := &Conn{nc: nc, id: id}
	go c.readLoop()
	return c
}

// OnMessage implements transport.Conn.
func (c *Conn) OnMessage(h transport.MessageHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onMsg = h
}

// OnClose implements transport.Conn.
func (c *Conn) OnClose(h transport.CloseHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.onClose = h
}

// ID implements transport.Conn.
func (c *Conn) ID() string { return c.id }

// Send implements transport.Conn. Concurrent calls are serialized so that
// a frame's header and payload are never interleaved with another's.
func (c *Conn) Send(kind transport.FrameKind, data []byte) error {
	tag := tagText
	if kind == transport.Binary {
		tag = tagBinary
	}

	header := make([]byte, headerSize)
	header[0] = tag
	binary.BigEndian.PutUint32(header[1:], uint32(len(data)))

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.nc.Write(header); err != nil {
		return err
	}
	_, err := c.nc.Write(data)
	return err
}

// Close implements transport.Conn.
func (c *Conn) Close(reason string) error {
	err := c.nc.Close()
	c.finish(reason)
	return err
}

func (c *Conn) finish(reason string) {
	c.closeOnce.Do(func() {
		c.handlerMu.RLock()
		handler := c.onClose
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(reason)
		}
	})
}

func (c *Conn) readLoop() {
	r := bufio.NewReader(c.nc)
	header := make([]byte, headerSize)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			c.finish(err.Error())
			return
		}

		tag := header[0]
		length := binary.BigEndian.Uint32(header[1:])

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			c.finish(err.Error())
			return
		}

		kind := transport.Text
		if tag == tagBinary {
			kind = transport.Binary
		}

		c.handlerMu.RLock()
		handler := c.onMsg
		c.handlerMu.RUnlock()
		if handler != nil {
			handler(kind, payload)
		}
	}
}

var _ transport.Conn = (*Conn)(nil)
