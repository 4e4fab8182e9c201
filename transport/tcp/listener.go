package tcp

import (
	"net"
	"strconv"
	"sync/atomic"

	"github.com/ambercast/relay/transport"
)

// Listen accepts connections on addr and wraps each as a *Conn, invoking
// onAccept with it. It runs its accept loop on its own goroutine and
// returns the underlying net.Listener so the caller controls shutdown via
// Close.
func Listen(addr string, onAccept func(transport.Conn)) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	var nextID uint64
	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}
			id := strconv.FormatUint(atomic.AddUint64(&nextID, 1), 10)
			onAccept(New(nc, id))
		}
	}()

	return ln, nil
}
