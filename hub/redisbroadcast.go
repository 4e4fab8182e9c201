package hub

import (
	"encoding/json"
	"sync"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
)

// RedisBroadcaster publishes Room-emit envelopes to a Redis pub/sub
// channel so sibling processes sharing the same pool and channel name can
// replay the emit to their own locally-registered Connections. It is
// built on a *redis.Pool the way the cache layer builds its layer-info
// cache on a pool: a fresh connection per operation, since redigo
// connections are not safe for concurrent use.
type RedisBroadcaster struct {
	pool    *redis.Pool
	channel string
	target  *Registry

	mu     sync.Mutex
	closed bool
}

type envelopeWire struct {
	Room   string        `json:"room"`
	Event  string        `json:"event"`
	Params []interface{} `json:"params"`
}

// NewRedisBroadcaster starts a subscription goroutine against channel
// using pool, replaying received envelopes into target's local rooms.
// Publish uses the same pool and channel.
func NewRedisBroadcaster(pool *redis.Pool, channel string, target *Registry) *RedisBroadcaster {
	b := &RedisBroadcaster{
		pool:    pool,
		channel: channel,
		target:  target,
	}
	go b.listen()
	return b
}

// Publish implements Broadcaster.
func (b *RedisBroadcaster) Publish(e Envelope) error {
	payload, err := json.Marshal(envelopeWire{Room: e.Room, Event: e.Event, Params: e.Params})
	if err != nil {
		return err
	}

	conn := b.pool.Get()
	defer conn.Close()

	_, err = conn.Do("PUBLISH", b.channel, payload)
	return err
}

// Close marks the broadcaster closed. The subscription goroutine checks
// this flag only after each receive returns, so it exits once the next
// message or subscription event arrives, not immediately. Close does not
// close the pool, which the embedder owns.
func (b *RedisBroadcaster) Close() error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	return nil
}

func (b *RedisBroadcaster) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *RedisBroadcaster) listen() {
	conn := b.pool.Get()
	defer conn.Close()

	psc := redis.PubSubConn{Conn: conn}
	if err := psc.Subscribe(b.channel); err != nil {
		logrus.WithError(err).Error("hub: redis subscribe failed")
		return
	}
	defer psc.Unsubscribe(b.channel)

	for !b.isClosed() {
		switch v := psc.Receive().(type) {
		case redis.Message:
			var w envelopeWire
			if err := json.Unmarshal(v.Data, &w); err != nil {
				logrus.WithError(err).Warn("hub: dropping malformed broadcast envelope")
				continue
			}
			// emitRoomLocal, never RoomEmit: a replayed envelope must not
			// be published again.
			b.target.emitRoomLocal(w.Room, w.Event, w.Params)
		case redis.Subscription:
			if v.Count == 0 {
				return
			}
		case error:
			logrus.WithError(v).Error("hub: redis subscription error")
			return
		}
	}
}
