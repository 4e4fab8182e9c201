package relayd

import (
	"context"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"

	"github.com/ambercast/relay/configuration"
	"github.com/ambercast/relay/health"
	"github.com/ambercast/relay/health/checks"
)

// registerHealthChecks wires every configured health.FileChecker,
// HTTPChecker and TCPChecker into the default health.Registry, each polled
// on its own goroutine via health.Poll, grounded on the teacher's
// registry/handlers health wiring and built directly on the health/checks
// primitives this module already carries.
func registerHealthChecks(ctx context.Context, config *configuration.Configuration) {
	for _, fc := range config.Health.FileCheckers {
		updater := health.NewThresholdStatusUpdater(fc.Threshold)
		health.Register(fc.File, updater)
		go health.Poll(ctx, updater, checks.FileChecker(fc.File), fc.Interval)
		logrus.Infof("configured file health check for %q", fc.File)
	}

	for _, hc := range config.Health.HTTPCheckers {
		updater := health.NewThresholdStatusUpdater(hc.Threshold)
		statusCode := hc.StatusCode
		if statusCode == 0 {
			statusCode = 200
		}
		health.Register(hc.URI, updater)
		go health.Poll(ctx, updater, checks.HTTPChecker(hc.URI, statusCode, hc.Timeout, hc.Headers), hc.Interval)
		logrus.Infof("configured HTTP health check for %q", hc.URI)
	}

	for _, tc := range config.Health.TCPCheckers {
		updater := health.NewThresholdStatusUpdater(tc.Threshold)
		health.Register(tc.Addr, updater)
		go health.Poll(ctx, updater, checks.TCPChecker(tc.Addr, tc.Timeout), tc.Interval)
		logrus.Infof("configured TCP health check for %q", tc.Addr)
	}
}

// redisPool builds the connection pool backing hub.NewRedisBroadcaster,
// grounded on the teacher's docs/handlers/app.go configureRedis: dial with
// an auth/select handshake, probe idle connections with PING.
func redisPool(cfg configuration.RedisBroadcast) *redis.Pool {
	return &redis.Pool{
		Dial: func() (redis.Conn, error) {
			conn, err := redis.DialTimeout("tcp", cfg.Addr, cfg.DialTimeout, 0, 0)
			if err != nil {
				return nil, err
			}
			if cfg.Password != "" {
				if _, err := conn.Do("AUTH", cfg.Password); err != nil {
					conn.Close()
					return nil, err
				}
			}
			if cfg.DB != 0 {
				if _, err := conn.Do("SELECT", cfg.DB); err != nil {
					conn.Close()
					return nil, err
				}
			}
			return conn, nil
		},
		MaxIdle: cfg.MaxIdle,
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			_, err := c.Do("PING")
			return err
		},
	}
}
