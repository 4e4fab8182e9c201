package relayd

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ambercast/relay/configuration"
	"github.com/ambercast/relay/hub"
	"github.com/ambercast/relay/internal/rlog"
	"github.com/ambercast/relay/internal/uuid"
	"github.com/ambercast/relay/server"
	"github.com/ambercast/relay/transport"
	"github.com/ambercast/relay/transport/tcp"
)

// ServeCmd is the "serve" subcommand: it resolves a Configuration, brings
// up the protocol core, the reference transport/tcp listener, and the
// administrative debug server, then blocks until signalled to drain and
// stop. Shaped after the teacher's registry/registry.go ServeCmd.Run.
var ServeCmd = &cobra.Command{
	Use:   "serve <config>",
	Short: "`serve` runs the relay server",
	Long:  "`serve` runs the relay server",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := rlog.WithLogger(rlog.Background(), rlog.GetLogger(rlog.Background()))

		config, err := resolveConfiguration(args)
		if err != nil {
			fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
			// nolint:errcheck
			cmd.Usage()
			os.Exit(1)
		}

		ctx, err = configureLogging(ctx, config)
		if err != nil {
			fatalf("error configuring logger: %v", err)
		}

		d, err := newDaemon(ctx, config)
		if err != nil {
			fatalf("error starting relayd: %v", err)
		}

		if err := d.run(ctx); err != nil {
			fatalf("%v", err)
		}
	},
}

func resolveConfiguration(args []string) (*configuration.Configuration, error) {
	var configurationPath string

	if len(args) > 0 {
		configurationPath = args[0]
	} else if os.Getenv("RELAYD_CONFIGURATION_PATH") != "" {
		configurationPath = os.Getenv("RELAYD_CONFIGURATION_PATH")
	}

	if configurationPath == "" {
		return nil, fmt.Errorf("configuration path unspecified")
	}

	fp, err := os.Open(configurationPath)
	if err != nil {
		return nil, err
	}
	defer fp.Close()

	config, err := configuration.Parse(fp)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %v", configurationPath, err)
	}

	return config, nil
}

// daemon holds the running pieces of a relayd process: the protocol core,
// the reference transport/tcp listener feeding it, and the administrative
// debug HTTP server.
type daemon struct {
	config *configuration.Configuration
	srv    *server.Server
	ln     net.Listener
	debug  *http.Server
}

func newDaemon(ctx context.Context, config *configuration.Configuration) (*daemon, error) {
	// Attach a fresh node id to ctx and log it once at startup, so an
	// operator running several relayd processes behind the same redis
	// broadcast channel can tell the processes apart. Only loggers taken
	// from this ctx carry the id; ctx is not kept beyond newDaemon.
	ctx = rlog.WithNodeID(ctx, uuid.NewString())
	rlog.GetLogger(ctx).Infof("starting relayd, node id %s", rlog.GetNodeID(ctx))

	srv := server.New()

	switch config.Broadcast.Type {
	case "", "memory":
	case "redis":
		pool := redisPool(config.Broadcast.Redis)
		broadcaster := hub.NewRedisBroadcaster(pool, config.Broadcast.Redis.Channel, srv.Registry())
		server.WithBroadcaster(broadcaster)(srv)
		logrus.Infof("broadcast fan-out widened via redis at %s, channel %q", config.Broadcast.Redis.Addr, config.Broadcast.Redis.Channel)
	default:
		return nil, fmt.Errorf("unknown broadcast type %q", config.Broadcast.Type)
	}

	registerHealthChecks(ctx, config)

	ln, err := tcp.Listen(config.Server.Addr, func(conn transport.Conn) {
		srv.Accept(conn)
	})
	if err != nil {
		return nil, fmt.Errorf("error listening on %s: %v", config.Server.Addr, err)
	}
	logrus.Infof("listening for connections on %s", config.Server.Addr)

	d := &daemon{
		config: config,
		srv:    srv,
		ln:     ln,
	}

	if config.Server.Debug.Addr != "" {
		d.debug = newDebugServer(config, srv.Registry())
	}

	return d, nil
}

// run brings up the debug HTTP server, if configured, and blocks until the
// process receives SIGTERM/SIGINT, at which point it drains: the
// transport listener and debug server stop accepting new work, every
// connected peer is closed, and run waits up to DrainTimeout for that to
// settle before returning.
func (d *daemon) run(ctx context.Context) error {
	if d.debug != nil {
		go func() {
			logrus.Infof("debug server listening on %s", d.debug.Addr)
			if err := d.debug.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logrus.WithError(err).Error("debug server error")
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("shutting down")
	return d.shutdown()
}

func (d *daemon) shutdown() error {
	if err := d.ln.Close(); err != nil {
		logrus.WithError(err).Warn("error closing listener")
	}

	drainTimeout := d.config.Server.DrainTimeout
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}

	done := make(chan struct{})
	go func() {
		_ = d.srv.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		logrus.Warn("drain timeout exceeded; forcing shutdown")
	}

	if d.debug != nil {
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		defer cancel()
		if err := d.debug.Shutdown(ctx); err != nil {
			logrus.WithError(err).Warn("error shutting down debug server")
		}
	}

	return nil
}
