package relayd

import (
	"expvar"
	"fmt"
	"net/http"
	"os"

	gometrics "github.com/docker/go-metrics"
	gorhandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ambercast/relay/configuration"
	"github.com/ambercast/relay/hub"
)

// newDebugServer assembles the administrative HTTP surface: /debug/health
// (mounted on http.DefaultServeMux by health's own init, per the teacher's
// registry/handlers health wiring), /debug/vars (expvar, same story), and
// /debug/metrics when Prometheus is enabled. Routing goes through
// gorilla/mux so additional routes (e.g. a connection/room inspector) have
// somewhere to live, wrapped in gorilla/handlers access logging and a
// panic-recovery middleware grounded on the teacher's own panicHandler.
func newDebugServer(config *configuration.Configuration, registry *hub.Registry) *http.Server {
	router := mux.NewRouter()
	router.Handle("/debug/health", http.DefaultServeMux)
	router.Handle("/debug/vars", expvar.Handler())
	router.HandleFunc("/debug/rooms", roomsHandler(registry))

	configurePrometheus(config, router)

	var handler http.Handler = router
	handler = panicHandler(handler)
	if !config.Log.AccessLog.Disabled {
		handler = gorhandlers.CombinedLoggingHandler(os.Stdout, handler)
	}

	return &http.Server{
		Addr:    config.Server.Debug.Addr,
		Handler: handler,
	}
}

func configurePrometheus(config *configuration.Configuration, router *mux.Router) {
	if !config.Server.Debug.Prometheus.Enabled {
		return
	}
	path := config.Server.Debug.Prometheus.Path
	if path == "" {
		path = "/debug/metrics"
	}
	logrus.Infof("providing prometheus metrics on %s", path)
	router.Handle(path, gometrics.Handler())
}

// roomsHandler reports the live room membership counts tracked by the
// Registry, a small operational surface the teacher's registry doesn't
// need an analogue of (it has no concept of rooms) but that this server's
// embedders rely on to confirm fan-out is reaching the peers they expect.
func roomsHandler(registry *hub.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		for _, room := range registry.Rooms() {
			fmt.Fprintf(w, "%s\t%d\n", room, registry.RoomSize(room))
		}
	}
}

// panicHandler recovers a panic from the wrapped handler and reports it
// through the logger (and, if configured, bugsnag via the logrus hook)
// rather than crashing the debug server, matching the teacher's own
// registry/registry.go panicHandler.
func panicHandler(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logrus.Errorf("panic in debug handler: %v", err)
			}
		}()
		handler.ServeHTTP(w, r)
	})
}
