package configuration

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"
)

// Configuration is a versioned relay server configuration, intended to be
// provided by a yaml file, and optionally modified by environment
// variables.
//
// Note that yaml field names should never include _ characters, since this
// is the separator used in environment variable names.
type Configuration struct {
	// Version is the version which defines the format of the rest of the
	// configuration.
	Version Version `yaml:"version"`

	// Log supports setting various parameters related to the logging
	// subsystem.
	Log Log `yaml:"log"`

	// Server configures the reference transport listener and its
	// administrative HTTP surface.
	Server Server `yaml:"server"`

	// Broadcast selects the Registry's room/broadcast fan-out strategy.
	Broadcast Broadcast `yaml:"broadcast,omitempty"`

	// Reporting configures third-party crash/error reporting.
	Reporting Reporting `yaml:"reporting,omitempty"`

	// Health provides the configuration section for health checks.
	Health Health `yaml:"health,omitempty"`
}

// Log represents the configuration for logging within the application.
type Log struct {
	// AccessLog configures access logging.
	AccessLog AccessLog `yaml:"accesslog,omitempty"`

	// Level is the granularity at which operations are logged.
	Level Loglevel `yaml:"level,omitempty"`

	// Formatter overrides the default formatter with another. Options
	// include "text", "json" and "logstash".
	Formatter string `yaml:"formatter,omitempty"`

	// Fields allows users to specify static string fields to include in
	// the logger context.
	Fields map[string]interface{} `yaml:"fields,omitempty"`

	// Hooks allows users to configure the log hooks, enabling additional
	// handling behavior when defined levels of log message are emitted.
	Hooks []LogHook `yaml:"hooks,omitempty"`

	// ReportCaller allows the user to configure the log to report the
	// caller.
	ReportCaller bool `yaml:"reportcaller,omitempty"`
}

// AccessLog configures options for access logging.
type AccessLog struct {
	// Disabled disables access logging.
	Disabled bool `yaml:"disabled,omitempty"`
}

// LogHook is composed of hook Level and Type.
// After hooks configuration, it can execute the next handling behavior
// automatically when defined levels of log message are emitted.
// Example: a hook can send a Bugsnag report when an error log happens.
type LogHook struct {
	// Disabled lets the user select to enable the hook or not.
	Disabled bool `yaml:"disabled,omitempty"`

	// Type allows the user to select which type of hook handler they
	// want: "bugsnag" or "mail".
	Type string `yaml:"type,omitempty"`

	// Levels set which levels of log message will let the hook execute.
	Levels []string `yaml:"levels,omitempty"`

	// MailOptions allows the user to configure email parameters for the
	// "mail" hook type.
	MailOptions MailOptions `yaml:"options,omitempty"`
}

// MailOptions provides the configuration sections for the "mail" hook.
type MailOptions struct {
	// SMTP defines the configuration options for the SMTP server used for
	// sending email notifications.
	SMTP SMTP `yaml:"smtp,omitempty"`

	// From defines the mail sending address.
	From string `yaml:"from,omitempty"`

	// To defines the mail receiving addresses.
	To []string `yaml:"to,omitempty"`
}

// SMTP represents the configuration for an SMTP server used for sending
// emails.
type SMTP struct {
	// Addr defines the smtp host address.
	Addr string `yaml:"addr,omitempty"`

	// Username defines the user name for the smtp host.
	Username string `yaml:"username,omitempty"`

	// Password defines the password of the login user.
	Password string `yaml:"password,omitempty"`

	// Insecure defines whether smtp login skips certificate verification.
	Insecure bool `yaml:"insecure,omitempty"`
}

// Reporting configures third-party crash/error reporting services.
type Reporting struct {
	// Bugsnag configures error reporting via bugsnag.com.
	Bugsnag BugsnagReporting `yaml:"bugsnag,omitempty"`
}

// BugsnagReporting configures error reporting via bugsnag.com, consumed by
// the Shopify/logrus-bugsnag hook attached to the default logger.
type BugsnagReporting struct {
	// APIKey is the API key for bugsnag.com.
	APIKey string `yaml:"apikey,omitempty"`

	// ReleaseStage tracks the environment, such as production, staging,
	// or development.
	ReleaseStage string `yaml:"releasestage,omitempty"`

	// Endpoint allows reporting to a custom Bugsnag endpoint. This is
	// useful for self-hosted Bugsnag instances. Omit this field for
	// reporting to bugsnag.com.
	Endpoint string `yaml:"endpoint,omitempty"`
}

// Server configures the reference transport listener and the
// administrative HTTP surface served alongside it.
type Server struct {
	// Addr specifies the bind address for the reference transport/tcp
	// listener.
	Addr string `yaml:"addr,omitempty"`

	// Net specifies the net portion of the bind address. A default empty
	// value means tcp.
	Net string `yaml:"net,omitempty"`

	// DrainTimeout is the amount of time to wait for connections to drain
	// before shutting down when the process receives a stop signal.
	DrainTimeout time.Duration `yaml:"draintimeout,omitempty"`

	// Debug configures the administrative debug HTTP interface, exposing
	// /debug/health, /debug/metrics, and /debug/vars.
	Debug Debug `yaml:"debug,omitempty"`
}

// Debug defines the configuration options for the relay server's debug
// interface. It allows administrators to enable or disable the debug
// server and configure telemetry and monitoring endpoints such as
// Prometheus.
type Debug struct {
	// Addr specifies the bind address for the debug server.
	Addr string `yaml:"addr,omitempty"`

	// Prometheus configures the Prometheus telemetry endpoint for
	// monitoring purposes.
	Prometheus Prometheus `yaml:"prometheus,omitempty"`
}

// Prometheus configures the Prometheus telemetry endpoint.
type Prometheus struct {
	// Enabled determines whether Prometheus telemetry is enabled or not.
	Enabled bool `yaml:"enabled,omitempty"`

	// Path specifies the URL path where the Prometheus metrics are
	// exposed. The default is "/debug/metrics", but it can be customized
	// here.
	Path string `yaml:"path,omitempty"`
}

// Broadcast selects the Registry's room/broadcast fan-out strategy: the
// in-process-only "memory" strategy (the default), or "redis" to widen
// Room-emit to sibling processes over a shared pub/sub channel. Broadcast
// reaches only this process's Connections under either strategy.
type Broadcast struct {
	// Type is "memory" (default) or "redis".
	Type string `yaml:"type,omitempty"`

	// Redis configures the redis pool used by the "redis" broadcast
	// strategy. Ignored when Type is "memory".
	Redis RedisBroadcast `yaml:"redis,omitempty"`
}

// RedisBroadcast configures the redis pool and channel backing
// hub.RedisBroadcaster.
type RedisBroadcast struct {
	// Addr is the redis server address, e.g. "localhost:6379".
	Addr string `yaml:"addr,omitempty"`

	// Channel is the pub/sub channel name shared by every process
	// participating in the same room fan-out.
	Channel string `yaml:"channel,omitempty"`

	// Password authenticates against the redis server, if set.
	Password string `yaml:"password,omitempty"`

	// DB selects the redis logical database.
	DB int `yaml:"db,omitempty"`

	// MaxIdle caps the number of idle connections kept in the pool.
	MaxIdle int `yaml:"maxidle,omitempty"`

	// DialTimeout bounds how long dialing a new redis connection may
	// take.
	DialTimeout time.Duration `yaml:"dialtimeout,omitempty"`
}

// FileChecker is a type of entry in the health section for checking files.
type FileChecker struct {
	// Interval is the duration in between checks.
	Interval time.Duration `yaml:"interval,omitempty"`

	// File is the path to check.
	File string `yaml:"file,omitempty"`

	// Threshold is the number of times a check must fail to trigger an
	// unhealthy state.
	Threshold int `yaml:"threshold,omitempty"`
}

// HTTPChecker is a type of entry in the health section for checking HTTP
// URIs.
type HTTPChecker struct {
	// Timeout is the duration to wait before timing out the HTTP request.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// StatusCode is the expected status code.
	StatusCode int `yaml:"statuscode,omitempty"`

	// Interval is the duration in between checks.
	Interval time.Duration `yaml:"interval,omitempty"`

	// URI is the HTTP URI to check.
	URI string `yaml:"uri,omitempty"`

	// Headers lists static headers that should be added to all requests.
	Headers http.Header `yaml:"headers"`

	// Threshold is the number of times a check must fail to trigger an
	// unhealthy state.
	Threshold int `yaml:"threshold,omitempty"`
}

// TCPChecker is a type of entry in the health section for checking TCP
// servers.
type TCPChecker struct {
	// Timeout is the duration to wait before timing out the TCP
	// connection.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Interval is the duration in between checks.
	Interval time.Duration `yaml:"interval,omitempty"`

	// Addr is the TCP address to check.
	Addr string `yaml:"addr,omitempty"`

	// Threshold is the number of times a check must fail to trigger an
	// unhealthy state.
	Threshold int `yaml:"threshold,omitempty"`
}

// Health provides the configuration section for health checks.
type Health struct {
	// FileCheckers is a list of paths to check.
	FileCheckers []FileChecker `yaml:"file,omitempty"`

	// HTTPCheckers is a list of URIs to check.
	HTTPCheckers []HTTPChecker `yaml:"http,omitempty"`

	// TCPCheckers is a list of addresses to check.
	TCPCheckers []TCPChecker `yaml:"tcp,omitempty"`
}

// v0_1Configuration is a Version 0.1 Configuration struct. This is
// currently aliased to Configuration, as it is the current version.
type v0_1Configuration Configuration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
// Unmarshals a string of the form X.Y into a Version, validating that X and
// Y can represent unsigned integers.
func (version *Version) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var versionString string
	err := unmarshal(&versionString)
	if err != nil {
		return err
	}

	newVersion := Version(versionString)
	if _, err := newVersion.major(); err != nil {
		return err
	}

	if _, err := newVersion.minor(); err != nil {
		return err
	}

	*version = newVersion
	return nil
}

// CurrentVersion is the most recent Version that can be parsed.
var CurrentVersion = MajorMinorVersion(0, 1)

// Loglevel is the level at which relay operations are logged. This can be
// error, warn, info, or debug.
type Loglevel string

// UnmarshalYAML implements the yaml.Umarshaler interface.
// Unmarshals a string into a Loglevel, lowercasing the string and
// validating that it represents a valid loglevel.
func (loglevel *Loglevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var loglevelString string
	err := unmarshal(&loglevelString)
	if err != nil {
		return err
	}

	loglevelString = strings.ToLower(loglevelString)
	switch loglevelString {
	case "error", "warn", "info", "debug":
	default:
		return fmt.Errorf("invalid loglevel %s Must be one of [error, warn, info, debug]", loglevelString)
	}

	*loglevel = Loglevel(loglevelString)
	return nil
}

// Parse parses an input configuration yaml document into a Configuration
// struct. This should generally be capable of handling old configuration
// format versions.
//
// Environment variables may be used to override configuration parameters
// other than version, following the scheme below:
// Configuration.Abc may be replaced by the value of RELAYD_ABC,
// Configuration.Abc.Xyz may be replaced by the value of RELAYD_ABC_XYZ, and
// so forth.
func Parse(rd io.Reader) (*Configuration, error) {
	in, err := io.ReadAll(rd)
	if err != nil {
		return nil, err
	}

	p := NewParser("relayd", []VersionedParseInfo{
		{
			Version: MajorMinorVersion(0, 1),
			ParseAs: reflect.TypeOf(v0_1Configuration{}),
			ConversionFunc: func(c interface{}) (interface{}, error) {
				if v0_1, ok := c.(*v0_1Configuration); ok {
					if v0_1.Log.Level == Loglevel("") {
						v0_1.Log.Level = Loglevel("info")
					}

					if v0_1.Server.Addr == "" {
						return nil, errors.New("no server address provided")
					}

					if v0_1.Broadcast.Type == "" {
						v0_1.Broadcast.Type = "memory"
					}
					switch v0_1.Broadcast.Type {
					case "memory", "redis":
					default:
						return nil, fmt.Errorf("unknown broadcast type %q", v0_1.Broadcast.Type)
					}

					return (*Configuration)(v0_1), nil
				}
				return nil, fmt.Errorf("expected *v0_1Configuration, received %#v", c)
			},
		},
	})

	config := new(Configuration)
	err = p.Parse(in, config)
	if err != nil {
		return nil, err
	}

	return config, nil
}
