package relayd

import (
	"bytes"
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"text/template"
	"time"

	logstash "github.com/bshuster-repo/logrus-logstash-hook"
	bugsnag "github.com/bugsnag/bugsnag-go"
	logrus_bugsnag "github.com/Shopify/logrus-bugsnag"
	"github.com/sirupsen/logrus"

	"github.com/ambercast/relay/configuration"
	"github.com/ambercast/relay/internal/rlog"
)

// defaultLogFormatter is the formatter used when none is configured.
const defaultLogFormatter = "text"

// configureLogging prepares the process-wide logrus logger and a context
// carrying any static fields, the way the teacher's registry.go
// configureLogging does, adapted to this module's Configuration shape.
func configureLogging(ctx context.Context, config *configuration.Configuration) (context.Context, error) {
	logrus.SetLevel(logLevel(config.Log.Level))
	logrus.SetReportCaller(config.Log.ReportCaller)

	formatter := config.Log.Formatter
	if formatter == "" {
		formatter = defaultLogFormatter
	}

	switch formatter {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat:   time.RFC3339Nano,
			DisableHTMLEscape: true,
		})
	case "text":
		logrus.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case "logstash":
		logrus.SetFormatter(&logstash.LogstashFormatter{
			Formatter: &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano},
		})
	default:
		return ctx, fmt.Errorf("unsupported logging formatter: %q", formatter)
	}

	logrus.Debugf("using %q logging formatter", formatter)

	if len(config.Log.Fields) > 0 {
		fields := make(map[any]any, len(config.Log.Fields))
		for k, v := range config.Log.Fields {
			fields[k] = v
		}
		ctx = rlog.WithLogger(ctx, rlog.GetLoggerWithFields(ctx, fields))
	}

	if err := configureReportingHooks(config); err != nil {
		return ctx, err
	}

	rlog.SetDefaultLogger(rlog.GetLogger(ctx))
	return ctx, nil
}

func logLevel(level configuration.Loglevel) logrus.Level {
	l, err := logrus.ParseLevel(string(level))
	if err != nil {
		l = logrus.InfoLevel
		logrus.Warnf("error parsing level %q: %v, using %q", level, err, l)
	}
	return l
}

// configureReportingHooks wires config.Log.Hooks into the logrus global
// logger, instantiating a bugsnag or mail hook per entry, grounded on the
// teacher's registry/handlers/hooks.go logHook (Fire/Levels) and its
// cmd/registry/main.go configureReporting bugsnag.Configure call.
func configureReportingHooks(config *configuration.Configuration) error {
	if config.Reporting.Bugsnag.APIKey != "" {
		bugsnagConfig := bugsnag.Configuration{
			APIKey: config.Reporting.Bugsnag.APIKey,
		}
		if config.Reporting.Bugsnag.ReleaseStage != "" {
			bugsnagConfig.ReleaseStage = config.Reporting.Bugsnag.ReleaseStage
		}
		if config.Reporting.Bugsnag.Endpoint != "" {
			bugsnagConfig.Endpoint = config.Reporting.Bugsnag.Endpoint
		}
		bugsnag.Configure(bugsnagConfig)
	}

	for _, hook := range config.Log.Hooks {
		if hook.Disabled {
			continue
		}

		switch hook.Type {
		case "bugsnag":
			h, err := logrus_bugsnag.NewBugsnagHook()
			if err != nil {
				return fmt.Errorf("configuring bugsnag log hook: %w", err)
			}
			logrus.AddHook(h)
		case "mail":
			logrus.AddHook(newMailHook(hook))
		default:
			return fmt.Errorf("unsupported log hook type: %q", hook.Type)
		}
	}

	return nil
}

// mailHook sends an email for every logged entry at one of its configured
// levels, grounded on the teacher's registry/handlers/hooks.go logHook,
// adapted to configuration.MailOptions and using net/smtp directly as the
// teacher does (no third-party mail client in the example pack).
type mailHook struct {
	opts   configuration.MailOptions
	levels []logrus.Level
}

func newMailHook(cfg configuration.LogHook) *mailHook {
	h := &mailHook{opts: cfg.MailOptions}
	for _, v := range cfg.Levels {
		if lv, err := logrus.ParseLevel(v); err == nil {
			h.levels = append(h.levels, lv)
		}
	}
	if len(h.levels) == 0 {
		h.levels = []logrus.Level{logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel}
	}
	return h
}

const mailBodyTemplate = `{{.Message}}
{{range $key, $value := .Data}}
{{$key}}: {{$value}}
{{end}}`

// Fire implements logrus.Hook.
func (h *mailHook) Fire(entry *logrus.Entry) error {
	host, _, ok := strings.Cut(h.opts.SMTP.Addr, ":")
	if !ok || host == "" {
		return fmt.Errorf("invalid mail smtp address %q", h.opts.SMTP.Addr)
	}

	subject := fmt.Sprintf("[%s] %s: %s", entry.Level, host, entry.Message)

	var body bytes.Buffer
	t := template.Must(template.New("mailhook").Parse(mailBodyTemplate))
	if err := t.Execute(&body, entry); err != nil {
		return err
	}

	msg := []byte("To: " + strings.Join(h.opts.To, ";") +
		"\r\nFrom: " + h.opts.From +
		"\r\nSubject: " + subject +
		"\r\nContent-Type: text/plain\r\n\r\n" + body.String())

	var auth smtp.Auth
	if h.opts.SMTP.Username != "" {
		auth = smtp.PlainAuth("", h.opts.SMTP.Username, h.opts.SMTP.Password, host)
	}
	return smtp.SendMail(h.opts.SMTP.Addr, auth, h.opts.From, h.opts.To, msg)
}

// Levels implements logrus.Hook.
func (h *mailHook) Levels() []logrus.Level {
	return h.levels
}
