package context

import (
	goctx "context"
	"errors"
	"fmt"

	"github.com/netrixframework/interop/adapter"
	"github.com/netrixframework/interop/audit"
	"github.com/netrixframework/interop/config"
	"github.com/netrixframework/interop/dispatcher"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/router"
	"github.com/netrixframework/interop/stats"
	"github.com/netrixframework/interop/validator"
)

var (
	// ErrUnknownSink is returned for an audit sink name which is not supported
	ErrUnknownSink = errors.New("unknown audit sink")
	// ErrMissingSetting is returned when a sink is enabled without its settings
	ErrMissingSetting = errors.New("missing audit setting")
)

// RootContext stores the components shared by the server and the command line tools
type RootContext struct {
	// Config an instance of the configuration object
	Config *config.Config
	// Sinks every audit sink events are recorded to
	Sinks audit.MultiSink
	// Stats per destination statistics computed from the recorded events
	Stats *stats.Collector
	// Dispatcher the destination table messages are delivered through
	Dispatcher *dispatcher.Dispatcher
	// Adapter the parse, validate and route pipeline
	Adapter *adapter.Adapter
	// Logger for logging purposes
	Logger *log.Logger
}

// NewRootContext creates an instance of the RootContext from the configuration
func NewRootContext(conf *config.Config, logger *log.Logger) (*RootContext, error) {
	ctx := goctx.Background()
	sinks, err := openSinks(ctx, conf.Audit, logger)
	if err != nil {
		return nil, err
	}
	collector := stats.NewCollector(0)
	sinks = append(sinks, collector)

	d, err := dispatcher.FromConfig(ctx, conf.Destinations, logger)
	if err != nil {
		sinks.Close()
		return nil, err
	}

	v := validator.New(
		validator.WithSchemaValidation(conf.Validation.SchemaValidation),
		validator.WithMinTrustScore(conf.Validation.MinTrustScore),
	)
	r := router.New(d, sinks, logger, router.WithTimeout(conf.Router.DeliveryTimeout()))
	a := adapter.New(v, r, logger,
		adapter.WithWorkers(conf.Router.BatchWorkers),
		adapter.WithOrderedSources(conf.Router.OrderedSources),
	)

	return &RootContext{
		Config:     conf,
		Sinks:      sinks,
		Stats:      collector,
		Dispatcher: d,
		Adapter:    a,
		Logger:     logger,
	}, nil
}

// Start logs the destinations and sinks the adapter was built with
func (c *RootContext) Start() {
	c.Logger.With(log.LogParams{
		"destinations": c.Dispatcher.Destinations(),
		"sinks":        c.Config.Audit.Sinks,
	}).Info("Adapter ready")
}

// Stop releases the sinks and destination connections
func (c *RootContext) Stop() {
	if err := c.Dispatcher.Close(); err != nil {
		c.Logger.With(log.LogParams{"error": err.Error()}).Error("Failed to close destinations")
	}
	if err := c.Sinks.Close(); err != nil {
		c.Logger.With(log.LogParams{"error": err.Error()}).Error("Failed to close audit sinks")
	}
}

func openSinks(ctx goctx.Context, conf config.AuditConfig, logger *log.Logger) (audit.MultiSink, error) {
	sinks := make(audit.MultiSink, 0, len(conf.Sinks)+1)
	for _, name := range conf.Sinks {
		s, err := openSink(ctx, name, conf, logger)
		if err != nil {
			sinks.Close()
			return nil, fmt.Errorf("audit sink %s: %w", name, err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}

func openSink(ctx goctx.Context, name string, conf config.AuditConfig, logger *log.Logger) (audit.Sink, error) {
	switch name {
	case "log":
		return audit.NewLogSink(logger), nil
	case "file":
		if conf.FilePath == "" {
			return nil, fmt.Errorf("%w: file_path", ErrMissingSetting)
		}
		return audit.OpenFileSink(conf.FilePath)
	case "redis":
		if conf.RedisAddr == "" {
			return nil, fmt.Errorf("%w: redis_addr", ErrMissingSetting)
		}
		return audit.DialRedisSink(ctx, conf.RedisAddr, conf.RedisKey)
	case string(audit.DialectSQLite), string(audit.DialectPostgres):
		if conf.DSN == "" {
			return nil, fmt.Errorf("%w: dsn", ErrMissingSetting)
		}
		return audit.OpenSQLSink(ctx, audit.Dialect(name), conf.DSN)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSink, name)
}
