// Package cmd defines the command line flags shared by the filegate
// binaries.
package cmd

import (
	"github.com/urfave/cli/v2"
)

var (
	// VerbosityFlag defines the logrus configuration.
	VerbosityFlag = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info=default, warn, error, fatal, panic)",
		Value: "info",
	}
	// LogFormat specifies the log output format.
	LogFormat = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Specify log formatting. Supports: text, json, fluentd.",
		Value: "text",
	}
	// LogFileName specifies the log output file name.
	LogFileName = &cli.StringFlag{
		Name:  "log-file",
		Usage: "Specify log file name, relative or absolute",
	}
	// ConfigFileFlag specifies the filepath to load flag values.
	ConfigFileFlag = &cli.StringFlag{
		Name:  "config-file",
		Usage: "The filepath to a yaml file with flag values",
	}
	// TuningFileFlag specifies the filepath to load tuning parameter
	// overrides (retry schedules, cache sizes, countdown length).
	TuningFileFlag = &cli.StringFlag{
		Name:  "tuning-file",
		Usage: "The path to a YAML file with tuning parameter overrides",
	}
	// RedisAddrFlag defines the address of the shared Redis store.
	RedisAddrFlag = &cli.StringFlag{
		Name:  "redis-addr",
		Usage: "host:port of the Redis instance backing the gate store",
		Value: "localhost:6379",
	}
	// RedisPasswordFlag defines the Redis AUTH password.
	RedisPasswordFlag = &cli.StringFlag{
		Name:  "redis-password",
		Usage: "Password of the Redis instance backing the gate store",
	}
	// RedisDBFlag selects the Redis logical database.
	RedisDBFlag = &cli.IntFlag{
		Name:  "redis-db",
		Usage: "Logical database number of the Redis instance",
		Value: 0,
	}
	// MonitoringHostFlag defines the host used by the monitoring service.
	MonitoringHostFlag = &cli.StringFlag{
		Name:  "monitoring-host",
		Usage: "Host used for the monitoring service",
		Value: "127.0.0.1",
	}
	// DisableMonitoringFlag defines a flag to disable the metrics collection.
	DisableMonitoringFlag = &cli.BoolFlag{
		Name:  "disable-monitoring",
		Usage: "Disable monitoring service.",
	}
)
