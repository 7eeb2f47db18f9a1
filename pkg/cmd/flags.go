package cmd

import (
	"github.com/dukex/flowrun/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// RuntimeFlags are the flags every binary that runs executions accepts.
func RuntimeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Persistence URL: postgres://, redis://, file:// or a directory",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing action plugins",
			Value:   "./plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.DurationFlag{
			Name:    "node-timeout",
			Usage:   "Maximum time a single node may run",
			Value:   workflow.DefaultNodeTimeout,
			Sources: cli.EnvVars("NODE_TIMEOUT"),
		},
		&cli.BoolFlag{
			Name:    "async-advance",
			Usage:   "Hand advancing executions to workers through the event bus",
			Sources: cli.EnvVars("ASYNC_ADVANCE"),
		},
		&cli.BoolFlag{
			Name:    "mock-run",
			Usage:   "Dispatch nodes through their mock implementation",
			Sources: cli.EnvVars("MOCK_RUN"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export OpenTelemetry traces over OTLP/HTTP",
			Sources: cli.EnvVars("TRACING_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// RuntimeConfigFrom reads the RuntimeFlags of command.
func RuntimeConfigFrom(command *cli.Command) RuntimeConfig {
	return RuntimeConfig{
		DatabaseURL:  command.String("database-url"),
		EventBus:     command.String("event-bus"),
		KafkaBrokers: command.String("kafka-brokers"),
		PluginsPath:  command.String("plugins-path"),
		NodeTimeout:  command.Duration("node-timeout"),
		AsyncAdvance: command.Bool("async-advance"),
		MockRun:      command.Bool("mock-run"),
	}
}
