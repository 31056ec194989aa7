// Package flags contains all configuration runtime flags for the user bot.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// BotTokenFlag defines the Telegram bot API token of the user bot.
	BotTokenFlag = &cli.StringFlag{
		Name:     "bot-token",
		Usage:    "Telegram bot API token for the public user bot",
		Required: true,
	}
	// WebBaseURLFlag defines the external base of the verification web
	// flow, without a trailing slash.
	WebBaseURLFlag = &cli.StringFlag{
		Name:     "web-base-url",
		Usage:    "External base URL of the verification web flow, e.g. https://verify.example.org",
		Required: true,
	}
	// MonitoringPortFlag defines the port used by the monitoring service.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used by the monitoring service",
		Value: 8081,
	}
)
