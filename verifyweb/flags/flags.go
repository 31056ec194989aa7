// Package flags contains all configuration runtime flags for the
// verification web server.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// HTTPHostFlag defines the listen address of the web server.
	HTTPHostFlag = &cli.StringFlag{
		Name:  "http-host",
		Usage: "Host on which the verification pages are served",
		Value: "0.0.0.0",
	}
	// HTTPPortFlag defines the listen port of the web server.
	HTTPPortFlag = &cli.IntFlag{
		Name:  "http-port",
		Usage: "Port on which the verification pages are served",
		Value: 8080,
	}
	// CORSOriginsFlag lists origins allowed to call the server
	// cross-origin. Empty means same-origin only.
	CORSOriginsFlag = &cli.StringSliceFlag{
		Name:  "cors-origin",
		Usage: "Origin allowed for cross-origin requests. This flag may be used multiple times.",
	}
	// BotUsernameFlag names the public user bot so the countdown page can
	// build return deep links.
	BotUsernameFlag = &cli.StringFlag{
		Name:     "bot-username",
		Usage:    "Username of the public user bot, without the @",
		Required: true,
	}
	// MonitoringPortFlag defines the port used by the monitoring service.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used by the monitoring service",
		Value: 8083,
	}
)
