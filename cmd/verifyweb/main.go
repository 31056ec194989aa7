// Package main defines the verification web server of the filegate
// platform. It serves the link landing and countdown pages users traverse
// before returning to the bot with a completed token.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"

	"github.com/filegate/filegate/cmd"
	"github.com/filegate/filegate/runtime/version"
	"github.com/filegate/filegate/verifyweb/flags"
	"github.com/filegate/filegate/verifyweb/node"
)

var log = logrus.WithField("prefix", "main")

func startWeb(cliCtx *cli.Context) error {
	verbosity := cliCtx.String(cmd.VerbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	web, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	web.Start()
	return nil
}

var appFlags = []cli.Flag{
	flags.HTTPHostFlag,
	flags.HTTPPortFlag,
	flags.CORSOriginsFlag,
	flags.BotUsernameFlag,
	flags.MonitoringPortFlag,
	cmd.VerbosityFlag,
	cmd.LogFormat,
	cmd.LogFileName,
	cmd.ConfigFileFlag,
	cmd.TuningFileFlag,
	cmd.RedisAddrFlag,
	cmd.RedisPasswordFlag,
	cmd.RedisDBFlag,
	cmd.MonitoringHostFlag,
	cmd.DisableMonitoringFlag,
}

func init() {
	appFlags = cmd.WrapFlags(appFlags)
}

func main() {
	app := cli.App{}
	app.Name = "filegate-verifyweb"
	app.Usage = "serves the verification landing and countdown pages"
	app.Version = version.Version()
	app.Flags = appFlags
	app.Action = startWeb
	app.Before = func(ctx *cli.Context) error {
		// Load any flags from file, if specified.
		if ctx.IsSet(cmd.ConfigFileFlag.Name) {
			if err := altsrc.InitInputSourceWithContext(
				appFlags,
				altsrc.NewYamlSourceFromFlagFunc(
					cmd.ConfigFileFlag.Name))(ctx); err != nil {
				return err
			}
		}

		if err := cmd.ConfigureLogFormat(
			ctx.String(cmd.LogFormat.Name),
			ctx.String(cmd.LogFileName.Name)); err != nil {
			return err
		}

		logFileName := ctx.String(cmd.LogFileName.Name)
		if logFileName != "" {
			if err := cmd.ConfigurePersistentLogging(logFileName, ctx.String(cmd.LogFormat.Name)); err != nil {
				log.WithError(err).Error("Failed to configure logging to disk.")
			}
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
