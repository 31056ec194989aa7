// Package main defines the public user bot of the filegate platform. It
// serves download requests arriving through deep links, walking each user
// through the subscription, verification, and quota gates.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"

	"github.com/filegate/filegate/cmd"
	"github.com/filegate/filegate/runtime/version"
	"github.com/filegate/filegate/userbot/flags"
	"github.com/filegate/filegate/userbot/node"
)

var log = logrus.WithField("prefix", "main")

func startUserBot(cliCtx *cli.Context) error {
	verbosity := cliCtx.String(cmd.VerbosityFlag.Name)
	level, err := logrus.ParseLevel(verbosity)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	bot, err := node.New(cliCtx)
	if err != nil {
		return err
	}
	bot.Start()
	return nil
}

var appFlags = []cli.Flag{
	flags.BotTokenFlag,
	flags.WebBaseURLFlag,
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
	app.Name = "filegate-userbot"
	app.Usage = "serves gated file downloads to users over chat deep links"
	app.Version = version.Version()
	app.Flags = appFlags
	app.Action = startUserBot
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
