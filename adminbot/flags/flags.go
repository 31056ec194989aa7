// Package flags contains all configuration runtime flags for the admin bot.
package flags

import (
	"github.com/urfave/cli/v2"
)

var (
	// BotTokenFlag defines the Telegram bot API token of the admin bot.
	BotTokenFlag = &cli.StringFlag{
		Name:     "bot-token",
		Usage:    "Telegram bot API token for the operator bot",
		Required: true,
	}
	// StorageChatFlag defines the private storage channel holding archive
	// originals.
	StorageChatFlag = &cli.IntFlag{
		Name:     "storage-chat-id",
		Usage:    "Chat id of the private storage channel, e.g. -1001234567890",
		Required: true,
	}
	// PublicChatFlag defines the public group receiving announcements.
	PublicChatFlag = &cli.IntFlag{
		Name:     "public-chat-id",
		Usage:    "Chat id of the public group receiving file announcements",
		Required: true,
	}
	// AdminIDsFlag lists the operator user ids allowed to talk to the bot.
	AdminIDsFlag = &cli.StringSliceFlag{
		Name:     "admin-id",
		Usage:    "User id allowed to operate the bot. This flag may be used multiple times.",
		Required: true,
	}
	// UserBotUsernameFlag names the public user bot so announcements can
	// carry its deep links.
	UserBotUsernameFlag = &cli.StringFlag{
		Name:     "user-bot-username",
		Usage:    "Username of the public user bot, without the @",
		Required: true,
	}
	// MonitoringPortFlag defines the port used by the monitoring service.
	MonitoringPortFlag = &cli.IntFlag{
		Name:  "monitoring-port",
		Usage: "Port used by the monitoring service",
		Value: 8082,
	}
)
