// Package telegram adapts the Telegram Bot API to the gateway contract.
package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/types"
)

var log = logrus.WithField("prefix", "telegram")

// Adapter implements gateway.Gateway over one bot token. It also owns the
// long-poll update stream consumed by the bot processes.
type Adapter struct {
	bot *tgbotapi.BotAPI
}

// New authenticates the bot token against the platform.
func New(token string) (*Adapter, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "authenticate bot")
	}
	log.WithField("username", bot.Self.UserName).Info("Authenticated with chat platform")
	return &Adapter{bot: bot}, nil
}

// Username returns the bot's public username, used to build deep links.
func (a *Adapter) Username() string {
	return a.bot.Self.UserName
}

// Updates opens the long-poll update stream.
func (a *Adapter) Updates(timeoutSeconds int) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSeconds
	return a.bot.GetUpdatesChan(u)
}

// StopUpdates tears down the long-poll stream.
func (a *Adapter) StopUpdates() {
	a.bot.StopReceivingUpdates()
}

// AnswerCallback acknowledges a callback query so the client stops showing
// a spinner.
func (a *Adapter) AnswerCallback(callbackID string) {
	if _, err := a.bot.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		log.WithError(err).Debug("Could not answer callback query")
	}
}

// Send delivers a text message with an optional inline keyboard.
func (a *Adapter) Send(_ context.Context, msg gateway.Message) (gateway.Sent, error) {
	cfg := tgbotapi.NewMessage(msg.ChatID, msg.Text)
	cfg.DisableWebPagePreview = msg.DisableWebPreview
	if len(msg.Keyboard) > 0 {
		cfg.ReplyMarkup = toMarkup(msg.Keyboard)
	}
	sent, err := a.bot.Send(cfg)
	if err != nil {
		return gateway.Sent{}, classify(err, "send message")
	}
	return gateway.Sent{ChatID: msg.ChatID, MessageID: sent.MessageID}, nil
}

// Edit replaces the text and keyboard of a previously sent message.
func (a *Adapter) Edit(_ context.Context, ref gateway.Sent, text string, kb gateway.Keyboard) error {
	var err error
	if len(kb) > 0 {
		cfg := tgbotapi.NewEditMessageTextAndMarkup(ref.ChatID, ref.MessageID, text, toMarkup(kb))
		_, err = a.bot.Send(cfg)
	} else {
		cfg := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
		_, err = a.bot.Send(cfg)
	}
	if err != nil {
		return classify(err, "edit message")
	}
	return nil
}

// Delete removes a message.
func (a *Adapter) Delete(_ context.Context, ref gateway.Sent) error {
	if _, err := a.bot.Request(tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID)); err != nil {
		return classify(err, "delete message")
	}
	return nil
}

// Copy re-sends a stored message to the given chat with a caption.
func (a *Adapter) Copy(_ context.Context, from types.Coordinate, toChat int64, caption string) (gateway.Sent, error) {
	cfg := tgbotapi.NewCopyMessage(toChat, from.ChatID, from.MessageID)
	cfg.Caption = caption
	res, err := a.bot.CopyMessage(cfg)
	if err != nil {
		return gateway.Sent{}, classify(err, "copy message")
	}
	return gateway.Sent{ChatID: toChat, MessageID: res.MessageID}, nil
}

// CopyFrom copies an arbitrary (chat, message) pair into a destination chat
// without a caption. Used by the upload wizard to place archives into the
// private storage channel.
func (a *Adapter) CopyFrom(_ context.Context, fromChat int64, messageID int, toChat int64) (gateway.Sent, error) {
	cfg := tgbotapi.NewCopyMessage(toChat, fromChat, messageID)
	res, err := a.bot.CopyMessage(cfg)
	if err != nil {
		return gateway.Sent{}, classify(err, "copy message")
	}
	return gateway.Sent{ChatID: toChat, MessageID: res.MessageID}, nil
}

// MemberStatus returns the raw membership status of a user in a channel.
func (a *Adapter) MemberStatus(_ context.Context, channelHandle string, userID int64) (string, error) {
	member, err := a.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: "@" + channelHandle,
			UserID:             userID,
		},
	})
	if err != nil {
		return "", classify(err, "get chat member")
	}
	return member.Status, nil
}

func toMarkup(kb gateway.Keyboard) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(kb))
	for _, row := range kb {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.URL != "" {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonURL(b.Label, b.URL))
			} else {
				btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.CallbackData))
			}
		}
		rows = append(rows, btns)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// classify maps platform errors onto the gateway sentinels: 403 means the
// recipient blocked the bot, 429 and server-side failures are retryable,
// anything without an API status code is a transport problem.
func classify(err error, op string) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 403:
			return errors.Wrap(gateway.ErrBlocked, op)
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return errors.Wrapf(gateway.ErrTransient, "%s: %s", op, apiErr.Message)
		default:
			return errors.Wrap(err, op)
		}
	}
	return errors.Wrapf(gateway.ErrTransient, "%s: %v", op, err)
}
