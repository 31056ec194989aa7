// Package bot implements the operator bot: upload wizard, channel and
// settings management, manual verification, stats, and broadcasts. Every
// update is gated on the admin allowlist.
package bot

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/adminbot/broadcast"
	"github.com/filegate/filegate/config/params"
	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/gateway"
)

var log = logrus.WithField("prefix", "adminbot")

const longPollSeconds = 30

// UpdateSource is the slice of the Telegram adapter the update loop needs.
type UpdateSource interface {
	Updates(timeoutSeconds int) tgbotapi.UpdatesChannel
	StopUpdates()
	AnswerCallback(callbackID string)
}

// Copier moves a message between chats without exposing the original
// sender. The wizard uses it to place archives into private storage.
type Copier interface {
	CopyFrom(ctx context.Context, fromChat int64, messageID int, toChat int64) (gateway.Sent, error)
}

// Config carries the process-start parameters of the admin bot.
type Config struct {
	// StorageChatID is the private channel holding archive originals.
	StorageChatID int64
	// PublicChatID is the group receiving file announcements.
	PublicChatID int64
	// AdminIDs is the operator allowlist.
	AdminIDs []int64
	// UserBotUsername builds the get- deep links on announcements.
	UserBotUsername string
}

// Service runs the admin bot update loop as a registry-managed service.
type Service struct {
	cfg       Config
	src       UpdateSource
	gw        gateway.Gateway
	copier    Copier
	store     db.Database
	settings  *settings.Resolver
	runner    *broadcast.Runner
	sessions  *gocache.Cache
	now       func() time.Time
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option customizes a Service.
type Option func(*Service)

// WithNow injects a clock for tests.
func WithNow(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// New builds the admin bot service.
func New(
	cfg Config,
	src UpdateSource,
	gw gateway.Gateway,
	copier Copier,
	store db.Database,
	resolver *settings.Resolver,
	runner *broadcast.Runner,
	opts ...Option,
) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	ttl := params.Get().WizardSessionTTL
	s := &Service{
		cfg:      cfg,
		src:      src,
		gw:       gw,
		copier:   copier,
		store:    store,
		settings: resolver,
		runner:   runner,
		sessions: gocache.New(ttl, ttl),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(s)
	}
	s.startedAt = s.now()
	return s
}

// Start begins consuming updates.
func (s *Service) Start() {
	log.WithField("admins", len(s.cfg.AdminIDs)).Info("Starting admin bot")
	updates := s.src.Updates(longPollSeconds)
	s.wg.Add(1)
	go s.run(updates)
}

// Stop halts long polling and waits for in-flight handlers.
func (s *Service) Stop() error {
	log.Info("Stopping admin bot")
	s.src.StopUpdates()
	s.cancel()
	s.wg.Wait()
	return nil
}

// Status always reports healthy.
func (s *Service) Status() error {
	return nil
}

func (s *Service) run(updates tgbotapi.UpdatesChannel) {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				log.Warn("Update channel closed")
				return
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.handleUpdate(upd)
			}()
		}
	}
}

func (s *Service) isAdmin(userID int64) bool {
	for _, id := range s.cfg.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (s *Service) handleUpdate(upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Errorf("Update handler panicked: %s", debug.Stack())
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.From != nil && upd.Message.Chat != nil && upd.Message.Chat.IsPrivate():
		if !s.isAdmin(upd.Message.From.ID) {
			log.WithField("user", upd.Message.From.ID).Warn("Non-admin message rejected")
			s.reply(upd.Message.Chat.ID, "Access denied.")
			return
		}
		s.handleMessage(upd.Message)
	case upd.CallbackQuery != nil && upd.CallbackQuery.From != nil:
		defer s.src.AnswerCallback(upd.CallbackQuery.ID)
		if !s.isAdmin(upd.CallbackQuery.From.ID) {
			return
		}
		s.handleCallback(upd.CallbackQuery)
	}
}

func (s *Service) handleMessage(msg *tgbotapi.Message) {
	adminID := msg.From.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "help":
			s.reply(msg.Chat.ID, helpText)
		case "upload":
			s.wizardBegin(adminID, msg.Chat.ID)
		case "cancel":
			s.wizardCancel(adminID, msg.Chat.ID)
		case "skip":
			s.wizardSkip(adminID, msg.Chat.ID)
		case "channels":
			s.cmdChannels(msg)
		case "addchannel":
			s.cmdAddChannel(msg)
		case "removechannel":
			s.cmdRemoveChannel(msg)
		case "togglechannel":
			s.cmdToggleChannel(msg)
		case "settings":
			s.cmdSettings(msg)
		case "set":
			s.cmdSet(msg)
		case "verify":
			s.cmdVerify(msg)
		case "unverify":
			s.cmdUnverify(msg)
		case "stats":
			s.cmdStats(msg)
		case "logs":
			s.cmdLogs(msg)
		case "broadcast":
			s.cmdBroadcast(msg)
		default:
			s.reply(msg.Chat.ID, "Unknown command. Send /help for the list.")
		}
		return
	}

	// Non-command input only makes sense inside a wizard session.
	if s.wizardActive(adminID) {
		s.wizardInput(adminID, msg)
		return
	}
	s.reply(msg.Chat.ID, "Send /help for the list of commands.")
}

func (s *Service) handleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	switch cb.Data {
	case "wizard:confirm":
		s.wizardCommit(cb.From.ID, cb.Message.Chat.ID)
	case "wizard:cancel":
		s.wizardCancel(cb.From.ID, cb.Message.Chat.ID)
	}
}

func (s *Service) reply(chatID int64, text string) {
	if _, err := s.gw.Send(s.ctx, gateway.Message{ChatID: chatID, Text: text}); err != nil {
		log.WithError(err).WithField("chat", chatID).Warn("Could not send reply")
	}
}

func (s *Service) replyKeyboard(chatID int64, text string, kb gateway.Keyboard) {
	if _, err := s.gw.Send(s.ctx, gateway.Message{ChatID: chatID, Text: text, Keyboard: kb}); err != nil {
		log.WithError(err).WithField("chat", chatID).Warn("Could not send reply")
	}
}

const helpText = `Operator commands:
/upload — publish a new file (wizard)
/channels — list forced-subscription channels
/addchannel <handle> <link> [label] — add a channel
/removechannel <handle> — remove a channel
/togglechannel <handle> — flip a channel's active flag
/settings — show current settings
/set <key> <value> — change a setting
/verify <user_id> — manually verify a user
/unverify <user_id> — clear a user's verification
/stats — totals and uptime
/logs [n] — recent operator actions
/broadcast — reply to a message to fan it out to all users`
