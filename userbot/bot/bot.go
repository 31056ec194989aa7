// Package bot implements the public user bot: the update loop that turns
// /start deep links and callback buttons into entitlement engine calls.
package bot

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/entitlement"
	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/verification"
)

var log = logrus.WithField("prefix", "userbot")

const longPollSeconds = 30

// UpdateSource is the slice of the Telegram adapter the update loop needs.
type UpdateSource interface {
	Updates(timeoutSeconds int) tgbotapi.UpdatesChannel
	StopUpdates()
	AnswerCallback(callbackID string)
}

// Service runs the user bot update loop as a registry-managed service.
type Service struct {
	src      UpdateSource
	gw       gateway.Gateway
	engine   *entitlement.Engine
	settings *settings.Resolver

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds the user bot service.
func New(src UpdateSource, gw gateway.Gateway, engine *entitlement.Engine, resolver *settings.Resolver) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		src:      src,
		gw:       gw,
		engine:   engine,
		settings: resolver,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins consuming updates.
func (s *Service) Start() {
	log.Info("Starting user bot")
	updates := s.src.Updates(longPollSeconds)
	s.wg.Add(1)
	go s.run(updates)
}

// Stop halts long polling and waits for in-flight handlers.
func (s *Service) Stop() error {
	log.Info("Stopping user bot")
	s.src.StopUpdates()
	s.cancel()
	s.wg.Wait()
	return nil
}

// Status always reports healthy; a dead update channel ends the run loop
// and the process is restarted by its supervisor.
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

func (s *Service) handleUpdate(upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Errorf("Update handler panicked: %s", debug.Stack())
		}
	}()

	switch {
	case upd.Message != nil && upd.Message.Chat != nil && upd.Message.Chat.IsPrivate():
		s.handleMessage(upd.Message)
	case upd.CallbackQuery != nil:
		s.handleCallback(upd.CallbackQuery)
	}
}

func identityOf(from *tgbotapi.User) entitlement.Identity {
	return entitlement.Identity{
		UserID:    from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
	}
}

func (s *Service) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() || msg.Command() != "start" {
		s.send(msg.Chat.ID, hintScreen())
		return
	}

	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		s.send(msg.Chat.ID, s.welcomeScreen())
		return
	}

	start, err := verification.DecodeStart(arg)
	if err != nil {
		s.send(msg.Chat.ID, badLinkScreen())
		return
	}

	id := identityOf(msg.From)
	switch start.Kind {
	case verification.StartGet:
		out, err := s.engine.HandleGet(s.ctx, id, start.PostNo)
		if err != nil {
			log.WithError(err).WithField("user", id.UserID).Error("Download request failed")
			s.send(msg.Chat.ID, errorScreen())
			return
		}
		s.renderOutcome(msg.Chat.ID, out)
	case verification.StartVerify:
		out, err := s.engine.HandleVerifyReturn(s.ctx, id, start.TokenID)
		if err != nil {
			log.WithError(err).WithField("user", id.UserID).Error("Verification return failed")
			s.send(msg.Chat.ID, errorScreen())
			return
		}
		s.sendEntitlementScreen(msg.Chat.ID, out.Screen)
	}
}

func (s *Service) handleCallback(cb *tgbotapi.CallbackQuery) {
	defer s.src.AnswerCallback(cb.ID)
	if cb.From == nil {
		return
	}
	id := identityOf(cb.From)
	chatID := id.UserID
	if cb.Message != nil && cb.Message.Chat != nil {
		chatID = cb.Message.Chat.ID
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "retry:"):
		postNo, err := strconv.ParseInt(strings.TrimPrefix(data, "retry:"), 10, 64)
		if err != nil || postNo < 1 {
			return
		}
		if err := s.engine.RefreshMembership(s.ctx, id.UserID); err != nil {
			log.WithError(err).Warn("Could not refresh membership cache")
		}
		out, err := s.engine.HandleGet(s.ctx, id, postNo)
		if err != nil {
			log.WithError(err).WithField("user", id.UserID).Error("Retry request failed")
			s.send(chatID, errorScreen())
			return
		}
		s.renderOutcome(chatID, out)
	case data == "verify":
		screen, err := s.engine.VerifyCTA(s.ctx, id)
		if err != nil {
			log.WithError(err).WithField("user", id.UserID).Error("Verify request failed")
			s.send(chatID, errorScreen())
			return
		}
		s.sendEntitlementScreen(chatID, screen)
	case data == "howto":
		link := s.settings.HowToVerifyLink(s.ctx)
		if link == "" {
			s.send(chatID, &screen{text: "No tutorial is configured yet."})
			return
		}
		s.send(chatID, &screen{text: "Here's how verification works: " + link})
	case data == "close":
		if cb.Message != nil && cb.Message.Chat != nil {
			ref := gateway.Sent{ChatID: cb.Message.Chat.ID, MessageID: cb.Message.MessageID}
			if err := s.gw.Delete(s.ctx, ref); err != nil {
				log.WithError(err).Debug("Could not delete closed message")
			}
		}
	}
}

// renderOutcome sends the stop-screen of a gated request. Delivered
// outcomes carry no screen; the engine already produced all output.
func (s *Service) renderOutcome(chatID int64, out *entitlement.Outcome) {
	if out.Screen == nil {
		return
	}
	s.sendEntitlementScreen(chatID, out.Screen)
}

func (s *Service) sendEntitlementScreen(chatID int64, sc *entitlement.Screen) {
	if sc == nil {
		return
	}
	if _, err := s.gw.Send(s.ctx, gateway.Message{
		ChatID:   chatID,
		Text:     sc.Text,
		Keyboard: sc.Keyboard,
	}); err != nil {
		log.WithError(err).WithField("chat", chatID).Warn("Could not send reply")
	}
}
