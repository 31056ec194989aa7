package bot

import (
	"github.com/filegate/filegate/gateway"
)

// screen is the bot-local renderable reply, mirroring the entitlement
// engine's shape for screens the engine doesn't own.
type screen struct {
	text     string
	keyboard gateway.Keyboard
}

func (s *Service) send(chatID int64, sc *screen) {
	if _, err := s.gw.Send(s.ctx, gateway.Message{
		ChatID:   chatID,
		Text:     sc.text,
		Keyboard: sc.keyboard,
	}); err != nil {
		log.WithError(err).WithField("chat", chatID).Warn("Could not send reply")
	}
}

func (s *Service) welcomeScreen() *screen {
	kb := gateway.Keyboard{
		gateway.Row(gateway.Button{Label: "Verify", CallbackData: "verify"}),
	}
	if s.settings.HowToVerifyLink(s.ctx) != "" {
		kb = append(kb, gateway.Row(gateway.Button{Label: "How to Verify", CallbackData: "howto"}))
	}
	return &screen{
		text: "Welcome! Tap a download button under any post in the group " +
			"and I'll send you the file here.",
		keyboard: kb,
	}
}

func hintScreen() *screen {
	return &screen{
		text: "I only understand download links. Tap a download button under a post in the group.",
	}
}

func badLinkScreen() *screen {
	return &screen{text: "That link doesn't look right. Tap a download button under a post instead."}
}

func errorScreen() *screen {
	return &screen{text: "Something went wrong. Please try again in a moment."}
}
