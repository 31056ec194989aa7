package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/filegate/filegate/gateway"
	"github.com/filegate/filegate/types"
	"github.com/filegate/filegate/verification"
)

// The upload wizard is a per-admin scratch session: title, archive, optional
// note, confirm. Sessions live in an expiring cache; an abandoned wizard
// simply times out.

type wizardStep int

const (
	stepTitle wizardStep = iota
	stepArchive
	stepExtra
	stepConfirm
)

type wizardSession struct {
	Step    wizardStep
	Title   string
	Extra   string
	Archive types.Coordinate
}

func sessionKey(adminID int64) string {
	return strconv.FormatInt(adminID, 10)
}

func (s *Service) wizardActive(adminID int64) bool {
	_, ok := s.sessions.Get(sessionKey(adminID))
	return ok
}

func (s *Service) wizardSession(adminID int64) *wizardSession {
	if v, ok := s.sessions.Get(sessionKey(adminID)); ok {
		return v.(*wizardSession)
	}
	return nil
}

func (s *Service) wizardBegin(adminID, chatID int64) {
	s.sessions.SetDefault(sessionKey(adminID), &wizardSession{Step: stepTitle})
	s.reply(chatID, "Publishing a new file. What's the title? (/cancel to abort)")
}

func (s *Service) wizardCancel(adminID, chatID int64) {
	if !s.wizardActive(adminID) {
		s.reply(chatID, "Nothing to cancel.")
		return
	}
	s.sessions.Delete(sessionKey(adminID))
	s.reply(chatID, "Upload cancelled.")
}

func (s *Service) wizardSkip(adminID, chatID int64) {
	sess := s.wizardSession(adminID)
	if sess == nil || sess.Step != stepExtra {
		s.reply(chatID, "Nothing to skip.")
		return
	}
	sess.Extra = ""
	sess.Step = stepConfirm
	s.sessions.SetDefault(sessionKey(adminID), sess)
	s.wizardConfirmScreen(chatID, sess)
}

func (s *Service) wizardInput(adminID int64, msg *tgbotapi.Message) {
	sess := s.wizardSession(adminID)
	if sess == nil {
		return
	}
	chatID := msg.Chat.ID

	switch sess.Step {
	case stepTitle:
		title := strings.TrimSpace(msg.Text)
		if title == "" {
			s.reply(chatID, "The title can't be empty. Try again.")
			return
		}
		sess.Title = title
		sess.Step = stepArchive
		s.sessions.SetDefault(sessionKey(adminID), sess)
		s.reply(chatID, "Now send or forward the archive file.")
	case stepArchive:
		// A document, video, audio, or any forwardable message works; the
		// original is copied into private storage verbatim.
		ref, err := s.copier.CopyFrom(s.ctx, chatID, msg.MessageID, s.cfg.StorageChatID)
		if err != nil {
			log.WithError(err).Error("Could not copy archive to storage")
			s.reply(chatID, "Couldn't store that file. Send it again or /cancel.")
			return
		}
		sess.Archive = types.Coordinate{ChatID: ref.ChatID, MessageID: ref.MessageID}
		sess.Step = stepExtra
		s.sessions.SetDefault(sessionKey(adminID), sess)
		s.reply(chatID, "Stored. Add an extra note for the caption, or /skip.")
	case stepExtra:
		sess.Extra = strings.TrimSpace(msg.Text)
		sess.Step = stepConfirm
		s.sessions.SetDefault(sessionKey(adminID), sess)
		s.wizardConfirmScreen(chatID, sess)
	case stepConfirm:
		s.reply(chatID, "Tap Publish or Cancel below.")
	}
}

func (s *Service) wizardConfirmScreen(chatID int64, sess *wizardSession) {
	text := fmt.Sprintf("Ready to publish:\n\nTitle: %s", sess.Title)
	if sess.Extra != "" {
		text += "\nNote: " + sess.Extra
	}
	password := s.settings.FilePassword(s.ctx)
	if password != "" {
		text += "\nArchive password: " + password
	}
	kb := gateway.Keyboard{
		gateway.Row(
			gateway.Button{Label: "Publish", CallbackData: "wizard:confirm"},
			gateway.Button{Label: "Cancel", CallbackData: "wizard:cancel"},
		),
	}
	s.replyKeyboard(chatID, text, kb)
}

func (s *Service) wizardCommit(adminID, chatID int64) {
	sess := s.wizardSession(adminID)
	if sess == nil || sess.Step != stepConfirm {
		s.reply(chatID, "No upload waiting for confirmation.")
		return
	}

	postNo, err := s.store.NextPostNo(s.ctx)
	if err != nil {
		log.WithError(err).Error("Could not allocate post number")
		s.reply(chatID, "Couldn't allocate a post number. Try Publish again.")
		return
	}

	now := s.now()
	announce := fmt.Sprintf("#%d %s", postNo, sess.Title)
	if sess.Extra != "" {
		announce += "\n" + sess.Extra
	}
	deepLink := fmt.Sprintf("https://t.me/%s?start=%s", s.cfg.UserBotUsername, verification.EncodeGet(postNo))
	post, err := s.gw.Send(s.ctx, gateway.Message{
		ChatID: s.cfg.PublicChatID,
		Text:   announce,
		Keyboard: gateway.Keyboard{
			gateway.Row(gateway.Button{Label: "Download", URL: deepLink}),
		},
	})
	if err != nil {
		log.WithError(err).Error("Could not post announcement")
		s.reply(chatID, "Couldn't post the announcement. Try Publish again.")
		return
	}

	f := &types.File{
		PostNo:     postNo,
		Title:      sess.Title,
		Extra:      sess.Extra,
		Archive:    sess.Archive,
		PublicPost: types.Coordinate{ChatID: post.ChatID, MessageID: post.MessageID},
		Password:   s.settings.FilePassword(s.ctx),
		CreatedBy:  adminID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.SaveFile(s.ctx, f); err != nil {
		log.WithError(err).WithField("post", postNo).Error("Could not save file record")
		s.reply(chatID, "The announcement went out but saving the record failed. Check the store.")
		return
	}

	s.recordAction(adminID, types.ActionFileUploaded, map[string]string{
		"post":  strconv.FormatInt(postNo, 10),
		"title": sess.Title,
	})
	s.sessions.Delete(sessionKey(adminID))
	s.reply(chatID, fmt.Sprintf("Published as post #%d.", postNo))
}

func (s *Service) recordAction(adminID int64, kind string, details map[string]string) {
	if err := s.store.RecordAction(s.ctx, &types.Action{
		ID:      uuid.New().String(),
		AdminID: adminID,
		Kind:    kind,
		Details: details,
		At:      s.now(),
	}); err != nil {
		log.WithError(err).WithField("kind", kind).Warn("Could not record operator action")
	}
}
