package bot

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	"github.com/filegate/filegate/types"
)

func (s *Service) cmdChannels(msg *tgbotapi.Message) {
	channels, err := s.store.Channels(s.ctx, false)
	if err != nil {
		log.WithError(err).Error("Could not list channels")
		s.reply(msg.Chat.ID, "Couldn't load the channel list.")
		return
	}
	if len(channels) == 0 {
		s.reply(msg.Chat.ID, "No forced-subscription channels configured.")
		return
	}
	types.SortChannels(channels)
	var b strings.Builder
	b.WriteString("Forced-subscription channels:\n")
	for _, ch := range channels {
		state := "active"
		if !ch.Active {
			state = "inactive"
		}
		fmt.Fprintf(&b, "%d. @%s — %s (%s)\n", ch.Order, ch.Handle, ch.Link, state)
	}
	s.reply(msg.Chat.ID, b.String())
}

func (s *Service) cmdAddChannel(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 2 {
		s.reply(msg.Chat.ID, "Usage: /addchannel <handle> <link> [label]")
		return
	}
	handle := strings.TrimPrefix(args[0], "@")
	link := args[1]
	label := ""
	if len(args) > 2 {
		label = strings.Join(args[2:], " ")
	}

	existing, err := s.store.Channels(s.ctx, false)
	if err != nil {
		log.WithError(err).Error("Could not load channels")
		s.reply(msg.Chat.ID, "Couldn't load the channel list.")
		return
	}
	ch := &types.Channel{
		Handle:     handle,
		Link:       link,
		ButtonText: label,
		Order:      len(existing) + 1,
		Active:     true,
		AddedBy:    msg.From.ID,
		AddedAt:    s.now(),
	}
	if err := s.store.SaveChannel(s.ctx, ch); err != nil {
		if errors.Is(err, db.ErrAlreadyExists) {
			s.reply(msg.Chat.ID, fmt.Sprintf("@%s is already configured.", handle))
			return
		}
		log.WithError(err).WithField("handle", handle).Error("Could not save channel")
		s.reply(msg.Chat.ID, "Couldn't save the channel.")
		return
	}
	s.recordAction(msg.From.ID, types.ActionChannelAdded, map[string]string{"handle": handle})
	s.reply(msg.Chat.ID, fmt.Sprintf("Added @%s at position %d.", handle, ch.Order))
}

func (s *Service) cmdRemoveChannel(msg *tgbotapi.Message) {
	handle := strings.TrimPrefix(strings.TrimSpace(msg.CommandArguments()), "@")
	if handle == "" {
		s.reply(msg.Chat.ID, "Usage: /removechannel <handle>")
		return
	}
	if err := s.store.DeleteChannel(s.ctx, handle); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.reply(msg.Chat.ID, fmt.Sprintf("@%s isn't configured.", handle))
			return
		}
		log.WithError(err).WithField("handle", handle).Error("Could not delete channel")
		s.reply(msg.Chat.ID, "Couldn't remove the channel.")
		return
	}
	s.recordAction(msg.From.ID, types.ActionChannelRemoved, map[string]string{"handle": handle})
	s.reply(msg.Chat.ID, fmt.Sprintf("Removed @%s.", handle))
}

func (s *Service) cmdToggleChannel(msg *tgbotapi.Message) {
	handle := strings.TrimPrefix(strings.TrimSpace(msg.CommandArguments()), "@")
	if handle == "" {
		s.reply(msg.Chat.ID, "Usage: /togglechannel <handle>")
		return
	}
	ch, err := s.store.Channel(s.ctx, handle)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.reply(msg.Chat.ID, fmt.Sprintf("@%s isn't configured.", handle))
			return
		}
		log.WithError(err).WithField("handle", handle).Error("Could not load channel")
		s.reply(msg.Chat.ID, "Couldn't load the channel.")
		return
	}
	ch.Active = !ch.Active
	if err := s.store.UpdateChannel(s.ctx, ch); err != nil {
		log.WithError(err).WithField("handle", handle).Error("Could not update channel")
		s.reply(msg.Chat.ID, "Couldn't update the channel.")
		return
	}
	s.recordAction(msg.From.ID, types.ActionChannelToggled, map[string]string{
		"handle": handle,
		"active": strconv.FormatBool(ch.Active),
	})
	state := "active"
	if !ch.Active {
		state = "inactive"
	}
	s.reply(msg.Chat.ID, fmt.Sprintf("@%s is now %s.", handle, state))
}

func (s *Service) cmdSettings(msg *tgbotapi.Message) {
	var b strings.Builder
	b.WriteString("Settings (stored value, default when unset):\n")
	for _, key := range types.KnownSettingKeys {
		value := "(default)"
		if st, err := s.store.Setting(s.ctx, key); err == nil && st.Value != "" {
			value = st.Value
		}
		fmt.Fprintf(&b, "%s = %s\n", key, value)
	}
	s.reply(msg.Chat.ID, b.String())
}

func (s *Service) cmdSet(msg *tgbotapi.Message) {
	args := strings.SplitN(strings.TrimSpace(msg.CommandArguments()), " ", 2)
	if len(args) < 2 || args[0] == "" {
		s.reply(msg.Chat.ID, "Usage: /set <key> <value>")
		return
	}
	key, value := args[0], strings.TrimSpace(args[1])
	if err := settings.Validate(key, value); err != nil {
		s.reply(msg.Chat.ID, err.Error())
		return
	}
	if err := s.store.PutSetting(s.ctx, key, value, msg.From.ID, s.now()); err != nil {
		log.WithError(err).WithField("key", key).Error("Could not store setting")
		s.reply(msg.Chat.ID, "Couldn't store the setting.")
		return
	}
	s.settings.Invalidate(key)
	s.recordAction(msg.From.ID, types.ActionSettingChanged, map[string]string{
		"key":   key,
		"value": value,
	})
	s.reply(msg.Chat.ID, fmt.Sprintf("Set %s = %s.", key, value))
}

func (s *Service) cmdVerify(msg *tgbotapi.Message) {
	userID, ok := s.parseUserID(msg)
	if !ok {
		return
	}
	now := s.now()
	period := s.settings.VerificationPeriod(s.ctx)
	if _, err := s.store.EnsureUser(s.ctx, userID, "", "", now); err != nil {
		log.WithError(err).WithField("user", userID).Error("Could not ensure user")
		s.reply(msg.Chat.ID, "Couldn't load the user.")
		return
	}
	if err := s.store.ApplyVerification(s.ctx, userID, now, now.Add(period), msg.From.ID); err != nil {
		log.WithError(err).WithField("user", userID).Error("Could not verify user")
		s.reply(msg.Chat.ID, "Couldn't verify the user.")
		return
	}
	s.recordAction(msg.From.ID, types.ActionUserVerified, map[string]string{
		"user": strconv.FormatInt(userID, 10),
	})
	s.reply(msg.Chat.ID, fmt.Sprintf("User %d verified until %s.",
		userID, now.Add(period).UTC().Format("2006-01-02 15:04 MST")))
}

func (s *Service) cmdUnverify(msg *tgbotapi.Message) {
	userID, ok := s.parseUserID(msg)
	if !ok {
		return
	}
	if err := s.store.ClearVerification(s.ctx, userID, msg.From.ID, s.now()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.reply(msg.Chat.ID, fmt.Sprintf("User %d is unknown.", userID))
			return
		}
		log.WithError(err).WithField("user", userID).Error("Could not unverify user")
		s.reply(msg.Chat.ID, "Couldn't clear the verification.")
		return
	}
	s.recordAction(msg.From.ID, types.ActionUserUnverified, map[string]string{
		"user": strconv.FormatInt(userID, 10),
	})
	s.reply(msg.Chat.ID, fmt.Sprintf("Cleared verification for user %d.", userID))
}

func (s *Service) parseUserID(msg *tgbotapi.Message) (int64, bool) {
	arg := strings.TrimSpace(msg.CommandArguments())
	userID, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || userID <= 0 {
		s.reply(msg.Chat.ID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
		return 0, false
	}
	return userID, true
}

func (s *Service) cmdStats(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()

	users, err := s.store.UserCount(ctx)
	if err != nil {
		log.WithError(err).Error("Could not count users")
		s.reply(msg.Chat.ID, "Couldn't load stats.")
		return
	}
	verified, _ := s.store.VerifiedUserCount(ctx, s.now())
	files, _ := s.store.FileCount(ctx)
	downloads, _ := s.store.TotalDownloads(ctx)

	text := fmt.Sprintf("Users: %s (%s verified)\nFiles: %s\nDownloads: %s\nUp since %s",
		humanize.Comma(users),
		humanize.Comma(verified),
		humanize.Comma(files),
		humanize.Comma(downloads),
		humanize.Time(s.startedAt))
	s.reply(msg.Chat.ID, text)
}

func (s *Service) cmdLogs(msg *tgbotapi.Message) {
	n := int64(10)
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		parsed, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || parsed < 1 {
			s.reply(msg.Chat.ID, "Usage: /logs [n]")
			return
		}
		n = parsed
	}
	actions, err := s.store.RecentActions(s.ctx, n)
	if err != nil {
		log.WithError(err).Error("Could not load actions")
		s.reply(msg.Chat.ID, "Couldn't load the action log.")
		return
	}
	if len(actions) == 0 {
		s.reply(msg.Chat.ID, "No operator actions recorded yet.")
		return
	}
	var b strings.Builder
	b.WriteString("Recent operator actions:\n")
	for _, a := range actions {
		fmt.Fprintf(&b, "%s — %s by %d", humanize.Time(a.At), a.Kind, a.AdminID)
		if len(a.Details) > 0 {
			parts := make([]string, 0, len(a.Details))
			for k, v := range a.Details {
				parts = append(parts, k+"="+v)
			}
			sort.Strings(parts)
			b.WriteString(" (" + strings.Join(parts, ", ") + ")")
		}
		b.WriteString("\n")
	}
	s.reply(msg.Chat.ID, b.String())
}

func (s *Service) cmdBroadcast(msg *tgbotapi.Message) {
	if msg.ReplyToMessage == nil {
		s.reply(msg.Chat.ID, "Reply to the message you want to broadcast with /broadcast.")
		return
	}
	source := types.Coordinate{ChatID: msg.Chat.ID, MessageID: msg.ReplyToMessage.MessageID}
	adminID := msg.From.ID
	chatID := msg.Chat.ID
	s.reply(chatID, "Broadcast started. I'll report back when it's done.")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sum, err := s.runner.Run(s.ctx, adminID, source)
		if err != nil {
			log.WithError(err).Error("Broadcast failed")
			s.reply(chatID, "Broadcast failed: "+err.Error())
			return
		}
		s.reply(chatID, fmt.Sprintf(
			"Broadcast %s finished in %s.\nRecipients: %d\nSent: %d\nBlocked: %d\nFailed: %d",
			sum.JobID, sum.Elapsed.Round(time.Second), sum.Total, sum.Sent, sum.Blocked, sum.Failed))
	}()
}
