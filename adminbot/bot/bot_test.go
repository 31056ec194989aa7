package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/filegate/filegate/adminbot/broadcast"
	"github.com/filegate/filegate/config/settings"
	"github.com/filegate/filegate/db"
	gwmock "github.com/filegate/filegate/gateway/mock"
	"github.com/filegate/filegate/testing/assert"
	"github.com/filegate/filegate/testing/require"
	"github.com/filegate/filegate/types"
)

const (
	adminID     = int64(100)
	strangerID  = int64(200)
	storageChat = int64(-1001)
	publicChat  = int64(-1002)
)

type adminFixture struct {
	store db.Database
	gw    *gwmock.Gateway
	src   *fakeSource
	svc   *Service
	now   time.Time
}

type fakeSource struct {
	answered []string
}

func (f *fakeSource) Updates(int) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}
func (f *fakeSource) StopUpdates()             {}
func (f *fakeSource) AnswerCallback(id string) { f.answered = append(f.answered, id) }

func newAdminFixture(t *testing.T) *adminFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := db.NewDB(context.Background(), &db.Config{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, store.Close())
	})

	f := &adminFixture{store: store, gw: &gwmock.Gateway{}, src: &fakeSource{}, now: time.Unix(50000, 0).UTC()}
	resolver := settings.NewResolver(store)
	runner := broadcast.NewRunner(store, f.gw,
		broadcast.WithNow(func() time.Time { return f.now }),
		broadcast.WithSleep(func(time.Duration) {}))
	f.svc = New(Config{
		StorageChatID:   storageChat,
		PublicChatID:    publicChat,
		AdminIDs:        []int64{adminID},
		UserBotUsername: "filegate_bot",
	}, f.src, f.gw, f.gw, store, resolver, runner, WithNow(func() time.Time { return f.now }))
	return f
}

func adminMsg(userID int64, text string, cmdLen int) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		MessageID: 1,
		From:      &tgbotapi.User{ID: userID, UserName: "op"},
		Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		Text:      text,
	}
	if cmdLen > 0 {
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: cmdLen}}
	}
	return msg
}

func adminCallback(userID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb-1",
		From: &tgbotapi.User{ID: userID, UserName: "op"},
		Message: &tgbotapi.Message{
			MessageID: 9,
			Chat:      &tgbotapi.Chat{ID: userID, Type: "private"},
		},
		Data: data,
	}
}

func lastText(t *testing.T, gw *gwmock.Gateway) string {
	t.Helper()
	last := gw.LastSend()
	require.NotNil(t, last)
	return last.Msg.Text
}

func TestHandleUpdate_RejectsNonAdmin(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleUpdate(tgbotapi.Update{Message: adminMsg(strangerID, "/stats", 6)})

	require.Equal(t, 1, len(f.gw.Sends))
	assert.Equal(t, "Access denied.", f.gw.Sends[0].Msg.Text)
}

func TestHandleUpdate_IgnoresNonAdminCallback(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleUpdate(tgbotapi.Update{CallbackQuery: adminCallback(strangerID, "wizard:confirm")})

	assert.Equal(t, 0, len(f.gw.Sends))
	// The callback spinner is still dismissed.
	require.Equal(t, 1, len(f.src.answered))
	assert.Equal(t, "cb-1", f.src.answered[0])
}

func TestWizard_FullPublishFlow(t *testing.T) {
	f := newAdminFixture(t)

	f.svc.handleMessage(adminMsg(adminID, "/upload", 7))
	assert.StringContains(t, "What's the title?", lastText(t, f.gw))

	f.svc.handleMessage(adminMsg(adminID, "Season Pack 2026", 0))
	assert.StringContains(t, "send or forward the archive", lastText(t, f.gw))

	archive := adminMsg(adminID, "", 0)
	archive.MessageID = 55
	f.svc.handleMessage(archive)
	require.Equal(t, 1, len(f.gw.CopiesFrom))
	assert.Equal(t, adminID, f.gw.CopiesFrom[0].FromChat)
	assert.Equal(t, 55, f.gw.CopiesFrom[0].MessageID)
	assert.Equal(t, storageChat, f.gw.CopiesFrom[0].ToChat)

	f.svc.handleMessage(adminMsg(adminID, "Includes bonus episodes", 0))
	confirm := lastText(t, f.gw)
	assert.StringContains(t, "Ready to publish", confirm)
	assert.StringContains(t, "Season Pack 2026", confirm)
	assert.StringContains(t, "Includes bonus episodes", confirm)

	f.svc.handleCallback(adminCallback(adminID, "wizard:confirm"))
	assert.StringContains(t, "Published as post #1", lastText(t, f.gw))

	// The announcement carries the deep-link Download button.
	var announce *gwmock.SentRecord
	for i := range f.gw.Sends {
		if f.gw.Sends[i].Msg.ChatID == publicChat {
			announce = &f.gw.Sends[i]
		}
	}
	require.NotNil(t, announce)
	assert.StringContains(t, "#1 Season Pack 2026", announce.Msg.Text)
	require.Equal(t, 1, len(announce.Msg.Keyboard))
	assert.Equal(t, "Download", announce.Msg.Keyboard[0][0].Label)
	assert.StringContains(t, "https://t.me/filegate_bot?start=", announce.Msg.Keyboard[0][0].URL)

	file, err := f.store.File(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Season Pack 2026", file.Title)
	assert.Equal(t, f.gw.CopiesFrom[0].Ref.ChatID, file.Archive.ChatID)
	assert.Equal(t, adminID, file.CreatedBy)

	actions, err := f.store.RecentActions(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 1, len(actions))
	assert.Equal(t, types.ActionFileUploaded, actions[0].Kind)

	// The session is gone; plain text falls back to the hint.
	f.svc.handleMessage(adminMsg(adminID, "stray text", 0))
	assert.StringContains(t, "/help", lastText(t, f.gw))
}

func TestWizard_SkipLeavesNoteEmpty(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/upload", 7))
	f.svc.handleMessage(adminMsg(adminID, "Tools Bundle", 0))
	f.svc.handleMessage(adminMsg(adminID, "", 0))
	f.svc.handleMessage(adminMsg(adminID, "/skip", 5))
	assert.StringContains(t, "Ready to publish", lastText(t, f.gw))

	f.svc.handleCallback(adminCallback(adminID, "wizard:confirm"))
	file, err := f.store.File(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "", file.Extra)
}

func TestWizard_CancelAborts(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/upload", 7))
	f.svc.handleMessage(adminMsg(adminID, "/cancel", 7))
	assert.StringContains(t, "cancelled", lastText(t, f.gw))

	f.svc.handleCallback(adminCallback(adminID, "wizard:confirm"))
	assert.StringContains(t, "No upload waiting", lastText(t, f.gw))
}

func TestWizard_EmptyTitleRejected(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/upload", 7))
	f.svc.handleMessage(adminMsg(adminID, "   ", 0))
	assert.StringContains(t, "can't be empty", lastText(t, f.gw))
}

func TestChannels_AddListToggleRemove(t *testing.T) {
	f := newAdminFixture(t)

	f.svc.handleMessage(adminMsg(adminID, "/addchannel @updates https://t.me/updates Updates Feed", 11))
	assert.StringContains(t, "Added @updates at position 1", lastText(t, f.gw))

	f.svc.handleMessage(adminMsg(adminID, "/addchannel @updates https://t.me/updates", 11))
	assert.StringContains(t, "already configured", lastText(t, f.gw))

	f.svc.handleMessage(adminMsg(adminID, "/channels", 9))
	listing := lastText(t, f.gw)
	assert.StringContains(t, "@updates", listing)
	assert.StringContains(t, "active", listing)

	f.svc.handleMessage(adminMsg(adminID, "/togglechannel updates", 14))
	assert.StringContains(t, "now inactive", lastText(t, f.gw))

	ch, err := f.store.Channel(context.Background(), "updates")
	require.NoError(t, err)
	assert.Equal(t, false, ch.Active)

	f.svc.handleMessage(adminMsg(adminID, "/removechannel updates", 14))
	assert.StringContains(t, "Removed @updates", lastText(t, f.gw))

	_, err = f.store.Channel(context.Background(), "updates")
	require.ErrorIs(t, err, db.ErrNotFound)
}

func TestCmdSet_ValidatesAndInvalidates(t *testing.T) {
	f := newAdminFixture(t)

	f.svc.handleMessage(adminMsg(adminID, "/set file_access_limit nope", 4))
	assert.StringContains(t, "file_access_limit", lastText(t, f.gw))

	f.svc.handleMessage(adminMsg(adminID, "/set file_access_limit 5", 4))
	assert.StringContains(t, "Set file_access_limit = 5", lastText(t, f.gw))

	st, err := f.store.Setting(context.Background(), "file_access_limit")
	require.NoError(t, err)
	assert.Equal(t, "5", st.Value)
	assert.Equal(t, adminID, st.UpdatedBy)

	actions, err := f.store.RecentActions(context.Background(), 5)
	require.NoError(t, err)
	require.Equal(t, 1, len(actions))
	assert.Equal(t, types.ActionSettingChanged, actions[0].Kind)
	assert.Equal(t, "5", actions[0].Details["value"])
}

func TestCmdSettings_ShowsDefaultsAndOverrides(t *testing.T) {
	f := newAdminFixture(t)
	require.NoError(t, f.store.PutSetting(context.Background(), "file_password", "s3cret", adminID, f.now))

	f.svc.handleMessage(adminMsg(adminID, "/settings", 9))
	text := lastText(t, f.gw)
	assert.StringContains(t, "file_password = s3cret", text)
	assert.StringContains(t, "file_access_limit = (default)", text)
}

func TestCmdVerify_GrantsEntitlement(t *testing.T) {
	f := newAdminFixture(t)

	f.svc.handleMessage(adminMsg(adminID, "/verify 42", 7))
	assert.StringContains(t, "User 42 verified until", lastText(t, f.gw))

	u, err := f.store.User(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, true, u.Verified)
	assert.Equal(t, adminID, u.VerifiedBy)

	f.svc.handleMessage(adminMsg(adminID, "/unverify 42", 9))
	assert.StringContains(t, "Cleared verification", lastText(t, f.gw))

	u, err = f.store.User(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, false, u.Verified)
}

func TestCmdVerify_RejectsBadArgument(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/verify bob", 7))
	assert.StringContains(t, "Usage: /verify", lastText(t, f.gw))
}

func TestCmdStats_ReportsTotals(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	for _, id := range []int64{1, 2, 3} {
		_, err := f.store.EnsureUser(ctx, id, "", "", f.now)
		require.NoError(t, err)
	}
	require.NoError(t, f.store.ApplyVerification(ctx, 1, f.now, f.now.Add(24*time.Hour), adminID))

	f.svc.handleMessage(adminMsg(adminID, "/stats", 6))
	text := lastText(t, f.gw)
	assert.StringContains(t, "Users: 3 (1 verified)", text)
	assert.StringContains(t, "Files: 0", text)
}

func TestCmdLogs_ListsRecentActions(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/verify 42", 7))
	f.svc.handleMessage(adminMsg(adminID, "/logs", 5))

	text := lastText(t, f.gw)
	assert.StringContains(t, types.ActionUserVerified, text)
	assert.StringContains(t, "user=42", text)
}

func TestCmdLogs_EmptyStore(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/logs", 5))
	assert.StringContains(t, "No operator actions", lastText(t, f.gw))
}

func TestCmdBroadcast_RequiresReply(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/broadcast", 10))
	assert.StringContains(t, "Reply to the message", lastText(t, f.gw))
}

func TestCmdBroadcast_FansOutAndReports(t *testing.T) {
	f := newAdminFixture(t)
	ctx := context.Background()
	for _, id := range []int64{10, 11} {
		_, err := f.store.EnsureUser(ctx, id, "", "", f.now)
		require.NoError(t, err)
	}

	msg := adminMsg(adminID, "/broadcast", 10)
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 33, Chat: &tgbotapi.Chat{ID: adminID}}
	f.svc.handleMessage(msg)
	f.svc.wg.Wait()

	require.Equal(t, 2, len(f.gw.CopiesFrom))
	assert.Equal(t, 33, f.gw.CopiesFrom[0].MessageID)

	var summary string
	for _, s := range f.gw.Sends {
		if strings.Contains(s.Msg.Text, "finished") {
			summary = s.Msg.Text
		}
	}
	assert.StringContains(t, "Sent: 2", summary)
}

func TestHelp_ListsCommands(t *testing.T) {
	f := newAdminFixture(t)
	f.svc.handleMessage(adminMsg(adminID, "/help", 5))
	text := lastText(t, f.gw)
	assert.StringContains(t, "/upload", text)
	assert.StringContains(t, "/broadcast", text)
}
