package bot_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"telegram-archivebot/internal/admins"
	"telegram-archivebot/internal/archive"
	"telegram-archivebot/internal/bot"
	"telegram-archivebot/internal/store"
	"telegram-archivebot/internal/store/storetest"
)

const (
	adminID  = int64(1000)
	outsider = int64(2000)
	chatID   = int64(777)
)

// fakeTransport копит ответы и уведомления вместо отправки в Telegram.
type fakeTransport struct {
	replies  []string
	notified []string
}

func (t *fakeTransport) Reply(_ context.Context, _ int64, _ int, text string) error {
	t.replies = append(t.replies, text)
	return nil
}

func (t *fakeTransport) Notify(_ context.Context, text string) {
	t.notified = append(t.notified, text)
}

func (t *fakeTransport) lastReply() string {
	if len(t.replies) == 0 {
		return ""
	}
	return t.replies[len(t.replies)-1]
}

type seqForwarder struct{ next int }

func (f *seqForwarder) Forward(context.Context, int64, int64, int) (int, error) {
	f.next++
	return f.next, nil
}

type nopMessenger struct{}

func (nopMessenger) SendMessage(context.Context, int64, string) error { return nil }

type echoShortener struct{}

func (echoShortener) Shorten(_ context.Context, u string) string { return u }

// command собирает tgbotapi.Message с bot_command entity, как его отдаёт
// long polling.
func command(from int64, text string) *tgbotapi.Message {
	cmdLen := len(text)
	if i := strings.IndexAny(text, " \n"); i >= 0 {
		cmdLen = i
	}
	return &tgbotapi.Message{
		MessageID: 555,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: chatID},
		Text:      text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: cmdLen},
		},
	}
}

func newBot(t *testing.T) (*bot.Bot, *fakeTransport, *storetest.MemStore, *admins.List) {
	t.Helper()

	mem := storetest.New()
	list, err := admins.Load(filepath.Join(t.TempDir(), "admins.json"), []int64{adminID})
	if err != nil {
		t.Fatalf("admins.Load() error: %v", err)
	}
	tr := &fakeTransport{}
	svc, err := archive.New(archive.Options{
		Store:          mem,
		Admins:         list,
		Forwarder:      &seqForwarder{},
		Messenger:      nopMessenger{},
		Notifier:       tr,
		Shortener:      echoShortener{},
		ArchiveChannel: -1001234567890,
		Domain:         "https://links.example.com",
	})
	if err != nil {
		t.Fatalf("archive.New() error: %v", err)
	}
	return bot.New(svc, list, tr), tr, mem, list
}

func TestStart(t *testing.T) {
	t.Parallel()

	b, tr, _, _ := newBot(t)
	b.HandleCommand(context.Background(), command(outsider, "/start"))
	if !strings.Contains(tr.lastReply(), "file-sharing bot") {
		t.Fatalf("reply = %q, want greeting", tr.lastReply())
	}
}

func TestLinkSavesAndReplies(t *testing.T) {
	t.Parallel()

	b, tr, mem, _ := newBot(t)
	msg := command(adminID, "/link")
	msg.ReplyToMessage = &tgbotapi.Message{MessageID: 42, Chat: &tgbotapi.Chat{ID: chatID}}

	b.HandleCommand(context.Background(), msg)

	if mem.Len() != 1 {
		t.Fatalf("stored %d records, want 1", mem.Len())
	}
	if !strings.HasPrefix(tr.lastReply(), "Content saved! Shareable link: ") {
		t.Fatalf("reply = %q, want success with link", tr.lastReply())
	}
}

func TestLinkRejectsOutsider(t *testing.T) {
	t.Parallel()

	b, tr, mem, _ := newBot(t)
	b.HandleCommand(context.Background(), command(outsider, "/link"))

	if mem.Len() != 0 {
		t.Fatal("record written for non-admin")
	}
	if got, want := tr.lastReply(), "Sorry, only admins can use /link!"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
	if len(tr.notified) == 0 {
		t.Fatal("refusal was not reported to the ops channel")
	}
}

func TestBatch(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		text      string
		wantReply string
		wantSaved int
	}{
		{"valid range", "/batch 100 105", "Batch saved! Shareable link: ", 1},
		{"reversed range", "/batch 105 100", "First ID must be less than last ID!", 0},
		{"missing args", "/batch", "Usage: /batch <first_message_id> <last_message_id>", 0},
		{"garbage args", "/batch abc def", "Usage: /batch <first_message_id> <last_message_id>", 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b, tr, mem, _ := newBot(t)
			b.HandleCommand(context.Background(), command(adminID, tc.text))

			if !strings.HasPrefix(tr.lastReply(), tc.wantReply) {
				t.Errorf("reply = %q, want prefix %q", tr.lastReply(), tc.wantReply)
			}
			if mem.Len() != tc.wantSaved {
				t.Errorf("stored %d records, want %d", mem.Len(), tc.wantSaved)
			}
		})
	}
}

func TestListContent(t *testing.T) {
	t.Parallel()

	b, tr, mem, _ := newBot(t)

	b.HandleCommand(context.Background(), command(adminID, "/list_content"))
	if got, want := tr.lastReply(), "No content stored!"; got != want {
		t.Fatalf("empty reply = %q, want %q", got, want)
	}

	records := []store.ContentRecord{
		{Code: "aaaaaa", Kind: store.KindSingle, MessageID: 7, UploaderID: adminID},
		{Code: "bbbbbb", Kind: store.KindBatch, FirstID: 10, LastID: 15, UploaderID: adminID},
	}
	for _, rec := range records {
		if err := mem.Insert(context.Background(), rec); err != nil {
			t.Fatalf("seed Insert() error: %v", err)
		}
	}

	b.HandleCommand(context.Background(), command(adminID, "/list_content"))
	reply := tr.lastReply()
	for _, fragment := range []string{
		"Content: aaaaaa", "Message ID: 7",
		"Batch: bbbbbb", "Messages: 10-15",
	} {
		if !strings.Contains(reply, fragment) {
			t.Errorf("reply missing %q:\n%s", fragment, reply)
		}
	}
}

func TestAdminMutation(t *testing.T) {
	t.Parallel()

	b, tr, _, list := newBot(t)
	ctx := context.Background()

	b.HandleCommand(ctx, command(adminID, fmt.Sprintf("/add_user %d", outsider)))
	if !list.Contains(outsider) {
		t.Fatal("/add_user did not update the allow-list")
	}
	if got, want := tr.lastReply(), fmt.Sprintf("User %d added as admin!", outsider); got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	b.HandleCommand(ctx, command(adminID, fmt.Sprintf("/add_user %d", outsider)))
	if got, want := tr.lastReply(), "User already an admin!"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	b.HandleCommand(ctx, command(adminID, fmt.Sprintf("/remove_user %d", outsider)))
	if list.Contains(outsider) {
		t.Fatal("/remove_user did not update the allow-list")
	}

	// Последнего администратора снять нельзя.
	b.HandleCommand(ctx, command(adminID, fmt.Sprintf("/remove_user %d", adminID)))
	if !list.Contains(adminID) {
		t.Fatal("last admin was removed")
	}
	if got, want := tr.lastReply(), "Error updating admin list!"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	b.HandleCommand(ctx, command(adminID, "/add_user abc"))
	if got, want := tr.lastReply(), "Usage: /add_user <user_id>"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}

func TestAdminCommandsRejectOutsider(t *testing.T) {
	t.Parallel()

	for _, cmd := range []string{"/admin", "/list_users", "/add_user 3000", "/remove_user 1000", "/broadcast hi"} {
		t.Run(cmd, func(t *testing.T) {
			t.Parallel()

			b, tr, _, list := newBot(t)
			b.HandleCommand(context.Background(), command(outsider, cmd))

			if !strings.HasPrefix(tr.lastReply(), "Sorry, only admins can use /") {
				t.Errorf("reply = %q, want refusal", tr.lastReply())
			}
			if list.Contains(3000) {
				t.Error("allow-list mutated by non-admin")
			}
			if !list.Contains(adminID) {
				t.Error("allow-list shrunk by non-admin")
			}
		})
	}
}

func TestBroadcast(t *testing.T) {
	t.Parallel()

	b, tr, mem, _ := newBot(t)
	ctx := context.Background()

	b.HandleCommand(ctx, command(adminID, "/broadcast"))
	if got, want := tr.lastReply(), "Usage: /broadcast <message>"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}

	for _, rec := range []store.ContentRecord{
		{Code: "aaaaaa", UploaderID: 10},
		{Code: "bbbbbb", UploaderID: 20},
	} {
		if err := mem.Insert(ctx, rec); err != nil {
			t.Fatalf("seed Insert() error: %v", err)
		}
	}

	b.HandleCommand(ctx, command(adminID, "/broadcast service restart at noon"))
	if got, want := tr.lastReply(), "Broadcast sent to 2 recipients!"; got != want {
		t.Fatalf("reply = %q, want %q", got, want)
	}
}
