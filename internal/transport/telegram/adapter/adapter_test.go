package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	tele "gopkg.in/telebot.v4"

	kit "teleradio/internal/transport"
	logx "teleradio/pkg/logx"
)

func TestToMessageClassifies(t *testing.T) {
	t.Parallel()
	chat := &tele.Chat{ID: 7, Type: tele.ChatPrivate}
	sender := &tele.User{ID: 42, Username: "alice", FirstName: "Alice", LastName: "L"}
	loc := tele.Location{Lat: 1.5, Lng: 2.5}

	cases := []struct {
		name string
		msg  *tele.Message
		kind kit.ContentKind
	}{
		{"text", &tele.Message{Text: "hi"}, kit.KindText},
		{"venue before location", &tele.Message{Venue: &tele.Venue{Location: loc, Title: "T"}, Location: &loc}, kit.KindVenue},
		{"location", &tele.Message{Location: &loc}, kit.KindLocation},
		{"animation before document", &tele.Message{Animation: &tele.Animation{File: tele.File{FileID: "a"}}, Document: &tele.Document{File: tele.File{FileID: "a"}}}, kit.KindAnimation},
		{"document", &tele.Message{Document: &tele.Document{File: tele.File{FileID: "d"}}}, kit.KindDocument},
		{"photo", &tele.Message{Photo: &tele.Photo{File: tele.File{FileID: "p"}}, Caption: "c"}, kit.KindPhoto},
		{"sticker", &tele.Message{Sticker: &tele.Sticker{File: tele.File{FileID: "s"}}}, kit.KindSticker},
		{"video note", &tele.Message{VideoNote: &tele.VideoNote{File: tele.File{FileID: "n"}}}, kit.KindVideoNote},
		{"contact", &tele.Message{Contact: &tele.Contact{PhoneNumber: "+1"}}, kit.KindContact},
		{"dice", &tele.Message{Dice: &tele.Dice{}}, kit.KindDice},
		{"empty", &tele.Message{}, kit.KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.msg.Chat = chat
			tc.msg.Sender = sender
			got := toMessage(tc.msg)
			if got.Kind != tc.kind {
				t.Fatalf("kind=%q want %q", got.Kind, tc.kind)
			}
			if got.FromID != 42 || got.ChatID != 7 || !got.IsPrivate() || got.DisplayName() != "alice" {
				t.Fatalf("meta=%+v", got)
			}
		})
	}
}

func TestToMessageCaptionAndPoll(t *testing.T) {
	t.Parallel()
	m := toMessage(&tele.Message{
		Chat:    &tele.Chat{ID: 1, Type: tele.ChatGroup},
		Photo:   &tele.Photo{File: tele.File{FileID: "p"}, Width: 800, Height: 600},
		Caption: "look",
	})
	if m.Text != "look" || len(m.Files) != 1 || m.Files[0].ID != "p" || m.ChatType != kit.ChatGroup {
		t.Fatalf("photo=%+v", m)
	}

	p := toMessage(&tele.Message{
		Chat: &tele.Chat{ID: 1, Type: tele.ChatPrivate},
		Poll: &tele.Poll{
			ID:         "poll-1",
			Question:   "Q?",
			Options:    []tele.PollOption{{Text: "a", VoterCount: 3}, {Text: "b"}},
			Type:       tele.PollQuiz,
			VoterCount: 9,
		},
	})
	if p.Kind != kit.KindPoll || p.Poll.Question != "Q?" || strings.Join(p.Poll.Options, ",") != "a,b" || p.Poll.Type != "quiz" {
		t.Fatalf("poll=%+v", p.Poll)
	}
	if toMessage(nil) != nil || toMessage(&tele.Message{}) != nil {
		t.Fatal("messages without chat should be dropped")
	}
}

func TestSendableMapping(t *testing.T) {
	t.Parallel()
	photo, err := sendable(kit.Envelope{Op: kit.OpSendPhoto, FileID: "f", Caption: "c"})
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := photo.(*tele.Photo); !ok || p.FileID != "f" || p.Caption != "c" {
		t.Fatalf("photo=%#v", photo)
	}

	venue, err := sendable(kit.Envelope{Op: kit.OpSendVenue, Venue: &kit.Venue{Location: kit.Location{Lat: 1, Lng: 2}, Title: "T", Address: "A"}})
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := venue.(*tele.Venue); !ok || v.Title != "T" || v.Location.Lng != 2 {
		t.Fatalf("venue=%#v", venue)
	}

	poll, err := sendable(kit.Envelope{Op: kit.OpSendPoll, Poll: &kit.Poll{Question: "Q", Options: []string{"x", "y"}}})
	if err != nil {
		t.Fatal(err)
	}
	if p, ok := poll.(*tele.Poll); !ok || len(p.Options) != 2 || p.Options[1].Text != "y" {
		t.Fatalf("poll=%#v", poll)
	}

	if what, err := sendable(kit.Envelope{Op: kit.OpSendContact, Contact: &kit.Contact{PhoneNumber: "1"}}); what != nil || err != nil {
		t.Fatalf("contact what=%v err=%v", what, err)
	}
	if _, err := sendable(kit.Envelope{Op: kit.OpSendLocation}); err == nil {
		t.Fatal("expected error for location without coordinates")
	}
	if _, err := sendable(kit.Envelope{Op: "send-nothing"}); err == nil {
		t.Fatal("expected error for unknown op")
	}
}

func TestContactParamsSilent(t *testing.T) {
	t.Parallel()
	p := contactParams(-100, kit.Envelope{
		Op:      kit.OpSendContact,
		Contact: &kit.Contact{PhoneNumber: "+1", FirstName: "A"},
		Silent:  true,
	})
	if p["chat_id"] != "-100" || p["disable_notification"] != "true" || p["first_name"] != "A" {
		t.Fatalf("params=%v", p)
	}
	if _, ok := p["last_name"]; ok {
		t.Fatal("empty last_name should be omitted")
	}
}

func TestSplitTelegramText(t *testing.T) {
	t.Parallel()
	if got := splitTelegramText("short", 10, ""); len(got) != 1 || got[0] != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a", 8) + "\n" + strings.Repeat("b", 8)
	got := splitTelegramText(long, 10, "")
	if len(got) != 2 || got[0] != strings.Repeat("a", 8) || got[1] != strings.Repeat("b", 8) {
		t.Fatalf("got %q", got)
	}
	for _, c := range splitTelegramText(strings.Repeat("x", 25), 10, "") {
		if len([]rune(c)) > 10 {
			t.Fatalf("chunk too long: %d", len(c))
		}
	}
}

func TestUpdateMenuCommandsSkipsUnchanged(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasSuffix(r.URL.Path, "/bottok/setMyCommands") {
			t.Errorf("path=%s", r.URL.Path)
		}
		var body struct {
			Commands []map[string]string `json:"commands"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if len(body.Commands) != 1 || body.Commands[0]["command"] != "tune" {
			t.Errorf("body=%+v", body)
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}))
	defer srv.Close()

	a := &Adapter{cfg: Config{Token: "tok", APIURL: srv.URL}, log: logx.Nop(), http: srv.Client()}
	cmds := []kit.BotCommand{{Command: "tune", Description: "subscribe"}}
	for i := 0; i < 2; i++ {
		if err := a.UpdateMenuCommands(context.Background(), cmds); err != nil {
			t.Fatalf("UpdateMenuCommands: %v", err)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("calls=%d want 1", n)
	}
}

func TestCallCtxHonoursDeadline(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	if err := callCtx(ctx, func() error { called = true; return nil }); err != context.Canceled || called {
		t.Fatalf("err=%v called=%v", err, called)
	}
}
