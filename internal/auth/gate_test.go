package auth

import (
	"context"
	"errors"
	"testing"

	kit "teleradio/internal/transport"
)

type speakerSet map[int64]bool

func (s speakerSet) HasSpeaker(id int64) bool { return s[id] }

type fakeAdmins struct {
	ids   []int64
	err   error
	calls int
}

func (f *fakeAdmins) ChatAdmins(context.Context, int64) ([]int64, error) {
	f.calls++
	return f.ids, f.err
}

func TestCheck(t *testing.T) {
	t.Parallel()
	admins := &fakeAdmins{ids: []int64{10}}
	g := NewGate(speakerSet{1: true}, admins)

	private := func(from int64) *kit.Message {
		return &kit.Message{ChatID: from, ChatType: kit.ChatPrivate, FromID: from}
	}
	group := func(from int64) *kit.Message {
		return &kit.Message{ChatID: -100, ChatType: kit.ChatSuperGroup, FromID: from}
	}

	cases := []struct {
		name      string
		cap       Capability
		msg       *kit.Message
		allowed   bool
		reason    string
		privately bool
	}{
		{"none", None, group(5), true, "", false},
		{"private ok", PrivateChat, private(5), true, "", false},
		{"private in group", PrivateChat, group(5), false, DenyPrivateOnly, false},
		{"speaker ok", Speaker, group(1), true, "", false},
		{"non speaker", Speaker, private(2), false, DenySpeaker, true},
		{"admin in private", ChatAdmin, private(2), true, "", false},
		{"admin in group", ChatAdmin, group(10), true, "", false},
		{"non admin in group", ChatAdmin, group(11), false, DenyChatAdmin, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := g.Check(context.Background(), tc.cap, tc.msg)
			if d.Allowed != tc.allowed || d.Reason != tc.reason || d.ReplyPrivately != tc.privately {
				t.Fatalf("decision=%+v", d)
			}
			if !d.Allowed && !errors.Is(d.Err, ErrDenied) {
				t.Fatalf("denial err=%v", d.Err)
			}
		})
	}
}

func TestChatAdminLookupError(t *testing.T) {
	t.Parallel()
	boom := errors.New("api down")
	g := NewGate(speakerSet{}, &fakeAdmins{err: boom})
	d := g.Check(context.Background(), ChatAdmin, &kit.Message{ChatID: -1, ChatType: kit.ChatGroup, FromID: 3})
	if d.Allowed || !errors.Is(d.Err, boom) || !errors.Is(d.Err, ErrDenied) {
		t.Fatalf("decision=%+v", d)
	}
}

func TestPrivateChatSkipsAdminLookup(t *testing.T) {
	t.Parallel()
	admins := &fakeAdmins{}
	g := NewGate(speakerSet{}, admins)
	ok, err := g.IsChatAdmin(context.Background(), 3, 3, kit.ChatPrivate)
	if !ok || err != nil || admins.calls != 0 {
		t.Fatalf("ok=%v err=%v calls=%d", ok, err, admins.calls)
	}
}
