package relay

import (
	"errors"
	"testing"

	kit "teleradio/internal/transport"
)

func TestBuildEnvelopeTable(t *testing.T) {
	t.Parallel()
	files := []kit.File{{ID: "small"}, {ID: "large"}}
	cases := []struct {
		name    string
		msg     kit.Message
		op      kit.SendOp
		fileID  string
		caption string
		text    string
	}{
		{name: "text", msg: kit.Message{Kind: kit.KindText, Text: "hi"}, op: kit.OpSendText, text: "hi"},
		{name: "sticker", msg: kit.Message{Kind: kit.KindSticker, Files: files[:1]}, op: kit.OpSendSticker, fileID: "small"},
		{name: "photo picks largest", msg: kit.Message{Kind: kit.KindPhoto, Files: files, Text: "cap"}, op: kit.OpSendPhoto, fileID: "large", caption: "cap"},
		{name: "audio", msg: kit.Message{Kind: kit.KindAudio, Files: files[:1], Text: "a"}, op: kit.OpSendAudio, fileID: "small", caption: "a"},
		{name: "voice", msg: kit.Message{Kind: kit.KindVoice, Files: files[:1]}, op: kit.OpSendVoice, fileID: "small"},
		{name: "video", msg: kit.Message{Kind: kit.KindVideo, Files: files[:1], Text: "v"}, op: kit.OpSendVideo, fileID: "small", caption: "v"},
		{name: "video note drops caption", msg: kit.Message{Kind: kit.KindVideoNote, Files: files[:1], Text: "x"}, op: kit.OpSendVideoNote, fileID: "small"},
		{name: "animation", msg: kit.Message{Kind: kit.KindAnimation, Files: files[:1]}, op: kit.OpSendAnimation, fileID: "small"},
		{name: "document", msg: kit.Message{Kind: kit.KindDocument, Files: files[:1], Text: "d"}, op: kit.OpSendDocument, fileID: "small", caption: "d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := BuildEnvelope(&tc.msg)
			if err != nil {
				t.Fatalf("BuildEnvelope: %v", err)
			}
			if env.Op != tc.op || env.FileID != tc.fileID || env.Caption != tc.caption || env.Text != tc.text {
				t.Fatalf("env=%+v", env)
			}
			if !env.Silent {
				t.Fatal("envelope must be silent")
			}
		})
	}
}

func TestBuildEnvelopeStructured(t *testing.T) {
	t.Parallel()
	venue := &kit.Venue{Location: kit.Location{Lat: 1.5, Lng: 2.5}, Title: "Cafe", Address: "Main st"}
	env, err := BuildEnvelope(&kit.Message{Kind: kit.KindVenue, Venue: venue})
	if err != nil || env.Op != kit.OpSendVenue || env.Venue == nil || *env.Venue != *venue {
		t.Fatalf("venue env=%+v err=%v", env, err)
	}
	venue.Title = "changed"
	if env.Venue.Title != "Cafe" {
		t.Fatal("envelope shares venue with message")
	}

	poll := &kit.Poll{Question: "Q?", Options: []string{"a", "b"}, Type: "regular", Anonymous: true}
	env, err = BuildEnvelope(&kit.Message{Kind: kit.KindPoll, Poll: poll})
	if err != nil || env.Op != kit.OpSendPoll || env.Poll.Question != "Q?" || len(env.Poll.Options) != 2 {
		t.Fatalf("poll env=%+v err=%v", env, err)
	}
	poll.Options[0] = "z"
	if env.Poll.Options[0] != "a" {
		t.Fatal("envelope shares poll options with message")
	}

	c := &kit.Contact{PhoneNumber: "+1", FirstName: "A", LastName: "B"}
	if env, err = BuildEnvelope(&kit.Message{Kind: kit.KindContact, Contact: c}); err != nil || *env.Contact != *c {
		t.Fatalf("contact env=%+v err=%v", env, err)
	}
	loc := &kit.Location{Lat: 3, Lng: 4}
	if env, err = BuildEnvelope(&kit.Message{Kind: kit.KindLocation, Location: loc}); err != nil || *env.Location != *loc {
		t.Fatalf("location env=%+v err=%v", env, err)
	}
}

func TestBuildEnvelopeUnsupported(t *testing.T) {
	t.Parallel()
	for _, msg := range []*kit.Message{
		{Kind: kit.KindDice},
		{Kind: kit.KindUnknown},
		{Kind: kit.KindPhoto},
		{Kind: kit.KindLocation},
		nil,
	} {
		if _, err := BuildEnvelope(msg); !errors.Is(err, ErrUnsupportedKind) {
			t.Fatalf("msg=%+v err=%v", msg, err)
		}
	}
	if Supported(kit.KindDice) || !Supported(kit.KindPoll) {
		t.Fatal("Supported mismatch")
	}
}
