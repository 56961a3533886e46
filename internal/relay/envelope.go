// Package relay maps inbound messages to send instructions and fans them
// out to receiver chats.
package relay

import (
	"errors"
	"fmt"

	kit "teleradio/internal/transport"
)

var ErrUnsupportedKind = errors.New("unsupported message type")

var kindOps = map[kit.ContentKind]kit.SendOp{
	kit.KindText:      kit.OpSendText,
	kit.KindSticker:   kit.OpSendSticker,
	kit.KindPhoto:     kit.OpSendPhoto,
	kit.KindAudio:     kit.OpSendAudio,
	kit.KindVoice:     kit.OpSendVoice,
	kit.KindVideo:     kit.OpSendVideo,
	kit.KindVideoNote: kit.OpSendVideoNote,
	kit.KindAnimation: kit.OpSendAnimation,
	kit.KindDocument:  kit.OpSendDocument,
	kit.KindLocation:  kit.OpSendLocation,
	kit.KindVenue:     kit.OpSendVenue,
	kit.KindContact:   kit.OpSendContact,
	kit.KindPoll:      kit.OpSendPoll,
}

// Supported reports whether messages of kind k can be relayed.
func Supported(k kit.ContentKind) bool {
	_, ok := kindOps[k]
	return ok
}

// BuildEnvelope maps an inbound message to a send instruction. Every
// envelope is silent. Unmapped kinds return an error wrapping
// ErrUnsupportedKind.
func BuildEnvelope(msg *kit.Message) (kit.Envelope, error) {
	if msg == nil {
		return kit.Envelope{}, fmt.Errorf("%w: empty message", ErrUnsupportedKind)
	}
	op, ok := kindOps[msg.Kind]
	if !ok {
		return kit.Envelope{}, fmt.Errorf("%w %s", ErrUnsupportedKind, msg.Kind)
	}
	env := kit.Envelope{Op: op, Kind: msg.Kind, Silent: true}

	switch msg.Kind {
	case kit.KindText:
		env.Text = msg.Text
	case kit.KindSticker, kit.KindVideoNote:
		id, err := fileID(msg)
		if err != nil {
			return kit.Envelope{}, err
		}
		env.FileID = id
	case kit.KindPhoto, kit.KindAudio, kit.KindVoice, kit.KindVideo, kit.KindAnimation, kit.KindDocument:
		id, err := fileID(msg)
		if err != nil {
			return kit.Envelope{}, err
		}
		env.FileID = id
		env.Caption = msg.Text
	case kit.KindLocation:
		if msg.Location == nil {
			return kit.Envelope{}, fmt.Errorf("%w %s: no coordinates", ErrUnsupportedKind, msg.Kind)
		}
		loc := *msg.Location
		env.Location = &loc
	case kit.KindVenue:
		if msg.Venue == nil {
			return kit.Envelope{}, fmt.Errorf("%w %s: no venue", ErrUnsupportedKind, msg.Kind)
		}
		v := *msg.Venue
		env.Venue = &v
	case kit.KindContact:
		if msg.Contact == nil {
			return kit.Envelope{}, fmt.Errorf("%w %s: no contact", ErrUnsupportedKind, msg.Kind)
		}
		c := *msg.Contact
		env.Contact = &c
	case kit.KindPoll:
		if msg.Poll == nil {
			return kit.Envelope{}, fmt.Errorf("%w %s: no poll", ErrUnsupportedKind, msg.Kind)
		}
		p := *msg.Poll
		p.Options = append([]string(nil), msg.Poll.Options...)
		env.Poll = &p
	}
	return env, nil
}

// fileID picks the last (highest resolution) variant.
func fileID(msg *kit.Message) (string, error) {
	if len(msg.Files) == 0 || msg.Files[len(msg.Files)-1].ID == "" {
		return "", fmt.Errorf("%w %s: no file", ErrUnsupportedKind, msg.Kind)
	}
	return msg.Files[len(msg.Files)-1].ID, nil
}
