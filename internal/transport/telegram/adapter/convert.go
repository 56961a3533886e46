package adapter

import (
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "teleradio/internal/transport"
)

// toMessage converts a telebot message into the transport-neutral form.
// Venue is checked before location and animation before document because
// Telegram fills both fields for those messages.
func toMessage(m *tele.Message) *kit.Message {
	if m == nil || m.Chat == nil {
		return nil
	}
	out := &kit.Message{
		ID:       m.ID,
		ChatID:   m.Chat.ID,
		ChatType: chatType(m.Chat.Type),
		Kind:     kit.KindUnknown,
		Text:     m.Caption,
	}
	if m.Sender != nil {
		out.FromID = m.Sender.ID
		out.FromUsername = m.Sender.Username
		out.FromName = strings.TrimSpace(m.Sender.FirstName + " " + m.Sender.LastName)
	}

	file := func(f tele.File, w, h int) []kit.File {
		return []kit.File{{ID: f.FileID, Width: w, Height: h}}
	}

	switch {
	case m.Poll != nil:
		out.Kind = kit.KindPoll
		out.Poll = toPoll(m.Poll)
	case m.Venue != nil:
		out.Kind = kit.KindVenue
		out.Venue = &kit.Venue{
			Location: toLocation(m.Venue.Location),
			Title:    m.Venue.Title,
			Address:  m.Venue.Address,
		}
	case m.Location != nil:
		out.Kind = kit.KindLocation
		loc := toLocation(*m.Location)
		out.Location = &loc
	case m.Contact != nil:
		out.Kind = kit.KindContact
		out.Contact = &kit.Contact{
			PhoneNumber: m.Contact.PhoneNumber,
			FirstName:   m.Contact.FirstName,
			LastName:    m.Contact.LastName,
		}
	case m.Sticker != nil:
		out.Kind = kit.KindSticker
		out.Files = file(m.Sticker.File, m.Sticker.Width, m.Sticker.Height)
	case m.Photo != nil:
		out.Kind = kit.KindPhoto
		out.Files = file(m.Photo.File, m.Photo.Width, m.Photo.Height)
	case m.Animation != nil:
		out.Kind = kit.KindAnimation
		out.Files = file(m.Animation.File, m.Animation.Width, m.Animation.Height)
	case m.Audio != nil:
		out.Kind = kit.KindAudio
		out.Files = file(m.Audio.File, 0, 0)
	case m.Voice != nil:
		out.Kind = kit.KindVoice
		out.Files = file(m.Voice.File, 0, 0)
	case m.VideoNote != nil:
		out.Kind = kit.KindVideoNote
		out.Files = file(m.VideoNote.File, m.VideoNote.Length, m.VideoNote.Length)
	case m.Video != nil:
		out.Kind = kit.KindVideo
		out.Files = file(m.Video.File, m.Video.Width, m.Video.Height)
	case m.Document != nil:
		out.Kind = kit.KindDocument
		out.Files = file(m.Document.File, 0, 0)
	case m.Dice != nil:
		out.Kind = kit.KindDice
	case m.Text != "":
		out.Kind = kit.KindText
		out.Text = m.Text
	}
	return out
}

func chatType(t tele.ChatType) kit.ChatType {
	switch t {
	case tele.ChatPrivate:
		return kit.ChatPrivate
	case tele.ChatGroup:
		return kit.ChatGroup
	case tele.ChatSuperGroup:
		return kit.ChatSuperGroup
	default:
		return kit.ChatChannel
	}
}

func toLocation(l tele.Location) kit.Location {
	return kit.Location{Lat: float64(l.Lat), Lng: float64(l.Lng)}
}

// toPoll keeps the question, option texts and settings. Poll id and vote
// counts are not copied.
func toPoll(p *tele.Poll) *kit.Poll {
	opts := make([]string, 0, len(p.Options))
	for _, o := range p.Options {
		opts = append(opts, o.Text)
	}
	return &kit.Poll{
		Question:        p.Question,
		Options:         opts,
		Type:            string(p.Type),
		Anonymous:       p.Anonymous,
		MultipleAnswers: p.MultipleAnswers,
		CorrectOption:   p.CorrectOption,
		Explanation:     p.Explanation,
		Closed:          p.Closed,
		OpenPeriod:      p.OpenPeriod,
		CloseUnixdate:   p.CloseUnixdate,
	}
}
