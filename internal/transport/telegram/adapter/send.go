package adapter

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v4"

	kit "teleradio/internal/transport"
)

// sendable maps an envelope to the telebot value to send. Contacts return
// (nil, nil): telebot has no Sendable for them, see sendContact.
func sendable(env kit.Envelope) (tele.Sendable, error) {
	f := tele.File{FileID: env.FileID}
	switch env.Op {
	case kit.OpSendSticker:
		return &tele.Sticker{File: f}, nil
	case kit.OpSendPhoto:
		return &tele.Photo{File: f, Caption: env.Caption}, nil
	case kit.OpSendAudio:
		return &tele.Audio{File: f, Caption: env.Caption}, nil
	case kit.OpSendVoice:
		return &tele.Voice{File: f, Caption: env.Caption}, nil
	case kit.OpSendVideo:
		return &tele.Video{File: f, Caption: env.Caption}, nil
	case kit.OpSendVideoNote:
		return &tele.VideoNote{File: f}, nil
	case kit.OpSendAnimation:
		return &tele.Animation{File: f, Caption: env.Caption}, nil
	case kit.OpSendDocument:
		return &tele.Document{File: f, Caption: env.Caption}, nil
	case kit.OpSendLocation:
		if env.Location == nil {
			return nil, fmt.Errorf("%s: missing location", env.Op)
		}
		return &tele.Location{Lat: float32(env.Location.Lat), Lng: float32(env.Location.Lng)}, nil
	case kit.OpSendVenue:
		if env.Venue == nil {
			return nil, fmt.Errorf("%s: missing venue", env.Op)
		}
		return &tele.Venue{
			Location: tele.Location{Lat: float32(env.Venue.Location.Lat), Lng: float32(env.Venue.Location.Lng)},
			Title:    env.Venue.Title,
			Address:  env.Venue.Address,
		}, nil
	case kit.OpSendPoll:
		if env.Poll == nil {
			return nil, fmt.Errorf("%s: missing poll", env.Op)
		}
		p := &tele.Poll{
			Type:            tele.PollType(env.Poll.Type),
			Question:        env.Poll.Question,
			Anonymous:       env.Poll.Anonymous,
			MultipleAnswers: env.Poll.MultipleAnswers,
			CorrectOption:   env.Poll.CorrectOption,
			Explanation:     env.Poll.Explanation,
			Closed:          env.Poll.Closed,
			OpenPeriod:      env.Poll.OpenPeriod,
			CloseUnixdate:   env.Poll.CloseUnixdate,
		}
		for _, o := range env.Poll.Options {
			p.Options = append(p.Options, tele.PollOption{Text: o})
		}
		return p, nil
	case kit.OpSendContact:
		if env.Contact == nil {
			return nil, fmt.Errorf("%s: missing contact", env.Op)
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported send op %q", env.Op)
	}
}

// Send delivers one relay envelope. Text goes through SendText so long
// messages are split.
func (a *Adapter) Send(ctx context.Context, to kit.ChatTarget, env kit.Envelope) error {
	if env.Op == kit.OpSendText {
		_, err := a.SendText(ctx, to, env.Text, &kit.SendOptions{Silent: env.Silent})
		return err
	}
	what, err := sendable(env)
	if err != nil {
		return err
	}
	if what == nil {
		return a.sendContact(ctx, to, env)
	}
	opt := &tele.SendOptions{DisableNotification: env.Silent}
	return callCtx(ctx, func() error {
		_, err := a.bot.Send(&tele.Chat{ID: to.ChatID}, what, opt)
		return err
	})
}

func (a *Adapter) sendContact(ctx context.Context, to kit.ChatTarget, env kit.Envelope) error {
	params := contactParams(to.ChatID, env)
	return callCtx(ctx, func() error {
		_, err := a.bot.Raw("sendContact", params)
		return err
	})
}

func contactParams(chatID int64, env kit.Envelope) map[string]string {
	params := map[string]string{
		"chat_id":      strconv.FormatInt(chatID, 10),
		"phone_number": env.Contact.PhoneNumber,
		"first_name":   env.Contact.FirstName,
	}
	if env.Contact.LastName != "" {
		params["last_name"] = env.Contact.LastName
	}
	if env.Silent {
		params["disable_notification"] = "true"
	}
	return params
}
