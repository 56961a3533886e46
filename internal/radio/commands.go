package radio

import (
	"context"
	"errors"
	"fmt"

	"teleradio/internal/auth"
	kit "teleradio/internal/transport"
	"teleradio/internal/transport/telegram/router"
	logx "teleradio/pkg/logx"
	"teleradio/pkg/tgui"
)

// Commands returns the station's command set for the router.
func (s *Station) Commands() []router.Command {
	return []router.Command{
		{Route: "howto", Description: "how to use the radio", Access: auth.None, Handle: s.cmdHowto},
		{Route: "authorize", Description: "become a speaker", Access: auth.PrivateChat, Handle: s.cmdAuthorize},
		{Route: "changepassword", Description: "change the access password", Access: auth.PrivateChat, Handle: s.cmdChangePassword},
		{Route: "tune", Description: "start listening in this chat", Access: auth.ChatAdmin, Handle: s.cmdTune},
		{Route: "detune", Description: "stop listening in this chat", Access: auth.ChatAdmin, Handle: s.cmdDetune},
		{Route: "broadcast", Description: "go on air", Access: auth.Speaker, Handle: s.cmdBroadcast},
		{Route: "endbroadcast", Description: "end the broadcast", Access: auth.Speaker, Handle: s.cmdEndBroadcast},
		{Route: "status", Description: "broadcast status", Access: auth.Speaker, Handle: s.cmdStatus},
	}
}

// Relay is the router fallback for anything that is not a command.
func (s *Station) Relay(ctx context.Context, req *router.Request) error {
	rep, ok := s.HandleMessage(ctx, req.Message)
	if ok {
		req.Logger.Debug("relayed",
			logx.String("relay_id", rep.ID),
			logx.Int("delivered", rep.Delivered),
			logx.Int("failed", len(rep.Failures)),
		)
	}
	return nil
}

// PanicHook aborts the session when a handler panics.
func (s *Station) PanicHook(ctx context.Context, _ *router.Request, reason string) {
	s.Abort(ctx, reason)
}

func (s *Station) cmdHowto(ctx context.Context, req *router.Request) error {
	_, err := req.Adapter.SendText(ctx, kit.ChatTarget{ChatID: req.FromID}, howtoText, &kit.SendOptions{DisablePreview: true})
	return err
}

func (s *Station) cmdAuthorize(ctx context.Context, req *router.Request) error {
	if errors.Is(s.BeginAuthorize(req.FromID), ErrAlreadyAuthorized) {
		return req.Reply(ctx, TextAlreadyAuthd, s.keyboardOpt())
	}
	req.Expect("authorize.password", func(ctx context.Context, r *router.Request) error {
		name := r.Message.DisplayName()
		switch err := s.Authorize(r.FromID, name, r.Text()); {
		case err == nil:
			return r.Reply(ctx, fmt.Sprintf(TextAuthorized, name), s.keyboardOpt())
		case errors.Is(err, ErrAlreadyAuthorized):
			return r.Reply(ctx, TextAlreadyAuthd, s.keyboardOpt())
		default:
			return r.Reply(ctx, TextTryLater, &kit.SendOptions{ReplyMarkupAdapter: tgui.RemoveKeyboard()})
		}
	})
	return req.Reply(ctx, TextPasswordPrompt, &kit.SendOptions{ReplyMarkupAdapter: tgui.ForceReply("password")})
}

// cmdChangePassword asks for the bot token, so it runs only in a private
// chat and only for speakers.
func (s *Station) cmdChangePassword(ctx context.Context, req *router.Request) error {
	if !s.IsSpeaker(req.FromID) {
		return req.Reply(ctx, auth.DenySpeaker, nil)
	}
	req.Expect("changepassword.token", func(ctx context.Context, r *router.Request) error {
		if err := s.CheckToken(r.Text()); err != nil {
			r.Logger.Info("password change refused", logx.Err(err))
			return r.Reply(ctx, TextWentWrong, s.keyboardOpt())
		}
		r.Expect("changepassword.new", func(ctx context.Context, r *router.Request) error {
			if err := s.RotatePassword(ctx, r.FromID, r.Text()); err != nil {
				r.Logger.Info("password change refused", logx.Err(err))
				return r.Reply(ctx, TextWentWrong, s.keyboardOpt())
			}
			return nil
		})
		return r.Reply(ctx, TextNewPassword, &kit.SendOptions{ReplyMarkupAdapter: tgui.ForceReply("new password")})
	})
	return req.Reply(ctx, TextTokenPrompt, &kit.SendOptions{ReplyMarkupAdapter: tgui.ForceReply("bot token")})
}

func (s *Station) cmdTune(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, s.Tune(req.Chat.ChatID, req.FromID), nil)
}

func (s *Station) cmdDetune(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, s.Detune(req.Chat.ChatID, req.FromID), nil)
}

func (s *Station) cmdBroadcast(ctx context.Context, req *router.Request) error {
	s.StartBroadcast(ctx, req.FromID, req.Message.DisplayName())
	return nil
}

func (s *Station) cmdEndBroadcast(ctx context.Context, req *router.Request) error {
	s.StopBroadcast(ctx, req.FromID)
	return nil
}

func (s *Station) cmdStatus(ctx context.Context, req *router.Request) error {
	s.CheckExpiry(ctx)
	opt := s.keyboardOpt()
	opt.ParseMode = "HTML"
	return req.Reply(ctx, s.Status(ctx).HTML(), opt)
}

func (s *Station) keyboardOpt() *kit.SendOptions {
	return &kit.SendOptions{ReplyMarkupAdapter: s.Keyboard()}
}
