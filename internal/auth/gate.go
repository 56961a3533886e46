// Package auth decides who may run which command.
//
// Decisions are plain values computed before a handler runs; the router
// turns a denial into the reply text it carries.
package auth

import (
	"context"
	"errors"

	kit "teleradio/internal/transport"
)

var ErrDenied = errors.New("authorization denied")

// Denial texts shown to users.
const (
	DenySpeaker     = "You are not allowed to do this. Please, /authorize"
	DenyChatAdmin   = "You need admin privileges to do this."
	DenyPrivateOnly = "Let's find some private place."
)

// Capability is what a command requires of its caller.
type Capability int

const (
	None Capability = iota
	PrivateChat
	Speaker
	ChatAdmin
)

func (c Capability) String() string {
	switch c {
	case None:
		return "none"
	case PrivateChat:
		return "private"
	case Speaker:
		return "speaker"
	case ChatAdmin:
		return "chat_admin"
	default:
		return "unknown"
	}
}

// SpeakerSource reports speaker membership (config.Store satisfies it).
type SpeakerSource interface {
	HasSpeaker(id int64) bool
}

// AdminLister resolves chat administrators (the transport adapter satisfies it).
type AdminLister interface {
	ChatAdmins(ctx context.Context, chatID int64) ([]int64, error)
}

type Gate struct {
	speakers SpeakerSource
	admins   AdminLister
}

func NewGate(speakers SpeakerSource, admins AdminLister) *Gate {
	return &Gate{speakers: speakers, admins: admins}
}

func (g *Gate) IsSpeaker(actorID int64) bool {
	return g.speakers != nil && g.speakers.HasSpeaker(actorID)
}

// IsChatAdmin is true in private chats; otherwise the chat's administrator
// list is consulted.
func (g *Gate) IsChatAdmin(ctx context.Context, actorID, chatID int64, chatType kit.ChatType) (bool, error) {
	if chatType == kit.ChatPrivate {
		return true, nil
	}
	if g.admins == nil {
		return false, nil
	}
	ids, err := g.admins.ChatAdmins(ctx, chatID)
	if err != nil {
		return false, err
	}
	for _, id := range ids {
		if id == actorID {
			return true, nil
		}
	}
	return false, nil
}

// Decision is the outcome of Check. When denied, Reason is the reply text and
// ReplyPrivately says whether it goes to the actor instead of the chat.
type Decision struct {
	Allowed        bool
	Reason         string
	ReplyPrivately bool
	Err            error
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason string, private bool, err error) Decision {
	if err == nil {
		err = ErrDenied
	}
	return Decision{Reason: reason, ReplyPrivately: private, Err: err}
}

// Check evaluates capability c for the sender of msg.
func (g *Gate) Check(ctx context.Context, c Capability, msg *kit.Message) Decision {
	if msg == nil {
		return deny("", false, nil)
	}
	switch c {
	case None:
		return allow()
	case PrivateChat:
		if msg.IsPrivate() {
			return allow()
		}
		return deny(DenyPrivateOnly, false, nil)
	case Speaker:
		if g.IsSpeaker(msg.FromID) {
			return allow()
		}
		return deny(DenySpeaker, true, nil)
	case ChatAdmin:
		ok, err := g.IsChatAdmin(ctx, msg.FromID, msg.ChatID, msg.ChatType)
		if err != nil {
			return deny(DenyChatAdmin, false, errors.Join(ErrDenied, err))
		}
		if ok {
			return allow()
		}
		return deny(DenyChatAdmin, false, nil)
	default:
		return deny("", false, nil)
	}
}
