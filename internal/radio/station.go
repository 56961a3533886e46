package radio

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"teleradio/internal/auth"
	"teleradio/internal/config"
	"teleradio/internal/eventbus"
	"teleradio/internal/registry"
	"teleradio/internal/relay"
	"teleradio/internal/session"
	"teleradio/internal/storage"
	kit "teleradio/internal/transport"
	logx "teleradio/pkg/logx"
	"teleradio/pkg/tgui"
)

// LogApplier applies a logging config live (logx.Service satisfies it).
type LogApplier interface {
	Apply(cfg logx.Config)
}

// History is the audit trail /status reads the last relay from
// (storage.Store satisfies it).
type History interface {
	Recent(ctx context.Context, limit int) ([]storage.AuditEntry, error)
}

type Deps struct {
	Store      *config.Store
	Transport  kit.Adapter
	Dispatcher *relay.Dispatcher
	Bus        eventbus.Bus
	Log        logx.Logger
	Logging    LogApplier
	History    History // optional

	// TimeLimit bounds a session; 0 uses session.DefaultTimeLimit.
	TimeLimit time.Duration
	// NotifyTimeout bounds each notification send; 0 uses config.DefaultSendTimeout.
	NotifyTimeout time.Duration
	Now           func() time.Time
}

type Station struct {
	mu sync.Mutex

	store    *config.Store
	session  *session.Session
	registry *registry.Registry
	gate     *auth.Gate

	transport  kit.Adapter
	dispatcher *relay.Dispatcher
	bus        eventbus.Bus
	log        logx.Logger
	logging    LogApplier
	history    History

	notifyTimeout atomic.Int64
	now           func() time.Time
}

func New(d Deps) *Station {
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.Bus == nil {
		d.Bus = eventbus.New()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NotifyTimeout <= 0 {
		d.NotifyTimeout = config.DefaultSendTimeout
	}
	if d.Dispatcher == nil {
		d.Dispatcher = relay.NewDispatcher(relay.Config{}, d.Transport, d.Log)
	}
	s := &Station{
		store:      d.Store,
		session:    session.New(d.TimeLimit),
		registry:   registry.New(d.Store),
		gate:       auth.NewGate(d.Store, d.Transport),
		transport:  d.Transport,
		dispatcher: d.Dispatcher,
		bus:        d.Bus,
		log:        d.Log.With(logx.String("comp", "radio")),
		logging:    d.Logging,
		history:    d.History,
		now:        d.Now,
	}
	s.notifyTimeout.Store(int64(d.NotifyTimeout))
	return s
}

// Gate is the authorization gate commands are checked against.
func (s *Station) Gate() *auth.Gate { return s.gate }

func (s *Station) IsSpeaker(actorID int64) bool { return s.gate.IsSpeaker(actorID) }

// StartBroadcast opens (or refreshes) the session and tells every speaker,
// silently, who went on air.
func (s *Station) StartBroadcast(ctx context.Context, actorID int64, actorName string) {
	now := s.now()
	s.mu.Lock()
	s.session.Start(now)
	speakers := s.store.Speakers()
	s.mu.Unlock()

	s.log.Info("broadcast started", logx.Int64("actor_id", actorID), logx.String("actor", actorName))
	s.bus.Publish(eventbus.Event{Type: eventbus.SessionStarted, Time: now, ActorID: actorID, Data: actorName})
	s.notify(ctx, speakers, fmt.Sprintf(TextStarted, actorName), true)
}

// StopBroadcast closes the session. Speakers are told even when it was
// already idle.
func (s *Station) StopBroadcast(ctx context.Context, actorID int64) {
	now := s.now()
	s.mu.Lock()
	was := s.session.Stop(now)
	speakers := s.store.Speakers()
	s.mu.Unlock()

	if was {
		s.log.Info("broadcast stopped", logx.Int64("actor_id", actorID))
		s.bus.Publish(eventbus.Event{Type: eventbus.SessionStopped, Time: now, ActorID: actorID})
	}
	s.notify(ctx, speakers, TextStopped, false)
}

// CheckExpiry ends an overdue session. The timeout notice goes out only on
// the transition, so repeated calls notify once.
func (s *Station) CheckExpiry(ctx context.Context) bool {
	now := s.now()
	s.mu.Lock()
	expired := s.session.Expire(now)
	var speakers []config.Speaker
	if expired {
		speakers = s.store.Speakers()
	}
	s.mu.Unlock()

	if !expired {
		return false
	}
	s.log.Info("broadcast timed out")
	s.bus.Publish(eventbus.Event{Type: eventbus.SessionExpired, Time: now})
	s.notify(ctx, speakers, TextTimedOut, false)
	return true
}

// Tune subscribes chatID and returns the reply for the chat.
func (s *Station) Tune(chatID, actorID int64) string {
	s.mu.Lock()
	err := s.registry.Add(chatID)
	s.mu.Unlock()

	if errors.Is(err, registry.ErrAlreadyRegistered) {
		return TextAlreadyOn
	}
	s.logWriteErr("tune", err)
	s.bus.Publish(eventbus.Event{Type: eventbus.ReceiverTuned, Time: s.now(), ActorID: actorID, ChatID: chatID})
	return TextListening
}

// Detune unsubscribes chatID and returns the reply for the chat.
func (s *Station) Detune(chatID, actorID int64) string {
	s.mu.Lock()
	err := s.registry.Remove(chatID)
	s.mu.Unlock()

	if errors.Is(err, registry.ErrNotRegistered) {
		return TextAlreadyOff
	}
	s.logWriteErr("detune", err)
	s.bus.Publish(eventbus.Event{Type: eventbus.ReceiverDetuned, Time: s.now(), ActorID: actorID, ChatID: chatID})
	return TextFarewell
}

// BeginAuthorize reports whether actorID may start the password grant.
func (s *Station) BeginAuthorize(actorID int64) error {
	if s.gate.IsSpeaker(actorID) {
		return ErrAlreadyAuthorized
	}
	return nil
}

// Authorize grants speaker rights when password matches the configured one.
func (s *Station) Authorize(actorID int64, name, password string) error {
	s.mu.Lock()
	if s.store.HasSpeaker(actorID) {
		s.mu.Unlock()
		return ErrAlreadyAuthorized
	}
	if !secretEqual(s.store.Password(), password) {
		s.mu.Unlock()
		s.log.Info("authorization refused", logx.Int64("actor_id", actorID))
		return ErrWrongPassword
	}
	err := s.store.AppendSpeaker(name, actorID)
	s.mu.Unlock()

	s.logWriteErr("authorize", err)
	s.log.Info("speaker authorized", logx.Int64("actor_id", actorID), logx.String("actor", name))
	s.bus.Publish(eventbus.Event{Type: eventbus.SpeakerAuthorized, Time: s.now(), ActorID: actorID, Data: name})
	return nil
}

// CheckToken verifies the bot token as the second factor of a rotation.
func (s *Station) CheckToken(token string) error {
	if !secretEqual(s.store.Token(), token) {
		return ErrWrongToken
	}
	return nil
}

// RotatePassword sets a new password, revokes every speaker and asks the
// revoked speakers to authorize again.
func (s *Station) RotatePassword(ctx context.Context, actorID int64, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	s.mu.Lock()
	prev, err := s.store.RotatePassword(password)
	s.mu.Unlock()

	s.logWriteErr("changepassword", err)
	s.log.Info("password rotated", logx.Int64("actor_id", actorID), logx.Int("revoked", len(prev)))
	s.bus.Publish(eventbus.Event{Type: eventbus.PasswordRotated, Time: s.now(), ActorID: actorID, Data: len(prev)})
	s.notify(ctx, prev, TextPasswordChange, false)
	return nil
}

// HandleMessage relays a speaker's private message to every receiver while
// the session is active. Anything else is dropped silently. ok reports
// whether a fan-out ran.
func (s *Station) HandleMessage(ctx context.Context, msg *kit.Message) (rep relay.Report, ok bool) {
	s.CheckExpiry(ctx)
	if msg == nil {
		return relay.Report{}, false
	}

	s.mu.Lock()
	active := s.session.Active()
	targets := s.registry.List()
	s.mu.Unlock()

	if !active || !msg.IsPrivate() || !s.gate.IsSpeaker(msg.FromID) {
		return relay.Report{}, false
	}

	if !relay.Supported(msg.Kind) {
		s.log.Info("unsupported kind not relayed", logx.String("kind", string(msg.Kind)))
		s.reply(ctx, msg.ChatID, fmt.Sprintf(TextUnsupported, msg.Kind), nil)
		return relay.Report{}, false
	}
	env, err := relay.BuildEnvelope(msg)
	if err != nil {
		s.log.Warn("relay skipped", logx.String("kind", string(msg.Kind)), logx.Err(err))
		s.reply(ctx, msg.ChatID, fmt.Sprintf(TextUnsupported, msg.Kind), nil)
		return relay.Report{}, false
	}

	rep = s.dispatcher.Fanout(ctx, env, targets)
	s.bus.Publish(eventbus.Event{Type: eventbus.RelayCompleted, Time: s.now(), ActorID: msg.FromID, ChatID: msg.ChatID, Data: rep})
	return rep, true
}

// Abort forces the session idle and reports reason to every speaker.
func (s *Station) Abort(ctx context.Context, reason string) {
	now := s.now()
	s.mu.Lock()
	s.session.Stop(now)
	speakers := s.store.Speakers()
	s.mu.Unlock()

	s.log.Error("station aborted", logx.String("reason", reason))
	s.bus.Publish(eventbus.Event{Type: eventbus.SessionAborted, Time: now, Data: reason})
	s.notify(ctx, speakers, fmt.Sprintf(TextAborted, reason), false)
}

// Announce sends text to every speaker with the current keyboard.
func (s *Station) Announce(ctx context.Context, text string) {
	s.notify(ctx, s.store.Speakers(), text, false)
}

// Reload commits an externally edited config and applies the live sections.
// A config read before the station's latest write is dropped.
func (s *Station) Reload(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	s.mu.Lock()
	old := s.store.Get()
	applied := s.store.Replace(cfg)
	s.mu.Unlock()

	if !applied {
		s.log.Debug("config reload superseded by a newer write")
		return nil
	}

	if s.logging != nil {
		s.logging.Apply(cfg.LoggingOrDefault())
	}
	r := cfg.RelayOrDefault()
	s.dispatcher.Apply(relay.Config{Workers: r.Workers, RatePerSec: r.RatePerSec, SendTimeout: r.SendTimeout})
	s.notifyTimeout.Store(int64(r.SendTimeout))

	changed, attrs := config.SummarizeConfigChange(old, cfg)
	if len(changed) > 0 {
		fields := append([]logx.Field{logx.Any("changed", changed)}, attrs...)
		s.log.Info("config reloaded", fields...)
		s.bus.Publish(eventbus.Event{Type: eventbus.ConfigReloaded, Time: s.now(), Data: changed})
	}
	return changed
}

// Keyboard is the speaker keyboard for the current session state.
func (s *Station) Keyboard() any {
	s.mu.Lock()
	active := s.session.Active()
	s.mu.Unlock()
	return speakerKeyboard(active)
}

func speakerKeyboard(active bool) any {
	toggle := "/broadcast"
	if active {
		toggle = "/endbroadcast"
	}
	return tgui.Keyboard([]string{toggle}, []string{"/status", "/help"})
}

func (s *Station) notify(ctx context.Context, speakers []config.Speaker, text string, silent bool) {
	opt := &kit.SendOptions{Silent: silent, ReplyMarkupAdapter: s.Keyboard()}
	for _, sp := range speakers {
		s.reply(ctx, sp.ID, text, opt)
	}
}

func (s *Station) reply(ctx context.Context, chatID int64, text string, opt *kit.SendOptions) {
	if s.transport == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, time.Duration(s.notifyTimeout.Load()))
	defer cancel()
	if _, err := s.transport.SendText(cctx, kit.ChatTarget{ChatID: chatID}, text, opt); err != nil {
		s.log.Warn("notify failed", logx.Int64("chat_id", chatID), logx.Err(err))
	}
}

func (s *Station) logWriteErr(op string, err error) {
	if err == nil {
		return
	}
	var we *config.WriteError
	if errors.As(err, &we) {
		s.log.Error("config not persisted; memory and disk diverge", logx.String("op", op), logx.Err(err))
		return
	}
	s.log.Error("config mutation failed", logx.String("op", op), logx.Err(err))
}

// secretEqual compares in constant time. An unset secret never matches.
func secretEqual(want, got string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
