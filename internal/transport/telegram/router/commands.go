package router

import (
	"context"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"teleradio/internal/auth"
	"teleradio/internal/runtime/supervisor"
	kit "teleradio/internal/transport"
	logx "teleradio/pkg/logx"
)

type Command struct {
	// Route is the command name without the slash, e.g. "tune".
	Route       string
	Aliases     []string
	Description string
	Access      auth.Capability
	// Hidden commands are routed but left out of help and the menu.
	Hidden  bool
	Timeout time.Duration // optional per-command override
	Handle  HandlerFunc
}

// Authorizer decides whether a message's sender holds a capability.
type Authorizer interface {
	Check(ctx context.Context, c auth.Capability, msg *kit.Message) auth.Decision
}

type Request struct {
	Update  kit.Update
	Message *kit.Message
	Chat    kit.ChatTarget
	FromID  int64
	Command string
	Args    []string
	ReqID   string

	Adapter kit.Adapter
	Logger  logx.Logger

	prompts *promptBook
}

// Reply sends text to the request's chat.
func (r *Request) Reply(ctx context.Context, text string, opt *kit.SendOptions) error {
	_, err := r.Adapter.SendText(ctx, r.Chat, text, opt)
	return err
}

// Expect routes the sender's next message in this chat to next, once.
func (r *Request) Expect(name string, next HandlerFunc) {
	if r.prompts == nil || next == nil {
		return
	}
	r.prompts.expect(promptKey{chatID: r.Chat.ChatID, actorID: r.FromID}, name, next)
}

// Text is the message body (or caption).
func (r *Request) Text() string {
	if r.Message == nil {
		return ""
	}
	return r.Message.Text
}

type Options struct {
	// Workers bounds concurrent handlers. 1 handles updates strictly in
	// arrival order.
	Workers   int
	QueueSize int
	PromptTTL time.Duration
	// OnPanic runs after a handler panic has been recovered.
	OnPanic PanicHook
}

type CommandManager struct {
	mu       sync.RWMutex
	cmds     map[string]Command
	ordered  []Command
	fallback HandlerFunc

	log     logx.Logger
	adapter kit.Adapter
	authz   Authorizer
	prompts *promptBook
	opts    Options

	runMu   sync.Mutex
	running bool
	sup     *supervisor.Supervisor

	jobs chan func()
}

func NewCommandManager(log logx.Logger, adapter kit.Adapter, authz Authorizer, opts Options) *CommandManager {
	if log.IsZero() {
		log = logx.Nop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	return &CommandManager{
		cmds:    map[string]Command{},
		log:     log,
		adapter: adapter,
		authz:   authz,
		prompts: newPromptBook(opts.PromptTTL),
		opts:    opts,
		jobs:    make(chan func(), opts.QueueSize),
	}
}

// Supervisor returns the dispatcher's supervisor (nil if not running).
func (m *CommandManager) Supervisor() *supervisor.Supervisor {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return nil
	}
	return m.sup
}

func (m *CommandManager) setSupervisor(sup *supervisor.Supervisor, running bool) {
	m.runMu.Lock()
	m.sup = sup
	m.running = running
	m.runMu.Unlock()
}

// tryEnqueue is a panic-safe enqueue helper (handles the jobs channel being closed).
func (m *CommandManager) tryEnqueue(fn func()) (ok bool) {
	if fn == nil {
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	select {
	case m.jobs <- fn:
		return true
	default:
		return false
	}
}

// SetFallback installs the handler for messages that are neither commands
// nor prompt answers.
func (m *CommandManager) SetFallback(h HandlerFunc) {
	m.mu.Lock()
	m.fallback = h
	m.mu.Unlock()
}

// SetRegistry installs cmds (plus /help) and pushes the command menu.
func (m *CommandManager) SetRegistry(ctx context.Context, cmds []Command) {
	helper := Command{
		Route:       "help",
		Aliases:     []string{"start"},
		Description: "show this help",
		Access:      auth.None,
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, m.helpText(), &kit.SendOptions{DisablePreview: true})
		},
	}
	all := append([]Command{helper}, cmds...)

	byName := make(map[string]Command, len(all)*2)
	ordered := make([]Command, 0, len(all))
	for _, c := range all {
		name := strings.ToLower(strings.TrimSpace(c.Route))
		if name == "" || c.Handle == nil {
			continue
		}
		c.Route = name
		if _, dup := byName[name]; dup {
			m.log.Warn("duplicate command ignored", logx.String("cmd", name))
			continue
		}
		byName[name] = c
		ordered = append(ordered, c)
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if a == "" || strings.Contains(a, " ") {
				continue
			}
			if _, exists := byName[a]; !exists {
				byName[a] = c
			}
		}
	}

	m.mu.Lock()
	m.cmds = byName
	m.ordered = ordered
	m.mu.Unlock()

	if up, ok := m.adapter.(kit.CommandMenuUpdater); ok {
		menu := buildMenuCommands(ordered)
		go func() {
			mctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := up.UpdateMenuCommands(mctx, menu); err != nil {
				m.log.Warn("menu update failed", logx.Err(err))
			}
		}()
	}
}

func (m *CommandManager) lookup(name string) (Command, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cmds[name]
	return c, ok
}

// DispatchLoop consumes updates until ctx is done or updates is closed.
func (m *CommandManager) DispatchLoop(ctx context.Context, updates <-chan kit.Update) error {
	workers := m.opts.Workers

	sup := supervisor.New(ctx,
		supervisor.WithLogger(m.log.With(logx.String("comp", "telegram.router"))),
		supervisor.WithCancelOnError(false),
	)
	m.setSupervisor(sup, true)
	m.log.Info("command dispatcher started", logx.Int("workers", workers), logx.Int("job_queue_cap", cap(m.jobs)))

	var closeOnce sync.Once
	closeJobs := func() {
		closeOnce.Do(func() {
			m.setSupervisor(sup, false)
			close(m.jobs)
		})
	}

	for i := 0; i < workers; i++ {
		idx := i
		sup.GoRestart("command.worker."+strconv.Itoa(idx), func(c context.Context) error {
			for {
				select {
				case <-c.Done():
					return nil
				case job, ok := <-m.jobs:
					if !ok {
						return nil
					}
					func() {
						defer func() {
							if r := recover(); r != nil {
								m.log.Error("panic in command job", logx.Int("worker", idx), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
							}
						}()
						job()
					}()
				}
			}
		},
			supervisor.WithRestartBackoff(200*time.Millisecond, 5*time.Second),
			supervisor.WithStopOnCleanExit(true),
		)
	}

	sup.Go0("prompt.sweep", func(c context.Context) {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-c.Done():
				return
			case <-t.C:
				if n := m.prompts.sweep(); n > 0 {
					m.log.Debug("expired prompts dropped", logx.Int("count", n))
				}
			}
		}
	})

	defer func() {
		closeJobs()
		sup.Cancel()
		wctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = sup.Wait(wctx)
		cancel()
		m.setSupervisor(nil, false)
		m.log.Info("command dispatcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case up, ok := <-updates:
			if !ok {
				return nil
			}
			if up.Kind != kit.UpdateMessage || up.Message == nil {
				continue
			}
			if !m.tryEnqueue(func() { m.Handle(ctx, up) }) {
				m.log.Warn("command queue full; update dropped", logx.Int64("chat_id", up.Message.ChatID))
				_, _ = m.adapter.SendText(ctx, kit.ChatTarget{ChatID: up.Message.ChatID}, "Busy, try again.", nil)
			}
		}
	}
}

// Handle routes one update synchronously: a pending prompt for the sender
// wins, then commands, then the fallback.
func (m *CommandManager) Handle(ctx context.Context, up kit.Update) {
	msg := up.Message
	if msg == nil {
		return
	}
	req := m.newRequest(up)

	if p, ok := m.prompts.take(promptKey{chatID: msg.ChatID, actorID: msg.FromID}); ok {
		req.Command = p.name
		m.run(ctx, req, p.next, 0)
		return
	}

	if msg.Kind == kit.KindText {
		if name, args, ok := parseCommand(msg.Text); ok {
			cmd, found := m.lookup(name)
			if !found {
				// Unknown commands are ignored and never relayed.
				return
			}
			req.Command = cmd.Route
			req.Args = args
			req.Logger = req.Logger.With(logx.String("cmd", cmd.Route))
			if m.authz != nil {
				if d := m.authz.Check(ctx, cmd.Access, msg); !d.Allowed {
					m.deny(ctx, req, cmd, d)
					return
				}
			}
			m.run(ctx, req, cmd.Handle, cmd.Timeout)
			return
		}
	}

	m.mu.RLock()
	fb := m.fallback
	m.mu.RUnlock()
	if fb != nil {
		req.Command = "relay"
		m.run(ctx, req, fb, 0)
	}
}

func (m *CommandManager) newRequest(up kit.Update) *Request {
	msg := up.Message
	rid := newReqID()
	return &Request{
		Update:  up,
		Message: msg,
		Chat:    kit.ChatTarget{ChatID: msg.ChatID},
		FromID:  msg.FromID,
		ReqID:   rid,
		Adapter: m.adapter,
		Logger: m.log.With(
			logx.String("rid", rid),
			logx.Int64("chat_id", msg.ChatID),
			logx.Int64("from_id", msg.FromID),
		),
		prompts: m.prompts,
	}
}

func (m *CommandManager) run(ctx context.Context, req *Request, h HandlerFunc, timeout time.Duration) {
	final := Chain(
		h,
		MWPanicRecover(m.log, m.opts.OnPanic),
		MWRequestLog(m.log),
		MWTimeout(timeout),
	)
	_ = final(ctx, req)
}

func (m *CommandManager) deny(ctx context.Context, req *Request, cmd Command, d auth.Decision) {
	req.Logger.Info("command denied",
		logx.String("access", cmd.Access.String()),
		logx.Err(d.Err),
	)
	if d.Reason == "" {
		return
	}
	to := req.Chat
	if d.ReplyPrivately {
		to = kit.ChatTarget{ChatID: req.FromID}
	}
	if _, err := m.adapter.SendText(ctx, to, d.Reason, nil); err != nil {
		req.Logger.Warn("deny reply failed", logx.Err(err))
	}
}

func (m *CommandManager) helpText() string {
	m.mu.RLock()
	cmds := append([]Command(nil), m.ordered...)
	m.mu.RUnlock()

	var b strings.Builder
	for _, c := range cmds {
		if c.Hidden {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("/" + c.Route + ": " + strings.TrimSpace(c.Description))
	}
	return b.String()
}
