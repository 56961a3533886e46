package relay

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	kit "teleradio/internal/transport"
	logx "teleradio/pkg/logx"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Sender is the transport primitive the dispatcher needs.
type Sender interface {
	Send(ctx context.Context, to kit.ChatTarget, env kit.Envelope) error
}

type Config struct {
	Workers     int
	RatePerSec  int
	SendTimeout time.Duration
}

// DeliveryFailure records one receiver that did not get the envelope.
type DeliveryFailure struct {
	ChatID int64
	Err    error
}

func (f DeliveryFailure) Error() string { return fmt.Sprintf("deliver to %d: %v", f.ChatID, f.Err) }
func (f DeliveryFailure) Unwrap() error { return f.Err }

// Report summarizes one fan-out.
type Report struct {
	ID        string
	Kind      kit.ContentKind
	Total     int
	Delivered int
	Failures  []DeliveryFailure
	Took      time.Duration
}

// Dispatcher fans an envelope out to receivers. Delivery is best-effort:
// every target is attempted once, failures never stop the others.
type Dispatcher struct {
	sender Sender
	log    logx.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func NewDispatcher(cfg Config, sender Sender, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{sender: sender, log: log}
	d.Apply(cfg)
	return d
}

// Apply swaps worker count, pacing and timeout. In-flight fan-outs keep the
// values they started with.
func (d *Dispatcher) Apply(cfg Config) {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	d.mu.Lock()
	d.cfg = cfg
	d.limiter = lim
	d.mu.Unlock()
}

// Fanout sends env to every target and returns once all attempts finished.
func (d *Dispatcher) Fanout(ctx context.Context, env kit.Envelope, targets []int64) Report {
	start := time.Now()
	d.mu.Lock()
	cfg := d.cfg
	lim := d.limiter
	d.mu.Unlock()

	rep := Report{ID: uuid.NewString(), Kind: env.Kind, Total: len(targets)}
	if len(targets) == 0 {
		return rep
	}

	var (
		mu       sync.Mutex
		failures []DeliveryFailure
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, chatID := range targets {
		g.Go(func() error {
			if err := d.sendOne(gctx, lim, cfg.SendTimeout, chatID, env); err != nil {
				d.log.Warn("relay delivery failed",
					logx.String("relay", rep.ID),
					logx.Int64("chat_id", chatID),
					logx.String("op", string(env.Op)),
					logx.Err(err),
				)
				mu.Lock()
				failures = append(failures, DeliveryFailure{ChatID: chatID, Err: err})
				mu.Unlock()
			}
			// Never fail the group: one receiver must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()

	rep.Failures = failures
	rep.Delivered = rep.Total - len(failures)
	rep.Took = time.Since(start)

	fields := []logx.Field{
		logx.String("relay", rep.ID),
		logx.String("kind", string(rep.Kind)),
		logx.Int("total", rep.Total),
		logx.Int("failed", len(rep.Failures)),
		logx.Duration("dur", rep.Took),
	}
	if len(rep.Failures) > 0 {
		d.log.Warn("relay finished with failures", fields...)
	} else {
		d.log.Debug("relay finished", fields...)
	}
	return rep
}

func (d *Dispatcher) sendOne(ctx context.Context, lim *rate.Limiter, timeout time.Duration, chatID int64, env kit.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("panic in relay send", logx.Int64("chat_id", chatID), logx.Any("panic", r), logx.String("stack", string(debug.Stack())))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return d.sender.Send(sctx, kit.ChatTarget{ChatID: chatID}, env)
}
