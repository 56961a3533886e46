package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"teleradio/internal/config"
	"teleradio/internal/eventbus"
	"teleradio/internal/radio"
	"teleradio/internal/relay"
	"teleradio/internal/runtime/supervisor"
	"teleradio/internal/storage"
	kit "teleradio/internal/transport"
	telegram "teleradio/internal/transport/telegram/adapter"
	"teleradio/internal/transport/telegram/router"
	logx "teleradio/pkg/logx"
)

type App struct {
	cfgs *config.Store
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	adapter kit.Adapter
	station *radio.Station
	cmdm    *router.CommandManager
	sweep   *expirySweeper

	updates chan kit.Update
}

// NewApp loads the config and wires every component. A *config.LoadError is
// returned as is; the caller should treat it as fatal.
func NewApp(cfgPath string) (*App, error) {
	cfgs := config.NewStore(cfgPath)
	cfg, err := cfgs.Load()
	if err != nil {
		return nil, err
	}

	tg := cfg.TelegramOrDefault()
	bootLog := logx.NewConsole("INFO").With(logx.String("comp", "telegram"))
	ad, err := telegram.New(telegram.Config{
		Token:       cfg.Token,
		PollTimeout: tg.PollTimeout,
	}, bootLog)
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(cfg.LoggingOrDefault(), ad)
	cfgs.SetLogger(log.With(logx.String("comp", "config")))
	appLog := log.With(logx.String("comp", "app"))

	bus := eventbus.New()

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		appLog.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	rc := cfg.RelayOrDefault()
	disp := relay.NewDispatcher(relay.Config{
		Workers:     rc.Workers,
		RatePerSec:  rc.RatePerSec,
		SendTimeout: rc.SendTimeout,
	}, ad, log.With(logx.String("comp", "relay")))

	station := radio.New(radio.Deps{
		Store:         cfgs,
		Transport:     ad,
		Dispatcher:    disp,
		Bus:           bus,
		Log:           log,
		Logging:       logSvc,
		History:       store,
		NotifyTimeout: rc.SendTimeout,
	})

	cmdm := router.NewCommandManager(log.With(logx.String("comp", "commands")), ad, station.Gate(), router.Options{
		Workers: tg.Workers,
		OnPanic: station.PanicHook,
	})
	cmdm.SetFallback(station.Relay)

	return &App{
		cfgs:    cfgs,
		log:     appLog,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		adapter: ad,
		station: station,
		cmdm:    cmdm,
		sweep:   newExpirySweeper(station.CheckExpiry, log.With(logx.String("comp", "sweep"))),
		updates: make(chan kit.Update, 256),
	}, nil
}

// Done is closed when the app supervisor context is canceled (fatal error or Stop()).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	runCtx := a.sup.Context()

	if err := a.adapter.Start(runCtx, a.updates); err != nil {
		return err
	}
	a.cmdm.SetRegistry(runCtx, a.station.Commands())

	a.sup.Go("commands.dispatch", func(c context.Context) error {
		return a.cmdm.DispatchLoop(c, a.updates)
	})

	events, unsub := a.bus.Subscribe(128)
	rec := &auditRecorder{store: a.store, log: a.log.With(logx.String("comp", "audit"))}
	a.sup.Go0("audit.record", func(c context.Context) {
		defer unsub()
		rec.run(c, events)
	})

	if err := a.sweep.Apply(runCtx, a.cfgs.Get().RelayOrDefault().ExpirySweep); err != nil {
		a.log.Warn("expiry sweep not scheduled", logx.Err(err))
	}

	// hot reload config fan-out
	sub := a.cfgs.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgs.Unsubscribe(sub)
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				// Coalesce bursts: keep only the latest config in the channel.
				for {
					select {
					case newer := <-sub:
						if newer != nil {
							newCfg = newer
						}
					default:
						goto APPLY
					}
				}
			APPLY:
				a.applyReload(c, newCfg)
			}
		}
	})

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgs.Watch(c)
	})

	// A fatal supervisor error ends the session before the process exits.
	a.sup.Go0("fatal.watch", func(c context.Context) {
		<-c.Done()
		if err := a.sup.Err(); err != nil {
			actx, cancel := context.WithTimeout(context.WithoutCancel(c), 5*time.Second)
			a.station.Abort(actx, err.Error())
			cancel()
		}
	})

	a.station.Announce(runCtx, radio.TextRestarted)
	a.log.Info("app started", logx.String("config", a.cfgs.Path()), logx.Int("receivers", len(a.cfgs.Receivers())), logx.Int("speakers", len(a.cfgs.Speakers())))
	return nil
}

func (a *App) applyReload(ctx context.Context, newCfg *config.Config) {
	if newCfg == nil {
		return
	}
	if err := a.sweep.Apply(ctx, newCfg.RelayOrDefault().ExpirySweep); err != nil {
		a.log.Warn("invalid relay.expiry_sweep; keeping previous schedule", logx.Err(err))
	}
	changed := a.station.Reload(newCfg)
	if len(changed) == 0 {
		a.log.Debug("config reload received, but no effective changes detected")
		return
	}
	for _, s := range []string{"token", "storage", "telegram"} {
		if slices.Contains(changed, s) {
			a.log.Warn(s + " config changed; restart required for changes to take effect")
		}
	}
	a.log.Debug("config change summary", logx.String("changed", strings.Join(changed, ",")))
}

func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		return nil
	}
	a.log.Info("stopping", logx.String("reason", string(reason)))

	// First, cancel the app run context so background loops start unwinding immediately.
	a.sup.Cancel()

	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		a.log.Debug("stop step begin", logx.String("name", name), logx.Duration("max", max))

		stepCtx := ctx
		var cancel context.CancelFunc
		if max > 0 {
			// respect the caller's deadline; never extend it
			if dl, ok := ctx.Deadline(); ok {
				rem := time.Until(dl)
				if rem <= 0 {
					max = 0
				} else if rem < max {
					max = rem
				}
			}
			if max > 0 {
				stepCtx, cancel = context.WithTimeout(ctx, max)
				defer cancel()
			}
		}

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(stepCtx)
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-stepCtx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name),
				logx.Err(stepCtx.Err()),
				logx.Duration("elapsed", time.Since(start)),
			)
		}
	}

	step("sweep", time.Second, a.sweep.Stop)
	step("adapter", 2*time.Second, a.adapter.Stop)
	// Wait for supervised goroutines (dispatch, audit, config watch/reload).
	step("supervisor", 3*time.Second, a.sup.Wait)
	step("storage", time.Second, func(context.Context) error {
		if a.store != nil {
			return a.store.Close()
		}
		return nil
	})

	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return nil
}
