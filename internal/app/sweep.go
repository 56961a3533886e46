package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	logx "teleradio/pkg/logx"

	"github.com/robfig/cron/v3"
)

var sweepParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// expirySweeper polls session expiry on a cron schedule.
type expirySweeper struct {
	check func(ctx context.Context) bool
	log   logx.Logger

	mu   sync.Mutex
	spec string
	c    *cron.Cron
	ctx  context.Context
}

func newExpirySweeper(check func(ctx context.Context) bool, log logx.Logger) *expirySweeper {
	return &expirySweeper{check: check, log: log}
}

// Apply (re)schedules the sweep. An empty spec disables it.
func (s *expirySweeper) Apply(ctx context.Context, spec string) error {
	spec = strings.TrimSpace(spec)
	s.mu.Lock()
	defer s.mu.Unlock()
	if spec == s.spec {
		return nil
	}

	var sched cron.Schedule
	if spec != "" {
		var err error
		if sched, err = sweepParser.Parse(spec); err != nil {
			return fmt.Errorf("relay.expiry_sweep: invalid %q: %w", spec, err)
		}
	}

	s.stopLocked()
	s.spec = spec
	if spec == "" {
		s.log.Debug("expiry sweep disabled")
		return nil
	}
	s.ctx = ctx
	s.c = cron.New(cron.WithParser(sweepParser))
	s.c.Schedule(sched, cron.FuncJob(func() {
		s.mu.Lock()
		c := s.ctx
		s.mu.Unlock()
		if c == nil || c.Err() != nil {
			return
		}
		if s.check(c) {
			s.log.Info("session closed by expiry sweep")
		}
	}))
	s.c.Start()
	s.log.Info("expiry sweep scheduled", logx.String("spec", spec))
	return nil
}

// Stop halts the schedule and waits for a running check to finish.
func (s *expirySweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	c := s.c
	s.c = nil
	s.spec = ""
	s.ctx = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	select {
	case <-c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *expirySweeper) stopLocked() {
	if s.c != nil {
		// Do not wait here: a running job needs s.mu.
		s.c.Stop()
		s.c = nil
	}
}
