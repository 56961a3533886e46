package app

import (
	"context"
	"strconv"
	"strings"
	"time"

	"teleradio/internal/eventbus"
	"teleradio/internal/relay"
	"teleradio/internal/storage"
	logx "teleradio/pkg/logx"
)

// auditRecorder turns station events into audit rows. Relay rows carry
// counts and the content kind, never the message itself.
type auditRecorder struct {
	store storage.Store
	log   logx.Logger
}

func (r *auditRecorder) run(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			r.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
			if r.store == nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			if err := r.store.AppendAudit(wctx, auditEntryFor(e)); err != nil {
				r.log.Warn("audit append failed", logx.String("type", e.Type), logx.Err(err))
			}
			cancel()
		}
	}
}

func auditEntryFor(e eventbus.Event) storage.AuditEntry {
	out := storage.AuditEntry{
		At:      e.Time,
		ActorID: e.ActorID,
		ChatID:  e.ChatID,
		Action:  e.Type,
		OK:      1,
	}
	switch d := e.Data.(type) {
	case relay.Report:
		out.Target = string(d.Kind)
		out.OK = d.Delivered
		out.Fail = len(d.Failures)
		out.TookMS = d.Took.Milliseconds()
		if len(d.Failures) > 0 {
			out.Error = d.Failures[0].Error()
		}
	case string:
		if e.Type == eventbus.SessionAborted {
			out.OK = 0
			out.Fail = 1
			out.Error = d
		} else {
			out.ActorName = d
		}
	case int:
		out.Target = strconv.Itoa(d)
	case []string:
		out.Target = strings.Join(d, ",")
	}
	if out.ChatID != 0 && out.Target == "" {
		out.Target = strconv.FormatInt(out.ChatID, 10)
	}
	return out
}
