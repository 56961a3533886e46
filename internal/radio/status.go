package radio

import (
	"context"
	"strconv"
	"time"

	"teleradio/internal/eventbus"
	"teleradio/internal/session"
	"teleradio/internal/storage"
	logx "teleradio/pkg/logx"
	"teleradio/pkg/tgui"

	"github.com/dustin/go-humanize"
)

type Status struct {
	Session   session.Snapshot
	Receivers int
	Speakers  int
	Now       time.Time

	// LastRelay is the newest recorded relay; nil without audit history.
	LastRelay *storage.AuditEntry
}

// historyScan bounds how far back Status looks for the last relay.
const historyScan = 50

func (s *Station) Status(ctx context.Context) Status {
	s.mu.Lock()
	st := Status{
		Session:   s.session.Snapshot(),
		Receivers: len(s.registry.List()),
		Speakers:  len(s.store.Speakers()),
		Now:       s.now(),
	}
	s.mu.Unlock()

	if s.history == nil {
		return st
	}
	entries, err := s.history.Recent(ctx, historyScan)
	if err != nil {
		s.log.Warn("audit history unavailable", logx.Err(err))
		return st
	}
	for i := range entries {
		if entries[i].Action == eventbus.RelayCompleted {
			st.LastRelay = &entries[i]
			break
		}
	}
	return st
}

// HTML renders the status for Telegram's HTML parse mode.
func (st Status) HTML() string {
	state := tgui.B("idle")
	var when tgui.H
	if st.Session.Active {
		state = tgui.B("on air")
		when = tgui.H("Ends: ") + tgui.Esc(humanize.RelTime(st.Session.Deadline, st.Now, "ago", "from now"))
	} else if !st.Session.StoppedAt.IsZero() {
		when = tgui.H("Last stopped: ") + tgui.Esc(humanize.RelTime(st.Session.StoppedAt, st.Now, "ago", "from now"))
	}
	return tgui.Lines(
		tgui.H("Broadcast: ")+state,
		when,
		tgui.H("Receivers: ")+tgui.Code(strconv.Itoa(st.Receivers)),
		tgui.H("Speakers: ")+tgui.Code(strconv.Itoa(st.Speakers)),
		tgui.H("Time limit: ")+tgui.Esc(st.Session.Limit.String()),
		st.lastRelayLine(),
	).String()
}

func (st Status) lastRelayLine() tgui.H {
	r := st.LastRelay
	if r == nil {
		return ""
	}
	return tgui.H("Last relay: ") + tgui.Code(strconv.Itoa(r.OK)) + tgui.H(" delivered, ") +
		tgui.Code(strconv.Itoa(r.Fail)) + tgui.H(" failed, ") + tgui.Esc(humanize.RelTime(r.At, st.Now, "ago", "from now"))
}
