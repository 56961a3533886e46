// Package session holds the single broadcast session state machine.
//
// A Session is not safe for concurrent use; the station serializes access.
package session

import "time"

// DefaultTimeLimit bounds how long a broadcast stays open without activity
// from the speaker ending it.
const DefaultTimeLimit = 10 * time.Minute

type Session struct {
	limit     time.Duration
	active    bool
	startedAt time.Time
	deadline  time.Time
	stoppedAt time.Time
}

// New returns an idle session. A non-positive limit uses DefaultTimeLimit.
func New(limit time.Duration) *Session {
	if limit <= 0 {
		limit = DefaultTimeLimit
	}
	return &Session{limit: limit}
}

// Start opens the session, or refreshes the deadline if already active.
func (s *Session) Start(now time.Time) {
	s.active = true
	s.startedAt = now
	s.deadline = now.Add(s.limit)
}

// Stop closes the session and records now as the stop time, even when it was
// already idle. It reports whether the session was active.
func (s *Session) Stop(now time.Time) bool {
	was := s.active
	s.active = false
	s.stoppedAt = now
	return was
}

// Expire closes the session if now is strictly past the deadline and reports
// whether that transition happened.
func (s *Session) Expire(now time.Time) bool {
	if !s.active || !now.After(s.deadline) {
		return false
	}
	s.active = false
	s.stoppedAt = now
	return true
}

func (s *Session) Active() bool { return s.active }

func (s *Session) Limit() time.Duration { return s.limit }

type Snapshot struct {
	Active    bool
	StartedAt time.Time
	Deadline  time.Time
	StoppedAt time.Time
	Limit     time.Duration
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Active:    s.active,
		StartedAt: s.startedAt,
		Deadline:  s.deadline,
		StoppedAt: s.stoppedAt,
		Limit:     s.limit,
	}
}
