package config

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Config is the durable state of the bot: credentials, the access password,
// the authorized speakers and the receiver chats.
//
// Optional sections are pointers so that a file which omits them is written
// back without them.
type Config struct {
	Token     string    `json:"token"`
	Password  string    `json:"password"`
	Speakers  []Speaker `json:"speakers"`
	Receivers []int64   `json:"receivers"`

	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Logging  *LoggingConfig  `json:"logging,omitempty"`
	Relay    *RelayConfig    `json:"relay,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`

	// base is the committed hash a reloaded config was read against.
	// Zero means Replace applies it unconditionally.
	base uint64
}

// Speaker is an actor allowed to run broadcasts. On disk it is the pair
// [display_name, actor_id].
type Speaker struct {
	Name string
	ID   int64
}

func (s Speaker) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{s.Name, s.ID})
}

func (s *Speaker) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("speaker: want [name, id]: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("speaker: want [name, id], got %d elements", len(pair))
	}
	var name *string
	if err := json.Unmarshal(pair[0], &name); err != nil {
		return fmt.Errorf("speaker name: %w", err)
	}
	var id int64
	if err := json.Unmarshal(pair[1], &id); err != nil {
		return fmt.Errorf("speaker id: %w", err)
	}
	s.ID = id
	s.Name = ""
	if name != nil {
		s.Name = *name
	}
	return nil
}

type TelegramConfig struct {
	// PollTimeout is a Go duration string (e.g. "10s").
	PollTimeout string `json:"poll_timeout,omitempty"`
	// Workers is the number of update handlers. 1 (default) handles
	// updates strictly one at a time.
	Workers int `json:"workers,omitempty"`
}

type LoggingConfig struct {
	Level    string           `json:"level,omitempty"`
	Console  *bool            `json:"console,omitempty"`
	File     *LoggingFile     `json:"file,omitempty"`
	Telegram *LoggingTelegram `json:"telegram,omitempty"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// RelayConfig tunes fan-out delivery.
//
// Defaults (when fields are omitted/zero):
//   - workers: 4
//   - rate_per_sec: 25 (Telegram allows ~30 messages/s per bot)
//   - send_timeout: "15s"
//   - expiry_sweep: "" (session expiry is only checked on inbound messages)
type RelayConfig struct {
	Workers     int    `json:"workers,omitempty"`
	RatePerSec  int    `json:"rate_per_sec,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"`
	// ExpirySweep is a cron spec (e.g. "@every 30s") that additionally
	// polls session expiry in the background.
	ExpirySweep string `json:"expiry_sweep,omitempty"`
}

// StorageConfig controls the optional operator audit log.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./teleradio_store" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Speakers = append([]Speaker(nil), c.Speakers...)
	cp.Receivers = append([]int64(nil), c.Receivers...)
	if c.Telegram != nil {
		t := *c.Telegram
		cp.Telegram = &t
	}
	if c.Logging != nil {
		l := *c.Logging
		if l.Console != nil {
			v := *l.Console
			l.Console = &v
		}
		if l.File != nil {
			f := *l.File
			l.File = &f
		}
		if l.Telegram != nil {
			t := *l.Telegram
			l.Telegram = &t
		}
		cp.Logging = &l
	}
	if c.Relay != nil {
		r := *c.Relay
		cp.Relay = &r
	}
	if c.Storage != nil {
		s := *c.Storage
		cp.Storage = &s
	}
	return &cp
}

// normalize makes empty lists explicit so they persist as [] rather than null.
func (c *Config) normalize() {
	if c.Speakers == nil {
		c.Speakers = []Speaker{}
	}
	if c.Receivers == nil {
		c.Receivers = []int64{}
	}
}

func decodeStrict(jb []byte) (*Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid config: trailing data")
	}
	cfg.normalize()
	return &cfg, nil
}
