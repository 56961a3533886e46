package config

import (
	"strings"
	"time"

	logx "teleradio/pkg/logx"
)

const (
	DefaultPollTimeout  = 10 * time.Second
	DefaultSendTimeout  = 15 * time.Second
	DefaultRelayWorkers = 4
	DefaultRelayRate    = 25
	DefaultLogPath      = "./teleradio.log"
)

// LoggingOrDefault resolves the optional logging section.
func (c *Config) LoggingOrDefault() logx.Config {
	out := logx.Config{Level: "info", Console: true}
	if c == nil || c.Logging == nil {
		return out
	}
	l := c.Logging
	if s := strings.TrimSpace(l.Level); s != "" {
		out.Level = s
	}
	if l.Console != nil {
		out.Console = *l.Console
	}
	if l.File != nil {
		out.File = logx.FileConfig{Enabled: l.File.Enabled, Path: strings.TrimSpace(l.File.Path)}
		if out.File.Path == "" {
			out.File.Path = DefaultLogPath
		}
	}
	if l.Telegram != nil {
		out.Telegram = logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled,
			ChatID:     l.Telegram.ChatID,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		}
	}
	return out
}

// RelaySettings is the resolved relay section.
type RelaySettings struct {
	Workers     int
	RatePerSec  int
	SendTimeout time.Duration
	ExpirySweep string
}

func (c *Config) RelayOrDefault() RelaySettings {
	out := RelaySettings{Workers: DefaultRelayWorkers, RatePerSec: DefaultRelayRate, SendTimeout: DefaultSendTimeout}
	if c == nil || c.Relay == nil {
		return out
	}
	r := c.Relay
	if r.Workers > 0 {
		out.Workers = r.Workers
	}
	if r.RatePerSec > 0 {
		out.RatePerSec = r.RatePerSec
	}
	// Validate already rejected malformed values.
	if d, err := ParseDurationOrDefault("relay.send_timeout", r.SendTimeout, DefaultSendTimeout); err == nil {
		out.SendTimeout = d
	}
	out.ExpirySweep = strings.TrimSpace(r.ExpirySweep)
	return out
}

// TelegramSettings is the resolved telegram section.
type TelegramSettings struct {
	PollTimeout time.Duration
	Workers     int
}

func (c *Config) TelegramOrDefault() TelegramSettings {
	out := TelegramSettings{PollTimeout: DefaultPollTimeout, Workers: 1}
	if c == nil || c.Telegram == nil {
		return out
	}
	if d, err := ParseDurationOrDefault("telegram.poll_timeout", c.Telegram.PollTimeout, DefaultPollTimeout); err == nil {
		out.PollTimeout = d
	}
	if c.Telegram.Workers > 0 {
		out.Workers = c.Telegram.Workers
	}
	return out
}
