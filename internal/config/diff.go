package config

import (
	"reflect"
	"sort"
	"strings"

	logx "teleradio/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging. Token and password values are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if oldCfg.Token != newCfg.Token {
		changed = append(changed, "token")
	}
	if oldCfg.Password != newCfg.Password {
		changed = append(changed, "password")
	}
	if !reflect.DeepEqual(oldCfg.Speakers, newCfg.Speakers) {
		changed = append(changed, "speakers")
		attrs = append(attrs, logx.Int("speakers.count", len(newCfg.Speakers)))
	}
	if !reflect.DeepEqual(oldCfg.Receivers, newCfg.Receivers) {
		changed = append(changed, "receivers")
		attrs = append(attrs, logx.Int("receivers.count", len(newCfg.Receivers)))
	}

	oT, nT := derefTelegram(oldCfg.Telegram), derefTelegram(newCfg.Telegram)
	if oT != nT {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(nT.PollTimeout)),
			logx.Int("telegram.workers", nT.Workers),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		l := newCfg.LoggingOrDefault()
		attrs = append(attrs,
			logx.String("logging.level", l.Level),
			logx.Bool("logging.console", l.Console),
			logx.Bool("logging.file_enabled", l.File.Enabled),
			logx.Bool("logging.telegram_enabled", l.Telegram.Enabled),
		)
	}

	oR, nR := derefRelay(oldCfg.Relay), derefRelay(newCfg.Relay)
	if oR != nR {
		changed = append(changed, "relay")
		attrs = append(attrs,
			logx.Int("relay.workers", nR.Workers),
			logx.Int("relay.rate_per_sec", nR.RatePerSec),
			logx.String("relay.send_timeout", strings.TrimSpace(nR.SendTimeout)),
			logx.String("relay.expiry_sweep", strings.TrimSpace(nR.ExpirySweep)),
		)
	}

	// Nil means disabled.
	var oDriver, nDriver string
	var oPathSet, nPathSet bool
	if oldCfg.Storage != nil {
		oDriver = strings.TrimSpace(oldCfg.Storage.Driver)
		oPathSet = strings.TrimSpace(oldCfg.Storage.Path) != ""
	}
	if newCfg.Storage != nil {
		nDriver = strings.TrimSpace(newCfg.Storage.Driver)
		nPathSet = strings.TrimSpace(newCfg.Storage.Path) != ""
	}
	if oDriver != nDriver || oPathSet != nPathSet {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nDriver),
			logx.Bool("storage.path_set", nPathSet),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefTelegram(t *TelegramConfig) TelegramConfig {
	if t == nil {
		return TelegramConfig{}
	}
	return *t
}

func derefRelay(r *RelayConfig) RelayConfig {
	if r == nil {
		return RelayConfig{}
	}
	return *r
}
