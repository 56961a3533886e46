package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"teleradio/internal/config"
	"teleradio/internal/eventbus"
	"teleradio/internal/relay"
	kit "teleradio/internal/transport"
	logx "teleradio/pkg/logx"
)

func TestMapStorageConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		sc      *config.StorageConfig
		enabled bool
		wantErr bool
		driver  string
	}{
		{name: "absent"},
		{name: "none", sc: &config.StorageConfig{Driver: "none"}},
		{name: "file", sc: &config.StorageConfig{Driver: "file", Path: "./store"}, enabled: true, driver: "file"},
		{name: "file without path", sc: &config.StorageConfig{Driver: "file"}, wantErr: true},
		{name: "sqlite", sc: &config.StorageConfig{Driver: "SQLite", Path: "./a.db", BusyTimeout: "2s"}, enabled: true, driver: "sqlite"},
		{name: "sqlite bad timeout", sc: &config.StorageConfig{Driver: "sqlite", Path: "./a.db", BusyTimeout: "soon"}, wantErr: true},
		{name: "unknown", sc: &config.StorageConfig{Driver: "postgres", Path: "x"}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc, enabled, err := mapStorageConfig(&config.Config{Storage: tc.sc})
			if (err != nil) != tc.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tc.wantErr)
			}
			if enabled != tc.enabled || sc.Driver != tc.driver {
				t.Fatalf("sc=%+v enabled=%v", sc, enabled)
			}
		})
	}
}

func TestAuditEntryFor(t *testing.T) {
	t.Parallel()
	at := time.Unix(100, 0)

	rep := relay.Report{
		Kind:      kit.KindPhoto,
		Total:     2,
		Delivered: 1,
		Failures:  []relay.DeliveryFailure{{ChatID: -1, Err: errors.New("forbidden")}},
		Took:      1500 * time.Millisecond,
	}
	e := auditEntryFor(eventbus.Event{Type: eventbus.RelayCompleted, Time: at, ActorID: 42, ChatID: 42, Data: rep})
	if e.Action != eventbus.RelayCompleted || e.Target != "photo" || e.OK != 1 || e.Fail != 1 || e.TookMS != 1500 {
		t.Fatalf("relay entry=%+v", e)
	}
	if e.Error != "deliver to -1: forbidden" {
		t.Fatalf("relay error=%q", e.Error)
	}

	e = auditEntryFor(eventbus.Event{Type: eventbus.ReceiverTuned, Time: at, ActorID: 1, ChatID: -100})
	if e.Target != "-100" || e.OK != 1 {
		t.Fatalf("tune entry=%+v", e)
	}

	e = auditEntryFor(eventbus.Event{Type: eventbus.SessionStarted, Time: at, ActorID: 42, Data: "alice"})
	if e.ActorName != "alice" {
		t.Fatalf("start entry=%+v", e)
	}

	e = auditEntryFor(eventbus.Event{Type: eventbus.SessionAborted, Time: at, Data: "panic"})
	if e.OK != 0 || e.Fail != 1 || e.Error != "panic" {
		t.Fatalf("abort entry=%+v", e)
	}
}

func TestExpirySweeperRunsAndStops(t *testing.T) {
	t.Parallel()
	hit := make(chan struct{}, 4)
	s := newExpirySweeper(func(context.Context) bool {
		select {
		case hit <- struct{}{}:
		default:
		}
		return false
	}, logx.Nop())

	ctx := context.Background()
	if err := s.Apply(ctx, "not a spec"); err == nil {
		t.Fatal("expected parse error")
	}
	if err := s.Apply(ctx, "@every 1s"); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	select {
	case <-hit:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep did not run")
	}

	if err := s.Apply(ctx, ""); err != nil {
		t.Fatalf("disable: %v", err)
	}
	sctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(sctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
