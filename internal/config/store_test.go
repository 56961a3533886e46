package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const legacyJSON = `{
    "token": "123:abc",
    "password": "secret",
    "speakers": [["alice", 42], [null, 43]],
    "receivers": [-1001, -1002]
}`

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestLoadParsesSpeakerPairs(t *testing.T) {
	t.Parallel()
	s := NewStore(writeTemp(t, "config.json", legacyJSON))
	cfg, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Speaker{{Name: "alice", ID: 42}, {Name: "", ID: 43}}
	if !reflect.DeepEqual(cfg.Speakers, want) {
		t.Fatalf("speakers=%+v want %+v", cfg.Speakers, want)
	}
	if !reflect.DeepEqual(cfg.Receivers, []int64{-1001, -1002}) {
		t.Fatalf("receivers=%v", cfg.Receivers)
	}
	if !s.HasSpeaker(43) || s.HasSpeaker(44) {
		t.Fatal("HasSpeaker mismatch")
	}
	if s.Password() != "secret" || s.Token() != "123:abc" {
		t.Fatal("credentials mismatch")
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cases := []struct {
		name string
		path string
		body string
	}{
		{name: "missing", path: filepath.Join(dir, "nope.json")},
		{name: "malformed", path: filepath.Join(dir, "bad.json"), body: `{"token":`},
		{name: "unknown field", path: filepath.Join(dir, "unk.json"), body: `{"token":"x","colour":"red"}`},
		{name: "empty token", path: filepath.Join(dir, "tok.json"), body: `{"token":"","password":"p","speakers":[],"receivers":[]}`},
		{name: "bad speaker", path: filepath.Join(dir, "sp.json"), body: `{"token":"x","speakers":[["a"]]}`},
		{name: "duplicate receiver", path: filepath.Join(dir, "dup.json"), body: `{"token":"x","receivers":[1,1]}`},
		{name: "bad duration", path: filepath.Join(dir, "dur.json"), body: `{"token":"x","relay":{"send_timeout":"soon"}}`},
		{name: "negative duration", path: filepath.Join(dir, "neg.json"), body: `{"token":"x","storage":{"driver":"sqlite","path":"a.db","busy_timeout":"-1s"}}`},
		{name: "trailing data", path: filepath.Join(dir, "trail.json"), body: `{"token":"x"} {}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.body != "" {
				if err := os.WriteFile(tc.path, []byte(tc.body), 0o600); err != nil {
					t.Fatal(err)
				}
			}
			_, err := NewStore(tc.path).Load()
			var le *LoadError
			if !errors.As(err, &le) {
				t.Fatalf("err=%v, want *LoadError", err)
			}
		})
	}
}

func TestPersistRoundTrip(t *testing.T) {
	t.Parallel()
	p := writeTemp(t, "config.json", legacyJSON)
	s := NewStore(p)
	before, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.Persist(before); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	after, err := NewStore(p).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("round trip changed config:\n%+v\n%+v", before, after)
	}

	// Omitted optional sections stay omitted.
	raw, _ := os.ReadFile(p)
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m) != 4 {
		t.Fatalf("persisted keys=%v, want the four legacy keys", m)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	t.Parallel()
	body := "token: \"123:abc\"\npassword: secret\nspeakers:\n  - [alice, 42]\nreceivers: [-1001]\nrelay:\n  send_timeout: 5s\n"
	p := writeTemp(t, "config.yaml", body)
	s := NewStore(p)
	if _, err := s.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := s.AppendReceiver(-1002); err != nil {
		t.Fatalf("AppendReceiver: %v", err)
	}
	cfg, err := NewStore(p).Load()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(cfg.Receivers, []int64{-1001, -1002}) {
		t.Fatalf("receivers=%v", cfg.Receivers)
	}
	if cfg.Relay == nil || cfg.Relay.SendTimeout != "5s" {
		t.Fatalf("relay=%+v", cfg.Relay)
	}
	raw, _ := os.ReadFile(p)
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "{") {
		t.Fatalf("expected YAML output, got %s", raw)
	}
}

func TestMutationsWriteThrough(t *testing.T) {
	t.Parallel()
	p := writeTemp(t, "config.json", legacyJSON)
	s := NewStore(p)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	if err := s.AppendSpeaker("bob", 7); err != nil {
		t.Fatalf("AppendSpeaker: %v", err)
	}
	if err := s.RemoveReceiverAt(0); err != nil {
		t.Fatalf("RemoveReceiverAt: %v", err)
	}
	if err := s.RemoveReceiverAt(5); err == nil {
		t.Fatal("expected out of range error")
	}

	disk, err := NewStore(p).Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(disk.Receivers, []int64{-1002}) {
		t.Fatalf("receivers=%v", disk.Receivers)
	}
	if len(disk.Speakers) != 3 || disk.Speakers[2] != (Speaker{Name: "bob", ID: 7}) {
		t.Fatalf("speakers=%+v", disk.Speakers)
	}
}

func TestRotatePasswordClearsSpeakers(t *testing.T) {
	t.Parallel()
	p := writeTemp(t, "config.json", legacyJSON)
	s := NewStore(p)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	prev, err := s.RotatePassword("new")
	if err != nil {
		t.Fatalf("RotatePassword: %v", err)
	}
	if len(prev) != 2 {
		t.Fatalf("prev=%+v", prev)
	}
	disk, err := NewStore(p).Load()
	if err != nil {
		t.Fatal(err)
	}
	if disk.Password != "new" || len(disk.Speakers) != 0 {
		t.Fatalf("disk=%+v", disk)
	}
}

func TestWriteFailureKeepsMemoryAuthoritative(t *testing.T) {
	t.Parallel()
	p := writeTemp(t, "config.json", legacyJSON)
	s := NewStore(p)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	boom := errors.New("disk full")
	s.writeFile = func(string, []byte) error { return boom }

	err := s.AppendReceiver(-1003)
	var we *WriteError
	if !errors.As(err, &we) || !errors.Is(err, boom) {
		t.Fatalf("err=%v, want *WriteError wrapping boom", err)
	}
	if got := s.Receivers(); !reflect.DeepEqual(got, []int64{-1001, -1002, -1003}) {
		t.Fatalf("in-memory receivers=%v", got)
	}
	disk, err := NewStore(p).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(disk.Receivers) != 2 {
		t.Fatalf("disk receivers=%v, want unchanged", disk.Receivers)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()
	s := NewStore(writeTemp(t, "config.json", legacyJSON))
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	c := s.Get()
	c.Receivers[0] = 99
	c.Speakers = nil
	if s.Receivers()[0] != -1001 || len(s.Speakers()) != 2 {
		t.Fatal("Get leaked internal state")
	}
}

func TestReloadIgnoresOwnWrites(t *testing.T) {
	t.Parallel()
	p := writeTemp(t, "config.json", legacyJSON)
	s := NewStore(p)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	ch := s.Subscribe(1)
	defer s.Unsubscribe(ch)

	if err := s.AppendReceiver(-1003); err != nil {
		t.Fatal(err)
	}
	s.reloadIfChanged()
	select {
	case cfg := <-ch:
		t.Fatalf("unexpected publish: %+v", cfg)
	default:
	}

	ext := strings.Replace(legacyJSON, `"secret"`, `"other"`, 1)
	if err := os.WriteFile(p, []byte(ext), 0o600); err != nil {
		t.Fatal(err)
	}
	s.reloadIfChanged()
	select {
	case cfg := <-ch:
		if cfg.Password != "other" {
			t.Fatalf("password=%q", cfg.Password)
		}
	default:
		t.Fatal("external edit not published")
	}
}

func TestSummarizeConfigChangeHidesSecrets(t *testing.T) {
	t.Parallel()
	a := &Config{Token: "t1", Password: "p1", Receivers: []int64{1}}
	b := &Config{Token: "t2", Password: "p2", Receivers: []int64{1, 2}}
	changed, _ := SummarizeConfigChange(a, b)
	want := []string{"password", "receivers", "token"}
	if !reflect.DeepEqual(changed, want) {
		t.Fatalf("changed=%v want %v", changed, want)
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	var c *Config
	r := c.RelayOrDefault()
	if r.SendTimeout != DefaultSendTimeout || r.Workers != DefaultRelayWorkers {
		t.Fatalf("relay defaults=%+v", r)
	}
	if tg := (&Config{}).TelegramOrDefault(); tg.Workers != 1 || tg.PollTimeout != DefaultPollTimeout {
		t.Fatalf("telegram defaults=%+v", tg)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{raw: "", want: time.Minute},
		{raw: "0s", want: time.Minute},
		{raw: " 5s ", want: 5 * time.Second},
		{raw: "-1s", wantErr: true},
		{raw: "five", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseDurationOrDefault("x", tc.raw, time.Minute)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Fatalf("ParseDurationOrDefault(%q)=%v,%v", tc.raw, got, err)
		}
	}
}

func TestReplaceRefusesStaleReload(t *testing.T) {
	t.Parallel()
	p := writeTemp(t, "config.json", legacyJSON)
	s := NewStore(p)
	if _, err := s.Load(); err != nil {
		t.Fatal(err)
	}
	ext := strings.Replace(legacyJSON, `"secret"`, `"other"`, 1)
	if err := os.WriteFile(p, []byte(ext), 0o600); err != nil {
		t.Fatal(err)
	}
	stale, changed, err := s.Poll()
	if err != nil || !changed {
		t.Fatalf("Poll changed=%v err=%v", changed, err)
	}
	if err := s.AppendReceiver(-1003); err != nil {
		t.Fatal(err)
	}
	if s.Replace(stale) {
		t.Fatal("config read before a write was applied")
	}
	want := []int64{-1001, -1002, -1003}
	if !reflect.DeepEqual(s.Receivers(), want) || s.Password() != "secret" {
		t.Fatalf("receivers=%v password=%q", s.Receivers(), s.Password())
	}

	// The write's own event finds the file matching memory.
	if _, changed, err := s.Poll(); err != nil || changed {
		t.Fatalf("Poll after write changed=%v err=%v", changed, err)
	}

	fresh := s.Get()
	fresh.Password = "third"
	if !s.Replace(fresh) || s.Password() != "third" {
		t.Fatal("unstamped config not applied")
	}
}
