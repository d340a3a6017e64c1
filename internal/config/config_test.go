package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// Property: merge precedence is project over global over defaults, per field.
func TestConfigMergePrecedence(t *testing.T) {
	nonEmptyString := rapid.StringMatching(`[a-zA-Z0-9/_.:-]{1,20}`)

	configGen := rapid.Custom(func(t *rapid.T) *Config {
		cfg := &Config{}
		if rapid.Bool().Draw(t, "hasAPIBase") {
			cfg.APIBase = nonEmptyString.Draw(t, "apiBase")
		}
		if rapid.Bool().Draw(t, "hasTimeout") {
			cfg.RequestTimeout = nonEmptyString.Draw(t, "timeout")
		}
		if rapid.Bool().Draw(t, "hasLogFile") {
			cfg.LogFile = nonEmptyString.Draw(t, "logFile")
		}
		if rapid.Bool().Draw(t, "hasCancel") {
			v := rapid.Bool().Draw(t, "cancel")
			cfg.CancelOnNavigate = &v
		}
		return cfg
	})

	rapid.Check(t, func(t *rapid.T) {
		global := configGen.Draw(t, "global")
		project := configGen.Draw(t, "project")

		merged := Merge(global, project)
		defaults := Defaults()

		checkStringField(t, "APIBase", global.APIBase, project.APIBase, defaults.APIBase, merged.APIBase)
		checkStringField(t, "RequestTimeout", global.RequestTimeout, project.RequestTimeout, defaults.RequestTimeout, merged.RequestTimeout)
		checkStringField(t, "LogFile", global.LogFile, project.LogFile, defaults.LogFile, merged.LogFile)

		switch {
		case project.CancelOnNavigate != nil:
			if merged.NavigateCancels() != *project.CancelOnNavigate {
				t.Fatalf("CancelOnNavigate: expected project value %v", *project.CancelOnNavigate)
			}
		case global.CancelOnNavigate != nil:
			if merged.NavigateCancels() != *global.CancelOnNavigate {
				t.Fatalf("CancelOnNavigate: expected global value %v", *global.CancelOnNavigate)
			}
		default:
			if merged.NavigateCancels() {
				t.Fatal("CancelOnNavigate: expected default (off)")
			}
		}
	})
}

// checkStringField asserts the merge precedence rule for a single string field.
func checkStringField(t *rapid.T, name, globalVal, projectVal, defaultVal, mergedVal string) {
	t.Helper()
	switch {
	case projectVal != "":
		if mergedVal != projectVal {
			t.Fatalf("%s: both set — expected project value %q, got %q", name, projectVal, mergedVal)
		}
	case globalVal != "":
		if mergedVal != globalVal {
			t.Fatalf("%s: only global set — expected global value %q, got %q", name, globalVal, mergedVal)
		}
	default:
		if mergedVal != defaultVal {
			t.Fatalf("%s: neither set — expected default %q, got %q", name, defaultVal, mergedVal)
		}
	}
}

func TestDefaultsValues(t *testing.T) {
	d := Defaults()
	if d.APIBase != "http://localhost:8000" {
		t.Errorf("APIBase default = %q", d.APIBase)
	}
	if d.Timeout() != 0 {
		t.Errorf("Timeout default = %v, want no limit", d.Timeout())
	}
	if d.NavigateCancels() {
		t.Error("CancelOnNavigate should default to off")
	}
}

func TestTimeoutParsing(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5m", 5 * time.Minute},
		{"90s", 90 * time.Second},
		{"garbage", 0},
		{"-3s", 0},
	}
	for _, tc := range cases {
		if got := (Config{RequestTimeout: tc.in}).Timeout(); got != tc.want {
			t.Errorf("Timeout(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestLoadGlobalAbsentReturnsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.APIBase != Defaults().APIBase {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFileParseError(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, ".config", "kbchat", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := LoadGlobal()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestApplyEnvOverlay(t *testing.T) {
	t.Setenv("API_BASE", "http://kb.internal:9000")
	t.Setenv("KBCHAT_CANCEL_ON_NAVIGATE", "true")
	t.Setenv("KBCHAT_TIMEOUT", "2m")

	cfg := Defaults()
	if err := ApplyEnv(&cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.APIBase != "http://kb.internal:9000" {
		t.Errorf("APIBase = %q", cfg.APIBase)
	}
	if !cfg.NavigateCancels() {
		t.Error("CancelOnNavigate not overlaid from env")
	}
	if cfg.Timeout() != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Timeout())
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	on := true
	want := Config{APIBase: "http://example:8000", CancelOnNavigate: &on, LogLevel: "debug"}
	if err := Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if got.APIBase != want.APIBase || !got.NavigateCancels() || got.LogLevel != "debug" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestWatchDeliversUpdatedConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(home, ".config", "kbchat", "config.json")
	if err := Save(Config{APIBase: "http://one:8000"}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Config, 4)
	watchErr := make(chan error, 1)
	go func() { watchErr <- Watch(ctx, path, out) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := Save(Config{APIBase: "http://two:8000"}); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-out:
			if cfg.APIBase == "http://two:8000" {
				cancel()
				if err := <-watchErr; err != nil {
					t.Fatalf("Watch: %v", err)
				}
				return
			}
			// Stale intermediate delivery; keep waiting.
		case <-deadline:
			t.Fatal("timed out waiting for updated config")
		}
	}
}
