package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PhamBao-egn/BAOPHAM/internal/config"
)

type fakeProber struct {
	err     error
	action  string
	timeout time.Duration
	calls   int
}

func (p *fakeProber) WaitForServer(_ context.Context, action string, timeout, _ time.Duration) error {
	p.calls++
	p.action = action
	p.timeout = timeout
	return p.err
}

func validConfig() *config.Config {
	return config.Defaults()
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Parallel()
	prober := &fakeProber{}
	r := New(validConfig(), prober).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
	if prober.calls != 1 || prober.action != "/navigate_to_pose" || prober.timeout != DefaultProbeTimeout {
		t.Fatalf("unexpected probe: %+v", prober)
	}
}

func TestValidate_NilProberSkipsServer(t *testing.T) {
	t.Parallel()
	r := New(validConfig(), nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
}

func TestValidate_ServerUnreachable(t *testing.T) {
	t.Parallel()
	prober := &fakeProber{err: errors.New("action server unavailable")}
	r := New(validConfig(), prober).WithProbeTimeout(50 * time.Millisecond).Validate(context.Background())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	if prober.timeout != 50*time.Millisecond {
		t.Fatalf("expected probe timeout override, got %v", prober.timeout)
	}
	assertHasError(t, r, "bridge", "ws://127.0.0.1:9090")
}

func TestValidate_JournalNotWritable(t *testing.T) {
	t.Parallel()
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := validConfig()
	cfg.State.Path = filepath.Join(blocker, "sub", "goals.db")

	r := New(cfg, nil).Validate(context.Background())
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "journal", "not a directory")
}

func TestValidate_JournalWritable(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := validConfig()
	cfg.State.Path = filepath.Join(dir, "nested", "goals.db")

	r := New(cfg, nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("expected valid, got errors: %v", r.Errors)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected probe file to be cleaned up, found %d entries", len(entries))
	}
}

func TestValidate_StatusListen(t *testing.T) {
	t.Parallel()
	tests := []struct {
		listen string
		valid  bool
	}{
		{"127.0.0.1:8088", true},
		{":0", true},
		{"localhost", false},
		{"127.0.0.1:http", false},
		{"127.0.0.1:70000", false},
	}
	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			cfg := validConfig()
			cfg.Status.Enabled = true
			cfg.Status.Listen = tt.listen
			r := New(cfg, nil).Validate(context.Background())
			if r.Valid != tt.valid {
				t.Fatalf("listen %q: expected valid=%v, got errors %v", tt.listen, tt.valid, r.Errors)
			}
			if !tt.valid {
				assertHasError(t, r, "status", tt.listen)
			}
		})
	}
}

func TestValidate_WarnTimings(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Action.ServerTimeout = 200 * time.Millisecond
	cfg.Action.PollInterval = 100 * time.Millisecond
	cfg.Bridge.DialTimeout = time.Second

	r := New(cfg, nil).Validate(context.Background())
	if !r.Valid {
		t.Fatalf("timing problems are warnings, got errors: %v", r.Errors)
	}
	assertHasWarning(t, r, "timing", "fewer than 3 probes")
	assertHasWarning(t, r, "timing", "exceeds server_timeout")
}

func TestValidate_WarnBehaviorTree(t *testing.T) {
	t.Parallel()
	cfg := validConfig()
	cfg.Action.BehaviorTree = "trees/navigate.yaml"

	r := New(cfg, nil).Validate(context.Background())
	assertHasWarning(t, r, "action", "absolute path")
	assertHasWarning(t, r, "action", "XML")

	cfg.Action.BehaviorTree = "/opt/ros/trees/navigate.xml"
	r = New(cfg, nil).Validate(context.Background())
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestValidate_WarnMissingEnvVarsAndChecksums(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "bridge:\n  url: ws://${NAVGOAL_DOCTOR_TEST_HOST}:9090\nstate:\n  path: ${NAVGOAL_DOCTOR_TEST_HOST}\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	os.Unsetenv("NAVGOAL_DOCTOR_TEST_HOST")

	cfg := validConfig()
	cfg.SourcePath = path
	r := New(cfg, nil).Validate(context.Background())
	assertHasWarning(t, r, "env_vars", "${NAVGOAL_DOCTOR_TEST_HOST}")
	assertHasWarning(t, r, "integrity", "navgoal config hash")

	envWarnings := 0
	for _, w := range r.Warnings {
		if w.Category == "env_vars" {
			envWarnings++
		}
	}
	if envWarnings != 1 {
		t.Fatalf("expected one warning per variable, got %d", envWarnings)
	}

	if _, err := config.WriteChecksums(path); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NAVGOAL_DOCTOR_TEST_HOST", "robot")
	r = New(cfg, nil).Validate(context.Background())
	if len(r.Warnings) != 0 {
		t.Fatalf("expected no warnings, got: %v", r.Warnings)
	}
}

func TestLoadFailure(t *testing.T) {
	t.Parallel()
	r := LoadFailure(fmt.Errorf("bridge.url must use ws:// or wss://"))
	if r.Valid {
		t.Fatal("expected invalid")
	}
	assertHasError(t, r, "config", "ws://")
}

func TestFormatJSON(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Message: "bad thing"}},
	}
	out, err := FormatJSON(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "bad thing") {
		t.Fatalf("expected JSON to contain error message, got: %s", out)
	}
}

func TestFormatHuman_Valid(t *testing.T) {
	t.Parallel()
	r := &Result{Valid: true}
	out := FormatHuman(r)
	if !strings.Contains(out, "valid") {
		t.Fatalf("expected 'valid' in output, got: %s", out)
	}
}

func TestFormatHuman_Warnings(t *testing.T) {
	t.Parallel()
	r := &Result{Valid: true, Warnings: []Issue{{Category: "timing", Message: "slow"}}}
	out := FormatHuman(r)
	if !strings.Contains(out, "1 warning(s)") || !strings.Contains(out, "WARN  [timing] slow") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestFormatHuman_Errors(t *testing.T) {
	t.Parallel()
	r := &Result{
		Valid:  false,
		Errors: []Issue{{Category: "test", Field: "x.y", Message: "broken"}},
	}
	out := FormatHuman(r)
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "broken") {
		t.Fatalf("expected error in output, got: %s", out)
	}
}

// --- helpers ---

func assertHasError(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, e := range r.Errors {
		if e.Category == category && strings.Contains(e.Message, substring) {
			return
		}
	}
	t.Fatalf("expected error with category=%q containing %q, got: %v", category, substring, r.Errors)
}

func assertHasWarning(t *testing.T, r *Result, category, substring string) {
	t.Helper()
	for _, w := range r.Warnings {
		if w.Category == category && strings.Contains(w.Message, substring) {
			return
		}
	}
	t.Fatalf("expected warning with category=%q containing %q, got: %v", category, substring, r.Warnings)
}
