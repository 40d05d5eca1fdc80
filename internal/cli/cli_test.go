package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/jstackviz/jstackviz/pkg/config"
	"github.com/jstackviz/jstackviz/pkg/dump"
)

func TestLockSummary(t *testing.T) {
	if got := lockSummary(nil); got != "—" {
		t.Errorf("lockSummary(nil) = %q", got)
	}

	held := []dump.LockID{
		{Addr: "0x0a", Class: "java.lang.Object"},
		{Addr: "0x0b"},
	}
	if got := lockSummary(held); got != "java.lang.Object@0x0a, 0x0b" {
		t.Errorf("lockSummary() = %q", got)
	}
}

func TestWaitSummary(t *testing.T) {
	if got := waitSummary(nil); got != "—" {
		t.Errorf("waitSummary(nil) = %q", got)
	}

	waits := []dump.Wait{
		{Lock: dump.LockID{Addr: "0x0a", Class: "java.lang.Object"}, Kind: dump.WaitAcquire},
		{Lock: dump.LockID{Addr: "0x0b"}, Kind: dump.WaitNotify},
	}
	if got := waitSummary(waits); got != "java.lang.Object@0x0a, wait: 0x0b" {
		t.Errorf("waitSummary() = %q", got)
	}
}

func TestReadInputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.txt")
	if err := os.WriteFile(path, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := readInput(path)
	if err != nil {
		t.Fatalf("readInput() error: %v", err)
	}
	if got != "content" {
		t.Errorf("readInput() = %q", got)
	}
}

func TestReadInputMissingFile(t *testing.T) {
	if _, err := readInput(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Error("readInput() of a missing file should fail")
	}
}

func TestOpenOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.dot")
	w, err := openOutput(path)
	if err != nil {
		t.Fatalf("openOutput() error: %v", err)
	}
	if _, err := w.Write([]byte("digraph G {}")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "digraph G {}" {
		t.Errorf("file content = %q", data)
	}
}

func TestOpenOutputStdout(t *testing.T) {
	w, err := openOutput("-")
	if err != nil {
		t.Fatalf("openOutput(-) error: %v", err)
	}
	// Closing must not close the real stdout.
	if err := w.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.InfoLevel)

	l.Debug("hidden")
	l.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("info message missing")
	}
}

func TestContextCarriesLoggerAndConfig(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, log.DebugLevel)

	cfg := config.Default()
	cfg.Engine = "neato"

	ctx := withConfig(withLogger(context.Background(), l), cfg)

	if got := loggerFromContext(ctx); got != l {
		t.Error("loggerFromContext() did not return the attached logger")
	}
	if got := configFromContext(ctx); got.Engine != "neato" {
		t.Errorf("configFromContext().Engine = %q, want neato", got.Engine)
	}

	// Bare contexts fall back to usable defaults.
	if loggerFromContext(context.Background()) == nil {
		t.Error("loggerFromContext() fallback is nil")
	}
	if got := configFromContext(context.Background()); got.Engine != "dot" {
		t.Errorf("configFromContext() fallback Engine = %q, want dot", got.Engine)
	}
}

// runAnalyze executes the analyze command against a dump file with the given
// config attached to the context and returns the DOT it wrote.
func runAnalyze(t *testing.T, cfg config.Config, dumpText string, extraArgs ...string) string {
	t.Helper()

	dir := t.TempDir()
	dumpPath := filepath.Join(dir, "dump.txt")
	outPath := filepath.Join(dir, "out.dot")
	if err := os.WriteFile(dumpPath, []byte(dumpText), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newAnalyzeCmd()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{dumpPath, "-o", outPath, "-q"}, extraArgs...))

	ctx := withConfig(context.Background(), cfg)
	if err := cmd.ExecuteContext(ctx); err != nil {
		t.Fatalf("analyze command error: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestAnalyzeHonorsConfigIncludeIsolated(t *testing.T) {
	// idle holds a lock nobody contends: visible only with isolated nodes on.
	dumpText := "\"idle\" #1 runnable\n\t- locked <0x0c> (a java.lang.Object)\n"

	cfg := config.Default()
	cfg.IncludeIsolated = true
	if dot := runAnalyze(t, cfg, dumpText); !strings.Contains(dot, "idle") {
		t.Errorf("config include_isolated=true ignored without the flag:\n%s", dot)
	}

	if dot := runAnalyze(t, config.Default(), dumpText); strings.Contains(dot, "idle") {
		t.Errorf("isolated thread appeared with default config and no flag:\n%s", dot)
	}

	// An explicit flag overrides the config default.
	if dot := runAnalyze(t, cfg, dumpText, "--include-isolated=false"); strings.Contains(dot, "idle") {
		t.Errorf("explicit --include-isolated=false did not override config:\n%s", dot)
	}
}

func TestThreadListModelNavigation(t *testing.T) {
	threads := []*dump.Thread{
		{Name: "a", State: dump.StateRunnable},
		{Name: "b", State: dump.StateBlocked},
		{Name: "c", State: dump.StateWaiting},
	}
	m := NewThreadListModel(threads, map[*dump.Thread]bool{threads[1]: true})

	if m.Cursor != 0 {
		t.Errorf("initial Cursor = %d, want 0", m.Cursor)
	}
	if len(m.Rows) != 3 {
		t.Fatalf("Rows = %d, want 3", len(m.Rows))
	}
	if !m.Rows[1].deadlocked {
		t.Error("row b should be flagged deadlocked")
	}

	view := m.View()
	for _, name := range []string{"a", "b", "c"} {
		if !strings.Contains(view, name) {
			t.Errorf("View() missing thread %q", name)
		}
	}
}
