package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	log, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Info("test_message_from_logging_test")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("log file missing: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"test_message_from_logging_test"`) {
		t.Fatalf("unexpected log content: %s", b)
	}
}

func TestNew_ConsoleTeeHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Options{Dir: t.TempDir(), Level: "warn", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info("quiet_event")
	log.Warn("loud_event", zap.String("domain", "a.test"))
	_ = log.Sync()

	out := buf.String()
	if strings.Contains(out, "quiet_event") {
		t.Fatalf("info must be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "loud_event") || !strings.Contains(out, "a.test") {
		t.Fatalf("warn entry missing from console: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	if l, err := ParseLevel(""); err != nil || l != zap.InfoLevel {
		t.Fatalf("empty level: %v %v", l, err)
	}
	if l, err := ParseLevel("debug"); err != nil || l != zap.DebugLevel {
		t.Fatalf("debug level: %v %v", l, err)
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatal("want error for unknown level")
	}
}
