package logging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitialize_SilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("Expected nop logger when no level is set")
	}
}

func TestInitialize_FromEnv(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "warn")
	if err := InitializeFromEnv(); err != nil {
		t.Fatalf("InitializeFromEnv failed: %v", err)
	}
	defer SetLogger(nil)

	core := GetLogger().Core()
	if core.Enabled(zapcore.InfoLevel) || !core.Enabled(zapcore.WarnLevel) {
		t.Error("Expected warn level from environment")
	}
}

func TestInitializeWithFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiscam.log")
	if err := InitializeWithFile("info", FileOptions{Path: path}); err != nil {
		t.Fatalf("InitializeWithFile failed: %v", err)
	}
	defer SetLogger(nil)

	Info("file sink check", zap.String("camera", "tis_DMK_33UJ003"))
	Debug("filtered out")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"file sink check"`) || !strings.Contains(out, `"camera":"tis_DMK_33UJ003"`) {
		t.Errorf("Unexpected log file content:\n%s", out)
	}
	if strings.Contains(out, "filtered out") {
		t.Error("Expected debug entry filtered at info level")
	}
}

func TestLogAcquisition(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogAcquisition("cam", 3, time.Second, nil)
	LogAcquisition("cam", 1, time.Millisecond, errors.New("timeout"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[0].ContextMap()["frames"] != int64(3) {
		t.Errorf("Unexpected success entry %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["error"] != "timeout" {
		t.Errorf("Unexpected failure entry %+v", entries[1])
	}
}

func TestLogWebSocketMessage(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogWebSocketMessage("127.0.0.1:5000", "sent", 2, 616)

	entry := logs.All()[0]
	if entry.ContextMap()["message_type"] != "binary" || entry.ContextMap()["length"] != int64(616) {
		t.Errorf("Unexpected entry %+v", entry.ContextMap())
	}
	if wsMessageTypeName(42) != "unknown(42)" {
		t.Errorf("Unexpected name %q", wsMessageTypeName(42))
	}
}

func TestInitializeWithFile_NoLevel(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	path := filepath.Join(t.TempDir(), "tiscam.log")
	if err := InitializeWithFile("", FileOptions{Path: path}); err != nil {
		t.Fatalf("InitializeWithFile failed: %v", err)
	}
	defer SetLogger(nil)

	Info("recorded")
	Debug("dropped")
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected log file: %v", err)
	}
	if !strings.Contains(string(data), "recorded") || strings.Contains(string(data), "dropped") {
		t.Errorf("Expected info-level file log, got:\n%s", data)
	}
}
