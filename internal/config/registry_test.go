package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/muurk/tiscam/internal/camera"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "tiscam") {
		t.Errorf("GetConfigDir() = %v, should contain 'tiscam'", configDir)
	}

	switch runtime.GOOS {
	case "windows":
		if !strings.Contains(configDir, "AppData") && !strings.Contains(configDir, "Local") {
			t.Errorf("Windows config dir should contain 'AppData' or 'Local', got: %v", configDir)
		}
	case "darwin":
		if !strings.Contains(configDir, ".config") {
			t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
		}
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux")
	}
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath() error = %v", err)
	}
	if want := filepath.Join(dir, "tiscam", "config.yaml"); got != want {
		t.Errorf("GetConfigPath() = %v, want %v", got, want)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != CurrentVersion {
		t.Errorf("NewRegistry().Version = %v, want %d", reg.Version, CurrentVersion)
	}
	if reg.Profiles == nil || reg.Cameras == nil {
		t.Error("NewRegistry() maps should not be nil")
	}
	if reg.Preferences == nil || reg.Preferences.DiscoverTimeout != 5 {
		t.Errorf("Unexpected preferences %+v", reg.Preferences)
	}
}

func TestRegistrySetProfile(t *testing.T) {
	tests := []struct {
		name     string
		profile  string
		settings camera.Settings
		wantErr  string
	}{
		{"valid", "dark", camera.Settings{ExposureUS: camera.Float(1e6), Gain: camera.Float(383)}, ""},
		{"empty name", "", camera.Settings{Gain: camera.Float(200)}, "must not be empty"},
		{"no fields", "nothing", camera.Settings{}, "sets no fields"},
		{"bad format", "bad", camera.Settings{VideoFormat: camera.String("Y16 (720x480)")}, "not supported"},
		{"bad frames", "bad", camera.Settings{NumImages: camera.Int(0)}, "num_images"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			err := reg.SetProfile(tt.profile, "desc", tt.settings)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("SetProfile() error = %v", err)
				}
				if reg.GetProfile(tt.profile) == nil {
					t.Error("Profile should exist after SetProfile()")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestRegistryDeleteProfile(t *testing.T) {
	reg := NewRegistry()
	_ = reg.SetProfile("fast", "", camera.Settings{ExposureUS: camera.Float(100)})
	reg.Preferences.DefaultProfile = "fast"

	if err := reg.DeleteProfile("fast"); err != nil {
		t.Fatalf("DeleteProfile() error = %v", err)
	}
	if reg.GetProfile("fast") != nil {
		t.Error("Profile should be gone")
	}
	if reg.Preferences.DefaultProfile != "" {
		t.Error("Default profile should be cleared")
	}
	if err := reg.DeleteProfile("fast"); err == nil {
		t.Error("Expected error deleting missing profile")
	}
}

func TestRegistryResolveSettings(t *testing.T) {
	reg := NewRegistry()
	_ = reg.SetProfile("a", "", camera.Settings{Gain: camera.Float(150)})
	_ = reg.SetProfile("b", "", camera.Settings{Gain: camera.Float(250)})

	s, err := reg.ResolveSettings("")
	if err != nil || !s.IsEmpty() {
		t.Errorf("Expected empty settings without default, got %+v, %v", s, err)
	}

	reg.Preferences.DefaultProfile = "a"
	s, _ = reg.ResolveSettings("")
	if *s.Gain != 150 {
		t.Errorf("Expected default profile gain 150, got %v", *s.Gain)
	}

	s, _ = reg.ResolveSettings("b")
	if *s.Gain != 250 {
		t.Errorf("Expected explicit profile gain 250, got %v", *s.Gain)
	}

	if _, err := reg.ResolveSettings("missing"); err == nil {
		t.Error("Expected error for missing profile")
	}
}

func TestRegistryProfileNames(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_ = reg.SetProfile(name, "", camera.Settings{NumImages: camera.Int(1)})
	}
	got := strings.Join(reg.ProfileNames(), ",")
	if got != "alpha,mid,zeta" {
		t.Errorf("ProfileNames() = %v", got)
	}
}

func TestRegistryUpdateCameraLastSeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.UpdateCameraLastSeen("DMK 33UJ003 12345678", camera.Settings{Gain: camera.Float(200)})
	after := time.Now()

	meta := reg.EnsureCamera("DMK 33UJ003 12345678")
	if meta.LastSeen.Before(before) || meta.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", meta.LastSeen, before, after)
	}
	if *meta.LastSettings.Gain != 200 {
		t.Errorf("Unexpected last settings %+v", meta.LastSettings)
	}
	if reg.EnsureCamera("DMK 33UJ003 12345678") != meta {
		t.Error("EnsureCamera() should return same instance")
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	reg := NewRegistry()
	_ = reg.SetProfile("dark", "long exposure", camera.Settings{
		ExposureUS:    camera.Float(1_000_000),
		VideoFormat:   camera.String("Y16 (1920x1080)"),
		TriggerEnable: camera.Bool(false),
	})
	reg.Preferences.DLLDir = `C:\tis\bin`
	reg.Preferences.DefaultProfile = "dark"
	reg.UpdateCameraLastSeen("DMK 33UJ003 12345678", camera.Settings{TimeoutMS: camera.Int(-1)})

	if err := reg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should be renamed away")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}

	p := loaded.GetProfile("dark")
	if p == nil {
		t.Fatal("Profile should exist in loaded registry")
	}
	if p.Description != "long exposure" || *p.Settings.ExposureUS != 1_000_000 ||
		*p.Settings.VideoFormat != "Y16 (1920x1080)" || *p.Settings.TriggerEnable {
		t.Errorf("Unexpected loaded profile %+v", p)
	}
	if p.Settings.Gain != nil {
		t.Error("Unset fields should stay unset")
	}
	if loaded.Preferences.DLLDir != `C:\tis\bin` || loaded.Preferences.DefaultProfile != "dark" {
		t.Errorf("Unexpected preferences %+v", loaded.Preferences)
	}
	if meta := loaded.Cameras["DMK 33UJ003 12345678"]; meta == nil || *meta.LastSettings.TimeoutMS != -1 {
		t.Errorf("Unexpected camera meta %+v", meta)
	}
}

func TestLoadFrom_Missing(t *testing.T) {
	reg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if reg.Version != CurrentVersion {
		t.Error("Expected default registry for missing file")
	}
}

func TestParseRegistry(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"minimal", "version: 1\n", ""},
		{"wrong version", "version: 2\n", "unsupported config version"},
		{"not yaml", "version: [", "failed to parse"},
		{"bad profile", "version: 1\nprofiles:\n  x:\n    settings:\n      num_images: 0\n", "invalid profile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := parseRegistry([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("parseRegistry() error = %v", err)
				}
				if reg.Preferences == nil || reg.Profiles == nil {
					t.Error("Expected defaults filled in")
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestJournalPath(t *testing.T) {
	reg := NewRegistry()
	reg.Preferences.JournalPath = "/data/journal.db"
	if got, _ := reg.JournalPath(); got != "/data/journal.db" {
		t.Errorf("JournalPath() = %v", got)
	}
}

func BenchmarkProfileNames(b *testing.B) {
	reg := NewRegistry()
	for _, name := range []string{"a", "b", "c", "d"} {
		_ = reg.SetProfile(name, "", camera.Settings{NumImages: camera.Int(1)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.ProfileNames()
	}
}
