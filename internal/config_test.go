package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	pkgconfig "github.com/starford/agenda/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Schedule.Location() == nil {
		t.Error("location should be set after validate")
	}
}

func TestScheduleConfig_Timezone(t *testing.T) {
	cfg := ScheduleConfig{Timezone: "UTC"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("UTC should pass: %v", err)
	}
	if cfg.Location().String() != "UTC" {
		t.Errorf("location = %s", cfg.Location())
	}

	bad := ScheduleConfig{Timezone: "Mars/Olympus_Mons"}
	if err := bad.Validate(); err == nil {
		t.Error("unknown zone should fail")
	}

	empty := ScheduleConfig{}
	if err := empty.Validate(); err != nil || empty.Timezone != "Local" {
		t.Errorf("empty zone should default to Local, got %q (%v)", empty.Timezone, err)
	}
}

func TestImportConfig_DirRequiredWhenEnabled(t *testing.T) {
	if err := (&ImportConfig{Enabled: true}).Validate(); err == nil {
		t.Error("enabled import without dir should fail")
	}
	if err := (&ImportConfig{Enabled: false}).Validate(); err != nil {
		t.Errorf("disabled import should pass: %v", err)
	}
}

func TestExportConfig_Cron(t *testing.T) {
	ok := ExportConfig{Enabled: true, Dir: "out", Cron: "*/5 * * * *"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid export should pass: %v", err)
	}

	bad := ExportConfig{Enabled: true, Dir: "out", Cron: "every so often"}
	if err := bad.Validate(); err == nil || !strings.Contains(err.Error(), "cron") {
		t.Errorf("bad cron err = %v", err)
	}

	missing := ExportConfig{Enabled: true, Dir: "out"}
	if err := missing.Validate(); err == nil {
		t.Error("enabled export without cron should fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("AGENDA_TOKEN", "s3cret")
	content := `app:
  log_level: debug
  http:
    port: 9191
sqlite:
  path: /tmp/agenda.db
auth:
  mode: token
  token: ${AGENDA_TOKEN}
schedule:
  timezone: UTC
export:
  enabled: true
  dir: /tmp/export
  cron: "@hourly"
  person: alice
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Port != 9191 || cfg.App.LogLevel != slog.LevelDebug {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Auth.Token != "s3cret" || !cfg.Auth.AuthEnabled() {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Export.Person != "alice" || cfg.Import.Dir != "./calendars" {
		t.Errorf("export = %+v, import = %+v", cfg.Export, cfg.Import)
	}
}
