package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != "memory" {
		t.Fatalf("driver = %q", cfg.Storage.Driver)
	}
	if cfg.Cache.Kind != "memory" {
		t.Fatalf("cache = %q", cfg.Cache.Kind)
	}
}

func TestLoad_MissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err != nil {
		t.Fatalf("missing file must fall back to defaults: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9999"
  base_url: "https://auth.example.com"
providers:
  google:
    client_id: gid
    client_secret: gsecret
auth:
  public_client_id: webapp
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Providers["google"].ClientID != "gid" {
		t.Fatalf("providers = %+v", cfg.Providers)
	}
	if cfg.Auth.PublicClientID != "webapp" {
		t.Fatalf("client id = %q", cfg.Auth.PublicClientID)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FEDGATE_ADDR", ":7777")
	t.Setenv("FEDGATE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":7777" {
		t.Fatalf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("level = %q", cfg.Log.Level)
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: postgres
`)
	if _, err := Load(path); err == nil {
		t.Fatal("postgres without dsn must fail validation")
	}
}

func TestLoad_UnknownDriver(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: flatfile
`)
	if _, err := Load(path); err == nil {
		t.Fatal("unknown driver must fail validation")
	}
}

func TestMustDuration(t *testing.T) {
	if d := MustDuration("90s", time.Minute); d != 90*time.Second {
		t.Fatalf("d = %v", d)
	}
	if d := MustDuration("", time.Minute); d != time.Minute {
		t.Fatalf("empty = %v", d)
	}
	if d := MustDuration("junk", time.Minute); d != time.Minute {
		t.Fatalf("junk = %v", d)
	}
	if d := MustDuration("-5s", time.Minute); d != time.Minute {
		t.Fatalf("negative = %v", d)
	}
}
