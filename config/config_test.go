package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/staticd/config"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "server.conf")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoadValidConfig(t *testing.T) {
	root := t.TempDir()
	logDir := t.TempDir()

	body := `
# test config
PORT=8080
DOCUMENT_ROOT=` + root + `
NUM_WORKERS=2
THREADS_PER_WORKER=4
MAX_QUEUE_SIZE=16
LOG_FILE=` + filepath.Join(logDir, "access.log") + `
CACHE_SIZE_MB=8
TIMEOUT_SECONDS=30
DEFAULT_VHOST=example.com
VHOST_example.com=` + root + `
`
	p := writeConfig(t, t.TempDir(), body)

	cfg, err := config.Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.PoolSize() != 8 {
		t.Errorf("expected pool size 8, got %d", cfg.PoolSize())
	}
	if cfg.CacheBytes != 8*1024*1024 {
		t.Errorf("expected cache bytes 8MiB, got %d", cfg.CacheBytes)
	}
	if len(cfg.VHosts) != 1 || cfg.VHosts[0].Hostname != "example.com" {
		t.Errorf("expected one vhost example.com, got %+v", cfg.VHosts)
	}
}

func TestLoadRejectsMissingRequiredField(t *testing.T) {
	root := t.TempDir()
	body := `
DOCUMENT_ROOT=` + root + `
NUM_WORKERS=1
THREADS_PER_WORKER=1
MAX_QUEUE_SIZE=1
LOG_FILE=/tmp/access.log
CACHE_SIZE_MB=0
TIMEOUT_SECONDS=30
`
	p := writeConfig(t, t.TempDir(), body)

	if _, err := config.Load(p); err == nil {
		t.Fatalf("expected error for missing PORT")
	}
}

func TestLoadRejectsDefaultVHostWithoutMatchingEntry(t *testing.T) {
	root := t.TempDir()
	body := `
PORT=80
DOCUMENT_ROOT=` + root + `
NUM_WORKERS=1
THREADS_PER_WORKER=1
MAX_QUEUE_SIZE=1
LOG_FILE=/tmp/access.log
CACHE_SIZE_MB=0
TIMEOUT_SECONDS=30
DEFAULT_VHOST=ghost.example.com
`
	p := writeConfig(t, t.TempDir(), body)

	if _, err := config.Load(p); err == nil {
		t.Fatalf("expected error for dangling default_vhost")
	}
}

func TestResolveDocRoot(t *testing.T) {
	cfg := &config.ServerConfig{
		DefaultDocRoot: "/srv/default",
		DefaultVHost:   "fallback.example.com",
		VHosts: []config.VHost{
			{Hostname: "a.example.com", DocRoot: "/srv/a"},
			{Hostname: "fallback.example.com", DocRoot: "/srv/fallback"},
		},
	}

	if got := cfg.ResolveDocRoot("A.Example.Com"); got != "/srv/a" {
		t.Errorf("expected case-insensitive vhost match, got %q", got)
	}
	if got := cfg.ResolveDocRoot("unknown.example.com"); got != "/srv/fallback" {
		t.Errorf("expected default_vhost fallback, got %q", got)
	}
	if got := cfg.ResolveDocRoot(""); got != "/srv/fallback" {
		t.Errorf("expected default_vhost fallback on empty host, got %q", got)
	}
}
