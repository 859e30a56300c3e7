package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// cliWithPath returns a CLI struct pointing at the given config file.
func cliWithPath(path string) *CLI {
	return &CLI{Config: path}
}

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "127.0.0.1"
port = 9000
body_max_bytes = 5242880

[proxy]
path_mode = "replace"

[upstream]
timeout_seconds = 60
idle_connections = 50

[[routes]]
prefix = "/api"
target = "https://api.internal:8443"

[[routes]]
prefix = "/"
target = "http://fallback.internal"

[log]
level = "debug"
format = "text"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, 9000)
	}
	if cfg.Proxy.PathMode != "replace" {
		t.Errorf("Proxy.PathMode = %q, want %q", cfg.Proxy.PathMode, "replace")
	}
	if cfg.Upstream.TimeoutSeconds != 60 {
		t.Errorf("Upstream.TimeoutSeconds = %d, want %d", cfg.Upstream.TimeoutSeconds, 60)
	}
	if len(cfg.Routes) != 2 {
		t.Fatalf("len(Routes) = %d, want 2", len(cfg.Routes))
	}
	if cfg.Routes[0].Prefix != "/api" || cfg.Routes[0].Target != "https://api.internal:8443" {
		t.Errorf("Routes[0] = %+v, want /api -> https://api.internal:8443", cfg.Routes[0])
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
[[routes]]
prefix = "/"
target = "http://upstream:9000"
`)

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want default %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("Server.Port = %d, want default %d", cfg.Server.Port, 8000)
	}
	if cfg.Server.BodyMaxBytes != 10*1024*1024 {
		t.Errorf("Server.BodyMaxBytes = %d, want default %d", cfg.Server.BodyMaxBytes, 10*1024*1024)
	}
	if cfg.Proxy.PathMode != "prefix" {
		t.Errorf("Proxy.PathMode = %q, want default %q", cfg.Proxy.PathMode, "prefix")
	}
	if cfg.Upstream.TimeoutSeconds != 120 {
		t.Errorf("Upstream.TimeoutSeconds = %d, want default %d", cfg.Upstream.TimeoutSeconds, 120)
	}
	if cfg.Upstream.IdleConnections != 100 {
		t.Errorf("Upstream.IdleConnections = %d, want default %d", cfg.Upstream.IdleConnections, 100)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want info/json defaults", cfg.Log)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, "/metrics")
	}
}

func TestLoad_CLIOverrides(t *testing.T) {
	path := writeConfig(t, `
[server]
host = "0.0.0.0"
port = 8000

[[routes]]
prefix = "/api"
target = "http://configured:9000"
`)

	cli := &CLI{
		Config: path,
		Host:   "127.0.0.1",
		Port:   9999,
		Target: "http://overridden:9000",
	}

	cfg, err := Load(cli)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want CLI override", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want CLI override", cfg.Server.Port)
	}
	if len(cfg.Routes) != 1 || cfg.Routes[0].Prefix != "/" || cfg.Routes[0].Target != "http://overridden:9000" {
		t.Errorf("Routes = %+v, want single catch-all for CLI target", cfg.Routes)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantSub string
	}{
		{
			name:    "no routes",
			data:    `[server]` + "\n" + `port = 8000`,
			wantSub: "routes",
		},
		{
			name: "bad prefix",
			data: `
[[routes]]
prefix = "api"
target = "http://upstream:9000"
`,
			wantSub: "prefix",
		},
		{
			name: "missing target",
			data: `
[[routes]]
prefix = "/api"
target = ""
`,
			wantSub: "target",
		},
		{
			name: "non-http target scheme",
			data: `
[[routes]]
prefix = "/"
target = "ftp://upstream:21"
`,
			wantSub: "http",
		},
		{
			name: "relative target",
			data: `
[[routes]]
prefix = "/"
target = "/not/absolute"
`,
			wantSub: "absolute",
		},
		{
			name: "bad path mode",
			data: `
[proxy]
path_mode = "merge"

[[routes]]
prefix = "/"
target = "http://upstream:9000"
`,
			wantSub: "path_mode",
		},
		{
			name: "port out of range",
			data: `
[server]
port = 70000

[[routes]]
prefix = "/"
target = "http://upstream:9000"
`,
			wantSub: "port",
		},
		{
			name: "bad log level",
			data: `
[log]
level = "verbose"

[[routes]]
prefix = "/"
target = "http://upstream:9000"
`,
			wantSub: "log.level",
		},
		{
			name: "rate limit enabled without rps",
			data: `
[server.rate_limit]
enabled = true

[[routes]]
prefix = "/"
target = "http://upstream:9000"
`,
			wantSub: "rate_limit",
		},
		{
			name: "metrics path conflicts with reserved route",
			data: `
[metrics]
enabled = true
path = "/healthz"

[[routes]]
prefix = "/"
target = "http://upstream:9000"
`,
			wantSub: "reserved",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, tt.data)
			_, err := Load(cliWithPath(path))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(cliWithPath(filepath.Join(t.TempDir(), "missing.toml")))
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
}

func TestLoad_MalformedTOML(t *testing.T) {
	path := writeConfig(t, `this is not toml = = =`)
	_, err := Load(cliWithPath(path))
	if err == nil {
		t.Fatal("Load() expected error for malformed TOML, got nil")
	}
}

func TestFindConfigInPaths(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "present.toml")
	if err := os.WriteFile(existing, []byte(""), 0o600); err != nil {
		t.Fatal(err)
	}

	got := findConfigInPaths([]string{
		filepath.Join(dir, "absent.toml"),
		existing,
	})
	if got != existing {
		t.Errorf("findConfigInPaths = %q, want %q", got, existing)
	}

	if got := findConfigInPaths([]string{filepath.Join(dir, "absent.toml")}); got != "" {
		t.Errorf("findConfigInPaths = %q, want empty", got)
	}
}

func TestWarnPermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file mode semantics differ on windows")
	}

	path := writeConfig(t, `
[[routes]]
prefix = "/"
target = "http://upstream:9000"
`)
	if err := os.Chmod(path, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cliWithPath(path))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg.WarnPermissions(logger)

	if !strings.Contains(buf.String(), "chmod 600") {
		t.Errorf("expected permission warning for world-readable config, got %q", buf.String())
	}

	// A tightly-permissioned file produces no warning.
	if err := os.Chmod(path, 0o600); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	cfg.WarnPermissions(logger)
	if buf.Len() != 0 {
		t.Errorf("unexpected warning for 0600 config: %q", buf.String())
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := &ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:8080")
	}
}
