package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/rxkit/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty config", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" || !cfg.Debug {
			t.Errorf("expected development with debug, got %q debug=%v", cfg.Environment, cfg.Debug)
		}
		if cfg.Logging.ServiceName != "svc" {
			t.Errorf("expected logging service name 'svc', got %q", cfg.Logging.ServiceName)
		}
		if cfg.Stream.Capacity != 16 || cfg.Stream.OfferTimeout != 100*time.Millisecond || cfg.Stream.Policy != "drop_newest" {
			t.Errorf("unexpected stream defaults: %+v", cfg.Stream)
		}
		if cfg.Retry.MaxAttempts != 3 || cfg.Retry.BaseDelay != 100*time.Millisecond {
			t.Errorf("unexpected retry defaults: %+v", cfg.Retry)
		}
		if cfg.Observability.SampleRate == nil || *cfg.Observability.SampleRate != 1.0 {
			t.Errorf("expected sample rate 1.0, got %v", cfg.Observability.SampleRate)
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("explicit zero sample rate is kept", func(t *testing.T) {
		zero := 0.0
		cfg := ServiceConfig{Name: "svc", Observability: ObservabilityConfig{SampleRate: &zero}}
		cfg.ApplyDefaults()
		if got := cfg.TracerConfig().SampleRate; got != 0 {
			t.Errorf("expected sample rate 0, got %v", got)
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	valid := func() ServiceConfig {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*ServiceConfig)
		errMsg string
	}{
		{"valid", func(*ServiceConfig) {}, ""},
		{"missing name", func(c *ServiceConfig) { c.Name = "" }, "name: is required"},
		{"invalid environment", func(c *ServiceConfig) { c.Environment = "qa" }, "environment: must be one of"},
		{"negative capacity", func(c *ServiceConfig) { c.Stream.Capacity = -1 }, "stream.capacity: must be greater than 0"},
		{"unknown policy", func(c *ServiceConfig) { c.Stream.Policy = "block" }, "stream.policy: must be one of"},
		{"zero attempts", func(c *ServiceConfig) { c.Retry.MaxAttempts = -2 }, "retry.max_attempts"},
		{"bad endpoint", func(c *ServiceConfig) { c.Observability.Endpoint = "not a host" }, "observability.endpoint"},
		{"bad log level", func(c *ServiceConfig) { c.Logging.Level = "loud" }, "config.logging"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestLoadWithYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", `
name: orders
environment: staging
stream:
  capacity: 4
  offer_timeout: 250ms
  policy: reject
retry:
  max_attempts: 5
`)

	cfg, err := Load("orders", WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "missing.env")))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected environment 'staging', got %q", cfg.Environment)
	}
	if cfg.Stream.Capacity != 4 || cfg.Stream.OfferTimeout != 250*time.Millisecond || cfg.Stream.Policy != "reject" {
		t.Errorf("unexpected stream config: %+v", cfg.Stream)
	}
	if cfg.Retry.MaxAttempts != 5 || cfg.Retry.BaseDelay != 100*time.Millisecond {
		t.Errorf("unexpected retry config: %+v", cfg.Retry)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", "name: orders\nstream:\n  capacity: 4\n")
	t.Setenv("RXTEST_STREAM_CAPACITY", "32")
	t.Setenv("RXTEST_STREAM_OFFER_TIMEOUT", "1s")
	t.Setenv("STREAM_CAPACITY", "99")

	cfg, err := Load("orders",
		WithConfigFile(configPath),
		WithEnvFile(filepath.Join(dir, "missing.env")),
		WithEnvPrefix("rxtest"),
	)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Stream.Capacity != 32 {
		t.Errorf("expected capacity 32 from prefixed env, got %d", cfg.Stream.Capacity)
	}
	if cfg.Stream.OfferTimeout != time.Second {
		t.Errorf("expected offer timeout 1s, got %v", cfg.Stream.OfferTimeout)
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "RXENV_RETRY_MAX_ATTEMPTS=7\n")
	t.Cleanup(func() { _ = os.Unsetenv("RXENV_RETRY_MAX_ATTEMPTS") })

	cfg, err := Load("orders",
		WithConfigFile(filepath.Join(dir, "missing.yml")),
		WithEnvFile(envPath),
		WithEnvPrefix("RXENV"),
	)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Retry.MaxAttempts != 7 {
		t.Errorf("expected max attempts 7 from .env, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Name != "orders" {
		t.Errorf("expected name to fall back to service name, got %q", cfg.Name)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", "name: orders\nstream:\n  policy: block\n")

	_, err := Load("orders", WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "missing.env")))
	if errors.CodeOf(err) != errors.ErrCodeInvalidInput {
		t.Fatalf("expected INVALID_INPUT, got %v", err)
	}
}

func TestLoadConfigMalformedFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "config.yml", "name: [unterminated\n")

	var cfg ServiceConfig
	if err := LoadConfig("orders", &cfg, WithConfigFile(configPath)); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg ServiceConfig
	// With no config file found, LoadConfig should still succeed (just empty config)
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverWithMockFS(t *testing.T) {
	tests := []struct {
		name       string
		files      []string
		wantConfig string
		wantEnv    string
	}{
		{
			name:       "service directory wins",
			files:      []string{"./cmd/rxdemo/config.yml", "./config.yml", "./.env", "./cmd/rxdemo/.env"},
			wantConfig: "./cmd/rxdemo/config.yml",
			wantEnv:    "./cmd/rxdemo/.env",
		},
		{
			name:       "service env file beats plain env",
			files:      []string{"./config/config.yml", "./.env", "../.env.rxdemo"},
			wantConfig: "./config/config.yml",
			wantEnv:    "../.env.rxdemo",
		},
		{
			name: "nothing found",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := &mockFS{files: map[string]bool{}}
			for _, f := range tc.files {
				fs.files[f] = true
			}
			files := (&Resolver{FileSystem: fs}).ResolveFiles("rxdemo", LoaderConfig{})
			if files.ConfigFile != tc.wantConfig {
				t.Errorf("config file: expected %q, got %q", tc.wantConfig, files.ConfigFile)
			}
			if files.EnvFile != tc.wantEnv {
				t.Errorf("env file: expected %q, got %q", tc.wantEnv, files.EnvFile)
			}
		})
	}
}

func TestResolverExplicitPaths(t *testing.T) {
	fs := &mockFS{files: map[string]bool{"./config.yml": true}}
	files := (&Resolver{FileSystem: fs}).ResolveFiles("rxdemo", LoaderConfig{ConfigFile: "/etc/rx.yml", EnvFile: "/etc/rx.env"})
	if files.ConfigFile != "/etc/rx.yml" || files.EnvFile != "/etc/rx.env" {
		t.Errorf("expected explicit paths, got %+v", files)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("STREAM_OFFER_TIMEOUT")
	for _, want := range []string{"stream_offer_timeout", "stream.offer_timeout", "stream.offer.timeout"} {
		if !slices.Contains(got, want) {
			t.Errorf("expected variant %q in %v", want, got)
		}
	}
	if got := envKeyVariants("NAME"); !slices.Equal(got, []string{"name"}) {
		t.Errorf("expected [name], got %v", got)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	fs := &mockFS{}
	WithFileSystem(fs)(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("rx")(&lc)

	if lc.FileSystem != fs {
		t.Error("expected FileSystem to be set")
	}
	if lc.ConfigFile != "/path/to/config.yml" || lc.EnvFile != "/path/to/.env" {
		t.Errorf("unexpected paths: %+v", lc)
	}
	if lc.EnvPrefix != "RX" {
		t.Errorf("expected upper-cased prefix, got %q", lc.EnvPrefix)
	}
}
