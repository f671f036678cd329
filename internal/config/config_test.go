package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOLVE_DEBUG", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 8080 {
		t.Errorf("Port = %d; want 8080", cfg.Port)
	}
	if cfg.HintCount != 3 {
		t.Errorf("HintCount = %d; want 3", cfg.HintCount)
	}
	if cfg.SummaryThreshold != 3000 || cfg.KeepRecent != 6 {
		t.Errorf("summary settings = %d/%d; want 3000/6", cfg.SummaryThreshold, cfg.KeepRecent)
	}
	if cfg.JudgePause != time.Second {
		t.Errorf("JudgePause = %v; want 1s", cfg.JudgePause)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SOLVE_DEBUG", "true")
	t.Setenv("SOLVE_PORT", "9090")
	t.Setenv("SOLVE_JUDGE_PAUSE", "250ms")
	t.Setenv("SOLVE_SUMMARY_THRESHOLD", "1200")
	t.Setenv("SOLVE_REDIS_ADDR", "cache:6380")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port = %d; want 9090", cfg.Port)
	}
	if cfg.JudgePause != 250*time.Millisecond {
		t.Errorf("JudgePause = %v; want 250ms", cfg.JudgePause)
	}
	if cfg.SummaryThreshold != 1200 {
		t.Errorf("SummaryThreshold = %d; want 1200", cfg.SummaryThreshold)
	}
	if cfg.RedisAddr != "cache:6380" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
	if cfg.Addr() != ":9090" {
		t.Errorf("Addr() = %q; want :9090", cfg.Addr())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"debug defaults are valid", func(c *Config) { c.Debug = true }, ""},
		{"production requires secret", func(c *Config) {}, "JWT_SECRET"},
		{"production with secret", func(c *Config) { c.JWTSecret = "s3cret-value-for-tests" }, ""},
		{"named provider needs key", func(c *Config) {
			c.Debug = true
			c.LLMProvider = "claude"
		}, "LLM_API_KEY"},
		{"unknown provider", func(c *Config) {
			c.Debug = true
			c.LLMProvider = "mystery"
		}, "invalid config"},
		{"bad port", func(c *Config) {
			c.Debug = true
			c.Port = 0
		}, "invalid config"},
		{"hint count bounded", func(c *Config) {
			c.Debug = true
			c.HintCount = 20
		}, "invalid config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v; want containing %q", err, tt.wantErr)
			}
		})
	}
}
