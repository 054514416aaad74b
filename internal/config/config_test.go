package config

import (
	"path/filepath"
	"testing"
)

func TestFromYAMLPartialKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte("engine:\n  daily_xp_ceiling: 800\n"))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	if cfg.Engine.DailyXPCeiling != 800 {
		t.Errorf("ceiling=%d, want 800", cfg.Engine.DailyXPCeiling)
	}
	// Untouched keys keep their defaults.
	if cfg.Engine.ForgivenessMisses != 1 || cfg.Listen != "127.0.0.1:7370" {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	cases := []string{
		"engine:\n  daily_xp_ceiling: 0\n",
		"engine:\n  repeat_decay: 1.5\n",
		"engine:\n  partial_credit_cap: 0\n",
		"engine:\n  rest_day_skill: Luck\n",
	}
	for _, y := range cases {
		if _, err := FromYAML([]byte(y)); err == nil {
			t.Errorf("FromYAML accepted %q", y)
		}
	}
}

func TestFromYAMLMalformed(t *testing.T) {
	if _, err := FromYAML([]byte("engine: [not a map")); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("LIFEQUEST_CONFIG", filepath.Join(t.TempDir(), "nope.yml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.DailyXPCeiling != 1200 {
		t.Errorf("default ceiling=%d, want 1200", cfg.Engine.DailyXPCeiling)
	}
}

func TestPathEnvOverride(t *testing.T) {
	t.Setenv("LIFEQUEST_CONFIG", "/tmp/custom.yml")
	p, err := Path()
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	if p != "/tmp/custom.yml" {
		t.Errorf("Path=%q", p)
	}
}
