package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"lifequest/internal/engine"
)

// Config models ~/.lifequest.yml.
type Config struct {
	// DBPath overrides the default database location.
	DBPath string `yaml:"db_path"`
	// Listen is the local read-API address for `lq serve`.
	Listen string        `yaml:"listen"`
	Engine engine.Config `yaml:"engine"`
}

func Default() *Config {
	return &Config{
		Listen: "127.0.0.1:7370",
		Engine: engine.DefaultConfig(),
	}
}

// Path returns the config file location, honoring LIFEQUEST_CONFIG.
func Path() (string, error) {
	if p := os.Getenv("LIFEQUEST_CONFIG"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".lifequest.yml"), nil
}

// Load reads the config file, falling back to defaults when it does not
// exist. Partial files work: absent keys keep their default values.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return FromYAML(data)
}

func FromYAML(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	e := cfg.Engine
	if e.DailyXPCeiling <= 0 {
		return fmt.Errorf("daily_xp_ceiling must be positive")
	}
	if e.ForgivenessWindowDays <= 0 || e.ForgivenessMisses < 0 {
		return fmt.Errorf("forgiveness window must be positive, misses non-negative")
	}
	if e.RepeatDecay <= 0 || e.RepeatDecay >= 1 {
		return fmt.Errorf("repeat_decay must be in (0, 1)")
	}
	if e.RepeatFloor <= 0 || e.RepeatFloor > 1 {
		return fmt.Errorf("repeat_floor must be in (0, 1]")
	}
	if e.PartialCreditCap <= 0 || e.PartialCreditCap > 1 {
		return fmt.Errorf("partial_credit_cap must be in (0, 1]")
	}
	if _, ok := engine.SkillDomain(e.RestDaySkill); !ok {
		return fmt.Errorf("rest_day_skill %q is not a known skill", e.RestDaySkill)
	}
	return nil
}
