// Package config loads timer settings from a YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"studyclock/internal/core/model"
)

const configFileName = "config.yaml"

// Config contains every user-editable setting.
type Config struct {
	FocusDuration time.Duration
	BreakDuration time.Duration
	LunchDuration time.Duration
	LunchAfter    int
	DailyGoal     int
	RemindAt      []time.Duration
	TickInterval  time.Duration
	DataDir       string
}

// Default returns the built-in settings: 50 minute focus blocks, 10
// minute breaks, lunch after 4 focus units, 7 units per day.
func Default() Config {
	return Config{
		FocusDuration: 50 * time.Minute,
		BreakDuration: 10 * time.Minute,
		LunchDuration: 30 * time.Minute,
		LunchAfter:    4,
		DailyGoal:     7,
		RemindAt:      []time.Duration{40 * time.Minute, 20 * time.Minute},
		TickInterval:  time.Second,
	}
}

// Validate rejects settings the engine cannot run with.
func (config Config) Validate() error {
	if config.FocusDuration <= 0 || config.BreakDuration <= 0 || config.LunchDuration <= 0 {
		return errors.New("session durations must be positive")
	}
	if config.LunchAfter <= 0 {
		return errors.New("lunch threshold must be at least 1")
	}
	if config.DailyGoal <= 0 {
		return errors.New("daily goal must be at least 1")
	}
	if config.TickInterval <= 0 {
		return errors.New("tick interval must be positive")
	}
	return nil
}

// Cycle converts the settings into the engine's cycle configuration.
func (config Config) Cycle() model.CycleConfig {
	return model.CycleConfig{
		FocusDuration: config.FocusDuration,
		BreakDuration: config.BreakDuration,
		LunchDuration: config.LunchDuration,
		LunchAfter:    config.LunchAfter,
		DailyGoal:     config.DailyGoal,
		RemindAt:      append([]time.Duration(nil), config.RemindAt...),
	}
}

type yamlConfig struct {
	FocusMinutes        int    `yaml:"focus_minutes"`
	BreakMinutes        int    `yaml:"break_minutes"`
	LunchMinutes        int    `yaml:"lunch_minutes"`
	LunchAfter          int    `yaml:"lunch_after"`
	DailyGoal           int    `yaml:"daily_goal"`
	RemindAtMinutes     []int  `yaml:"remind_at_minutes"`
	TickIntervalSeconds int    `yaml:"tick_interval_seconds"`
	DataDir             string `yaml:"data_dir"`
}

type envConfig struct {
	FocusMinutes int    `env:"STUDYCLOCK_FOCUS_MINUTES"`
	BreakMinutes int    `env:"STUDYCLOCK_BREAK_MINUTES"`
	LunchMinutes int    `env:"STUDYCLOCK_LUNCH_MINUTES"`
	LunchAfter   int    `env:"STUDYCLOCK_LUNCH_AFTER"`
	DailyGoal    int    `env:"STUDYCLOCK_DAILY_GOAL"`
	DataDir      string `env:"STUDYCLOCK_DATA_DIR"`
}

// Manager holds the last-known-good configuration and its file path.
type Manager struct {
	config Config
	path   string
}

// NewManager loads configuration for the given application name. A
// missing file yields defaults; an unreadable or invalid file also
// falls back to defaults rather than failing startup. Environment
// variables override file values last.
func NewManager(appName string) (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return &Manager{config: Default()}, fmt.Errorf("resolve user config dir: %w", err)
	}
	return NewManagerAt(filepath.Join(configDir, appName, configFileName))
}

// NewManagerAt is NewManager with an explicit config file path.
func NewManagerAt(path string) (*Manager, error) {
	manager := &Manager{config: Default(), path: path}

	rawData, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return manager, fmt.Errorf("read config file: %w", err)
		}
	} else {
		var fileData yamlConfig
		if err := yaml.Unmarshal(rawData, &fileData); err != nil {
			return manager, fmt.Errorf("parse config yaml: %w", err)
		}
		applyYamlConfig(&manager.config, fileData)
	}

	if err := applyEnvConfig(&manager.config); err != nil {
		return manager, err
	}
	return manager, nil
}

// Config returns the current settings.
func (manager *Manager) Config() Config {
	return manager.config
}

// Update validates and adopts new settings, writing them to disk. On
// validation failure the last-known-good configuration is kept.
func (manager *Manager) Update(config Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	manager.config = config
	return manager.save()
}

func (manager *Manager) save() error {
	fileData := yamlConfig{
		FocusMinutes:        int(manager.config.FocusDuration / time.Minute),
		BreakMinutes:        int(manager.config.BreakDuration / time.Minute),
		LunchMinutes:        int(manager.config.LunchDuration / time.Minute),
		LunchAfter:          manager.config.LunchAfter,
		DailyGoal:           manager.config.DailyGoal,
		TickIntervalSeconds: int(manager.config.TickInterval / time.Second),
		DataDir:             manager.config.DataDir,
	}
	for _, mark := range manager.config.RemindAt {
		fileData.RemindAtMinutes = append(fileData.RemindAtMinutes, int(mark/time.Minute))
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(manager.path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(manager.path, serialized, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Invalid fields keep their defaults so one bad value never poisons the
// whole configuration.
func applyYamlConfig(config *Config, fileData yamlConfig) {
	if fileData.FocusMinutes > 0 {
		config.FocusDuration = time.Duration(fileData.FocusMinutes) * time.Minute
	}
	if fileData.BreakMinutes > 0 {
		config.BreakDuration = time.Duration(fileData.BreakMinutes) * time.Minute
	}
	if fileData.LunchMinutes > 0 {
		config.LunchDuration = time.Duration(fileData.LunchMinutes) * time.Minute
	}
	if fileData.LunchAfter > 0 {
		config.LunchAfter = fileData.LunchAfter
	}
	if fileData.DailyGoal > 0 {
		config.DailyGoal = fileData.DailyGoal
	}
	if fileData.TickIntervalSeconds > 0 {
		config.TickInterval = time.Duration(fileData.TickIntervalSeconds) * time.Second
	}
	if fileData.DataDir != "" {
		config.DataDir = fileData.DataDir
	}
	if len(fileData.RemindAtMinutes) > 0 {
		var marks []time.Duration
		for _, minutes := range fileData.RemindAtMinutes {
			if minutes > 0 {
				marks = append(marks, time.Duration(minutes)*time.Minute)
			}
		}
		config.RemindAt = marks
	}
}

func applyEnvConfig(config *Config) error {
	var overrides envConfig
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if overrides.FocusMinutes > 0 {
		config.FocusDuration = time.Duration(overrides.FocusMinutes) * time.Minute
	}
	if overrides.BreakMinutes > 0 {
		config.BreakDuration = time.Duration(overrides.BreakMinutes) * time.Minute
	}
	if overrides.LunchMinutes > 0 {
		config.LunchDuration = time.Duration(overrides.LunchMinutes) * time.Minute
	}
	if overrides.LunchAfter > 0 {
		config.LunchAfter = overrides.LunchAfter
	}
	if overrides.DailyGoal > 0 {
		config.DailyGoal = overrides.DailyGoal
	}
	if overrides.DataDir != "" {
		config.DataDir = overrides.DataDir
	}
	return nil
}
