package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
)

// HarrierFolderName is the per-project config directory: config.json,
// plus an `environments/` subdirectory of flat YAML variable files
// consumed by pkg/loader.LoadEnvironment.
const HarrierFolderName = ".harrier"

// Config is Harrier's on-disk project configuration.
type Config struct {
	CollectionsDir  string `json:"collections_dir"`
	EnvironmentsDir string `json:"environments_dir"`
	DefaultEnv      string `json:"default_env"`
}

func defaultConfig() Config {
	return Config{
		CollectionsDir:  "collections",
		EnvironmentsDir: filepath.Join(HarrierFolderName, "environments"),
		DefaultEnv:      "dev",
	}
}

// initHarrierFolder creates .harrier/config.json and environments/ on
// first run, prompting via huh for the handful of values that matter;
// re-runs are a silent no-op.
func initHarrierFolder() error {
	configPath := filepath.Join(HarrierFolderName, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return nil
	}

	cfg := defaultConfig()
	if isInteractive() {
		if err := runSetupWizard(&cfg); err != nil {
			return fmt.Errorf("setup cancelled: %w", err)
		}
	}

	if err := os.MkdirAll(HarrierFolderName, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.EnvironmentsDir, 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.CollectionsDir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(configPath, data, 0o644)
}

func runSetupWizard(cfg *Config) error {
	fmt.Println()
	fmt.Println("  Welcome to Harrier - a collection-execution engine for HTTP APIs.")
	fmt.Println("  Let's set up your project folder.")
	fmt.Println()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Where do your collection files live?").
				Value(&cfg.CollectionsDir),
			huh.NewInput().
				Title("Default environment name").
				Value(&cfg.DefaultEnv),
		),
	).WithTheme(huh.ThemeDracula())

	return form.Run()
}

func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

func loadConfig() (Config, error) {
	data, err := os.ReadFile(filepath.Join(HarrierFolderName, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return Config{}, err
	}
	cfg := defaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", HarrierFolderName, err)
	}
	return cfg, nil
}
