package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// envRefPattern matches {{VAR}} or {{env:VAR}}. Environments are flat
// YAML string maps that may reference the process environment via
// an `env:` prefix, resolved once at load time (never re-resolved later,
// unlike the core's own {{...}} templates).
var envRefPattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// LoadEnvironment reads a flat `key: value` YAML file at path (via Fs)
// into a string map suitable for seeding runctx.Context's environment
// scope, resolving any `{{env:NAME}}` references against the process
// environment.
func LoadEnvironment(path string) (map[string]string, error) {
	data, err := afero.ReadFile(Fs, path)
	if err != nil {
		return nil, fmt.Errorf("loader: read environment %s: %w", path, err)
	}
	var env map[string]string
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("loader: parse environment %s: %w", path, err)
	}
	for k, v := range env {
		env[k] = resolveEnvRefs(v)
	}
	return env, nil
}

// SaveEnvironment writes env back out as flat YAML, creating the parent
// directory if needed. Used by `harrier vars set`.
func SaveEnvironment(env map[string]string, path string) error {
	if err := Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("loader: mkdir for %s: %w", path, err)
	}
	data, err := yaml.Marshal(env)
	if err != nil {
		return fmt.Errorf("loader: marshal environment: %w", err)
	}
	return afero.WriteFile(Fs, path, data, 0o644)
}

// ListEnvironments returns the environment names available under dir
// (files named <name>.yaml or <name>.yml), sorted.
func ListEnvironments(dir string) ([]string, error) {
	exists, err := afero.DirExists(Fs, dir)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	entries, err := afero.ReadDir(Fs, dir)
	if err != nil {
		return nil, fmt.Errorf("loader: list environments in %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, ".yaml") {
			out = append(out, strings.TrimSuffix(name, ".yaml"))
		} else if strings.HasSuffix(name, ".yml") {
			out = append(out, strings.TrimSuffix(name, ".yml"))
		}
	}
	sort.Strings(out)
	return out, nil
}

func resolveEnvRefs(text string) string {
	return envRefPattern.ReplaceAllStringFunc(text, func(match string) string {
		name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
		const envPrefix = "env:"
		if strings.HasPrefix(name, envPrefix) {
			if val, ok := os.LookupEnv(strings.TrimPrefix(name, envPrefix)); ok {
				return val
			}
		}
		return match
	})
}
