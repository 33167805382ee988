// Package env contains helpers for capturing and merging environment variables.
//
// The task reads the OS environment exactly once per run into a Vars snapshot;
// input resolution and fallback chains operate on the snapshot so they can be
// exercised in tests with plain maps.
package env

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Vars represents a simple string-to-string map of variables.
type Vars map[string]string

// FromOS builds a Vars map from the current process environment.
func FromOS() Vars {
	out := make(Vars)
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		out[parts[0]] = parts[1]
	}
	return out
}

// Merge merges several Vars maps into one, later maps overriding earlier keys.
func Merge(sets ...Vars) Vars {
	out := make(Vars)
	for _, s := range sets {
		for k, v := range s {
			out[k] = v
		}
	}
	return out
}

// Get returns the trimmed value for key, or "" when absent.
func (v Vars) Get(key string) string {
	return strings.TrimSpace(v[key])
}

// Has reports whether key is present with a non-blank value.
func (v Vars) Has(key string) bool {
	return v.Get(key) != ""
}

// LoadEnvFile loads a single .env-style file into Vars. Used for local runs
// where Azure Pipelines variables are not ambient.
func LoadEnvFile(path string) (Vars, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	envMap, err := godotenv.Parse(f)
	if err != nil {
		return nil, err
	}
	out := make(Vars, len(envMap))
	for k, v := range envMap {
		out[k] = v
	}
	return out, nil
}
