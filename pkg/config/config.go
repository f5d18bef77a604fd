// Package config loads cmd/dxbrun's host configuration file: log level,
// strict-mode toggle, and a deterministic RNG seed for reproducible
// playtests of choice/choose randomness. The core VM itself takes no
// config file (spec.md §6 "no persisted state"); this is purely a CLI
// front-end concern, parsed the way sneller's cmd/sdb loads its YAML
// definition files.
package config

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Config is cmd/dxbrun's optional YAML configuration file.
type Config struct {
	// LogLevel is a zerolog level name: "debug", "info", "warn", "error".
	LogLevel string `json:"logLevel,omitempty"`
	// Strict enables VM strict mode (spec.md §9 "Tagged Values"):
	// opcode type mismatches become errors instead of silent no-ops.
	Strict bool `json:"strict,omitempty"`
	// Seed seeds math/rand for the default chance/weighted-chance
	// callbacks, so a recorded playtest can be replayed exactly.
	Seed int64 `json:"seed,omitempty"`
	// TranslationFile optionally overlays a translation file at startup
	// (spec.md §4.8 load_translation_file).
	TranslationFile string `json:"translationFile,omitempty"`
}

// Default returns the configuration cmd/dxbrun uses when no file is given.
func Default() Config {
	return Config{LogLevel: "info"}
}

// Load reads and parses a YAML configuration file at path.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}
