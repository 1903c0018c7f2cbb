package config

import "github.com/caarlos0/env/v11"

// parseEnv overlays configuration values from AUTHGATE_-prefixed environment
// variables onto the provided Config. Variables that are not set leave the
// current values untouched. A malformed value panics for the same reason a
// broken JSON file does.
func parseEnv(config *Config) {
	if err := env.ParseWithOptions(config, env.Options{Prefix: "AUTHGATE_"}); err != nil {
		panic(err)
	}
}
