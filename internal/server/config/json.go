package config

import (
	"encoding/json"
	"os"

	"github.com/vkulagin/authgate/internal/flagx"
	"github.com/vkulagin/authgate/internal/timex"
)

// JsonConfig is an intermediate DTO used only for reading JSON configuration
// files. It uses timex.Duration for interval fields, which allows parsing
// both string values such as "30m" and integer nanoseconds. After
// unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddrHTTP     string          `json:"endpoint_addr_http"`
	DatabaseDSN          string          `json:"database_dsn"`
	LockoutThreshold     *int            `json:"lockout_threshold"`
	LockoutDuration      *timex.Duration `json:"lockout_duration"`
	SessionTimeout       *timex.Duration `json:"session_timeout"`
	SweepInterval        *timex.Duration `json:"sweep_interval"`
	RateLimitMaxRequests *int            `json:"rate_limit_max_requests"`
	RateLimitWindow      *timex.Duration `json:"rate_limit_window"`
	HashIterations       *int            `json:"hash_iterations"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags; if
// neither is set, no JSON file is loaded. Absent fields keep their current
// values. If the file cannot be read or contains invalid JSON, the function
// panics: a requested-but-broken config file is not something to run past.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	if c.EndpointAddrHTTP != "" {
		config.EndpointAddrHTTP = c.EndpointAddrHTTP
	}
	if c.DatabaseDSN != "" {
		config.DatabaseDSN = c.DatabaseDSN
	}
	if c.LockoutThreshold != nil {
		config.LockoutThreshold = *c.LockoutThreshold
	}
	if c.LockoutDuration != nil {
		config.LockoutDuration = c.LockoutDuration.Duration
	}
	if c.SessionTimeout != nil {
		config.SessionTimeout = c.SessionTimeout.Duration
	}
	if c.SweepInterval != nil {
		config.SweepInterval = c.SweepInterval.Duration
	}
	if c.RateLimitMaxRequests != nil {
		config.RateLimitMaxRequests = *c.RateLimitMaxRequests
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.HashIterations != nil {
		config.HashIterations = *c.HashIterations
	}
}
