package config

import (
	"flag"
	"os"
	"time"

	"github.com/vkulagin/authgate/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8443")
//	-d string   PostgreSQL DSN
//	-l int      lockout threshold (failed attempts)
//	-k int      lockout duration, minutes
//	-t int      session timeout, seconds
//	-w int      sweep interval, seconds
//	-m int      rate limit: max requests per window
//	-r int      rate limit: window length, seconds
//	-i int      password hash iteration count
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes
//     using flagx.FilterArgs, avoiding collisions with other components.
//   - Duration flags are accepted as integers and converted to
//     time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-l", "-k", "-t", "-w", "-m", "-r", "-i"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.LockoutThreshold, "l", config.LockoutThreshold, "failed attempts before lockout")

	lockoutDuration := fs.Int("k", int(config.LockoutDuration.Minutes()), "lockout duration (in minutes)")
	sessionTimeout := fs.Int("t", int(config.SessionTimeout.Seconds()), "session inactivity timeout (in seconds)")
	sweepInterval := fs.Int("w", int(config.SweepInterval.Seconds()), "session sweep interval (in seconds)")

	fs.IntVar(&config.RateLimitMaxRequests, "m", config.RateLimitMaxRequests, "rate limit: max requests per window")
	rateWindow := fs.Int("r", int(config.RateLimitWindow.Seconds()), "rate limit window (in seconds)")

	fs.IntVar(&config.HashIterations, "i", config.HashIterations, "password hash iteration count")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.LockoutDuration = time.Duration(*lockoutDuration) * time.Minute
	config.SessionTimeout = time.Duration(*sessionTimeout) * time.Second
	config.SweepInterval = time.Duration(*sweepInterval) * time.Second
	config.RateLimitWindow = time.Duration(*rateWindow) * time.Second
}
