package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophmsg/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8069")
//	-d string   PostgreSQL DSN
//	-m string   storage backend: postgres | memory
//	-r string   Redis address for the profile cache
//	-t int      profile cache TTL, minutes
//	-k int      bcrypt cost for bearer secrets
//	-l string   log backend: slog | zap
//	-w int      shutdown timeout, seconds
//
// os.Args is filtered through flagx.FilterArgs first, so the -c/-config flag
// handled by parseJson does not trip this parser.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-r", "-t", "-k", "-l", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "m", config.StorageBackend, "storage backend (postgres|memory)")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address for the profile cache")

	cacheTTL := fs.Int("t", int(config.ProfileCacheTTL.Minutes()), "profile cache ttl (in minutes)")

	fs.IntVar(&config.TokenHashCost, "k", config.TokenHashCost, "bcrypt cost for bearer secrets")
	fs.StringVar(&config.LogBackend, "l", config.LogBackend, "log backend (slog|zap)")

	shutdownTimeout := fs.Int("w", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// Durations from a config file may be finer than the flag units, so
	// they are replaced only by flags that were given.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.ProfileCacheTTL = time.Duration(*cacheTTL) * time.Minute
		case "w":
			config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
		}
	})
}
