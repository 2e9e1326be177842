package config

import (
	"flag"
	"os"
	"time"

	"github.com/avolkov/uniadmin/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   database DSN
//	-k string   database driver ("pgx" or "sqlite")
//	-s string   bearer signing secret
//	-t int      bearer token validity, minutes
//	-r int      session validity, hours
//	-m int      max sessions per account
//	-l int      refresh token length, characters
//
// os.Args is first filtered to the flags handled here (flagx.FilterArgs) so
// other components' flags do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-s", "-t", "-r", "-m", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.DatabaseDriver, "k", config.DatabaseDriver, "database driver (pgx or sqlite)")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "bearer signing secret")

	bearerValidity := fs.Int("t", int(config.BearerValidityDuration.Minutes()), "bearer token validity (in minutes)")
	sessionValidity := fs.Int("r", int(config.SessionValidityDuration.Hours()), "session validity (in hours)")

	fs.IntVar(&config.MaxSessionsPerAccount, "m", config.MaxSessionsPerAccount, "max sessions per account")
	fs.IntVar(&config.RefreshTokenLength, "l", config.RefreshTokenLength, "refresh token length")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.BearerValidityDuration = time.Duration(*bearerValidity) * time.Minute
	config.SessionValidityDuration = time.Duration(*sessionValidity) * time.Hour
}
