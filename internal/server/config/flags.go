package config

import (
	"flag"
	"os"
	"time"

	"github.com/ingenieros-gt/evote/internal/flagx"
)

// ValueFlags lists the flags that take a value, so commands sharing os.Args
// can find their positional arguments.
var ValueFlags = []string{"-a", "-m", "-t", "-d", "-s", "-x", "-l", "-seed", "-u", "-p", "-b", "-g", "-e", "-c", "-config"}

// parseFlags overlays command-line flags:
//
//	-a string   HTTP bind address (":3001")
//	-m string   gRPC health bind address (":50051")
//	-t string   database driver: postgres | sqlite
//	-d string   database DSN
//	-s string   JWT HMAC secret key
//	-x int      session token validity, minutes
//	-l string   log level
//	-seed path  roster JSON imported when the roster is empty
//	-demo       create a demo campaign when none exist
//	-u, -p, -b, -g, -e  S3 user, password, bucket, region, base endpoint
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-m", "-t", "-d", "-s", "-x", "-l", "-seed", "-demo", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.EndpointAddrGRPC, "m", config.EndpointAddrGRPC, "gRPC health address and port")
	fs.StringVar(&config.DatabaseDriver, "t", config.DatabaseDriver, "database driver (postgres|sqlite)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	accessTokenValidityDuration := fs.Int("x", int(config.AccessTokenValidityDuration.Minutes()), "session token validity (in minutes)")

	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.SeedFile, "seed", config.SeedFile, "roster seed file")
	fs.BoolVar(&config.SeedDemoCampaign, "demo", config.SeedDemoCampaign, "seed a demo campaign")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 photo bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
}
