package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv is a seam for tests.
var loadDotEnv = func() { _ = godotenv.Load() }

// parseEnv overlays values from the process environment after loading an
// optional .env file from the working directory. Variables already set in
// the environment win over the file.
//
//	PORT              HTTP port (":" is prepended) or HTTP_ADDR full address
//	GRPC_ADDR         health endpoint address
//	DB_CLIENT         postgres | pg | sqlite
//	DATABASE_URL      DSN
//	JWT_SECRET        token signing secret
//	JWT_EXPIRES       token validity, Go duration ("1h")
//	BCRYPT_COST       bcrypt cost
//	LOG_LEVEL         debug | info | warn | error
//	SEED_FILE         roster JSON imported when the roster is empty
//	SEED_DEMO         "true" creates a demo campaign when none exist
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT
//	PHOTO_URL_EXPIRES presigned URL validity, Go duration
func parseEnv(config *Config) {
	loadDotEnv()

	if v, ok := lookup("PORT"); ok {
		config.EndpointAddrHTTP = ":" + strings.TrimPrefix(v, ":")
	}
	setString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	setString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	setString(&config.DatabaseDriver, "DB_CLIENT")
	setString(&config.DatabaseDSN, "DATABASE_URL")
	setString(&config.SecretKey, "JWT_SECRET")
	setDuration(&config.AccessTokenValidityDuration, "JWT_EXPIRES")
	setInt(&config.BcryptCost, "BCRYPT_COST")
	setString(&config.LogLevel, "LOG_LEVEL")
	setString(&config.SeedFile, "SEED_FILE")
	setBool(&config.SeedDemoCampaign, "SEED_DEMO")
	setString(&config.S3RootUser, "S3_ROOT_USER")
	setString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "S3_BUCKET")
	setString(&config.S3Region, "S3_REGION")
	setString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	setDuration(&config.PhotoURLValidityDuration, "PHOTO_URL_EXPIRES")
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func setString(dst *string, name string) {
	if v, ok := lookup(name); ok {
		*dst = v
	}
}

func setInt(dst *int, name string) {
	if v, ok := lookup(name); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, name string) {
	if v, ok := lookup(name); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if v, ok := lookup(name); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
