package config

import (
	"encoding/json"
	"os"

	"github.com/ingenieros-gt/evote/internal/flagx"
	"github.com/ingenieros-gt/evote/internal/timex"
)

// JsonConfig is the on-disk form of Config. Durations accept "15m" or
// integer nanoseconds. Fields left out of the file keep their current value.
type JsonConfig struct {
	EndpointAddrHTTP            *string         `json:"endpoint_addr_http"`
	EndpointAddrGRPC            *string         `json:"endpoint_addr_grpc"`
	DatabaseDriver              *string         `json:"database_driver"`
	DatabaseDSN                 *string         `json:"database_dsn"`
	SecretKey                   *string         `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	BcryptCost                  *int            `json:"bcrypt_cost"`
	LogLevel                    *string         `json:"log_level"`
	SeedFile                    *string         `json:"seed_file"`
	SeedDemoCampaign            *bool           `json:"seed_demo_campaign"`
	S3RootUser                  *string         `json:"s3_root_user"`
	S3RootPassword              *string         `json:"s3_root_password"`
	S3Bucket                    *string         `json:"s3_bucket"`
	S3Region                    *string         `json:"s3_region"`
	S3BaseEndpoint              *string         `json:"s3_base_endpoint"`
	PhotoURLValidityDuration    *timex.Duration `json:"photo_url_validity_duration"`
}

// parseJson loads the file named by -c/-config, if any, over config. An
// unreadable or malformed file panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	copyString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	copyString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	copyString(&config.DatabaseDriver, c.DatabaseDriver)
	copyString(&config.DatabaseDSN, c.DatabaseDSN)
	copyString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDuration != nil {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.BcryptCost != nil {
		config.BcryptCost = *c.BcryptCost
	}
	copyString(&config.LogLevel, c.LogLevel)
	copyString(&config.SeedFile, c.SeedFile)
	if c.SeedDemoCampaign != nil {
		config.SeedDemoCampaign = *c.SeedDemoCampaign
	}
	copyString(&config.S3RootUser, c.S3RootUser)
	copyString(&config.S3RootPassword, c.S3RootPassword)
	copyString(&config.S3Bucket, c.S3Bucket)
	copyString(&config.S3Region, c.S3Region)
	copyString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.PhotoURLValidityDuration != nil {
		config.PhotoURLValidityDuration = c.PhotoURLValidityDuration.Duration
	}
}

func copyString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
