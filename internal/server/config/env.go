package config

import (
	"os"
	"time"
)

// parseEnv overlays configuration from environment variables. Only set
// variables override earlier layers, so a .env file loaded by the
// composition root composes cleanly with JSON config and flags.
func parseEnv(config *Config) {
	setString := func(dest *string, name string) {
		if v, ok := os.LookupEnv(name); ok {
			*dest = v
		}
	}
	setDuration := func(dest *time.Duration, name string) {
		if v, ok := os.LookupEnv(name); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dest = d
			}
		}
	}

	setString(&config.EndpointAddr, "MAILROOM_ADDR")
	setString(&config.DatabaseDSN, "MAILROOM_DATABASE_DSN")
	setString(&config.SecretKey, "MAILROOM_SECRET_KEY")
	setString(&config.JWKSURL, "MAILROOM_JWKS_URL")
	setDuration(&config.JWKSRefreshInterval, "MAILROOM_JWKS_REFRESH_INTERVAL")
	setString(&config.S3RootUser, "MAILROOM_S3_ROOT_USER")
	setString(&config.S3RootPassword, "MAILROOM_S3_ROOT_PASSWORD")
	setString(&config.S3Bucket, "MAILROOM_S3_BUCKET")
	setString(&config.S3Region, "MAILROOM_S3_REGION")
	setString(&config.S3BaseEndpoint, "MAILROOM_S3_BASE_ENDPOINT")
	setDuration(&config.EvidenceURLTTL, "MAILROOM_EVIDENCE_URL_TTL")
	setDuration(&config.ObjectStoreTimeout, "MAILROOM_OBJECT_STORE_TIMEOUT")
}
