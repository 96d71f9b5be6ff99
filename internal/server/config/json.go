package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dputra/mailroom/internal/flagx"
	"github.com/dputra/mailroom/internal/timex"
)

// JsonConfig is the file-format twin of Config. Interval fields use
// timex.Duration, which parses both string values such as "30s" and integer
// nanoseconds; after unmarshalling the values are copied into Config.
type JsonConfig struct {
	EndpointAddr        string         `json:"endpoint_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	JWKSURL             string         `json:"jwks_url"`
	JWKSRefreshInterval timex.Duration `json:"jwks_refresh_interval"`
	S3RootUser          string         `json:"s3_root_user"`
	S3RootPassword      string         `json:"s3_root_password"`
	S3Bucket            string         `json:"s3_bucket"`
	S3Region            string         `json:"s3_region"`
	S3BaseEndpoint      string         `json:"s3_base_endpoint"`
	EvidenceURLTTL      timex.Duration `json:"evidence_url_ttl"`
	ObjectStoreTimeout  timex.Duration `json:"object_store_timeout"`
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config command-line flags. If neither flag is set, nothing is loaded.
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

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.JWKSURL = c.JWKSURL
	config.JWKSRefreshInterval = time.Duration(c.JWKSRefreshInterval.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.EvidenceURLTTL = time.Duration(c.EvidenceURLTTL.Duration)
	config.ObjectStoreTimeout = time.Duration(c.ObjectStoreTimeout.Duration)
}
