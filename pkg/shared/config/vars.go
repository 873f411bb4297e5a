package config

import (
	"time"
)

// Config is the root of the sonarkit YAML configuration file.
type Config struct {
	Sonarkit   Sonarkit   `yaml:"sonarkit"`
	Logger     Logger     `yaml:"logger"`
	HTTPClient HTTPClient `yaml:"http_client"`
}

// Sonarkit holds tool-level settings such as the home and artifacts folders.
type Sonarkit struct {
	HomeFolder      string `yaml:"home_folder"`
	ArtifactsFolder string `yaml:"artifacts_folder"`
	Mode            string `yaml:"mode"`
}

// Logger holds logging settings.
type Logger struct {
	Level string `yaml:"level"`
}

// HTTPClient holds settings for the shared resty HTTP client.
type HTTPClient struct {
	Debug            *bool           `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

// TLSClientConfig controls TLS certificate verification.
type TLSClientConfig struct {
	Verify *bool `yaml:"verify"`
}

// Proxy holds an optional outbound proxy for all API traffic.
type Proxy struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}
