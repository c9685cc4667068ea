package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed policy.yaml
var policyYAML []byte

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Detect   DetectConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

type StorageConfig struct {
	Endpoint      string // S3-compatible endpoint (host:port)
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string // public base for rendering photo links, optional
}

// PublicURL returns the public URL for a storage key.
// Returns empty string if PublicBaseURL is not set.
func (c *StorageConfig) PublicURL(key string) string {
	if c.PublicBaseURL == "" || key == "" {
		return ""
	}
	return strings.TrimRight(c.PublicBaseURL, "/") + "/" + strings.TrimLeft(key, "/")
}

type AuthConfig struct {
	JWTSecret  string
	BcryptCost int // defaults to 12
	TokenDays  int // token lifetime in days, defaults to 7
}

// DetectConfig is the detection policy. Defaults ship in the embedded
// policy.yaml; environment variables override individual values.
type DetectConfig struct {
	Mode           string  `yaml:"mode"`            // "local" or "remote"
	Threshold      float64 `yaml:"threshold"`       // max collapsed score still accepted as a match
	Collapse       string  `yaml:"collapse"`        // "best-two-average" or "best"
	Concurrency    int     `yaml:"concurrency"`     // max in-flight blob fetches per request
	TimeoutSeconds int     `yaml:"timeout_seconds"` // end-to-end detection request budget
	GridSize       int     `yaml:"grid_size"`       // fingerprint grid edge length
	RecognizerURL  string  `yaml:"-"`               // remote recognition service, env only
}

type policyFile struct {
	Detect DetectConfig `yaml:"detect"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable with a fallback default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var policy policyFile
	if err := yaml.Unmarshal(policyYAML, &policy); err != nil {
		// This is an embedded file so this error should never happen in practice.
		panic("failed to unmarshal embedded policy.yaml: " + err.Error())
	}

	detect := policy.Detect
	detect.Mode = envString("DETECT_MODE", detect.Mode)
	detect.Threshold = envFloat("DETECT_THRESHOLD", detect.Threshold)
	detect.Collapse = envString("DETECT_COLLAPSE", detect.Collapse)
	detect.Concurrency = envInt("DETECT_CONCURRENCY", detect.Concurrency)
	detect.TimeoutSeconds = envInt("DETECT_TIMEOUT_SECONDS", detect.TimeoutSeconds)
	detect.GridSize = envInt("DETECT_GRID_SIZE", detect.GridSize)
	detect.RecognizerURL = os.Getenv("RECOGNIZER_URL")

	return &Config{
		Server: ServerConfig{
			Host: envString("SERVER_HOST", "0.0.0.0"),
			Port: envInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Storage: StorageConfig{
			Endpoint:      os.Getenv("S3_ENDPOINT"),
			AccessKey:     os.Getenv("S3_ACCESS_KEY"),
			SecretKey:     os.Getenv("S3_SECRET_KEY"),
			Bucket:        envString("S3_BUCKET", "pouch"),
			UseSSL:        os.Getenv("S3_USE_SSL") == "true",
			PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("JWT_SECRET"),
			BcryptCost: envInt("BCRYPT_COST", 12),
			TokenDays:  envInt("TOKEN_DAYS", 7),
		},
		Detect: detect,
	}
}
