// Package config loads process settings from the environment, in the
// same style as the teacher's getEnv helper — no configuration
// framework, just typed accessors with defaults.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds every environment-driven knob named in the external
// interfaces section plus the adapter endpoints the domain stack wires
// in.
type Settings struct {
	// Core API
	APIKey      string
	ListenAddr  string
	DefaultOrg  int64
	SigningKey  string // HMAC integrity secret
	MasterKey   string // PBKDF2 input secret

	// Relational store
	DatabaseURL string

	// Blob store (MinIO/S3-compatible)
	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobBucket    string
	BlobUseTLS    bool

	// Search index (Meilisearch)
	IndexEndpoint string
	IndexAPIKey   string
	IndexName     string

	// Edge agent
	SMTPAddr       string
	SMTPAllowCIDRs []string
	CoreAPIURL     string
	BufferDBPath   string

	// Worker cadences
	RetentionInterval time.Duration
	VerifyInterval    time.Duration

	HTTPTimeout time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load populates Settings from the environment, applying the same
// defaults a local developer run would expect.
func Load() Settings {
	return Settings{
		APIKey:     getEnv("CORE_API_KEY", "dev-api-key"),
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DefaultOrg: getEnvInt64("DEFAULT_ORG_ID", 1),
		SigningKey: getEnv("OPENARCHIVE_INTEGRITY_KEY", "dev-signing-secret"),
		MasterKey:  getEnv("OPENARCHIVE_MASTER_KEY", "dev-master-secret"),

		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/openarchive?sslmode=disable"),

		BlobEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		BlobAccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		BlobSecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
		BlobBucket:    getEnv("MINIO_BUCKET", "openarchive"),
		BlobUseTLS:    getEnvBool("MINIO_USE_TLS", false),

		IndexEndpoint: getEnv("MEILI_ENDPOINT", "http://localhost:7700"),
		IndexAPIKey:   getEnv("MEILI_API_KEY", ""),
		IndexName:     getEnv("MEILI_INDEX", "messages"),

		SMTPAddr:       getEnv("SMTP_ADDR", ":2525"),
		SMTPAllowCIDRs: getEnvList("ALLOWED_SMTP_IPS"),
		CoreAPIURL:     getEnv("CORE_API_URL", "http://localhost:8080"),
		BufferDBPath:   getEnv("BUFFER_DB_PATH", "./edge-buffer.db"),

		RetentionInterval: getEnvDuration("RETENTION_INTERVAL", 24*time.Hour),
		VerifyInterval:    getEnvDuration("VERIFY_INTERVAL", 10*time.Minute),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
	}
}
