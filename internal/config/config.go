package config

import (
	"fmt"
	"os"
	"strconv"
)

// DocstoreDriver selects the document-gateway backend.
type DocstoreDriver string

const (
	DriverMemory   DocstoreDriver = "memory"
	DriverMongo    DocstoreDriver = "mongo"
	DriverPostgres DocstoreDriver = "postgres"
)

// DatabaseConfig selects and parameterizes the document store.
type DatabaseConfig struct {
	Driver      DocstoreDriver
	MongoURI    string
	MongoDB     string
	DatabaseURL string
}

// NewDatabaseConfig reads DOCSTORE_DRIVER (default: memory) plus the
// driver-specific connection settings.
func NewDatabaseConfig() (*DatabaseConfig, error) {
	driver := os.Getenv("DOCSTORE_DRIVER")
	if driver == "" {
		driver = string(DriverMemory)
	}

	cfg := &DatabaseConfig{
		Driver:      DocstoreDriver(driver),
		MongoURI:    os.Getenv("MONGO_URI"),
		MongoDB:     os.Getenv("MONGO_DB"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *DatabaseConfig) normalize() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo driver")
		}
		if c.MongoDB == "" {
			c.MongoDB = "storyhub"
		}
		return nil
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		return nil
	default:
		return fmt.Errorf("unknown DOCSTORE_DRIVER: %q", c.Driver)
	}
}

// MediaConfig parameterizes the object/media gateway.
type MediaConfig struct {
	Bucket        string
	PublicBaseURL string
}

// NewMediaConfig reads MEDIA_BUCKET and MEDIA_PUBLIC_BASE_URL. An empty
// bucket leaves media uploads unavailable; the config probe endpoint reports
// this rather than failing startup.
func NewMediaConfig() *MediaConfig {
	return &MediaConfig{
		Bucket:        os.Getenv("MEDIA_BUCKET"),
		PublicBaseURL: os.Getenv("MEDIA_PUBLIC_BASE_URL"),
	}
}

// Available reports whether the media gateway is configured.
func (c *MediaConfig) Available() bool {
	return c.Bucket != ""
}

// TranscriptConfig parameterizes the optional voice-transcript service.
type TranscriptConfig struct {
	APIKey string
}

// NewTranscriptConfig reads GEMINI_API_KEY. Empty means the mock
// transcriber is used.
func NewTranscriptConfig() *TranscriptConfig {
	return &TranscriptConfig{APIKey: os.Getenv("GEMINI_API_KEY")}
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Port int
}

// NewServerConfig reads PORT (default: 8080).
func NewServerConfig() (*ServerConfig, error) {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %v", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("PORT out of range: %d", port)
	}
	return &ServerConfig{Port: port}, nil
}
