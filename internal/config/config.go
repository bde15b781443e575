package config

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the complete gateway configuration
// The structure matches the config.yaml file and can be overridden by environment variables

type Config struct {
	CIQ CIQConfig `json:"ciq" mapstructure:"ciq"`
}

// CIQConfig contains the main contract intelligence configuration

type CIQConfig struct {
	Server     ServerConfig     `json:"server" mapstructure:"server"`
	Auth       AuthConfig       `json:"auth" mapstructure:"auth"`
	Storage    StorageConfig    `json:"storage" mapstructure:"storage"`
	LLM        LLMConfig        `json:"llm" mapstructure:"llm"`
	Embeddings EmbeddingsConfig `json:"embeddings" mapstructure:"embeddings"`
	RAG        RAGConfig        `json:"rag" mapstructure:"rag"`
	Cache      CacheConfig      `json:"cache" mapstructure:"cache"`
	Webhooks   WebhooksConfig   `json:"webhooks" mapstructure:"webhooks"`
	Trail      TrailConfig      `json:"trail" mapstructure:"trail"`
	Logging    LoggingConfig    `json:"logging" mapstructure:"logging"`
}

// ServerConfig contains HTTP server configuration

type ServerConfig struct {
	Addr         string `json:"addr" mapstructure:"addr"`
	ReadTimeout  string `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout string `json:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  string `json:"idle_timeout" mapstructure:"idle_timeout"`
}

// AuthConfig contains authentication configuration

type AuthConfig struct {
	Token       string   `json:"token" mapstructure:"token"`
	ExemptPaths []string `json:"exempt_paths" mapstructure:"exempt_paths"`
}

// StorageConfig contains document storage configuration

type StorageConfig struct {
	DataDir string      `json:"data_dir" mapstructure:"data_dir"`
	MinIO   MinIOConfig `json:"minio" mapstructure:"minio"`
}

type MinIOConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key" mapstructure:"secret_key"`
	UseSSL    bool   `json:"use_ssl" mapstructure:"use_ssl"`
	Bucket    string `json:"bucket" mapstructure:"bucket"`
}

// LLMConfig contains LLM provider configuration

type LLMConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint string `json:"endpoint" mapstructure:"endpoint"`
	Model    string `json:"model" mapstructure:"model"`
	APIKey   string `json:"api_key" mapstructure:"api_key"`
}

// EmbeddingsConfig contains embedding provider configuration

type EmbeddingsConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
	Model     string `json:"model" mapstructure:"model"`
	Dimension int    `json:"dimension" mapstructure:"dimension"`
}

// RAGConfig contains retrieval configuration

type RAGConfig struct {
	ChunkSize    int `json:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap" mapstructure:"chunk_overlap"`
	TopK         int `json:"top_k" mapstructure:"top_k"`
}

// CacheConfig contains chunk cache configuration

type CacheConfig struct {
	Backend    string      `json:"backend" mapstructure:"backend"`
	MaxEntries int         `json:"max_entries" mapstructure:"max_entries"`
	Redis      RedisConfig `json:"redis" mapstructure:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr" mapstructure:"addr"`
	Password string `json:"password" mapstructure:"password"`
	DB       int    `json:"db" mapstructure:"db"`
	TTL      string `json:"ttl" mapstructure:"ttl"`
}

// WebhooksConfig contains webhook delivery configuration

type WebhooksConfig struct {
	Timeout string `json:"timeout" mapstructure:"timeout"`
}

// TrailConfig contains event trail configuration

type TrailConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// LoggingConfig contains logger configuration

type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// Load loads the configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env first (ignore error if not present)
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.contractiq")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CIQ")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found, using defaults")
		} else {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Resolve paths (expand ~)
	cfg.CIQ.Storage.DataDir = resolvePath(cfg.CIQ.Storage.DataDir)
	if cfg.CIQ.Trail.Path != "" {
		cfg.CIQ.Trail.Path = resolvePath(cfg.CIQ.Trail.Path)
	}
	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("CIQ.SERVER.ADDR", ":8080")
	viper.SetDefault("CIQ.SERVER.READ_TIMEOUT", "15s")
	// Answers stream token by token, so writes stay open well past the read window.
	viper.SetDefault("CIQ.SERVER.WRITE_TIMEOUT", "120s")
	viper.SetDefault("CIQ.SERVER.IDLE_TIMEOUT", "60s")

	viper.SetDefault("CIQ.AUTH.TOKEN", "default-secret-token")
	viper.SetDefault("CIQ.AUTH.EXEMPT_PATHS", []string{"/", "/healthz", "/metrics", "/mcp"})

	viper.SetDefault("CIQ.STORAGE.DATA_DIR", "./data")

	// MinIO defaults (mirroring disabled until credentials are set)
	viper.SetDefault("CIQ.STORAGE.MINIO.ENABLED", false)
	viper.SetDefault("CIQ.STORAGE.MINIO.ENDPOINT", "127.0.0.1:9000")
	viper.SetDefault("CIQ.STORAGE.MINIO.ACCESS_KEY", "minioadmin")
	viper.SetDefault("CIQ.STORAGE.MINIO.SECRET_KEY", "minioadmin")
	viper.SetDefault("CIQ.STORAGE.MINIO.USE_SSL", false)
	viper.SetDefault("CIQ.STORAGE.MINIO.BUCKET", "contractiq-documents")

	// LLM defaults
	viper.SetDefault("CIQ.LLM.ENABLED", true)
	viper.SetDefault("CIQ.LLM.ENDPOINT", "http://localhost:11434")
	viper.SetDefault("CIQ.LLM.MODEL", "phi3")

	// Embeddings default to the deterministic local embedder
	viper.SetDefault("CIQ.EMBEDDINGS.ENABLED", false)
	viper.SetDefault("CIQ.EMBEDDINGS.ENDPOINT", "http://localhost:11434")
	viper.SetDefault("CIQ.EMBEDDINGS.MODEL", "nomic-embed-text")
	viper.SetDefault("CIQ.EMBEDDINGS.DIMENSION", 384)

	// RAG defaults
	viper.SetDefault("CIQ.RAG.CHUNK_SIZE", 1000)
	viper.SetDefault("CIQ.RAG.CHUNK_OVERLAP", 200)
	viper.SetDefault("CIQ.RAG.TOP_K", 5)

	// Cache defaults
	viper.SetDefault("CIQ.CACHE.BACKEND", "memory")
	viper.SetDefault("CIQ.CACHE.MAX_ENTRIES", 128)
	viper.SetDefault("CIQ.CACHE.REDIS.ADDR", "localhost:6379")
	viper.SetDefault("CIQ.CACHE.REDIS.PASSWORD", "")
	viper.SetDefault("CIQ.CACHE.REDIS.DB", 0)
	viper.SetDefault("CIQ.CACHE.REDIS.TTL", "1h")

	// Webhook defaults
	viper.SetDefault("CIQ.WEBHOOKS.TIMEOUT", "10s")

	// Trail defaults
	viper.SetDefault("CIQ.TRAIL.PATH", "./data/trail.db")

	// Logging defaults
	viper.SetDefault("CIQ.LOGGING.LEVEL", "info")
}

// resolvePath resolves ~ to home directory and cleans the path
func resolvePath(p string) string {
	if p == "" {
		return p
	}
	if p[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			p = filepath.Join(home, p[1:])
		}
	}
	return filepath.Clean(p)
}

// Duration parses a duration string from the config, falling back when
// the value is empty or malformed.
func Duration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
