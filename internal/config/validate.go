package config

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	// Validate server configuration
	if c.CIQ.Server.Addr == "" {
		return errors.New("server address cannot be empty")
	}

	// Validate address format and port
	if _, err := net.ResolveTCPAddr("tcp", c.CIQ.Server.Addr); err != nil {
		return fmt.Errorf("invalid server address: %v", err)
	}

	// Validate auth configuration
	if c.CIQ.Auth.Token == "" {
		return errors.New("auth token cannot be empty")
	}

	// Validate storage configuration
	if c.CIQ.Storage.DataDir == "" {
		return errors.New("storage data_dir cannot be empty")
	}

	// Validate chunking configuration
	if c.CIQ.RAG.ChunkSize <= 0 {
		return errors.New("rag chunk_size must be positive")
	}
	if c.CIQ.RAG.ChunkOverlap < 0 {
		return errors.New("rag chunk_overlap cannot be negative")
	}
	if c.CIQ.RAG.ChunkOverlap >= c.CIQ.RAG.ChunkSize {
		return errors.New("rag chunk_overlap must be smaller than chunk_size")
	}
	if c.CIQ.RAG.TopK <= 0 {
		return errors.New("rag top_k must be positive")
	}

	// Validate LLM configuration
	if c.CIQ.LLM.Enabled {
		if c.CIQ.LLM.Endpoint == "" {
			return errors.New("llm endpoint cannot be empty when llm is enabled")
		}
		if c.CIQ.LLM.Model == "" {
			return errors.New("llm model cannot be empty when llm is enabled")
		}
	}

	// Validate embeddings configuration
	if c.CIQ.Embeddings.Enabled {
		if c.CIQ.Embeddings.Endpoint == "" {
			return errors.New("embeddings endpoint cannot be empty when embeddings are enabled")
		}
		if c.CIQ.Embeddings.Model == "" {
			return errors.New("embeddings model cannot be empty when embeddings are enabled")
		}
	}
	if c.CIQ.Embeddings.Dimension <= 0 {
		return errors.New("embeddings dimension must be positive")
	}

	// Validate MinIO configuration
	if c.CIQ.Storage.MinIO.Enabled {
		if c.CIQ.Storage.MinIO.Endpoint == "" {
			return errors.New("minio endpoint cannot be empty when minio is enabled")
		}
		if c.CIQ.Storage.MinIO.AccessKey == "" {
			return errors.New("minio access key cannot be empty when minio is enabled")
		}
		if c.CIQ.Storage.MinIO.SecretKey == "" {
			return errors.New("minio secret key cannot be empty when minio is enabled")
		}
		if c.CIQ.Storage.MinIO.Bucket == "" {
			return errors.New("minio bucket cannot be empty when minio is enabled")
		}
		if !isValidBucketName(c.CIQ.Storage.MinIO.Bucket) {
			return fmt.Errorf("invalid minio bucket name: %s", c.CIQ.Storage.MinIO.Bucket)
		}
	}

	// Validate cache configuration
	switch c.CIQ.Cache.Backend {
	case "memory":
		if c.CIQ.Cache.MaxEntries <= 0 {
			return errors.New("cache max_entries must be positive for the memory backend")
		}
	case "redis":
		if c.CIQ.Cache.Redis.Addr == "" {
			return errors.New("redis addr cannot be empty for the redis cache backend")
		}
	default:
		return fmt.Errorf("unknown cache backend: %s", c.CIQ.Cache.Backend)
	}

	// Validate webhook configuration
	if Duration(c.CIQ.Webhooks.Timeout, 0) <= 0 {
		return errors.New("webhooks timeout must be a positive duration")
	}

	return nil
}

// isValidBucketName checks if a bucket name is valid according to MinIO/S3 rules
func isValidBucketName(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	if strings.Contains(name, "..") {
		return false
	}
	if !regexp.MustCompile(`^[a-z0-9][a-z0-9.-]*[a-z0-9]$`).MatchString(name) {
		return false
	}
	return true
}
