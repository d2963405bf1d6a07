package retrieval

import (
	"fmt"
	"time"
)

// BackendType 后端类型
type BackendType string

const (
	// BackendMemory 内存后端
	BackendMemory BackendType = "memory"
	// BackendSQLite SQLite 后端
	BackendSQLite BackendType = "sqlite"
	// BackendQdrant Qdrant 后端
	BackendQdrant BackendType = "qdrant"
	// BackendNeo4j Neo4j 后端
	BackendNeo4j BackendType = "neo4j"
)

// BackendConfig 后端配置
type BackendConfig struct {
	// Type 后端类型
	Type BackendType `koanf:"type"`

	// SQLite 配置
	SQLitePath string `koanf:"sqlite_path"`

	// Qdrant 配置
	QdrantURL        string        `koanf:"qdrant_url"`
	QdrantAPIKey     string        `koanf:"qdrant_api_key"`
	QdrantCollection string        `koanf:"qdrant_collection"`
	QdrantTimeout    time.Duration `koanf:"qdrant_timeout"`

	// Neo4j 配置
	Neo4jURI      string `koanf:"neo4j_uri"`
	Neo4jUsername string `koanf:"neo4j_username"`
	Neo4jPassword string `koanf:"neo4j_password"`
	Neo4jIndex    string `koanf:"neo4j_index"`

	// Dimensions 向量维度
	Dimensions int `koanf:"dimensions"`
}

// NewBackend 按配置创建搜索后端
func NewBackend(config BackendConfig) (SearchBackend, error) {
	switch config.Type {
	case BackendMemory, "":
		return NewInMemoryBackend(), nil

	case BackendSQLite:
		path := config.SQLitePath
		if path == "" {
			path = "chunks.db"
		}
		return NewSQLiteBackend(path)

	case BackendQdrant:
		return NewQdrantBackend(QdrantConfig{
			URL:        config.QdrantURL,
			APIKey:     config.QdrantAPIKey,
			Collection: config.QdrantCollection,
			Dimensions: config.Dimensions,
			Timeout:    config.QdrantTimeout,
		})

	case BackendNeo4j:
		return NewNeo4jBackend(Neo4jConfig{
			URI:        config.Neo4jURI,
			Username:   config.Neo4jUsername,
			Password:   config.Neo4jPassword,
			IndexName:  config.Neo4jIndex,
			Dimensions: config.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}
