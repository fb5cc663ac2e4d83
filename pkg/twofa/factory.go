package twofa

import (
	"fmt"
)

// RepositoryConfig contains configuration for creating a record repository
type RepositoryConfig struct {
	// DB is required for PostgreSQL repositories
	DB DBTX
	// DataDir is required for file-based repositories
	DataDir string
}

// NewRecordRepository creates a record repository based on the persistence type
func NewRecordRepository(persistenceType string, config RepositoryConfig) (RecordRepository, error) {
	switch persistenceType {
	case "postgres", "postgresql":
		if config.DB == nil {
			return nil, fmt.Errorf("db required for postgres repository")
		}
		return NewPostgresRecordRepository(config.DB), nil
	case "file":
		if config.DataDir == "" {
			return nil, fmt.Errorf("dataDir required for file repository")
		}
		return NewFileRecordRepository(config.DataDir)
	case "memory", "inmem":
		return NewInMemRecordRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported persistence type: %s (supported: postgres, file, memory)", persistenceType)
	}
}
