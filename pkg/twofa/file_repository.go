package twofa

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const recordsFileName = "security_records.json"

// FileRecordRepository keeps records in memory and rewrites a JSON file on
// every change.
type FileRecordRepository struct {
	dataDir string
	records map[string]*SecurityRecord
	mutex   sync.RWMutex
}

// NewFileRecordRepository creates the data directory if needed and loads any
// existing records.
func NewFileRecordRepository(dataDir string) (*FileRecordRepository, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	repo := &FileRecordRepository{
		dataDir: dataDir,
		records: make(map[string]*SecurityRecord),
	}

	if err := repo.load(); err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	return repo, nil
}

func (r *FileRecordRepository) GetRecord(ctx context.Context, userID string, method Method) (*SecurityRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	rec, ok := r.records[recordKey(userID, method)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *FileRecordRepository) ListRecords(ctx context.Context, userID string) ([]*SecurityRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var recs []*SecurityRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			recs = append(recs, rec.Clone())
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (r *FileRecordRepository) SaveRecord(ctx context.Context, rec *SecurityRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	key := recordKey(rec.UserID, rec.Method)
	previous, existed := r.records[key]
	r.records[key] = rec.Clone()

	if err := r.save(); err != nil {
		// Rollback
		if existed {
			r.records[key] = previous
		} else {
			delete(r.records, key)
		}
		return fmt.Errorf("failed to save: %w", err)
	}
	return nil
}

// load reads records from file
func (r *FileRecordRepository) load() error {
	filePath := filepath.Join(r.dataDir, recordsFileName)

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var recs []*SecurityRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}

	r.records = make(map[string]*SecurityRecord, len(recs))
	for _, rec := range recs {
		r.records[recordKey(rec.UserID, rec.Method)] = rec
	}
	return nil
}

// save writes records to file atomically
func (r *FileRecordRepository) save() error {
	recs := make([]*SecurityRecord, 0, len(r.records))
	for _, rec := range r.records {
		recs = append(recs, rec)
	}

	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Secrets live in this file, keep it private.
	tempFile := filepath.Join(r.dataDir, recordsFileName+".tmp")
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	finalFile := filepath.Join(r.dataDir, recordsFileName)
	if err := os.Rename(tempFile, finalFile); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}
