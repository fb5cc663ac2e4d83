package twofa

import (
	"context"
	"sort"
	"sync"
)

// InMemRecordRepository keeps records in a map. Records are copied on the
// way in and out so callers never share state with the store.
type InMemRecordRepository struct {
	records map[string]*SecurityRecord
	mu      sync.RWMutex
}

func NewInMemRecordRepository() *InMemRecordRepository {
	return &InMemRecordRepository{
		records: make(map[string]*SecurityRecord),
	}
}

func (r *InMemRecordRepository) GetRecord(ctx context.Context, userID string, method Method) (*SecurityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[recordKey(userID, method)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (r *InMemRecordRepository) ListRecords(ctx context.Context, userID string) ([]*SecurityRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var recs []*SecurityRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			recs = append(recs, rec.Clone())
		}
	}
	sortRecords(recs)
	return recs, nil
}

func (r *InMemRecordRepository) SaveRecord(ctx context.Context, rec *SecurityRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[recordKey(rec.UserID, rec.Method)] = rec.Clone()
	return nil
}

// sortRecords orders records by method in the order of Methods.
func sortRecords(recs []*SecurityRecord) {
	rank := make(map[Method]int, len(Methods))
	for i, m := range Methods {
		rank[m] = i
	}
	sort.Slice(recs, func(i, j int) bool {
		return rank[recs[i].Method] < rank[recs[j].Method]
	})
}
