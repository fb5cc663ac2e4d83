package twofa

import (
	"context"
	"errors"
)

// ErrRecordNotFound is returned when no record exists for (user, method).
var ErrRecordNotFound = errors.New("security record not found")

// RecordRepository loads and stores security records. At most one record
// exists per (user_id, method); SaveRecord replaces it.
type RecordRepository interface {
	GetRecord(ctx context.Context, userID string, method Method) (*SecurityRecord, error)
	ListRecords(ctx context.Context, userID string) ([]*SecurityRecord, error)
	SaveRecord(ctx context.Context, rec *SecurityRecord) error
}

func recordKey(userID string, method Method) string {
	return userID + "|" + string(method)
}
