package twofa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresRecordRepository stores records in the security_records table.
type PostgresRecordRepository struct {
	db DBTX
}

func NewPostgresRecordRepository(db DBTX) *PostgresRecordRepository {
	return &PostgresRecordRepository{db: db}
}

const recordColumns = `id, user_id, method, secret, channel_binding, is_enabled, backup_codes,
	failed_attempts, locked_until, last_used_at, created_at, updated_at`

func (r *PostgresRecordRepository) GetRecord(ctx context.Context, userID string, method Method) (*SecurityRecord, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM security_records
		WHERE user_id = $1 AND method = $2
	`, userID, string(method))

	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get security record: %w", err)
	}
	return rec, nil
}

func (r *PostgresRecordRepository) ListRecords(ctx context.Context, userID string) ([]*SecurityRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+recordColumns+`
		FROM security_records
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list security records: %w", err)
	}
	defer rows.Close()

	var recs []*SecurityRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security record: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list security records: %w", err)
	}
	sortRecords(recs)
	return recs, nil
}

// SaveRecord upserts on (user_id, method). The row id of an existing record
// is kept.
func (r *PostgresRecordRepository) SaveRecord(ctx context.Context, rec *SecurityRecord) error {
	codes := rec.BackupCodes
	if codes == nil {
		codes = []BackupCode{}
	}
	backupCodes, err := json.Marshal(codes)
	if err != nil {
		return fmt.Errorf("failed to marshal backup codes: %w", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO security_records (`+recordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9, $10, $11, $12)
		ON CONFLICT (user_id, method) DO UPDATE SET
			secret = EXCLUDED.secret,
			channel_binding = EXCLUDED.channel_binding,
			is_enabled = EXCLUDED.is_enabled,
			backup_codes = EXCLUDED.backup_codes,
			failed_attempts = EXCLUDED.failed_attempts,
			locked_until = EXCLUDED.locked_until,
			last_used_at = EXCLUDED.last_used_at,
			updated_at = EXCLUDED.updated_at
	`,
		rec.ID,
		rec.UserID,
		string(rec.Method),
		rec.Secret,
		rec.ChannelBinding,
		rec.IsEnabled,
		string(backupCodes),
		rec.FailedAttempts,
		rec.LockedUntil,
		rec.LastUsedAt,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save security record: %w", err)
	}
	return nil
}

func scanRecord(row pgx.Row) (*SecurityRecord, error) {
	var (
		rec         SecurityRecord
		method      string
		backupCodes []byte
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&method,
		&rec.Secret,
		&rec.ChannelBinding,
		&rec.IsEnabled,
		&backupCodes,
		&rec.FailedAttempts,
		&rec.LockedUntil,
		&rec.LastUsedAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.Method = Method(method)
	rec.BackupCodes = []BackupCode{}
	if len(backupCodes) > 0 {
		if err := json.Unmarshal(backupCodes, &rec.BackupCodes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal backup codes: %w", err)
		}
	}
	return &rec, nil
}
