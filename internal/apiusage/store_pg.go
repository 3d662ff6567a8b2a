package apiusage

import (
	"context"
	"database/sql"
	"time"
)

// PGStore is the Postgres-backed usage ledger.
type PGStore struct {
	DB *sql.DB
}

// NewPGStore constructs a Postgres-backed ledger.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{DB: db}
}

// Record inserts rec into the api_usage table. Only inserts, never updates.
func (s *PGStore) Record(ctx context.Context, rec Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO api_usage (user_id, report_id, service, endpoint, tokens_used, cost_usd, response_time_ms, status_code, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		nullString(rec.UserID),
		nullString(rec.ReportID),
		rec.Service,
		rec.Endpoint,
		nullInt(rec.TokensUsed),
		rec.CostUSD,
		nullInt(rec.ResponseTimeMs),
		nullInt(rec.StatusCode),
		createdAt,
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

var _ Recorder = (*PGStore)(nil)
