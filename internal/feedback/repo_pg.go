package feedback

import (
	"context"
	"database/sql"
)

// PGRepo is the Postgres-backed feedback repository.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, entry Entry) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO feedback (id, user_id, report_id, rating, comment, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID,
		nullString(entry.UserID),
		nullString(entry.ReportID),
		entry.Rating,
		nullString(entry.Comment),
		entry.CreatedAt,
	)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Repo = (*PGRepo)(nil)
