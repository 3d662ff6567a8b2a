package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo is the Postgres-backed report repository.
type PGRepo struct {
	DB *sql.DB
}

const reportColumns = `
id, user_id, url, final_url, domain, analysis_mode, title, description,
processing_status, processing_time_ms, clarity_score, score_breakdown,
report_data, error_message, shareable_token, is_public, view_count,
share_expires_at, created_at, completed_at`

// Create inserts a new report row in processing state.
func (r *PGRepo) Create(ctx context.Context, report Report) error {
	_, err := r.DB.ExecContext(ctx, `
INSERT INTO reports (id, user_id, url, domain, analysis_mode, processing_status, is_public, view_count, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		report.ID,
		nullString(report.UserID),
		report.URL,
		report.Domain,
		report.AnalysisMode,
		report.ProcessingStatus,
		report.IsPublic,
		report.ViewCount,
		report.CreatedAt,
	)
	return err
}

// GetByID fetches a report by primary key.
func (r *PGRepo) GetByID(ctx context.Context, reportID string) (Report, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+reportColumns+` FROM reports WHERE id = $1`, reportID)
	return scanReport(row)
}

// GetByShareToken fetches a public report by its share token. Private
// reports stay invisible through this path regardless of token knowledge.
func (r *PGRepo) GetByShareToken(ctx context.Context, token string) (Report, error) {
	row := r.DB.QueryRowContext(ctx, `
SELECT `+reportColumns+` FROM reports WHERE shareable_token = $1 AND is_public = TRUE`, token)
	return scanReport(row)
}

// Finalize writes the terminal state. The processing_status guard makes the
// first transition win; a second finalize affects zero rows and reports
// ErrAlreadyFinalized.
func (r *PGRepo) Finalize(ctx context.Context, reportID string, update FinalizeUpdate) error {
	if update.Status != StatusCompleted && update.Status != StatusFailed {
		return fmt.Errorf("invalid terminal status %q", update.Status)
	}

	breakdownJSON, err := marshalNullable(update.ScoreBreakdown)
	if err != nil {
		return fmt.Errorf("marshal score breakdown: %w", err)
	}
	dataJSON, err := marshalNullable(update.ReportData)
	if err != nil {
		return fmt.Errorf("marshal report data: %w", err)
	}

	res, err := r.DB.ExecContext(ctx, `
UPDATE reports
SET processing_status = $1,
    clarity_score = $2,
    score_breakdown = $3,
    report_data = $4,
    error_message = $5,
    shareable_token = COALESCE($6, shareable_token),
    processing_time_ms = $7,
    completed_at = $8
WHERE id = $9 AND processing_status = $10`,
		update.Status,
		nullIntPtr(update.ClarityScore),
		breakdownJSON,
		dataJSON,
		nullString(update.ErrorMessage),
		nullString(update.ShareableToken),
		update.ProcessingTimeMs,
		update.CompletedAt,
		reportID,
		StatusProcessing,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetByID(ctx, reportID); errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return ErrAlreadyFinalized
	}
	return nil
}

// UpdateCrawlMetadata stores the resolved URL, title, and description once
// the crawl returns, while the report is still processing. These fields
// survive a later pipeline failure.
func (r *PGRepo) UpdateCrawlMetadata(ctx context.Context, reportID string, update CrawlMetadataUpdate) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE reports SET final_url = $1, title = $2, description = $3 WHERE id = $4`,
		nullString(update.FinalURL), nullString(update.Title), nullString(update.Description), reportID)
	return err
}

// SetVisibility toggles sharing. Ownership is enforced in SQL so one user
// cannot publish another's report.
func (r *PGRepo) SetVisibility(ctx context.Context, reportID, userID string, isPublic bool, expiresAt *time.Time) error {
	res, err := r.DB.ExecContext(ctx, `
UPDATE reports SET is_public = $1, share_expires_at = $2 WHERE id = $3 AND user_id = $4`,
		isPublic, nullTimePtr(expiresAt), reportID, userID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementViewCount bumps the view counter atomically in SQL.
func (r *PGRepo) IncrementViewCount(ctx context.Context, reportID string) error {
	_, err := r.DB.ExecContext(ctx, `
UPDATE reports SET view_count = view_count + 1 WHERE id = $1`, reportID)
	return err
}

// ListByUser returns a user's reports newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Report, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, `
SELECT `+reportColumns+` FROM reports WHERE user_id = $1
ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Report
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (Report, error) {
	var (
		report        Report
		userID        sql.NullString
		finalURL      sql.NullString
		domain        sql.NullString
		title         sql.NullString
		description   sql.NullString
		clarityScore  sql.NullInt64
		breakdownJSON []byte
		dataJSON      []byte
		errorMessage  sql.NullString
		shareToken    sql.NullString
		expiresAt     sql.NullTime
		completedAt   sql.NullTime
	)
	err := row.Scan(
		&report.ID,
		&userID,
		&report.URL,
		&finalURL,
		&domain,
		&report.AnalysisMode,
		&title,
		&description,
		&report.ProcessingStatus,
		&report.ProcessingTimeMs,
		&clarityScore,
		&breakdownJSON,
		&dataJSON,
		&errorMessage,
		&shareToken,
		&report.IsPublic,
		&report.ViewCount,
		&expiresAt,
		&report.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Report{}, ErrNotFound
		}
		return Report{}, err
	}

	report.UserID = userID.String
	report.FinalURL = finalURL.String
	report.Domain = domain.String
	report.Title = title.String
	report.Description = description.String
	report.ErrorMessage = errorMessage.String
	report.ShareableToken = shareToken.String
	if clarityScore.Valid {
		score := int(clarityScore.Int64)
		report.ClarityScore = &score
	}
	if len(breakdownJSON) > 0 {
		var breakdown ScoreBreakdown
		if err := json.Unmarshal(breakdownJSON, &breakdown); err != nil {
			return Report{}, fmt.Errorf("unmarshal score breakdown: %w", err)
		}
		report.ScoreBreakdown = &breakdown
	}
	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &report.ReportData); err != nil {
			return Report{}, fmt.Errorf("unmarshal report data: %w", err)
		}
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		report.ShareExpiresAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		report.CompletedAt = &t
	}
	return report, nil
}

func marshalNullable(v any) (any, error) {
	switch val := v.(type) {
	case *ScoreBreakdown:
		if val == nil {
			return nil, nil
		}
	case map[string]any:
		if val == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
