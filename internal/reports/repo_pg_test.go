package reports

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPGRepoFinalizeGuardsTerminalState(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	score := 82
	update := FinalizeUpdate{
		Status:           StatusCompleted,
		ClarityScore:     &score,
		ScoreBreakdown:   &ScoreBreakdown{Design: 85, UX: 80, Technical: 84, Accessibility: 78},
		ReportData:       map[string]any{"score": 82},
		ShareableToken:   "abcdef0123456789",
		ProcessingTimeMs: 4200,
		CompletedAt:      time.Now().UTC(),
	}

	mock.ExpectExec(`UPDATE reports`).
		WithArgs(
			StatusCompleted,
			sqlmock.AnyArg(), // clarity_score
			sqlmock.AnyArg(), // score_breakdown
			sqlmock.AnyArg(), // report_data
			sqlmock.AnyArg(), // error_message
			sqlmock.AnyArg(), // shareable_token
			int64(4200),
			sqlmock.AnyArg(), // completed_at
			"report-1",
			StatusProcessing,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Finalize(context.Background(), "report-1", update); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoFinalizeAlreadyFinalized(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}

	// Guarded update misses because the report already left processing.
	mock.ExpectExec(`UPDATE reports`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "url", "final_url", "domain", "analysis_mode",
		"title", "description", "processing_status", "processing_time_ms",
		"clarity_score", "score_breakdown", "report_data", "error_message",
		"shareable_token", "is_public", "view_count", "share_expires_at",
		"created_at", "completed_at",
	}).AddRow(
		"report-1", "user-1", "https://example.com", nil, "example.com", ModeComprehensive,
		nil, nil, StatusCompleted, int64(4200),
		82, nil, nil, nil, "tok", false, 0, nil, time.Now().UTC(), time.Now().UTC(),
	)
	mock.ExpectQuery(`SELECT`).WillReturnRows(rows)

	err = repo.Finalize(context.Background(), "report-1", FinalizeUpdate{
		Status:      StatusFailed,
		CompletedAt: time.Now().UTC(),
	})
	if !errors.Is(err, ErrAlreadyFinalized) {
		t.Fatalf("err = %v, want ErrAlreadyFinalized", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoFinalizeRejectsNonTerminalStatus(t *testing.T) {
	repo := &PGRepo{}
	if err := repo.Finalize(context.Background(), "report-1", FinalizeUpdate{Status: StatusProcessing}); err == nil {
		t.Fatal("expected error for non-terminal status")
	}
}

func TestPGRepoIncrementViewCount(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectExec(`UPDATE reports SET view_count = view_count \+ 1`).
		WithArgs("report-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.IncrementViewCount(context.Background(), "report-1"); err != nil {
		t.Fatalf("IncrementViewCount: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGRepoGetByShareTokenRequiresPublic(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery(`shareable_token = \$1 AND is_public = TRUE`).
		WithArgs("tok").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByShareToken(context.Background(), "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
