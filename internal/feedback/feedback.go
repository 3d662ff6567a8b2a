package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is a piece of user feedback, optionally tied to a report.
type Entry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id,omitempty"`
	ReportID  string    `json:"report_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Repo persists feedback entries.
type Repo interface {
	Create(ctx context.Context, entry Entry) error
}

// Service validates and stores feedback.
type Service struct {
	Repo Repo
}

// Submit validates and persists a feedback entry.
func (s *Service) Submit(ctx context.Context, userID, reportID string, rating int, comment string) (Entry, error) {
	if rating < 1 || rating > 5 {
		return Entry{}, errors.New("rating must be between 1 and 5")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > 2000 {
		comment = comment[:2000]
	}
	entry := Entry{
		ID:        uuid.NewString(),
		UserID:    userID,
		ReportID:  reportID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}
