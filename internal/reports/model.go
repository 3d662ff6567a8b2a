package reports

import "time"

// Processing statuses. A report transitions out of processing exactly once.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// EstimatedCompletionMs is the client-facing estimate returned when an
// analysis is accepted.
const EstimatedCompletionMs = 60000

// Analysis modes steer the AI prompt toward an audience.
const (
	ModeComprehensive = "comprehensive"
	ModeRecruiter     = "recruiter"
	ModePeer          = "peer"
	ModeClient        = "client"
	ModeQuick         = "quick"
)

// NormalizeMode maps a submitted mode onto the known set. Empty defaults to
// comprehensive; anything else is rejected.
func NormalizeMode(mode string) (string, bool) {
	switch mode {
	case "":
		return ModeComprehensive, true
	case ModeComprehensive, ModeRecruiter, ModePeer, ModeClient, ModeQuick:
		return mode, true
	default:
		return "", false
	}
}

// ScoreBreakdown holds per-category scores.
type ScoreBreakdown struct {
	Design        int `json:"design"`
	UX            int `json:"ux"`
	Technical     int `json:"technical"`
	Accessibility int `json:"accessibility"`
}

// Report is a website analysis report.
type Report struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id,omitempty"`
	URL              string          `json:"url"`
	FinalURL         string          `json:"final_url,omitempty"`
	Domain           string          `json:"domain"`
	AnalysisMode     string          `json:"analysis_mode"`
	Title            string          `json:"title,omitempty"`
	Description      string          `json:"description,omitempty"`
	ProcessingStatus string          `json:"processing_status"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
	ClarityScore     *int            `json:"clarity_score,omitempty"`
	ScoreBreakdown   *ScoreBreakdown `json:"score_breakdown,omitempty"`
	ReportData       map[string]any  `json:"report_data,omitempty"`
	ErrorMessage     string          `json:"error_message,omitempty"`
	ShareableToken   string          `json:"shareable_token,omitempty"`
	IsPublic         bool            `json:"is_public"`
	ViewCount        int             `json:"view_count"`
	ShareExpiresAt   *time.Time      `json:"share_expires_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	CompletedAt      *time.Time      `json:"completed_at,omitempty"`
}
