package apiusage

import "time"

// Record is one append-only entry in the vendor usage ledger. Rows are never
// updated or deleted; cost reporting aggregates over them.
type Record struct {
	ID             int64     `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	ReportID       string    `json:"report_id,omitempty"`
	Service        string    `json:"service"`
	Endpoint       string    `json:"endpoint"`
	TokensUsed     int       `json:"tokens_used,omitempty"`
	CostUSD        float64   `json:"cost_usd"`
	ResponseTimeMs int       `json:"response_time_ms,omitempty"`
	StatusCode     int       `json:"status_code,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
