package reports

import (
	"plusfolio-backend/internal/vendors"
)

// NeutralFallback returns the all-50 analysis used when the AI vendor is
// unavailable. Callers mark the resulting report degraded so clients can
// tell a real mid-range score from a placeholder.
func NeutralFallback() *vendors.AnalysisResult {
	neutral := func() vendors.CategoryScore {
		return vendors.CategoryScore{
			Score:           50,
			Findings:        []string{},
			Recommendations: []string{},
		}
	}
	return &vendors.AnalysisResult{
		Score: 50,
		Analysis: map[string]vendors.CategoryScore{
			"design":        neutral(),
			"ux":            neutral(),
			"technical":     neutral(),
			"accessibility": neutral(),
		},
		Insights:        []vendors.Insight{},
		Recommendations: []vendors.Recommendation{},
	}
}

// BreakdownFrom extracts the per-category score breakdown.
func BreakdownFrom(analysis *vendors.AnalysisResult) *ScoreBreakdown {
	if analysis == nil {
		return nil
	}
	return &ScoreBreakdown{
		Design:        analysis.Analysis["design"].Score,
		UX:            analysis.Analysis["ux"].Score,
		Technical:     analysis.Analysis["technical"].Score,
		Accessibility: analysis.Analysis["accessibility"].Score,
	}
}

// buildReportData assembles the report_data payload stored on completion.
// screenshotURL may be empty when capture failed; degraded marks a neutral
// fallback analysis.
func buildReportData(url string, crawl *vendors.CrawlResult, screenshotURL string, analysis *vendors.AnalysisResult, degraded bool) map[string]any {
	data := map[string]any{
		"url":             url,
		"score":           analysis.Score,
		"analysis":        analysis.Analysis,
		"insights":        analysis.Insights,
		"recommendations": analysis.Recommendations,
		"degraded":        degraded,
	}
	if crawl != nil {
		data["metadata"] = crawl.Metadata
	}
	if screenshotURL != "" {
		data["screenshot_url"] = screenshotURL
	}
	return data
}
