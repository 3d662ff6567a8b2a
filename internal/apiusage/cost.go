package apiusage

// Vendor prices in USD. Gemini's list prices are $0.075/1K input tokens
// and $0.30/1K output tokens, stored here per token.
const (
	firecrawlCostPerScrape    = 0.001
	captureKitCostPerShot     = 0.007
	geminiInputPricePerToken  = 0.075 / 1000
	geminiOutputPricePerToken = 0.30 / 1000
	geminiInputTokenWeight    = 0.7
	geminiOutputTokenWeight   = 0.3
)

// FirecrawlCost returns the flat cost of one scrape call.
func FirecrawlCost() float64 {
	return firecrawlCostPerScrape
}

// CaptureKitCost returns the flat cost of one screenshot call.
func CaptureKitCost() float64 {
	return captureKitCostPerShot
}

// GeminiCost estimates the cost of a generateContent call from its total
// token count. Input and output tokens are priced differently; without a
// per-direction breakdown the total is split 70/30.
func GeminiCost(totalTokens int) float64 {
	if totalTokens <= 0 {
		return 0
	}
	tokens := float64(totalTokens)
	inputCost := tokens * geminiInputTokenWeight * geminiInputPricePerToken
	outputCost := tokens * geminiOutputTokenWeight * geminiOutputPricePerToken
	return inputCost + outputCost
}
