package ratelimit

// Published provider allowances.
var (
	AlphaVantage = Config{RequestsPerMinute: 5, RequestsPerDay: 500}  // premium tier
	FMP          = Config{RequestsPerMinute: 10, RequestsPerDay: 250} // free tier
	NewsAPI      = Config{RequestsPerMinute: 10, RequestsPerDay: 100} // developer tier
	OpenAI       = Config{RequestsPerMinute: 60}
	Perplexity   = Config{RequestsPerMinute: 20}
)
