package types

// Usage is the token accounting reported by the upstream API for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Envelope is the unit returned to callers and persisted in the cache.
// The stored copy always has ServedFromCache false; it is forced to true
// when an envelope is replayed from the cache.
type Envelope struct {
	Content         string  `json:"content"`
	Model           string  `json:"model"`
	Usage           Usage   `json:"usage"`
	CostUSD         float64 `json:"cost_usd"`
	ServedFromCache bool    `json:"served_from_cache"`
}
