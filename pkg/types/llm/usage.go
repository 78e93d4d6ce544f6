package llm

// Usage represents token usage information accumulated across model calls
type Usage struct {
	InputTokens              int     // Regular input tokens count
	OutputTokens             int     // Output tokens generated
	CacheCreationInputTokens int     // Tokens used for creating cache entries
	CacheReadInputTokens     int     // Tokens used for reading from cache
	InputCost                float64 // Cost for input tokens in USD
	OutputCost               float64 // Cost for output tokens in USD
	CacheCreationCost        float64 // Cost for cache creation in USD
	CacheReadCost            float64 // Cost for cache read in USD
}

// TotalCost returns the total cost of all token usage
func (u Usage) TotalCost() float64 {
	return u.InputCost + u.OutputCost + u.CacheCreationCost + u.CacheReadCost
}

// TotalTokens returns the total number of tokens used
func (u Usage) TotalTokens() int {
	return u.InputTokens + u.OutputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

// Add accumulates another usage record into this one
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CacheCreationInputTokens += other.CacheCreationInputTokens
	u.CacheReadInputTokens += other.CacheReadInputTokens
	u.InputCost += other.InputCost
	u.OutputCost += other.OutputCost
	u.CacheCreationCost += other.CacheCreationCost
	u.CacheReadCost += other.CacheReadCost
}
