package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for a single AI call.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}

// NowMillis returns the current time in milliseconds since the epoch,
// the unit every stored timestamp uses.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
