package extract

import (
	"context"
	"log/slog"

	"golang.org/x/time/rate"
)

// estCharsPerToken approximates the provider's tokenizer: roughly one token
// per four characters of English text.
const estCharsPerToken = 4

// perCallOverheadTokens accounts for the prompt scaffolding sent with every
// extraction call.
const perCallOverheadTokens = 600

// RateLimiter enforces a shared tokens-per-minute budget across all
// concurrent model calls. It is the sole serialization point of the
// ingestion pipeline: workers block in Acquire until budget is available.
type RateLimiter struct {
	limiter *rate.Limiter
	burst   int
	logger  *slog.Logger
}

// NewRateLimiter creates a limiter for the given tokens-per-minute budget.
// A budget <= 0 disables limiting.
func NewRateLimiter(tokensPerMinute int) *RateLimiter {
	if tokensPerMinute <= 0 {
		return &RateLimiter{logger: slog.Default().With("component", "rate-limiter")}
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(float64(tokensPerMinute)/60.0), tokensPerMinute),
		burst:   tokensPerMinute,
		logger:  slog.Default().With("component", "rate-limiter"),
	}
}

// Acquire blocks until the given number of tokens fits within the budget,
// or the context is cancelled. Requests larger than the full budget are
// clamped so they remain admissible.
func (rl *RateLimiter) Acquire(ctx context.Context, tokens int) error {
	if rl.limiter == nil {
		return nil
	}
	if tokens > rl.burst {
		rl.logger.Warn("token estimate exceeds full budget, clamping",
			"tokens", tokens, "budget", rl.burst)
		tokens = rl.burst
	}
	if tokens < 1 {
		tokens = 1
	}
	return rl.limiter.WaitN(ctx, tokens)
}

// EstimateTokens approximates the token cost of sending the given texts.
func EstimateTokens(texts []string) int {
	chars := 0
	for _, t := range texts {
		chars += len(t)
	}
	return chars/estCharsPerToken + perCallOverheadTokens
}
