package providers

import "strings"

// tokensPerWord is the heuristic ratio used when exact tokenization is
// unavailable. Roughly 1.3 tokens per English word for common tokenizers.
const tokensPerWord = 1.3

// EstimateTokens estimates the token count of a request's prompt text
// using the tokens-per-word heuristic. It is pure and never negative.
func EstimateTokens(req *Request) int {
	if req == nil {
		return 0
	}

	words := len(strings.Fields(req.Text()))
	return int(float64(words) * tokensPerWord)
}

// EstimateCostUSD estimates the cost of a request in USD given a
// per-1000-token price. The estimate covers the prompt plus the requested
// completion budget (MaxTokens), since both are billed.
//
// The result is never negative; non-positive prices yield 0.
func EstimateCostUSD(req *Request, costPer1KTokens float64) float64 {
	if req == nil || costPer1KTokens <= 0 {
		return 0
	}

	tokens := EstimateTokens(req) + req.MaxTokens
	if tokens <= 0 {
		return 0
	}

	return float64(tokens) / 1000.0 * costPer1KTokens
}
