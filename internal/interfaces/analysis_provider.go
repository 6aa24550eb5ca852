package interfaces

import "context"

// AnalysisRequest is a provider-agnostic request for a structured judgment.
// OutputSchema is a JSON-schema-shaped map; providers that support schema
// enforcement (Gemini) apply it, others embed it in the instruction.
type AnalysisRequest struct {
	SystemInstruction string
	Prompt            string
	OutputSchema      map[string]interface{}

	// Grounded asks for the search-augmented variant: the provider runs a
	// web search and returns grounding sources alongside the text.
	Grounded bool

	Temperature float32
	MaxTokens   int
}

// GroundingSource is one source the provider consulted for a grounded call.
// Content holds cited text where the provider returns it; it may be empty
// for providers that only report the source location.
type GroundingSource struct {
	URL     string
	Title   string
	Content string
}

// AnalysisResponse is a provider-agnostic structured output. Text carries
// the JSON payload matching the request schema. Cost is the euro cost of
// the call derived from token usage; callers accumulate it per stage.
type AnalysisResponse struct {
	Text    string
	Sources []GroundingSource

	InputTokens  int
	OutputTokens int
	Cost         float64
}

// AnalysisProvider is the uniform contract every stage uses to obtain
// qualitative judgments. Implementations own retries, backoff and per-call
// timeouts; Invoke returns an error only after retries are exhausted.
// Callers must tolerate failure and fall back to their documented neutral
// defaults.
type AnalysisProvider interface {
	Invoke(ctx context.Context, req *AnalysisRequest) (*AnalysisResponse, error)
	Close() error
}
