package domain

// CompletionRequest is a single prompt sent to a hosted or local LLM.
type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens int
	// Temperature is nil for the provider default; zero is deterministic.
	Temperature *float64
	// JSON asks the provider for structured output.
	JSON bool
}
