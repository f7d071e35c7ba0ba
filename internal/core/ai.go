package core

import "context"

// EmbeddingProvider turns texts into fixed-dimension vectors, one per input, in order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// LLMProvider is a stateless single-turn generative model.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)

	// GenerateWithTools offers the model a set of tools. The result carries
	// either free text or a single tool call.
	GenerateWithTools(ctx context.Context, systemPrompt string, userPrompt string, tools []Tool) (*Generation, error)
}

// ToolParam is a string parameter of a tool.
type ToolParam struct {
	Name        string
	Description string
}

// Tool describes a structured action the model may invoke.
type Tool struct {
	Name        string
	Description string
	Params      []ToolParam
	Required    []string
}

// ToolCall is a tool invocation returned by the model. Args holds the raw
// argument values keyed by parameter name.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Generation is the outcome of GenerateWithTools.
type Generation struct {
	Text     string
	ToolCall *ToolCall
}
