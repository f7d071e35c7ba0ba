package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

const (
	// DefaultOpenAIEmbeddingModel is used when EMBED_MODEL is left at a Gemini name.
	DefaultOpenAIEmbeddingModel = openai.SmallEmbedding3
	// DefaultGroqModel is the Groq chat model used for generation and tool calls.
	DefaultGroqModel = "llama-3.3-70b-versatile"
)

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// OpenAIEmbedder calls any OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
}

// NewOpenAIEmbedder requests dim-sized vectors so the column dimension can be
// kept independent of the model default.
func NewOpenAIEmbedder(apiKey, baseURL, model string, dim int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY not set", core.ErrConfiguration)
	}
	m := openai.EmbeddingModel(model)
	if model == "" || strings.HasPrefix(model, "text-embedding-004") || strings.HasPrefix(model, "gemini") {
		m = DefaultOpenAIEmbeddingModel
	}
	return &OpenAIEmbedder{client: newOpenAIClient(apiKey, baseURL), model: m, dim: dim}, nil
}

func (e *OpenAIEmbedder) Model() string { return string(e.model) }

// EmbedBatch returns vectors ordered by the response index, not arrival order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input:      texts,
		Model:      e.model,
		Dimensions: e.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("openai embeddings: index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// OpenAICompatLLM talks to an OpenAI-compatible chat endpoint (Groq by default).
type OpenAICompatLLM struct {
	client *openai.Client
	model  string
}

func NewOpenAICompatLLM(apiKey, baseURL, model string) (*OpenAICompatLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GROQ_API_KEY not set", core.ErrConfiguration)
	}
	if model == "" {
		model = DefaultGroqModel
	}
	return &OpenAICompatLLM{client: newOpenAIClient(apiKey, baseURL), model: model}, nil
}

func (l *OpenAICompatLLM) messages(systemPrompt, userPrompt string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if systemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userPrompt})
}

func (l *OpenAICompatLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    l.model,
		Messages: l.messages(systemPrompt, userPrompt),
	})
	if err != nil {
		return "", fmt.Errorf("%w: chat completion: %w", core.ErrGenerationService, err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func (l *OpenAICompatLLM) GenerateWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []core.Tool) (*core.Generation, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:      l.model,
		Messages:   l.messages(systemPrompt, userPrompt),
		Tools:      openAITools(tools),
		ToolChoice: "auto",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: chat completion with tools: %w", core.ErrGenerationService, err)
	}
	if len(resp.Choices) == 0 {
		return &core.Generation{}, nil
	}

	msg := resp.Choices[0].Message
	gen := &core.Generation{Text: msg.Content}
	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		args := map[string]any{}
		if strings.TrimSpace(call.Function.Arguments) != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				return nil, fmt.Errorf("%w: tool arguments are not JSON: %w", core.ErrGenerationService, err)
			}
		}
		gen.ToolCall = &core.ToolCall{Name: call.Function.Name, Args: args}
	}
	return gen, nil
}

func openAITools(tools []core.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]jsonschema.Definition, len(t.Params))
		for _, p := range t.Params {
			props[p.Name] = jsonschema.Definition{Type: jsonschema.String, Description: p.Description}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters: jsonschema.Definition{
					Type:       jsonschema.Object,
					Properties: props,
					Required:   t.Required,
				},
			},
		})
	}
	return out
}

var (
	_ BatchEmbedder    = (*OpenAIEmbedder)(nil)
	_ core.LLMProvider = (*OpenAICompatLLM)(nil)
)
