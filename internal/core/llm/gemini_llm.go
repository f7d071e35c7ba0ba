package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/markdave123-py/smartassist-rag/internal/core"
)

type GeminiLLM struct {
	client    *genai.Client
	modelName string
}

func NewGeminiLLM(ctx context.Context, apiKey, modelName string) (*GeminiLLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY not set", core.ErrConfiguration)
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %w", core.ErrConfiguration, err)
	}
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	return &GeminiLLM{client: cl, modelName: modelName}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) model(systemPrompt string) *genai.GenerativeModel {
	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	return m
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := g.model(systemPrompt).GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini generate: %w", core.ErrGenerationService, err)
	}
	gen := parseGeminiResponse(resp)
	return gen.Text, nil
}

// GenerateWithTools offers tools as function declarations and lets the model
// decide whether to call one.
func (g *GeminiLLM) GenerateWithTools(ctx context.Context, systemPrompt, userPrompt string, tools []core.Tool) (*core.Generation, error) {
	m := g.model(systemPrompt)
	m.Tools = geminiTools(tools)
	m.ToolConfig = &genai.ToolConfig{
		FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
	}

	resp, err := m.GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini generate with tools: %w", core.ErrGenerationService, err)
	}
	return parseGeminiResponse(resp), nil
}

func geminiTools(tools []core.Tool) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Params))
		for _, p := range t.Params {
			props[p.Name] = &genai.Schema{Type: genai.TypeString, Description: p.Description}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   t.Required,
			},
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// parseGeminiResponse takes the first function call of the first candidate,
// otherwise concatenates its text parts.
func parseGeminiResponse(resp *genai.GenerateContentResponse) *core.Generation {
	gen := &core.Generation{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return gen
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		switch v := p.(type) {
		case genai.Text:
			b.WriteString(string(v))
		case genai.FunctionCall:
			if gen.ToolCall == nil {
				gen.ToolCall = &core.ToolCall{Name: v.Name, Args: v.Args}
			}
		}
	}
	gen.Text = b.String()
	return gen
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
