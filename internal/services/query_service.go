package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// ExcerptRunes bounds the citation excerpt.
const ExcerptRunes = 200

// FallbackAnswer is returned when the generative model is unavailable.
const FallbackAnswer = "Sorry, I couldn't generate an answer right now. Please try again in a moment."

const groundedSystemPrompt = "You are SmartAssist, a helpful academic assistant for the department. " +
	"Answer questions using only the provided context and cite the sources you used as [n]. " +
	"If the context does not contain enough information, say so clearly. " +
	"Always be concise and accurate."

const generalSystemPrompt = "You are SmartAssist, a helpful academic assistant for the department. " +
	"No department documents matched this question, so answer from general knowledge. " +
	"Say so when you are unsure. Always be concise and accurate."

// QueryService answers questions from the indexed documents, falling back to
// general knowledge below the confidence threshold and routing booking
// messages to the BookingService.
type QueryService struct {
	embedder  core.EmbeddingProvider
	store     core.VectorStore
	llm       core.LLMProvider
	booking   *BookingService
	topK      int
	threshold float64
}

func NewQueryService(embedder core.EmbeddingProvider, store core.VectorStore, llm core.LLMProvider, booking *BookingService, topK int, threshold float64) (*QueryService, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", core.ErrConfiguration, topK)
	}
	if threshold < -1 || threshold > 1 {
		return nil, fmt.Errorf("%w: confidence threshold %f outside [-1, 1]", core.ErrConfiguration, threshold)
	}
	return &QueryService{
		embedder:  embedder,
		store:     store,
		llm:       llm,
		booking:   booking,
		topK:      topK,
		threshold: threshold,
	}, nil
}

// Answer returns a grounded, general or booking answer for message.
// Embedding and search failures are returned; generation failures are not.
func (s *QueryService) Answer(ctx context.Context, message string) (*models.AnswerResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", core.ErrInvalidInput)
	}

	if s.booking != nil && IsBookingRequest(message) {
		return s.booking.Handle(ctx, message)
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{message})
	if err != nil {
		if errors.Is(err, core.ErrEmbeddingService) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrEmbeddingService, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d query embeddings", core.ErrEmbeddingService, len(vecs))
	}

	results, err := s.store.Search(ctx, vecs[0], s.topK)
	if err != nil {
		return nil, err
	}

	var kept []models.SearchResult
	for _, r := range results {
		if r.Score >= s.threshold {
			kept = append(kept, r)
		}
	}

	system, prompt := generalSystemPrompt, message
	citations := []models.Citation{}
	if len(kept) > 0 {
		system, prompt = groundedSystemPrompt, groundedPrompt(message, kept)
		citations = make([]models.Citation, len(kept))
		for i, r := range kept {
			citations[i] = models.Citation{
				DocumentID: r.DocumentID,
				Excerpt:    excerpt(r.ChunkText, ExcerptRunes),
				Score:      math.Round(r.Score*1000) / 1000,
			}
		}
	}

	answer, err := s.llm.Generate(ctx, system, prompt)
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		slog.Warn("generation failed, using fallback", "grounded", len(kept) > 0, "err", err)
		return fallbackAnswer(), nil
	}

	slog.Debug("query answered", "hits", len(results), "kept", len(kept))
	return &models.AnswerResult{
		Type:      models.AnswerTypeText,
		Answer:    answer,
		Citations: citations,
	}, nil
}

func groundedPrompt(question string, kept []models.SearchResult) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for i, r := range kept {
		fmt.Fprintf(&b, "[%d] (document: %s)\n%s\n\n", i+1, r.DocumentID, r.ChunkText)
	}
	fmt.Fprintf(&b, "Question: %s\n\nAnswer using the numbered sources above.", question)
	return b.String()
}

func excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n])
}

func fallbackAnswer() *models.AnswerResult {
	return &models.AnswerResult{
		Type:      models.AnswerTypeText,
		Answer:    FallbackAnswer,
		Citations: []models.Citation{},
	}
}
