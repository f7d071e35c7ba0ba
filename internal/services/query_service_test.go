package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/smartassist-rag/internal/core"
	"github.com/markdave123-py/smartassist-rag/internal/models"
)

func newQuery(t *testing.T, emb core.EmbeddingProvider, store core.VectorStore, llm core.LLMProvider, booking *BookingService) *QueryService {
	t.Helper()
	q, err := NewQueryService(emb, store, llm, booking, 5, 0.35)
	require.NoError(t, err)
	return q
}

func TestNewQueryService_Validation(t *testing.T) {
	_, err := NewQueryService(nil, nil, nil, nil, 0, 0.35)
	require.ErrorIs(t, err, core.ErrConfiguration)
	_, err = NewQueryService(nil, nil, nil, nil, 5, 1.5)
	require.ErrorIs(t, err, core.ErrConfiguration)
}

func TestAnswer_EmptyMessage(t *testing.T) {
	q := newQuery(t, &fakeEmbedder{}, &fakeVectorStore{}, &fakeLLM{}, nil)
	_, err := q.Answer(context.Background(), "   ")
	require.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestAnswer_Grounded(t *testing.T) {
	long := strings.Repeat("x", 300)
	store := &fakeVectorStore{results: []models.SearchResult{
		{DocumentID: "handbook", ChunkText: "Labs close at 9pm.", Score: 0.81234},
		{DocumentID: "faq", ChunkText: long, Score: 0.5},
		{DocumentID: "noise", ChunkText: "unrelated", Score: 0.2},
	}}
	llm := &fakeLLM{text: "  Labs close at 9pm [1].  "}
	q := newQuery(t, &fakeEmbedder{}, store, llm, nil)

	res, err := q.Answer(context.Background(), "When do labs close?")
	require.NoError(t, err)

	assert.Equal(t, models.AnswerTypeText, res.Type)
	assert.Equal(t, "Labs close at 9pm [1].", res.Answer)
	require.Len(t, res.Citations, 2)
	assert.Equal(t, models.Citation{DocumentID: "handbook", Excerpt: "Labs close at 9pm.", Score: 0.812}, res.Citations[0])
	assert.Equal(t, "faq", res.Citations[1].DocumentID)
	assert.Len(t, []rune(res.Citations[1].Excerpt), ExcerptRunes)

	assert.Equal(t, 5, store.topK)
	assert.Equal(t, groundedSystemPrompt, llm.lastSys)
	assert.Contains(t, llm.lastUser, "[1] (document: handbook)")
	assert.Contains(t, llm.lastUser, "[2] (document: faq)")
	assert.NotContains(t, llm.lastUser, "unrelated")
}

func TestAnswer_GeneralKnowledgeBelowThreshold(t *testing.T) {
	store := &fakeVectorStore{results: []models.SearchResult{{DocumentID: "d", ChunkText: "t", Score: 0.1}}}
	llm := &fakeLLM{text: "Paris."}
	q := newQuery(t, &fakeEmbedder{}, store, llm, nil)

	res, err := q.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, "Paris.", res.Answer)
	assert.NotNil(t, res.Citations)
	assert.Empty(t, res.Citations)
	assert.Equal(t, generalSystemPrompt, llm.lastSys)
	assert.Equal(t, "What is the capital of France?", llm.lastUser)
}

func TestAnswer_EmptyStore(t *testing.T) {
	q := newQuery(t, &fakeEmbedder{}, &fakeVectorStore{}, &fakeLLM{text: "Paris is the capital."}, nil)

	res, err := q.Answer(context.Background(), "What is the capital of France?")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Answer)
	assert.Empty(t, res.Citations)
}

func TestAnswer_GenerationFailureDegrades(t *testing.T) {
	store := &fakeVectorStore{results: []models.SearchResult{{DocumentID: "d", ChunkText: "t", Score: 0.9}}}
	q := newQuery(t, &fakeEmbedder{}, store, &fakeLLM{genErr: core.ErrGenerationService}, nil)

	res, err := q.Answer(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, FallbackAnswer, res.Answer)
	assert.Empty(t, res.Citations)
}

func TestAnswer_EmbeddingFailurePropagates(t *testing.T) {
	llm := &fakeLLM{}
	q := newQuery(t, &fakeEmbedder{err: errors.New("503")}, &fakeVectorStore{}, llm, nil)

	_, err := q.Answer(context.Background(), "anything")
	require.ErrorIs(t, err, core.ErrEmbeddingService)
	assert.Zero(t, llm.calls)
}

func TestAnswer_SearchFailurePropagates(t *testing.T) {
	q := newQuery(t, &fakeEmbedder{}, &fakeVectorStore{err: core.ErrStore}, &fakeLLM{}, nil)

	_, err := q.Answer(context.Background(), "anything")
	require.ErrorIs(t, err, core.ErrStore)
}

func TestAnswer_BookingFastPathSkipsRetrieval(t *testing.T) {
	emb := &fakeEmbedder{}
	llm := &fakeLLM{toolGen: &core.Generation{Text: "Which room?"}}
	booking := NewBookingService(&fakeRooms{rooms: []models.Room{{ID: "1", Name: "LT1"}}}, llm)
	q := newQuery(t, emb, &fakeVectorStore{}, llm, booking)

	res, err := q.Answer(context.Background(), "I want to book a room")
	require.NoError(t, err)
	assert.Equal(t, models.AnswerTypeBookingIncomplete, res.Type)
	assert.Zero(t, emb.calls)
	assert.Zero(t, llm.calls)
	assert.Equal(t, 1, llm.toolCalls)
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "héllo", excerpt("héllo", 10))
	assert.Equal(t, "hé", excerpt("héllo", 2))
}
