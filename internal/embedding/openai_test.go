package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockEmbeddingsService implements EmbeddingsService for testing
type mockEmbeddingsService struct {
	response *openai.CreateEmbeddingResponse
	err      error
	// Track calls for verification
	callCount int
	lastInput []string
}

func (m *mockEmbeddingsService) New(ctx context.Context, params openai.EmbeddingNewParams, opts ...option.RequestOption) (*openai.CreateEmbeddingResponse, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	m.callCount++

	if params.Input.Value != nil {
		if arr, ok := params.Input.Value.(openai.EmbeddingNewParamsInputArrayOfStrings); ok {
			m.lastInput = []string(arr)
		}
	}

	return m.response, m.err
}

func mockResponse(embeddings [][]float64) *openai.CreateEmbeddingResponse {
	data := make([]openai.Embedding, len(embeddings))
	for i, emb := range embeddings {
		data[i] = openai.Embedding{
			Embedding: emb,
			Index:     int64(i),
		}
	}
	return &openai.CreateEmbeddingResponse{Data: data}
}

func TestEmbed_ConvertsFloat64ToFloat32(t *testing.T) {
	embedding := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
	mock := &mockEmbeddingsService{
		response: mockResponse([][]float64{embedding}),
	}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	result, err := client.Embed(context.Background(), "what is a variable")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, v := range embedding {
		if result[i] != float32(v) {
			t.Errorf("index %d: expected %f, got %f", i, float32(v), result[i])
		}
	}
	if mock.callCount != 1 {
		t.Errorf("expected 1 API call, got %d", mock.callCount)
	}
}

func TestEmbed_WrapsErrorWithContext(t *testing.T) {
	originalErr := errors.New("api error")
	mock := &mockEmbeddingsService{err: originalErr}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	_, err := client.Embed(context.Background(), "query")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "embedding generation failed") {
		t.Errorf("error should contain 'embedding generation failed', got: %v", err)
	}
	if !errors.Is(err, originalErr) {
		t.Errorf("error should wrap original error")
	}
}

func TestEmbed_NoDataReturned(t *testing.T) {
	mock := &mockEmbeddingsService{
		response: &openai.CreateEmbeddingResponse{Data: []openai.Embedding{}},
	}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	if _, err := client.Embed(context.Background(), "query"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEmbedBatch_ReturnsEmbeddingsInOrder(t *testing.T) {
	// Return embeddings in reverse order but with correct indices
	mock := &mockEmbeddingsService{
		response: &openai.CreateEmbeddingResponse{
			Data: []openai.Embedding{
				{Embedding: []float64{2.0}, Index: 2},
				{Embedding: []float64{1.0}, Index: 1},
				{Embedding: []float64{0.0}, Index: 0},
			},
		},
	}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	result, err := client.EmbedBatch(context.Background(), []string{"chunk0", "chunk1", "chunk2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := range result {
		if result[i][0] != float32(i) {
			t.Errorf("result[%d] = %v, want embedding for input %d", i, result[i], i)
		}
	}
}

func TestEmbedBatch_EmptyInput(t *testing.T) {
	mock := &mockEmbeddingsService{}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	result, err := client.EmbedBatch(context.Background(), []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result == nil || len(result) != 0 {
		t.Errorf("expected empty slice, got %v", result)
	}
	if mock.callCount != 0 {
		t.Errorf("expected no API calls for empty input, got %d", mock.callCount)
	}
}

func TestEmbedBatch_MismatchedCount(t *testing.T) {
	mock := &mockEmbeddingsService{
		response: mockResponse([][]float64{{0.1}, {0.2}}),
	}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	_, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "expected 3 embeddings") {
		t.Errorf("error should mention expected count, got: %v", err)
	}
}

func TestEmbed_RespectsContextCancellation(t *testing.T) {
	mock := &mockEmbeddingsService{
		response: mockResponse([][]float64{{0.1}}),
	}

	client := &OpenAI{
		embeddings: mock,
		model:      openai.EmbeddingModelTextEmbedding3Small,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Embed(ctx, "query")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got: %v", err)
	}
}

func TestModelName_ReturnsConfiguredModel(t *testing.T) {
	client := &OpenAI{model: openai.EmbeddingModelTextEmbedding3Small}
	if client.ModelName() != string(openai.EmbeddingModelTextEmbedding3Small) {
		t.Errorf("ModelName = %q", client.ModelName())
	}
}
