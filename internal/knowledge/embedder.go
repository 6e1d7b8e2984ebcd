// Package knowledge holds the clinic FAQ store: flattened clinic facts,
// vector retrieval when an embedding model is configured, and a keyword
// fallback when one is not.
package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// Embedder turns text into vectors for similarity retrieval.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type bedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockEmbedder embeds text with an Amazon Titan embedding model.
type BedrockEmbedder struct {
	client  bedrockInvoker
	modelID string
}

// NewBedrockEmbedder creates an embedder. modelID defaults to Titan v2.
func NewBedrockEmbedder(client *bedrockruntime.Client, modelID string) *BedrockEmbedder {
	if client == nil {
		return nil
	}
	if modelID == "" {
		modelID = "amazon.titan-embed-text-v2:0"
	}
	return &BedrockEmbedder{client: client, modelID: modelID}
}

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed embeds each text with one InvokeModel call; Titan embedding models
// accept a single input per request.
func (e *BedrockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		body, err := json.Marshal(titanEmbedRequest{InputText: text})
		if err != nil {
			return nil, fmt.Errorf("knowledge: marshal embed request: %w", err)
		}
		resp, err := e.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
			ModelId:     aws.String(e.modelID),
			ContentType: aws.String("application/json"),
			Body:        body,
		})
		if err != nil {
			return nil, fmt.Errorf("knowledge: invoke embedding model: %w", err)
		}
		var parsed titanEmbedResponse
		if err := json.Unmarshal(resp.Body, &parsed); err != nil {
			return nil, fmt.Errorf("knowledge: parse embedding response: %w", err)
		}
		out = append(out, parsed.Embedding)
	}
	return out, nil
}
