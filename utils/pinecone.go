package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"sort"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// Scene memory: completed analyses are embedded and upserted to a
// Pinecone index so a session can retrieve similar past scenes.

func GetPineconeIndex(sessionID *string) (*pinecone.IndexConnection, error) {
	ctx := context.Background()
	if sessionID == nil {
		return nil, nil
	}

	indexName := os.Getenv("PINECONE_INDEX")
	if indexName == "" {
		return nil, fmt.Errorf("PINECONE_INDEX environment variable is not set")
	}

	pineconeAPIKey := os.Getenv("PINECONE_API_KEY")
	if pineconeAPIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY environment variable is not set")
	}

	clientParams := pinecone.NewClientParams{
		ApiKey: pineconeAPIKey,
	}

	client, err := pinecone.NewClient(clientParams)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}

	idx, err := client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %q: %v", indexName, err)
	}

	namespace := fmt.Sprintf("roadvlm-%s", *sessionID)
	idxConnection, err := client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to create IndexConnection for Host %v: %v", idx.Host, err)
	}

	return idxConnection, nil
}

// SceneMatch is one stored scene returned from the index.
type SceneMatch struct {
	Text   string
	Values []float32
}

// FetchSimilarScenes returns the stored summaries of past scenes most
// similar to the given description, best match first.
func FetchSimilarScenes(ctx context.Context, index *pinecone.IndexConnection, description string) ([]string, error) {
	embedding, err := VectorizePrompt("text-embedding-ada-002", ctx, description)
	if err != nil {
		return nil, fmt.Errorf("error vectorizing scene description: %w", err)
	}
	matches, err := QueryPinecone(ctx, embedding, index, 5)
	if err != nil {
		return nil, fmt.Errorf("error querying Pinecone index: %w", err)
	}

	// The index does approximate search; re-rank exactly on the
	// returned vectors.
	sort.SliceStable(matches, func(i, j int) bool {
		return CosineSimilarity(embedding, matches[i].Values) > CosineSimilarity(embedding, matches[j].Values)
	})

	summaries := make([]string, 0, len(matches))
	for _, m := range matches {
		summaries = append(summaries, m.Text)
	}
	return summaries, nil
}

func QueryPinecone(ctx context.Context, embedding []float32, index *pinecone.IndexConnection, topK int) ([]SceneMatch, error) {
	queryRequest := &pinecone.QueryByVectorValuesRequest{
		Vector:          embedding,
		TopK:            uint32(topK),
		IncludeValues:   true,
		IncludeMetadata: true,
	}

	queryResponse, err := index.QueryByVectorValues(ctx, queryRequest)
	if err != nil {
		return nil, fmt.Errorf("error querying Pinecone index: %w", err)
	}

	var matches []SceneMatch
	for _, match := range queryResponse.Matches {
		if match.Vector == nil || match.Vector.Metadata == nil {
			continue
		}

		// Extract the 'text' field from metadata.
		value, ok := match.Vector.Metadata.Fields["text"]
		if ok {
			text := value.GetStringValue()
			if text != "" {
				matches = append(matches, SceneMatch{Text: text, Values: match.Vector.Values})
			}
		}
	}

	return matches, nil
}

// UpsertToPinecone stores one embedding with its metadata.
func UpsertToPinecone(ctx context.Context, index *pinecone.IndexConnection, vectorID string, embedding []float32, metadata map[string]interface{}) error {
	metadataStruct, err := structpb.NewStruct(metadata)
	if err != nil {
		return fmt.Errorf("failed to build vector metadata: %w", err)
	}

	vector := &pinecone.Vector{
		Id:       vectorID,
		Values:   embedding,
		Metadata: metadataStruct,
	}

	if _, err := index.UpsertVectors(ctx, []*pinecone.Vector{vector}); err != nil {
		return fmt.Errorf("failed to upsert vector %q: %w", vectorID, err)
	}

	return nil
}

func VectorizePrompt(model string, ctx context.Context, promptText string) ([]float32, error) {
	openAIAPIKey := os.Getenv("OPENAI_API_KEY")
	if openAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	requestBody := map[string]interface{}{
		"input": promptText,
		"model": model,
	}
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", "https://api.openai.com/v1/embeddings", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+openAIAPIKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OpenAI API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var responseData struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(bodyBytes, &responseData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response JSON: %w", err)
	}

	if len(responseData.Data) == 0 {
		return nil, fmt.Errorf("no data in OpenAI API response")
	}

	return responseData.Data[0].Embedding, nil
}

// CosineSimilarity, using the angle between two vectors to determine similarity
// CosineSimilarity, compared to DotProduct, is more robust to changes in magnitude
// This means for two text embeddings, cosine similarity will explain more similarity semantically
func CosineSimilarity(vec1, vec2 []float32) float32 {
	if len(vec1) != len(vec2) || len(vec1) == 0 {
		return 0
	}

	var dotProduct float32
	var norm1 float32
	var norm2 float32

	for i := 0; i < len(vec1); i++ {
		dotProduct += vec1[i] * vec2[i]
		norm1 += vec1[i] * vec1[i]
		norm2 += vec2[i] * vec2[i]
	}

	norm1 = float32(math.Sqrt(float64(norm1)))
	norm2 = float32(math.Sqrt(float64(norm2)))

	if norm1 == 0 || norm2 == 0 {
		return 0
	}

	return dotProduct / (norm1 * norm2)
}
