package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roadvlm/roadvlm-go-sdk/models"
)

// AnalysisCache stores completed analysis outputs in Redis, keyed by the
// image content hash and the parsing strategy used. Re-analyzing an
// identical frame is common in dashcam streams.
type AnalysisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewAnalysisCache(client *redis.Client) *AnalysisCache {
	return &AnalysisCache{
		Client: client,
		TTL:    15 * time.Minute,
	}
}

// Key derives the cache key for an image/strategy pair. The bbox
// coordinate space of the stored output is part of the key: the same
// frame analyzed with rescaling on and off yields different geometry,
// and serving one as the other would corrupt every box.
func (c *AnalysisCache) Key(imageData []byte, strategy string, space models.CoordSpace) string {
	sum := sha256.Sum256(imageData)
	return fmt.Sprintf("roadvlm:analysis:%s:%s:%s", strategy, space, hex.EncodeToString(sum[:]))
}

// Get returns the cached output for the key, or nil on a cache miss.
func (c *AnalysisCache) Get(ctx context.Context, key string) (*models.AnalysisOutput, error) {
	data, err := c.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read analysis cache: %w", err)
	}

	var output models.AnalysisOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, fmt.Errorf("failed to decode cached analysis: %w", err)
	}
	return &output, nil
}

// Set stores an output under the key with the cache TTL.
func (c *AnalysisCache) Set(ctx context.Context, key string, output *models.AnalysisOutput) error {
	data, err := json.Marshal(output)
	if err != nil {
		return fmt.Errorf("failed to encode analysis for cache: %w", err)
	}

	if err := c.Client.Set(ctx, key, data, c.TTL).Err(); err != nil {
		return fmt.Errorf("failed to write analysis cache: %w", err)
	}
	return nil
}
