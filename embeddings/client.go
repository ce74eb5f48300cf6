package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

const DefaultDimension = 384

// Client calls the sentence embedding inference endpoint. The vector is
// attached to every cache write; nothing reads it back, so the only
// contract is fixed dimensionality per model version.
type Client struct {
	Endpoint   string
	Dimension  int
	HTTPClient *http.Client
}

func New(endpoint string, dimension int) *Client {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Client{
		Endpoint:   endpoint,
		Dimension:  dimension,
		HTTPClient: &http.Client{},
	}
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func (c *Client) Embed(ctx context.Context, query string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Text: query})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Add("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "embedding request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("embedding service returned status %d", resp.StatusCode)
	}

	var decoded embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, errors.Wrap(err, "failed to decode embedding response")
	}
	if len(decoded.Embedding) != c.Dimension {
		return nil, errors.Errorf("embedding service returned %d dimensions, expected %d",
			len(decoded.Embedding), c.Dimension)
	}
	return decoded.Embedding, nil
}
