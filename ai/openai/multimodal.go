package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/poiesic/scriptorium/ai"
)

// multimodalClient talks to an OpenAI-style /embeddings endpoint that accepts
// {text, image} objects as input items.
type multimodalClient struct {
	endpoint string
	token    string
	model    string
	http     *http.Client
}

type multimodalItem struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type multimodalRequest struct {
	Model string           `json:"model"`
	Input []multimodalItem `json:"input"`
}

type multimodalResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func newMultimodalClient(host, token, model string, httpClient *http.Client) *multimodalClient {
	return &multimodalClient{
		endpoint: strings.TrimSuffix(host, "/") + "/embeddings",
		token:    token,
		model:    model,
		http:     httpClient,
	}
}

func (c *multimodalClient) embed(ctx context.Context, inputs []ai.MultimodalInput) ([][]float32, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	req := multimodalRequest{Model: c.model, Input: make([]multimodalItem, len(inputs))}
	for i, in := range inputs {
		req.Input[i] = multimodalItem{Text: in.Text, Image: in.ImageURL}
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("multimodal embeddings: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded multimodalResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("multimodal embeddings: decode response: %w", err)
	}
	if len(decoded.Data) != len(inputs) {
		return nil, fmt.Errorf("multimodal embeddings: got %d vectors for %d inputs: %w",
			len(decoded.Data), len(inputs), ai.ErrEmbeddingCountMismatch)
	}

	sort.SliceStable(decoded.Data, func(i, j int) bool {
		return decoded.Data[i].Index < decoded.Data[j].Index
	})
	vectors := make([][]float32, len(decoded.Data))
	for i, d := range decoded.Data {
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
