package utils

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// OllamaClient talks to an Ollama server hosting the vision-language
// model. It is an external collaborator: it hands back raw response text
// and leaves all interpretation to the parser package.
type OllamaClient struct {
	Host   string
	Model  string
	Client *http.Client
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

func NewOllamaClient() *OllamaClient {
	host := os.Getenv("OLLAMA_HOST")
	if host == "" {
		host = "http://localhost:11434"
	}

	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.2-vision"
	}

	return &OllamaClient{
		Host:   host,
		Model:  model,
		Client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Chat sends a prompt with an attached image and returns the raw
// response text.
func (c *OllamaClient) Chat(ctx context.Context, prompt string, imageData []byte) (string, error) {
	requestBody := map[string]interface{}{
		"model":    c.Model,
		"messages": []ollamaMessage{c.imageMessage(prompt, imageData)},
		"stream":   false,
	}

	return c.sendRequest(ctx, requestBody)
}

// ChatJSON sends a prompt with an attached image in JSON mode, with the
// focused sampling options used for scene analysis.
func (c *OllamaClient) ChatJSON(ctx context.Context, prompt string, imageData []byte) (string, error) {
	requestBody := map[string]interface{}{
		"model":    c.Model,
		"messages": []ollamaMessage{c.imageMessage(prompt, imageData)},
		"stream":   false,
		"format":   "json",
		"options": map[string]interface{}{
			"temperature": 0.5,
			"seed":        42,
			"top_p":       0.5,
			"num_predict": 1024,
		},
	}

	return c.sendRequest(ctx, requestBody)
}

func (c *OllamaClient) imageMessage(prompt string, imageData []byte) ollamaMessage {
	msg := ollamaMessage{
		Role:    "user",
		Content: prompt,
	}
	if len(imageData) > 0 {
		msg.Images = []string{base64.StdEncoding.EncodeToString(imageData)}
	}
	return msg
}

func (c *OllamaClient) sendRequest(ctx context.Context, requestBody map[string]interface{}) (string, error) {
	requestBodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.Host+"/api/chat", bytes.NewBuffer(requestBodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama API returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var response ollamaChatResponse
	if err := json.Unmarshal(bodyBytes, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response JSON: %w", err)
	}

	content := response.Message.Content
	if content == "" {
		return "", fmt.Errorf("no message content in Ollama API response")
	}

	zap.L().Debug("Ollama response content", zap.String("content", content))
	return content, nil
}
