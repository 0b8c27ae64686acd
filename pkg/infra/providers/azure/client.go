package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aegis-sentinel/aegis/pkg/infra/providers"
)

const httpClientTimeout = 120 * time.Second

type client struct {
	httpClient *http.Client
}

func NewAzureClient() providers.Client {
	return &client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
	}
}

// Ask sends a chat completion request to an Azure OpenAI deployment. The
// model field carries the deployment name. An empty completion with finish
// reason "content_filter" is reported as an error so the caller can degrade
// to its fallback path.
func (c *client) Ask(
	ctx context.Context,
	config *providers.Config,
	prompt string,
) (*providers.CompletionResponse, error) {
	if config.Credentials.Azure == nil {
		return nil, fmt.Errorf("azure configuration is required")
	}
	if config.Credentials.Azure.Endpoint == "" {
		return nil, fmt.Errorf("azure endpoint is required")
	}
	if config.Credentials.ApiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model (deployment ID) is required")
	}

	var messages []map[string]string

	if config.SystemPrompt != "" {
		messages = append(messages, map[string]string{
			"role":    "system",
			"content": config.SystemPrompt,
		})
	}

	if prompt != "" {
		messages = append(messages, map[string]string{
			"role":    "user",
			"content": prompt,
		})
	}

	apiVersion := "2024-02-15-preview"
	if config.Credentials.Azure.ApiVersion != "" {
		apiVersion = config.Credentials.Azure.ApiVersion
	}

	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		config.Credentials.Azure.Endpoint,
		config.Model,
		apiVersion)

	reqBody := map[string]interface{}{
		"messages": messages,
	}
	if config.Temperature > 0 {
		reqBody["temperature"] = config.Temperature
	}
	if config.MaxTokens > 0 {
		reqBody["max_tokens"] = config.MaxTokens
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", config.Credentials.ApiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyErr, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("non-200 status: %d, error reading response body: %w", resp.StatusCode, readErr)
		}
		return nil, fmt.Errorf("non-200 status: %d\n%s", resp.StatusCode, string(bodyErr))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var response struct {
		ID      string `json:"id"`
		Choices []struct {
			FinishReason string `json:"finish_reason"`
			Message      struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, fmt.Errorf("no completions returned")
	}

	choice := response.Choices[0]
	if choice.Message.Content == "" {
		if choice.FinishReason == "content_filter" {
			return nil, fmt.Errorf("completion blocked by content filter")
		}
		return nil, fmt.Errorf("empty completion returned")
	}

	id := response.ID
	if id == "" {
		id = fmt.Sprintf("azure-%d", time.Now().UnixNano())
	}

	return &providers.CompletionResponse{
		ID:       id,
		Model:    config.Model,
		Response: choice.Message.Content,
		Usage: providers.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		},
	}, nil
}
