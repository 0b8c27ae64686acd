package providers

import (
	"context"
)

type Config struct {
	Credentials  Credentials `json:"credentials"`
	Model        string      `json:"model"`
	MaxTokens    int         `json:"max_tokens,omitempty"`
	Temperature  float64     `json:"temperature,omitempty"`
	SystemPrompt string      `json:"system_prompt,omitempty"`
}

type Credentials struct {
	ApiKey string            `json:"api_key,omitempty"`
	Azure  *AzureCredentials `json:"azure,omitempty"`
}

type AzureCredentials struct {
	Endpoint   string `json:"endpoint"`
	ApiVersion string `json:"api_version,omitempty"`
}

//go:generate mockery --name=Client --dir=. --output=./mocks --filename=client_mock.go --case=underscore --with-expecter

// Client is the narrow interface to an LLM completion service. The classifier
// router depends on nothing else.
type Client interface {
	Ask(ctx context.Context, config *Config, prompt string) (*CompletionResponse, error)
}
