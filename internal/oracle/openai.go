package oracle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/mlawson/shepard/internal/model"
)

// OpenAIOracle assesses opinions with OpenAI chat models
type OpenAIOracle struct {
	client *openai.Client
	cfg    model.OracleConfig
}

// NewOpenAIOracle creates a new OpenAI-backed oracle
func NewOpenAIOracle(cfg model.OracleConfig) (*OpenAIOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIOracle{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
	}, nil
}

// Name returns the oracle name
func (o *OpenAIOracle) Name() string {
	return "openai"
}

// Available checks the API with a lightweight model listing call
func (o *OpenAIOracle) Available(ctx context.Context) bool {
	if _, err := o.client.ListModels(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "OpenAI API check failed: %v\n", err)
		return false
	}
	return true
}

// Assess produces a quality verdict via the Chat Completions API
func (o *OpenAIOracle) Assess(ctx context.Context, req Request) (*model.Verdict, error) {
	mdl := o.cfg.Model
	if mdl == "" {
		mdl = openai.GPT4oMini
	}

	maxTokens := o.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	timeout := o.cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: mdl,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You assess judicial opinions for precedential reliability and respond only with the requested JSON object.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
		MaxTokens:   maxTokens,
		Temperature: 0.2, // Keep assessments stable across retries
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	return parseVerdict(resp.Choices[0].Message.Content, req.OpinionID, o.Name())
}
