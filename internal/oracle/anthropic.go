package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mlawson/shepard/internal/model"
)

const defaultAnthropicModel = "claude-haiku-4-5"

// AnthropicOracle assesses opinions with Anthropic Claude models
type AnthropicOracle struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cfg        model.OracleConfig
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicOracle creates a new Anthropic-backed oracle
func NewAnthropicOracle(cfg model.OracleConfig) (*AnthropicOracle, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &AnthropicOracle{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

// Name returns the oracle name
func (o *AnthropicOracle) Name() string {
	return "anthropic"
}

// Available probes the API with a minimal request
func (o *AnthropicOracle) Available(ctx context.Context) bool {
	probe := anthropicRequest{
		Model:     o.modelName(),
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	}
	_, err := o.makeRequest(ctx, probe)
	return err == nil
}

// Assess produces a quality verdict via the Messages API
func (o *AnthropicOracle) Assess(ctx context.Context, req Request) (*model.Verdict, error) {
	maxTokens := o.cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1000
	}

	apiReq := anthropicRequest{
		Model:       o.modelName(),
		MaxTokens:   maxTokens,
		System:      "You assess judicial opinions for precedential reliability and respond only with the requested JSON object.",
		Messages:    []anthropicMessage{{Role: "user", Content: buildPrompt(req)}},
		Temperature: 0.2,
	}

	resp, err := o.makeRequest(ctx, apiReq)
	if err != nil {
		return nil, err
	}

	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("no response from Anthropic")
	}

	return parseVerdict(resp.Content[0].Text, req.OpinionID, o.Name())
}

func (o *AnthropicOracle) modelName() string {
	if o.cfg.Model != "" {
		return o.cfg.Model
	}
	return defaultAnthropicModel
}

func (o *AnthropicOracle) makeRequest(ctx context.Context, apiReq anthropicRequest) (*anthropicResponse, error) {
	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", o.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Anthropic API request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr anthropicError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("Anthropic API error (%d): %s", httpResp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("Anthropic API error: status %d", httpResp.StatusCode)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &resp, nil
}
