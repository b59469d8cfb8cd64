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

const defaultOllamaModel = "llama3.1"

// OllamaOracle assesses opinions with a local Ollama instance
type OllamaOracle struct {
	baseURL    string
	httpClient *http.Client
	cfg        model.OracleConfig
}

type ollamaRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	System  string         `json:"system,omitempty"`
	Stream  bool           `json:"stream"`
	Options map[string]any `json:"options,omitempty"`
}

type ollamaResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// NewOllamaOracle creates a new Ollama-backed oracle
func NewOllamaOracle(cfg model.OracleConfig) (*OllamaOracle, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 120 * time.Second // Local models can be slow
	}

	return &OllamaOracle{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
	}, nil
}

// Name returns the oracle name
func (o *OllamaOracle) Name() string {
	return "ollama"
}

// Available checks the Ollama endpoint
func (o *OllamaOracle) Available(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Assess produces a quality verdict via the generate API
func (o *OllamaOracle) Assess(ctx context.Context, req Request) (*model.Verdict, error) {
	mdl := o.cfg.Model
	if mdl == "" {
		mdl = defaultOllamaModel
	}

	apiReq := ollamaRequest{
		Model:  mdl,
		System: "You assess judicial opinions for precedential reliability and respond only with the requested JSON object.",
		Prompt: buildPrompt(req),
		Stream: false,
		Options: map[string]any{
			"temperature": 0.2,
		},
	}

	body, err := json.Marshal(apiReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("Ollama API request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Ollama API error: status %d", httpResp.StatusCode)
	}

	var resp ollamaResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return parseVerdict(resp.Response, req.OpinionID, o.Name())
}
