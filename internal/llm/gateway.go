package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DjordjeVuckovic/news-scout/internal/apperr"
)

type GatewayConfig func(client *Gateway)

// Gateway talks to an OpenAI-compatible chat completions endpoint.
// Responses come back as raw text; parsing is the caller's concern.
type Gateway struct {
	base    url.URL
	apiKey  string
	http    *http.Client
	timeout time.Duration
}

const defaultTimeout = 60 * time.Second

func NewGateway(baseUrl, apiKey string, opts ...GatewayConfig) (*Gateway, error) {
	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}

	client := &Gateway{
		base:   *base,
		apiKey: apiKey,
	}

	for _, cfg := range opts {
		cfg(client)
	}

	// Resolve the timeout after all options so WithTimeout applies
	// regardless of its position relative to WithHttpClient.
	if client.http == nil {
		timeout := client.timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client.http = &http.Client{Timeout: timeout}
	} else if client.timeout > 0 {
		client.http.Timeout = client.timeout
	}

	return client, nil
}

func WithHttpClient(httpClient *http.Client) GatewayConfig {
	return func(client *Gateway) {
		client.http = httpClient
	}
}

func WithTimeout(timeout time.Duration) GatewayConfig {
	return func(client *Gateway) {
		client.timeout = timeout
	}
}

type Request struct {
	Model       string
	System      string
	User        string
	Temperature float64
	MaxTokens   int
}

type Completion struct {
	Content string
	Model   string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *Gateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	if req.User == "" {
		return nil, apperr.NewValidation("missing prompt")
	}
	if req.Model == "" {
		return nil, apperr.NewValidation("missing model name")
	}

	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	cReq := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	var resp chatResponse
	if err := g.do(ctx, http.MethodPost, "/chat/completions", cReq, &resp); err != nil {
		return nil, err
	}

	if resp.Error != nil {
		return nil, fmt.Errorf("completion error: %s", resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("completion returned no choices")
	}

	model := resp.Model
	if model == "" {
		model = req.Model
	}
	return &Completion{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
	}, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, reqData, respData any) error {
	reqDataBytes, err := json.Marshal(reqData)
	if err != nil {
		return err
	}

	reqURL := g.base.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bytes.NewReader(reqDataBytes))
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.http.Do(request)
	if err != nil {
		return apperr.NewTransient(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return apperr.NewTransient(fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody)))
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, respData); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
