// Package upstream talks to the hosted chat completions API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/supra-heroes/zorgbot/internal/types"
)

// Request carries one chat completion call to the upstream API.
type Request struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

// Response is the parsed upstream reply: generated text plus token usage.
type Response struct {
	Content string
	Model   string
	Usage   types.Usage
}

// Options configures a Client.
type Options struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// Circuit breaker thresholds. FailureThreshold <= 0 disables the breaker.
	FailureThreshold int
	RecoveryInterval time.Duration
}

// Client is an HTTP client for an OpenAI-compatible chat completions
// endpoint. It performs no retries: a failed call fails once and the
// error is surfaced to the caller.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *CircuitBreaker
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var breaker *CircuitBreaker
	if opts.FailureThreshold > 0 {
		breaker = NewCircuitBreaker(opts.FailureThreshold, opts.RecoveryInterval)
	}
	return &Client{
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		breaker: breaker,
	}
}

// Complete performs one synchronous chat completion call.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		return nil, &Error{Message: "upstream circuit open"}
	}

	resp, err := c.do(ctx, req)
	if c.breaker != nil {
		if err != nil {
			c.breaker.RecordFailure()
		} else {
			c.breaker.RecordSuccess()
		}
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	data, err := json.Marshal(chatCompletionRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Message: err.Error()}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &Error{StatusCode: httpResp.StatusCode, Message: err.Error()}
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, &Error{StatusCode: httpResp.StatusCode, Message: string(body)}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &Error{StatusCode: httpResp.StatusCode, Message: err.Error(), Malformed: true}
	}
	if len(parsed.Choices) == 0 {
		return nil, &Error{StatusCode: httpResp.StatusCode, Message: "reply contains no choices", Malformed: true}
	}

	return &Response{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage: types.Usage{
			InputTokens:  parsed.Usage.PromptTokens,
			OutputTokens: parsed.Usage.CompletionTokens,
			TotalTokens:  parsed.Usage.TotalTokens,
		},
	}, nil
}

type chatCompletionRequest struct {
	Model       string          `json:"model"`
	Messages    []types.Message `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      types.Message `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}
