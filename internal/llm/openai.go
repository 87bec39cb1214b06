package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/tidwall/gjson"

	"offScreenAPI/internal/logger"
)

const (
	defaultOpenAIModel    = "gpt-4.1-mini"
	defaultOpenAIEndpoint = "https://api.openai.com/v1/chat/completions"
)

type OpenAIConfig struct {
	APIKey   string
	Model    string
	Endpoint string
	// MaxRetries bounds transport retries (connection errors, 429, 5xx).
	MaxRetries int
	RetryWait  time.Duration
	HTTPClient *http.Client
}

type OpenAI struct {
	apiKey   string
	model    string
	endpoint string
	client   *retryablehttp.Client
}

func NewOpenAI(cfg OpenAIConfig, log *logger.Logger) (*OpenAI, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("openai provider requires an API key (set OPENAI_API_KEY)")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	if cfg.RetryWait > 0 {
		retryClient.RetryWaitMin = cfg.RetryWait
		retryClient.RetryWaitMax = 4 * cfg.RetryWait
	}
	if cfg.HTTPClient != nil {
		retryClient.HTTPClient = cfg.HTTPClient
	}
	if log != nil {
		retryClient.Logger = log.With("service", "OpenAIClient")
	} else {
		retryClient.Logger = nil
	}
	// Hand the final response back instead of a generic "giving up" error so
	// the API error message can be surfaced.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &OpenAI{
		apiKey:   apiKey,
		model:    model,
		endpoint: endpoint,
		client:   retryClient,
	}, nil
}

func (c *OpenAI) Provider() string { return "openai" }

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type responseFormat struct {
	Type string `json:"type"`
}

func (c *OpenAI) buildRequest(req Request) chatRequest {
	body := chatRequest{Model: c.model}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}

	if len(req.Image) == 0 {
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Prompt})
	} else {
		mime := req.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(req.Image)
		body.Messages = append(body.Messages, chatMessage{Role: "user", Content: []contentPart{
			{Type: "text", Text: req.Prompt},
			{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
		}})
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	return body
}

func (c *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return "", err
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, payload)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read openai response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if msg := gjson.GetBytes(raw, "error.message").String(); msg != "" {
			return "", fmt.Errorf("openai: %s (HTTP %d)", msg, resp.StatusCode)
		}
		return "", fmt.Errorf("openai request failed with HTTP %d", resp.StatusCode)
	}

	content := strings.TrimSpace(gjson.GetBytes(raw, "choices.0.message.content").String())
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}
