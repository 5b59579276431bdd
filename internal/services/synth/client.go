package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"voiceloom/internal/config"
	"voiceloom/internal/logging"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultReadyTimeout   = 60 * time.Second
	healthTimeout         = 5 * time.Second
	readyPollInterval     = 1 * time.Second
	errorBodyLimit        = 2048

	defaultTopK        = 15
	defaultTopP        = 1.0
	defaultTemperature = 0.7
	defaultSpeed       = 1.0
)

// RenderRequest describes one synthesis call. Zero sampling parameters fall
// back to the preview defaults.
type RenderRequest struct {
	Text          string
	Language      string
	ReferencePath string
	ReferenceText string
	TopK          int
	TopP          float64
	Temperature   float64
	Speed         float64
}

// Client talks to the synthesis service API over HTTP.
type Client struct {
	baseURL      string
	client       *http.Client
	readyTimeout time.Duration
	logger       *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient builds a synthesis client for the configured endpoint.
func NewClient(cfg *config.Config, logger *slog.Logger, opts ...Option) *Client {
	requestTimeout := defaultRequestTimeout
	if cfg.Synthesis.RequestTimeout > 0 {
		requestTimeout = time.Duration(cfg.Synthesis.RequestTimeout) * time.Second
	}
	readyTimeout := defaultReadyTimeout
	if cfg.Synthesis.ReadyTimeout > 0 {
		readyTimeout = time.Duration(cfg.Synthesis.ReadyTimeout) * time.Second
	}
	c := &Client{
		baseURL:      strings.TrimRight(strings.TrimSpace(cfg.Synthesis.BaseURL), "/"),
		client:       &http.Client{Timeout: requestTimeout},
		readyTimeout: readyTimeout,
		logger:       logging.NewComponentLogger(logger, "synth-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured endpoint.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Healthy reports whether the service answers on its root endpoint. Any
// response below 500 counts as alive.
func (c *Client) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < http.StatusInternalServerError
}

// WaitUntilReady polls the service once per second until it reports healthy
// or the bounded wait expires. A non-positive timeout uses the configured
// ready timeout.
func (c *Client) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = c.readyTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		if c.Healthy(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("synthesis service %s not ready after %s", c.baseURL, timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollInterval):
		}
	}
}

// SetGPTWeights asks the service to load the given GPT checkpoint.
func (c *Client) SetGPTWeights(ctx context.Context, path string) error {
	return c.setWeights(ctx, "/set_gpt_weights", path)
}

// SetSoVITSWeights asks the service to load the given SoVITS checkpoint.
func (c *Client) SetSoVITSWeights(ctx context.Context, path string) error {
	return c.setWeights(ctx, "/set_sovits_weights", path)
}

func (c *Client) setWeights(ctx context.Context, endpoint, path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("load weights: checkpoint path required")
	}
	requestURL := c.baseURL + endpoint + "?weights_path=" + url.QueryEscape(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("build weights request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("load weights: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return fmt.Errorf("%s returned %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type renderPayload struct {
	Text            string  `json:"text"`
	TextLang        string  `json:"text_lang"`
	RefAudioPath    string  `json:"ref_audio_path"`
	PromptText      string  `json:"prompt_text"`
	PromptLang      string  `json:"prompt_lang"`
	TopK            int     `json:"top_k"`
	TopP            float64 `json:"top_p"`
	Temperature     float64 `json:"temperature"`
	SpeedFactor     float64 `json:"speed_factor"`
	TextSplitMethod string  `json:"text_split_method"`
	Seed            int     `json:"seed"`
	MediaType       string  `json:"media_type"`
	StreamingMode   int     `json:"streaming_mode"`
}

// Render synthesizes the request and returns the wav bytes. Non-2xx
// responses surface the service's error payload truncated to a readable
// length.
func (c *Client) Render(ctx context.Context, request RenderRequest) ([]byte, error) {
	text := strings.TrimSpace(request.Text)
	if text == "" {
		return nil, errors.New("render: text required")
	}
	if strings.TrimSpace(request.ReferencePath) == "" {
		return nil, errors.New("render: reference audio required")
	}

	lang := strings.ToLower(strings.TrimSpace(request.Language))
	if lang == "" {
		lang = "en"
	}
	payload := renderPayload{
		Text:            text,
		TextLang:        lang,
		RefAudioPath:    request.ReferencePath,
		PromptText:      request.ReferenceText,
		PromptLang:      lang,
		TopK:            request.TopK,
		TopP:            request.TopP,
		Temperature:     request.Temperature,
		SpeedFactor:     request.Speed,
		TextSplitMethod: "cut5",
		Seed:            -1,
		MediaType:       "wav",
		StreamingMode:   0,
	}
	if payload.TopK <= 0 {
		payload.TopK = defaultTopK
	}
	if payload.TopP <= 0 {
		payload.TopP = defaultTopP
	}
	if payload.Temperature <= 0 {
		payload.Temperature = defaultTemperature
	}
	if payload.SpeedFactor <= 0 {
		payload.SpeedFactor = defaultSpeed
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("render: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tts", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("render: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, fmt.Errorf("synthesis returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("render: read audio: %w", err)
	}

	c.logger.DebugContext(ctx, "rendered audio",
		logging.String("language", payload.TextLang),
		logging.Int("bytes", len(audio)),
		logging.Duration("elapsed", time.Since(started)),
	)
	return audio, nil
}
