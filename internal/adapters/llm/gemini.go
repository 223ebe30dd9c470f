package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-1.5-flash"
)

// GeminiConfig configures the Gemini client
type GeminiConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
	HTTPClient  *http.Client
}

// Gemini calls the generative-language generateContent endpoint
type Gemini struct {
	cfg    GeminiConfig
	logger *zap.Logger
}

// NewGemini creates a Gemini client
func NewGemini(cfg GeminiConfig, logger *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = defaultGeminiModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gemini{cfg: cfg, logger: logger}, nil
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as a single user turn and returns the candidate text
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(g.buildRequest(prompt))
	if err != nil {
		return "", newDecodeError("gemini", err)
	}

	endpoint := g.cfg.BaseURL + "/v1beta/models/" + url.PathEscape(g.cfg.Model) + ":generateContent"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", newNetworkError("gemini", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.cfg.APIKey)

	start := time.Now()
	resp, err := g.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return "", newNetworkError("gemini", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newNetworkError("gemini", err)
	}

	g.logger.Debug("gemini response",
		zap.String("model", g.cfg.Model),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		return "", normalizeGeminiError(resp.StatusCode, respBody)
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(respBody, &gemResp); err != nil {
		return "", newDecodeError("gemini", err)
	}
	return candidateText(&gemResp)
}

func (g *Gemini) buildRequest(prompt string) *geminiRequest {
	req := &geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}

	genConfig := &geminiGenConfig{}
	hasGenConfig := false
	if g.cfg.Temperature > 0 {
		t := g.cfg.Temperature
		genConfig.Temperature = &t
		hasGenConfig = true
	}
	if g.cfg.MaxTokens > 0 {
		n := g.cfg.MaxTokens
		genConfig.MaxOutputTokens = &n
		hasGenConfig = true
	}
	if hasGenConfig {
		req.GenerationConfig = genConfig
	}
	return req
}

// candidateText joins the text parts of the first candidate
func candidateText(resp *geminiResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		msg := "no candidates"
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			msg = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return "", &ProviderError{Provider: "gemini", Message: msg, Err: ErrEmptyResponse}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", &ProviderError{Provider: "gemini", Message: "empty candidate", Err: ErrEmptyResponse}
	}
	return sb.String(), nil
}

// normalizeGeminiError converts an HTTP error response to a ProviderError
func normalizeGeminiError(status int, body []byte) error {
	var errResp geminiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	message := errResp.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}
	code := errResp.Error.Status
	if code == "" {
		code = "unknown_error"
	}

	return &ProviderError{
		Provider: "gemini",
		Status:   status,
		Code:     code,
		Message:  message,
		Err:      sentinelForStatus(status),
	}
}

func newNetworkError(provider string, err error) error {
	return &ProviderError{Provider: provider, Message: err.Error(), Err: ErrNetwork}
}

func newDecodeError(provider string, err error) error {
	return &ProviderError{Provider: provider, Message: err.Error(), Err: ErrDecode}
}
