// Package llm holds the text-generation clients used to draft flows.
// Each client has one method, Generate, and maps provider failures onto the
// sentinel errors in errors.go.
package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Provider names accepted by New
const (
	ProviderNone   = "none"
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Generator is satisfied by every client in this package
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config selects and configures a provider
type Config struct {
	Provider string
	Gemini   GeminiConfig
	OpenAI   OpenAIConfig
}

// New builds the client named by cfg.Provider. ProviderNone yields a nil
// Generator and no error.
func New(cfg Config, logger *zap.Logger) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderNone:
		return nil, nil
	case ProviderGemini:
		return NewGemini(cfg.Gemini, logger)
	case ProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknown, cfg.Provider)
	}
}
