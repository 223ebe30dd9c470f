package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/core/extract"
	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// Generator turns a prompt into free-form model text
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

const flowInstruction = `You design page flows for a no-code web app builder.
Reply with a single JSON object inside a json code block. The object has a
"nodes" array followed by an "edges" array, in that order. Each node has "id",
"type" (input, page, form, action or output), "position" {"x","y"} and
"data" {"label"}. Each edge has "id", "source" and "target".

Request: `

// GenerationResult is what a generation call produced
type GenerationResult struct {
	Raw   string         `json:"raw"`
	Flow  graph.FlowData `json:"flow"`
	State SessionState   `json:"state"`
}

// GenerationService asks a model for a flow and applies it to a session
// PRINCIPLES:
// - SRP: Prompting and extraction only, history belongs to EditorService
// - DIP: Depends on the Generator port, not a vendor SDK
type GenerationService struct {
	generator Generator
	extractor *extract.Extractor
	editor    *EditorService
	logger    *zap.Logger
}

// NewGenerationService creates a generation service
func NewGenerationService(generator Generator, extractor *extract.Extractor, editor *EditorService, logger *zap.Logger) *GenerationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = extract.NewExtractor(logger)
	}
	return &GenerationService{
		generator: generator,
		extractor: extractor,
		editor:    editor,
		logger:    logger,
	}
}

// BuildPrompt wraps a user request in the fixed flow instruction
func BuildPrompt(request string) string {
	return flowInstruction + strings.TrimSpace(request)
}

// GenerateFlow asks the generator for a flow and applies it to the session.
// When the reply holds no decodable flow the session is left untouched and
// ErrNoFlowFound is returned together with the raw reply. A flow whose nodes
// or edges cannot be converted to editor entities yields ErrInvalidFlow with
// the raw reply and the flow as found.
func (s *GenerationService) GenerateFlow(ctx context.Context, sessionID, request string) (GenerationResult, error) {
	if s.generator == nil {
		return GenerationResult{}, ErrNoGenerator
	}
	if _, err := s.editor.State(ctx, sessionID); err != nil {
		return GenerationResult{}, err
	}

	raw, err := s.generator.Generate(ctx, BuildPrompt(request))
	if err != nil {
		metrics.Generation("error")
		s.logger.Warn("flow generation failed",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return GenerationResult{}, fmt.Errorf("failed to generate flow: %w", err)
	}

	flow, ok := s.extractor.Extract(raw)
	if !ok {
		metrics.Generation("no_flow")
		s.logger.Info("generated text has no flow",
			zap.String("session_id", sessionID),
			zap.Int("raw_len", len(raw)))
		return GenerationResult{Raw: raw}, ErrNoFlowFound
	}

	snap, err := flow.Snapshot()
	if err != nil {
		metrics.Generation("invalid_flow")
		s.logger.Warn("generated flow cannot be applied",
			zap.String("session_id", sessionID),
			zap.Error(err))
		return GenerationResult{Raw: raw, Flow: flow}, fmt.Errorf("%w: %w", ErrInvalidFlow, err)
	}

	st, err := s.editor.Apply(ctx, sessionID, snap)
	if err != nil {
		return GenerationResult{}, err
	}

	metrics.Generation("applied")
	s.logger.Info("generated flow applied",
		zap.String("session_id", sessionID),
		zap.Int("nodes", len(snap.Nodes)),
		zap.Int("edges", len(snap.Edges)))
	return GenerationResult{Raw: raw, Flow: flow, State: st}, nil
}
