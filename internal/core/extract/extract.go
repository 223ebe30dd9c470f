// Package extract locates and decodes a flow graph embedded in free-form
// generated text.
//
// The lookup is layered and the first hit wins: a fenced code block holding a
// "nodes" key followed by an "edges" key, then any such object in the raw text.
// The captured object is parsed as JSON and accepted only when both fields are
// present. Their values are returned as written; graph.FlowData.Snapshot
// converts them to editor entities. Every failure is a soft one: the caller
// gets ok == false and the reason goes to the logger.
package extract

import (
	"encoding/json"
	"regexp"

	"go.uber.org/zap"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// Strategy selects how the object span is delimited
type Strategy string

const (
	// StrategyBalanced delimits the object with a string-aware brace scan.
	StrategyBalanced Strategy = "balanced"
	// StrategyLazy uses the legacy non-greedy pattern: the span ends at the
	// first "}" after "edges". Nested objects after "edges" are truncated.
	StrategyLazy Strategy = "lazy"
)

// Source tells where the decoded object was found
type Source string

const (
	SourceFenced Source = "fenced"
	SourceRaw    Source = "raw"
)

var (
	fencedBlock = regexp.MustCompile("(?is)```(?:json)?\\s*(.*?)```")
	keysInOrder = regexp.MustCompile(`(?s)"nodes".*"edges"`)

	lazyFenced = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\"nodes\".*?\"edges\".*?\\})\\s*```")
	lazyRaw    = regexp.MustCompile(`(?s)\{.*?"nodes".*?"edges".*?\}`)
)

// ParseStrategy maps a name to a Strategy, defaulting to StrategyBalanced
func ParseStrategy(name string) (Strategy, bool) {
	switch Strategy(name) {
	case "", StrategyBalanced:
		return StrategyBalanced, true
	case StrategyLazy:
		return StrategyLazy, true
	default:
		return StrategyBalanced, false
	}
}

// Extractor finds flow graphs in generated text
// PRINCIPLES:
// - SRP: Locate and decode, nothing else
// - Graceful degradation: never returns an error
type Extractor struct {
	logger   *zap.Logger
	strategy Strategy
}

// Option configures an Extractor
type Option func(*Extractor)

// WithStrategy overrides the span strategy
func WithStrategy(s Strategy) Option {
	return func(x *Extractor) { x.strategy = s }
}

// NewExtractor creates an extractor. A nil logger disables diagnostics.
func NewExtractor(logger *zap.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	x := &Extractor{logger: logger, strategy: StrategyBalanced}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// ExtractFlowData runs the default extractor, logging through zap's global logger
func ExtractFlowData(text string) (graph.FlowData, bool) {
	return NewExtractor(zap.L()).Extract(text)
}

// Extract returns the first flow graph found in text
func (x *Extractor) Extract(text string) (graph.FlowData, bool) {
	span, source, ok := x.Locate(text)
	if !ok {
		x.logger.Debug("no flow graph in text", zap.Int("text_len", len(text)))
		metrics.Extraction("none")
		return graph.FlowData{}, false
	}

	flow, err := decode(span)
	if err != nil {
		x.logger.Warn("failed to decode flow graph",
			zap.String("source", string(source)),
			zap.String("strategy", string(x.strategy)),
			zap.Int("span_len", len(span)),
			zap.Error(err),
		)
		metrics.Extraction("decode_error")
		return graph.FlowData{}, false
	}

	metrics.Extraction(string(source))
	return flow, true
}

// Locate returns the candidate object span without decoding it
func (x *Extractor) Locate(text string) (span string, source Source, ok bool) {
	if x.strategy == StrategyLazy {
		return locateLazy(text)
	}
	return locateBalanced(text)
}

func locateLazy(text string) (string, Source, bool) {
	if m := lazyFenced.FindStringSubmatch(text); m != nil {
		return m[1], SourceFenced, true
	}
	if m := lazyRaw.FindString(text); m != "" {
		return m, SourceRaw, true
	}
	return "", "", false
}

func locateBalanced(text string) (string, Source, bool) {
	for _, m := range fencedBlock.FindAllStringSubmatch(text, -1) {
		body := m[1]
		if !keysInOrder.MatchString(body) {
			continue
		}
		if span, ok := findGraphObject(body); ok {
			return span, SourceFenced, true
		}
	}
	if span, ok := findGraphObject(text); ok {
		return span, SourceRaw, true
	}
	return "", "", false
}

// findGraphObject returns the first top-level brace-delimited span that holds
// a "nodes" key followed by an "edges" key. An unterminated object that holds
// both keys is returned as-is so decoding reports it.
func findGraphObject(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := closingBrace(s, i)
		if end < 0 {
			tail := s[i:]
			return tail, keysInOrder.MatchString(tail)
		}
		obj := s[i : end+1]
		if keysInOrder.MatchString(obj) {
			return obj, true
		}
		i = end
	}
	return "", false
}

// closingBrace returns the index of the brace closing the one at open, or -1.
// Braces inside JSON strings are ignored.
func closingBrace(s string, open int) int {
	depth := 0
	inString := false
	escaped := false
	for i := open; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// decode checks presence only. The values are returned as written so numeric
// ids or extra fields survive until the caller converts them.
func decode(span string) (graph.FlowData, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return graph.FlowData{}, err
	}
	nodes, ok := fields["nodes"]
	if !ok {
		return graph.FlowData{}, ErrMissingNodes
	}
	edges, ok := fields["edges"]
	if !ok {
		return graph.FlowData{}, ErrMissingEdges
	}
	return graph.FlowData{Nodes: nodes, Edges: edges}, nil
}
