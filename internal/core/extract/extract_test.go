package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

func TestExtractFlowData(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantNodes string
		wantEdges string
		wantOK    bool
	}{
		{
			name:      "fenced json block with prose",
			text:      "Here is the flow:\n```json\n{\"nodes\":[{\"id\":\"1\"}],\"edges\":[]}\n```\nEnjoy!",
			wantNodes: `[{"id":"1"}]`,
			wantEdges: `[]`,
			wantOK:    true,
		},
		{
			name:   "no json",
			text:   "no json here",
			wantOK: false,
		},
		{
			name:   "fenced block with trailing comma",
			text:   "```json\n{\"nodes\":[{\"id\":\"1\"},],\"edges\":[]}\n```",
			wantOK: false,
		},
		{
			name:      "raw unfenced object",
			text:      `{"nodes":[],"edges":[{"id":"e1"}]}`,
			wantNodes: `[]`,
			wantEdges: `[{"id":"e1"}]`,
			wantOK:    true,
		},
		{
			name:      "untagged fence",
			text:      "```\n{\"nodes\":[{\"id\":\"a\"}],\"edges\":[]}\n```",
			wantNodes: `[{"id":"a"}]`,
			wantEdges: `[]`,
			wantOK:    true,
		},
		{
			name:   "keys in wrong order",
			text:   `{"edges":[],"nodes":[]}`,
			wantOK: false,
		},
		{
			name:   "edges key only",
			text:   "```json\n{\"edges\":[]}\n```",
			wantOK: false,
		},
		{
			name: "nested data objects",
			text: "Sure!\n```json\n" +
				`{"nodes":[{"id":"1","type":"input","position":{"x":10,"y":20},"data":{"label":"Start {here}"}}],` +
				`"edges":[{"id":"e1","source":"1","target":"1","data":{"weight":{"value":1}}}]}` +
				"\n```",
			wantNodes: `[{"id":"1","type":"input","position":{"x":10,"y":20},"data":{"label":"Start {here}"}}]`,
			wantEdges: `[{"id":"e1","source":"1","target":"1","data":{"weight":{"value":1}}}]`,
			wantOK:    true,
		},
		{
			name:   "unterminated object",
			text:   `result: {"nodes":[{"id":"1"}],"edges":[`,
			wantOK: false,
		},
		{
			name:      "nodes of the wrong type",
			text:      `{"nodes":"none","edges":[]}`,
			wantNodes: `"none"`,
			wantEdges: `[]`,
			wantOK:    true,
		},
		{
			name:      "numeric ids",
			text:      `{"nodes":[{"id":1},{"id":2}],"edges":[{"id":3,"source":1,"target":2}]}`,
			wantNodes: `[{"id":1},{"id":2}]`,
			wantEdges: `[{"id":3,"source":1,"target":2}]`,
			wantOK:    true,
		},
		{
			name:      "extra node fields are kept",
			text:      "```json\n" + `{"nodes":[{"id":"1","label":"Start","style":{"color":"red"}}],"edges":[]}` + "\n```",
			wantNodes: `[{"id":"1","label":"Start","style":{"color":"red"}}]`,
			wantEdges: `[]`,
			wantOK:    true,
		},
		{
			name:      "string coordinates and no position",
			text:      `{"nodes":[{"id":"a","position":{"x":"10","y":5}},{"id":"b"}],"edges":[]}`,
			wantNodes: `[{"id":"a","position":{"x":"10","y":5}},{"id":"b"}]`,
			wantEdges: `[]`,
			wantOK:    true,
		},
		{
			name:   "empty text",
			text:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractFlowData(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Equal(t, graph.FlowData{}, got)
				return
			}
			assert.JSONEq(t, tt.wantNodes, string(got.Nodes))
			assert.JSONEq(t, tt.wantEdges, string(got.Edges))
		})
	}
}

func TestExtractFlowData_LogsThroughGlobalLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	defer restore()

	_, ok := ExtractFlowData("```json\n{\"nodes\":[{\"id\":\"1\"},],\"edges\":[]}\n```")
	assert.False(t, ok)

	entries := logs.FilterMessage("failed to decode flow graph").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "balanced", entries[0].ContextMap()["strategy"])
}

func nodeIDs(t *testing.T, flow graph.FlowData) []string {
	t.Helper()
	snap, err := flow.Snapshot()
	require.NoError(t, err)
	ids := make([]string, len(snap.Nodes))
	for i, n := range snap.Nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestExtractor_FencedBlockWins(t *testing.T) {
	text := `Raw: {"nodes":[{"id":"raw"}],"edges":[]}` + "\n```json\n" +
		`{"nodes":[{"id":"fenced"}],"edges":[]}` + "\n```"

	x := NewExtractor(nil)
	span, source, ok := x.Locate(text)
	require.True(t, ok)
	assert.Equal(t, SourceFenced, source)
	assert.Contains(t, span, "fenced")

	flow, ok := x.Extract(text)
	require.True(t, ok)
	assert.Equal(t, []string{"fenced"}, nodeIDs(t, flow))
}

func TestExtractor_FirstMatchOnly(t *testing.T) {
	text := "```json\n{\"nodes\":[{\"id\":\"first\"}],\"edges\":[]}\n```\n" +
		"```json\n{\"nodes\":[{\"id\":\"second\"}],\"edges\":[]}\n```"

	flow, ok := NewExtractor(nil).Extract(text)
	require.True(t, ok)
	assert.Equal(t, []string{"first"}, nodeIDs(t, flow))
}

func TestExtractor_FenceWithoutGraphFallsThrough(t *testing.T) {
	text := "```js\nconsole.log({a: 1})\n```\nand the graph: " + `{"nodes":[{"id":"x"}],"edges":[]}`

	x := NewExtractor(nil)
	_, source, ok := x.Locate(text)
	require.True(t, ok)
	assert.Equal(t, SourceRaw, source)

	flow, ok := x.Extract(text)
	require.True(t, ok)
	assert.Equal(t, []string{"x"}, nodeIDs(t, flow))
}

func TestExtractor_SkipsUnrelatedObjects(t *testing.T) {
	text := `Config {"theme":"dark"} then {"nodes":[{"id":"1"}],"edges":[]}`

	flow, ok := NewExtractor(nil).Extract(text)
	require.True(t, ok)
	assert.Equal(t, []string{"1"}, nodeIDs(t, flow))
}

func TestExtractor_LazyStrategy(t *testing.T) {
	x := NewExtractor(nil, WithStrategy(StrategyLazy))

	t.Run("fenced block", func(t *testing.T) {
		flow, ok := x.Extract("```json\n{\"nodes\":[{\"id\":\"1\"}],\"edges\":[]}\n```")
		require.True(t, ok)
		assert.Equal(t, []string{"1"}, nodeIDs(t, flow))
	})

	t.Run("raw span truncates at first closing brace", func(t *testing.T) {
		text := `{"nodes":[],"edges":[{"id":"e1"}]}`
		span, source, ok := x.Locate(text)
		require.True(t, ok)
		assert.Equal(t, SourceRaw, source)
		assert.Equal(t, `{"nodes":[],"edges":[{"id":"e1"}`, span)

		_, ok = x.Extract(text)
		assert.False(t, ok)
	})

	t.Run("raw span without nesting", func(t *testing.T) {
		flow, ok := x.Extract(`flow: {"nodes":[],"edges":[]} done`)
		require.True(t, ok)
		assert.JSONEq(t, `[]`, string(flow.Nodes))
		assert.JSONEq(t, `[]`, string(flow.Edges))
	})
}

func TestExtractor_LogsDecodeFailures(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	x := NewExtractor(zap.New(core))

	_, ok := x.Extract("```json\n{\"nodes\":[1,],\"edges\":[]}\n```")
	assert.False(t, ok)

	entries := logs.FilterMessage("failed to decode flow graph").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "fenced", entries[0].ContextMap()["source"])

	_, ok = x.Extract("plain text")
	assert.False(t, ok)
	assert.Equal(t, 1, logs.FilterMessage("no flow graph in text").Len())
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in     string
		want   Strategy
		wantOK bool
	}{
		{in: "", want: StrategyBalanced, wantOK: true},
		{in: "balanced", want: StrategyBalanced, wantOK: true},
		{in: "lazy", want: StrategyLazy, wantOK: true},
		{in: "greedy", want: StrategyBalanced, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseStrategy(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestClosingBrace(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{name: "flat", in: `{}`, want: 1},
		{name: "nested", in: `{"a":{"b":{}}}`, want: 13},
		{name: "brace in string", in: `{"a":"}"}`, want: 8},
		{name: "escaped quote", in: `{"a":"\"}"}`, want: 10},
		{name: "unterminated", in: `{"a":{}`, want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, closingBrace(tt.in, 0))
		})
	}
}
