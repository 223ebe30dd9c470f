package serialization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
)

func testSnapshot() graph.Snapshot {
	return graph.Snapshot{
		Nodes: []graph.Node{
			{ID: "1", Type: "input", Position: graph.Position{X: 12.5, Y: 40}, Data: map[string]interface{}{"label": "Landing"}},
			{ID: "2", Type: "form", Position: graph.Position{X: 200, Y: 40}, Data: map[string]interface{}{"label": "Signup"}},
		},
		Edges: []graph.Edge{{ID: "e1-2", Source: "1", Target: "2", Animated: true}},
	}
}

func TestSerializer_SnapshotPipelines(t *testing.T) {
	tests := []struct {
		name        string
		codec       Codec
		compression CompressionType
	}{
		{name: "json plain", codec: NewJSONCodec(), compression: CompressionNone},
		{name: "json gzip", codec: NewJSONCodec(), compression: CompressionGzip},
		{name: "msgpack zstd", codec: NewMsgPackCodec(), compression: CompressionZstd},
		{name: "msgpack gzip", codec: NewMsgPackCodec(), compression: CompressionGzip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSerializer(Config{Codec: tt.codec, Compression: tt.compression})
			require.NoError(t, err)

			data, err := s.EncodeSnapshot(testSnapshot())
			require.NoError(t, err)
			assert.NotEmpty(t, data)

			got, err := s.DecodeSnapshot(data)
			require.NoError(t, err)
			assert.Equal(t, testSnapshot(), got)
		})
	}
}

func TestSerializer_CompressionShrinksRepetitiveGraphs(t *testing.T) {
	snap := graph.Snapshot{}
	for i := 0; i < 200; i++ {
		snap.Nodes = append(snap.Nodes, graph.Node{ID: "node", Type: "default", Data: map[string]interface{}{"label": "same label"}})
	}

	plain, err := NewSerializer(Config{Codec: NewMsgPackCodec(), Compression: CompressionNone})
	require.NoError(t, err)
	raw, err := plain.EncodeSnapshot(snap)
	require.NoError(t, err)

	packed, err := DefaultSerializer().EncodeSnapshot(snap)
	require.NoError(t, err)
	assert.Less(t, len(packed), len(raw))
}

func TestNewSerializer_Defaults(t *testing.T) {
	s, err := NewSerializer(Config{})
	require.NoError(t, err)
	assert.Equal(t, "msgpack+none", s.Describe())
	assert.Equal(t, "msgpack+zstd", DefaultSerializer().Describe())
}

func TestNewSerializer_UnknownCompression(t *testing.T) {
	_, err := NewSerializer(Config{Compression: "lz4"})
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestCodecByName(t *testing.T) {
	c, err := CodecByName("json")
	require.NoError(t, err)
	assert.Equal(t, "json", c.Name())

	c, err = CodecByName("")
	require.NoError(t, err)
	assert.Equal(t, "msgpack", c.Name())

	_, err = CodecByName("xml")
	assert.ErrorIs(t, err, ErrUnknownCodec)
}

func TestSerializer_CorruptPayload(t *testing.T) {
	_, err := DefaultSerializer().DecodeSnapshot([]byte("definitely not zstd"))
	assert.Error(t, err)
}
