// Package serialization encodes flow snapshots for storage
// PRINCIPLES:
// - KISS: codec + optional compression, one pipeline
// - DRY: Shared by every checkpoint saver
package serialization

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/avatarflowx/avatarflowx/internal/core/graph"
	"github.com/avatarflowx/avatarflowx/internal/infrastructure/metrics"
)

// CompressionType represents compression algorithms
type CompressionType string

const (
	CompressionNone CompressionType = "none"
	CompressionGzip CompressionType = "gzip"
	CompressionZstd CompressionType = "zstd"
)

var (
	ErrUnknownCodec       = errors.New("unknown codec")
	ErrUnknownCompression = errors.New("unknown compression")
)

// Config holds serialization settings
type Config struct {
	Codec       Codec
	Compression CompressionType
}

// Serializer runs the encode → compress pipeline and its inverse
type Serializer struct {
	codec       Codec
	compression CompressionType
}

// NewSerializer creates a serializer. A nil codec means msgpack.
func NewSerializer(cfg Config) (*Serializer, error) {
	if cfg.Codec == nil {
		cfg.Codec = NewMsgPackCodec()
	}
	switch cfg.Compression {
	case "":
		cfg.Compression = CompressionNone
	case CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompression, cfg.Compression)
	}
	return &Serializer{codec: cfg.Codec, compression: cfg.Compression}, nil
}

// DefaultSerializer uses msgpack and zstd
func DefaultSerializer() *Serializer {
	return &Serializer{codec: NewMsgPackCodec(), compression: CompressionZstd}
}

// Describe returns "codec+compression", stored alongside payloads
func (s *Serializer) Describe() string {
	return s.codec.Name() + "+" + string(s.compression)
}

// Serialize encodes then compresses v
func (s *Serializer) Serialize(v interface{}) ([]byte, error) {
	data, err := s.codec.Encode(v)
	if err != nil {
		return nil, fmt.Errorf("codec encoding failed: %w", err)
	}
	data, err = s.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compression failed: %w", err)
	}
	return data, nil
}

// Deserialize decompresses then decodes data into v
func (s *Serializer) Deserialize(data []byte, v interface{}) error {
	raw, err := s.decompress(data)
	if err != nil {
		return fmt.Errorf("decompression failed: %w", err)
	}
	if err := s.codec.Decode(raw, v); err != nil {
		return fmt.Errorf("codec decoding failed: %w", err)
	}
	return nil
}

// EncodeSnapshot serializes a snapshot and records the payload size
func (s *Serializer) EncodeSnapshot(snap graph.Snapshot) ([]byte, error) {
	data, err := s.Serialize(snap)
	if err != nil {
		return nil, err
	}
	metrics.SnapshotEncoded(int64(len(data)))
	return data, nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot
func (s *Serializer) DecodeSnapshot(data []byte) (graph.Snapshot, error) {
	var snap graph.Snapshot
	if err := s.Deserialize(data, &snap); err != nil {
		return graph.Snapshot{}, err
	}
	return snap, nil
}

func (s *Serializer) compress(data []byte) ([]byte, error) {
	switch s.compression {
	case CompressionGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil
	default:
		return data, nil
	}
}

func (s *Serializer) decompress(data []byte) ([]byte, error) {
	switch s.compression {
	case CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case CompressionZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	default:
		return data, nil
	}
}
