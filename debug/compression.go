package debug

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/hupe1980/envquery/internal/conv"
)

// CompressionType defines the compression applied to captured payloads.
type CompressionType uint8

const (
	// CompressionNone stores payloads as captured.
	CompressionNone CompressionType = 0
	// CompressionLZ4 uses LZ4 block compression (fast, default).
	CompressionLZ4 CompressionType = 1
	// CompressionZSTD uses ZSTD (better ratio).
	CompressionZSTD CompressionType = 2
)

// String returns a string representation of the compression type.
func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCompression parses a compression name.
func ParseCompression(s string) (CompressionType, error) {
	for c := CompressionNone; c <= CompressionZSTD; c++ {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

var (
	errShortBlock   = errors.New("debug: block too small")
	errSizeMismatch = errors.New("debug: decompressed size mismatch")
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Block format: [rawSize uint32][packedSize uint32][data...].
// packedSize == 0 means data is stored raw.
const blockHeaderSize = 8

func compressBlock(data []byte, c CompressionType) ([]byte, error) {
	rawSize, err := conv.IntToUint32(len(data))
	if err != nil {
		return nil, err
	}

	var packed []byte
	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		packed = buf[:n]
	case CompressionZSTD:
		enc := getZstdEncoder()
		packed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	// Store raw when compression does not pay off.
	if len(packed) == 0 || len(packed) >= len(data) {
		out := make([]byte, blockHeaderSize+len(data))
		binary.LittleEndian.PutUint32(out[0:], rawSize)
		copy(out[blockHeaderSize:], data)
		return out, nil
	}

	packedSize, err := conv.IntToUint32(len(packed))
	if err != nil {
		return nil, err
	}
	out := make([]byte, blockHeaderSize+len(packed))
	binary.LittleEndian.PutUint32(out[0:], rawSize)
	binary.LittleEndian.PutUint32(out[4:], packedSize)
	copy(out[blockHeaderSize:], packed)
	return out, nil
}

func decompressBlock(block []byte, c CompressionType) ([]byte, error) {
	if len(block) < blockHeaderSize {
		return nil, errShortBlock
	}
	rawSize := int(binary.LittleEndian.Uint32(block[0:]))
	packedSize := int(binary.LittleEndian.Uint32(block[4:]))
	body := block[blockHeaderSize:]

	if packedSize == 0 {
		if len(body) < rawSize {
			return nil, errShortBlock
		}
		out := make([]byte, rawSize)
		copy(out, body)
		return out, nil
	}
	if len(body) < packedSize {
		return nil, errShortBlock
	}
	body = body[:packedSize]

	out := make([]byte, rawSize)
	switch c {
	case CompressionZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		decoded, err := dec.DecodeAll(body, out[:0])
		if err != nil {
			return nil, err
		}
		if len(decoded) != rawSize {
			return nil, errSizeMismatch
		}
		return decoded, nil
	default:
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, err
		}
		if n != rawSize {
			return nil, errSizeMismatch
		}
		return out, nil
	}
}
