// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies how a snapshot body is compressed. The values
// are stored in the file header and must not change.
type Compression uint8

const (
	// CompressionNone stores the CBOR body as is.
	CompressionNone Compression = 0

	// CompressionLZ4 uses LZ4 block compression. Fast, modest ratio.
	CompressionLZ4 Compression = 1

	// CompressionZstd uses zstd at the default level. Frames are
	// mostly repeated field names and small numbers, which zstd
	// compresses well.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", c)
	}
}

// ParseCompression parses the names returned by String.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("snapshot: unknown compression %q", name)
	}
}

// errIncompressible is returned by the compressors when the output
// would not be smaller than the input. The caller stores the body
// uncompressed instead.
var errIncompressible = errors.New("snapshot: data is incompressible")

// compress returns the compressed body and the tag actually used.
// Bodies that do not shrink are stored uncompressed.
func compress(body []byte, compression Compression) ([]byte, Compression, error) {
	var (
		compressed []byte
		err        error
	)
	switch compression {
	case CompressionNone:
		return body, CompressionNone, nil
	case CompressionLZ4:
		compressed, err = compressLZ4(body)
	case CompressionZstd:
		compressed, err = compressZstd(body)
	default:
		return nil, 0, fmt.Errorf("snapshot: unsupported compression %s", compression)
	}
	if errors.Is(err, errIncompressible) {
		return body, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, compression, nil
}

// decompress reverses compress. The result must be exactly size bytes.
func decompress(data []byte, compression Compression, size int) ([]byte, error) {
	switch compression {
	case CompressionNone:
		if len(data) != size {
			return nil, fmt.Errorf("snapshot: body is %d bytes, header says %d", len(data), size)
		}
		return data, nil
	case CompressionLZ4:
		return decompressLZ4(data, size)
	case CompressionZstd:
		return decompressZstd(data, size)
	default:
		return nil, fmt.Errorf("snapshot: unsupported compression %s", compression)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("snapshot: lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("snapshot: lz4 decompress: got %d bytes, want %d", read, size)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use through
// EncodeAll and DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("snapshot: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("snapshot: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, size int) ([]byte, error) {
	destination, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("snapshot: zstd decompress: %w", err)
	}
	if len(destination) != size {
		return nil, fmt.Errorf("snapshot: zstd decompress: got %d bytes, want %d", len(destination), size)
	}
	return destination, nil
}
