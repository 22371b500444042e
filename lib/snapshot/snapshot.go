// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/telescene/lib/scene"
)

// Version is the current snapshot format version.
const Version = 1

var magic = [4]byte{'T', 'S', 'N', 'P'}

var (
	// ErrFormat is returned by Decode for data that is not a
	// snapshot or is truncated.
	ErrFormat = errors.New("snapshot: malformed snapshot")

	// ErrVersion is returned by Decode for an unsupported version.
	ErrVersion = errors.New("snapshot: unsupported version")

	// ErrDigest is returned by Decode when the body does not match
	// the digest in the header.
	ErrDigest = errors.New("snapshot: digest mismatch")
)

// Digest is a 32-byte BLAKE3 keyed hash of an uncompressed body.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// digestKey is the BLAKE3 key for snapshot bodies: the ASCII name of
// the domain, zero-padded to 32 bytes.
var digestKey = [32]byte{
	't', 'e', 'l', 'e', 's', 'c', 'e', 'n', 'e', '.', 's', 'n', 'a', 'p', 's', 'h',
	'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

func digest(body []byte) Digest {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("snapshot: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	hasher.Write(body)
	var result Digest
	copy(result[:], hasher.Sum(nil))
	return result
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encOptions := cbor.CoreDetEncOptions()
	// Keep nanoseconds and the zone offset of frame times.
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("snapshot: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("snapshot: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode serializes frame with the requested compression and returns
// the file bytes and the body digest. If the body does not shrink
// under compression it is stored uncompressed.
func Encode(frame scene.Frame, compression Compression) ([]byte, Digest, error) {
	body, err := encMode.Marshal(frame)
	if err != nil {
		return nil, Digest{}, fmt.Errorf("snapshot: encoding frame: %w", err)
	}
	sum := digest(body)

	payload, used, err := compress(body, compression)
	if err != nil {
		return nil, Digest{}, err
	}

	var buffer bytes.Buffer
	buffer.Grow(len(magic) + 2 + binary.MaxVarintLen64 + len(sum) + len(payload))
	buffer.Write(magic[:])
	buffer.WriteByte(Version)
	buffer.WriteByte(byte(used))
	buffer.Write(binary.AppendUvarint(nil, uint64(len(body))))
	buffer.Write(sum[:])
	buffer.Write(payload)
	return buffer.Bytes(), sum, nil
}

// Header is the decoded fixed part of a snapshot.
type Header struct {
	Version     uint8
	Compression Compression
	Length      int
	Digest      Digest
}

// maxBodyLength bounds the uncompressed length a header may claim.
const maxBodyLength = 256 << 20

func parseHeader(data []byte) (Header, []byte, error) {
	if len(data) < len(magic)+2 || !bytes.Equal(data[:len(magic)], magic[:]) {
		return Header{}, nil, ErrFormat
	}
	header := Header{
		Version:     data[4],
		Compression: Compression(data[5]),
	}
	if header.Version != Version {
		return Header{}, nil, fmt.Errorf("%w: %d", ErrVersion, header.Version)
	}
	rest := data[6:]

	length, read := binary.Uvarint(rest)
	if read <= 0 || length > maxBodyLength {
		return Header{}, nil, fmt.Errorf("%w: bad body length", ErrFormat)
	}
	header.Length = int(length)
	rest = rest[read:]

	if len(rest) < len(header.Digest) {
		return Header{}, nil, fmt.Errorf("%w: truncated digest", ErrFormat)
	}
	copy(header.Digest[:], rest)
	return header, rest[len(header.Digest):], nil
}

// ReadHeader decodes the fixed part of a snapshot without touching the
// body.
func ReadHeader(data []byte) (Header, error) {
	header, _, err := parseHeader(data)
	return header, err
}

// Decode parses a snapshot and verifies its digest.
func Decode(data []byte) (scene.Frame, error) {
	header, payload, err := parseHeader(data)
	if err != nil {
		return scene.Frame{}, err
	}
	body, err := decompress(payload, header.Compression, header.Length)
	if err != nil {
		return scene.Frame{}, fmt.Errorf("%w: %w", ErrFormat, err)
	}
	if digest(body) != header.Digest {
		return scene.Frame{}, ErrDigest
	}

	var frame scene.Frame
	if err := decMode.Unmarshal(body, &frame); err != nil {
		return scene.Frame{}, fmt.Errorf("snapshot: decoding frame: %w", err)
	}
	return frame, nil
}

// ContentDigest returns the digest of frame's body with its timestamp
// cleared. Two frames with the same nodes and ownership counters have
// the same content digest.
func ContentDigest(frame scene.Frame) (Digest, error) {
	frame.Time = time.Time{}
	body, err := encMode.Marshal(frame)
	if err != nil {
		return Digest{}, fmt.Errorf("snapshot: encoding frame: %w", err)
	}
	return digest(body), nil
}
