// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapshot persists scene frames to disk.
//
// A snapshot file is a single binary frame:
//
//	"TSNP"             4-byte magic
//	version            1 byte (currently 1)
//	compression        1 byte (see [Compression])
//	length             uvarint, length of the uncompressed body
//	digest             32-byte BLAKE3 keyed hash of the uncompressed body
//	body               CBOR-encoded [scene.Frame], possibly compressed
//
// The body uses CBOR Core Deterministic Encoding, so equal frames encode
// to identical bytes and the digest identifies the content. [Decode]
// verifies the digest before returning a frame.
//
// [Writer] writes snapshots atomically (temporary file, fsync, rename)
// and skips the write when a frame's content matches the last one it
// wrote. A writer given age recipients with [Writer.SealTo] encrypts
// the whole file with lib/sealed; [ReadSealed] opens it again.
package snapshot
