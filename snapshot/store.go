// Package snapshot serializes a model.Model's signal index and
// operator signatures (never live neuron kernels) to a portable wire
// format, for diagnostics and cross-process caching of optimizer
// results. It has an optional, strictly layered file/CLI surface the
// core packages (signal, operator, optimizer, dagutil, model) never
// import.
package snapshot

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/minio/highwayhash"

	"github.com/grailbio/base/log"

	"github.com/grailbio/neurograph/model"
	"github.com/grailbio/neurograph/snapshot/graphpb"
)

// integrityKey is the fixed HighwayHash key used for a snapshot's
// integrity tag. It is not a secret: the tag only needs to catch
// truncation and bit-rot in the store, not authenticate the writer.
var integrityKey = [highwayhash.Size]byte{
	'n', 'e', 'u', 'r', 'o', 'g', 'r', 'a', 'p', 'h', '-', 's', 'n', 'a', 'p', 's',
	'h', 'o', 't', '-', 'i', 'n', 't', 'e', 'g', 'r', 'i', 't', 'y', '-', 'v', '1',
}

// header precedes the compressed payload in every snapshot: a magic
// tag, the codec used, and a HighwayHash-64 integrity tag over the
// uncompressed protobuf bytes.
const (
	magic      = "NGSNAP1\x00"
	headerSize = len(magic) + 1 /*codec*/ + 8 /*tag*/
)

// Save serializes m, compresses it with codec, and writes it to uri via
// backend.
func Save(ctx context.Context, backend Backend, uri string, m *model.Model, codec Codec) error {
	snap := encodeModel(m)
	raw, err := proto.Marshal(snap)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	tag := highwayhash.Sum64(raw, integrityKey[:])

	compressed, err := compress(codec, raw)
	if err != nil {
		return fmt.Errorf("snapshot: compress (%s): %w", codec, err)
	}

	header := make([]byte, headerSize)
	copy(header, magic)
	header[len(magic)] = byte(codec)
	binary.LittleEndian.PutUint64(header[len(magic)+1:], tag)

	data := append(header, compressed...)
	if err := backend.WriteAll(ctx, uri, data); err != nil {
		return fmt.Errorf("snapshot: write %s: %w", uri, err)
	}
	log.Printf("snapshot: wrote %s (%d operators, %d signals, %s, %d bytes)", uri, len(snap.Operators), len(snap.Signals), codec, len(data))
	return nil
}

// Load reads, verifies and decompresses the snapshot at uri via
// backend, returning the decoded ModelSnapshotProto. It does not
// reconstruct a live model.Model: a snapshot records operator
// signatures, not runnable neuron kernels, so round-tripping back into
// an executable graph is intentionally out of scope (see
// SPEC_FULL.md's framing of this package).
func Load(ctx context.Context, backend Backend, uri string) (*graphpb.ModelSnapshotProto, error) {
	data, err := backend.ReadAll(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read %s: %w", uri, err)
	}
	if len(data) < headerSize || string(data[:len(magic)]) != magic {
		return nil, fmt.Errorf("snapshot: %s is not a neurograph snapshot", uri)
	}
	codec := Codec(data[len(magic)])
	wantTag := binary.LittleEndian.Uint64(data[len(magic)+1 : headerSize])

	raw, err := decompress(codec, data[headerSize:])
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress (%s): %w", codec, err)
	}
	if gotTag := highwayhash.Sum64(raw, integrityKey[:]); gotTag != wantTag {
		return nil, fmt.Errorf("snapshot: %s failed integrity check (corrupt or truncated)", uri)
	}

	snap := &graphpb.ModelSnapshotProto{}
	if err := proto.Unmarshal(raw, snap); err != nil {
		return nil, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	if snap.FormatVersion != graphpb.FormatVersion1 {
		return nil, fmt.Errorf("snapshot: %s has unsupported format version %d", uri, snap.FormatVersion)
	}
	return snap, nil
}
