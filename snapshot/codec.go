package snapshot

import (
	"bytes"
	"fmt"
	"io/ioutil"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"
	"github.com/yasushi-saito/zlibng"
)

// Codec selects the compression applied to a snapshot's serialized
// ModelSnapshotProto bytes before they hit the backend.
type Codec uint8

const (
	// CodecSnappy is the default: fast, low compression ratio, matching
	// cmd/bio-bam-sort/sorter's use of snappy for its own temp-file
	// format.
	CodecSnappy Codec = iota
	// CodecFlate uses klauspost/compress's gzip-compatible flate
	// implementation, trading speed for a smaller snapshot on disk.
	CodecFlate
	// CodecZlibNG uses zlib-ng for zlib-compatible output at
	// near-snappy speed, mirroring encoding/bgzf's zlib-family codec
	// choice.
	CodecZlibNG
)

func (c Codec) String() string {
	switch c {
	case CodecSnappy:
		return "snappy"
	case CodecFlate:
		return "flate"
	case CodecZlibNG:
		return "zlibng"
	default:
		return "unknown"
	}
}

// compress appends codec's compressed encoding of src to the returned
// slice.
func compress(codec Codec, src []byte) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Encode(nil, src), nil
	case CodecFlate:
		var buf bytes.Buffer
		w, err := flate.NewWriter(&buf, flate.DefaultCompression)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(src); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZlibNG:
		var buf bytes.Buffer
		w, err := zlibng.NewWriter(&buf, zlibng.Opts{Level: -1})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(src); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("snapshot: unknown codec %d", codec)
	}
}

// decompress reverses compress.
func decompress(codec Codec, src []byte) ([]byte, error) {
	switch codec {
	case CodecSnappy:
		return snappy.Decode(nil, src)
	case CodecFlate:
		r := flate.NewReader(bytes.NewReader(src))
		defer r.Close()
		return ioutil.ReadAll(r)
	case CodecZlibNG:
		r, err := zlibng.NewReader(bytes.NewReader(src))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return ioutil.ReadAll(r)
	default:
		return nil, fmt.Errorf("snapshot: unknown codec %d", codec)
	}
}
