package snapshot

import (
	"context"
	"io/ioutil"

	"github.com/grailbio/base/file"
)

// Backend is a pluggable snapshot storage target: write and read a
// whole snapshot's bytes at a URI. Implementations decide what a URI
// means (a local path, an s3://bucket/key, ...).
type Backend interface {
	WriteAll(ctx context.Context, uri string, data []byte) error
	ReadAll(ctx context.Context, uri string) ([]byte, error)
}

// LocalBackend stores snapshots as plain files via
// github.com/grailbio/base/file, the same file-abstraction entry point
// interval.LoadSortedBEDIntervals and cmd/bio-bam-sort/sorter use for
// their own inputs and outputs (a thin wrapper over the local
// filesystem, but one that composes with the rest of this package's
// file-handling conventions rather than calling os.Open directly).
type LocalBackend struct{}

func (LocalBackend) WriteAll(ctx context.Context, uri string, data []byte) error {
	out, err := file.Create(ctx, uri)
	if err != nil {
		return err
	}
	if _, err := out.Writer(ctx).Write(data); err != nil {
		_ = out.Close(ctx)
		return err
	}
	return out.Close(ctx)
}

func (LocalBackend) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	in, err := file.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx)
	return ioutil.ReadAll(in.Reader(ctx))
}
