package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grailbio/neurograph/builder"
)

type memBackend struct {
	data map[string][]byte
}

func newMemBackend() *memBackend { return &memBackend{data: map[string][]byte{}} }

func (b *memBackend) WriteAll(ctx context.Context, uri string, data []byte) error {
	cp := append([]byte(nil), data...)
	b.data[uri] = cp
	return nil
}

func (b *memBackend) ReadAll(ctx context.Context, uri string) ([]byte, error) {
	d, ok := b.data[uri]
	if !ok {
		return nil, errNotFound(uri)
	}
	return d, nil
}

type errNotFound string

func (e errNotFound) Error() string { return "snapshot: not found: " + string(e) }

func TestSaveLoadRoundTripsEveryCodec(t *testing.T) {
	nw, err := builder.DemoNetwork()
	require.NoError(t, err)

	for _, codec := range []Codec{CodecSnappy, CodecFlate, CodecZlibNG} {
		t.Run(codec.String(), func(t *testing.T) {
			backend := newMemBackend()
			uri := filepath.Join("mem", codec.String(), "snapshot.bin")
			require.NoError(t, Save(context.Background(), backend, uri, nw.Model, codec))

			snap, err := Load(context.Background(), backend, uri)
			require.NoError(t, err)
			assert.Equal(t, len(nw.Model.Operators), len(snap.Operators))
			assert.NotEmpty(t, snap.Signals)
			assert.NotEmpty(t, snap.SignalIndex)
		})
	}
}

func TestLoadRejectsCorruptedPayload(t *testing.T) {
	nw, err := builder.DemoNetwork()
	require.NoError(t, err)

	backend := newMemBackend()
	uri := "mem/corrupt.bin"
	require.NoError(t, Save(context.Background(), backend, uri, nw.Model, CodecSnappy))

	corrupted := append([]byte(nil), backend.data[uri]...)
	corrupted[len(corrupted)-1] ^= 0xFF
	backend.data[uri] = corrupted

	_, err = Load(context.Background(), backend, uri)
	assert.Error(t, err)
}

func TestLoadRejectsNonSnapshotData(t *testing.T) {
	backend := newMemBackend()
	backend.data["mem/garbage.bin"] = []byte("not a snapshot")
	_, err := Load(context.Background(), backend, "mem/garbage.bin")
	assert.Error(t, err)
}
