package blob

import (
	"bytes"
	"context"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTestObject(t *testing.T, content []byte, metadata map[string]any) string {
	t.Helper()

	writer, err := testBlobStore.OpenWrite(context.Background(), "test-object.png", "image/png", metadata)
	require.NoError(t, err)

	n, err := writer.Write(content)
	require.NoError(t, err)
	require.Equal(t, len(content), n)

	id, err := writer.Finalize()
	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func TestWriteAndReadRoundTrip(t *testing.T) {
	content := []byte("a tiny avatar payload")
	id := writeTestObject(t, content, map[string]any{"username": "pending"})

	obj, stream, err := testBlobStore.OpenRead(context.Background(), id)
	require.NoError(t, err)
	defer stream.Close()

	require.Equal(t, id, obj.ID)
	require.Equal(t, int64(len(content)), obj.Length)
	require.Equal(t, 1, obj.ChunkCount)
	require.Equal(t, "image/png", obj.ContentType)
	require.Equal(t, "pending", obj.Metadata["username"])

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestWriteMultipleChunks(t *testing.T) {
	// Just over two chunks, so the tail chunk is partial.
	content := make([]byte, 2*ChunkSize+1024)
	_, err := rand.Read(content)
	require.NoError(t, err)

	writer, err := testBlobStore.OpenWrite(context.Background(), "big.png", "image/png", nil)
	require.NoError(t, err)

	// Feed in awkward fragment sizes to exercise chunk boundary handling.
	remaining := content
	for len(remaining) > 0 {
		n := 100_000
		if n > len(remaining) {
			n = len(remaining)
		}
		written, err := writer.Write(remaining[:n])
		require.NoError(t, err)
		require.Equal(t, n, written)
		remaining = remaining[n:]
	}

	id, err := writer.Finalize()
	require.NoError(t, err)

	obj, stream, err := testBlobStore.OpenRead(context.Background(), id)
	require.NoError(t, err)
	defer stream.Close()

	require.Equal(t, int64(len(content)), obj.Length)
	require.Equal(t, 3, obj.ChunkCount)

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.True(t, bytes.Equal(content, got), "Reassembled content must match in order and bytes")
}

func TestObjectInvisibleUntilFinalize(t *testing.T) {
	writer, err := testBlobStore.OpenWrite(context.Background(), "pending.png", "image/png", nil)
	require.NoError(t, err)

	_, err = writer.Write(make([]byte, ChunkSize+10))
	require.NoError(t, err)

	// The chunks are written but uncommitted; the identifier must not resolve.
	_, _, err = testBlobStore.OpenRead(context.Background(), writer.ID())
	require.ErrorIs(t, err, ErrObjectNotFound)

	_, err = testBlobStore.Stat(context.Background(), writer.ID())
	require.ErrorIs(t, err, ErrObjectNotFound)

	id, err := writer.Finalize()
	require.NoError(t, err)

	_, err = testBlobStore.Stat(context.Background(), id)
	require.NoError(t, err)
}

func TestAbortDiscardsEverything(t *testing.T) {
	writer, err := testBlobStore.OpenWrite(context.Background(), "aborted.png", "image/png", nil)
	require.NoError(t, err)

	_, err = writer.Write(make([]byte, 2*ChunkSize))
	require.NoError(t, err)

	require.NoError(t, writer.Abort())

	_, err = testBlobStore.Stat(context.Background(), writer.ID())
	require.ErrorIs(t, err, ErrObjectNotFound)

	var chunkCount int
	err = testBlobStore.pool.QueryRow(context.Background(),
		`SELECT count(*) FROM blob_chunks WHERE object_id = $1`, writer.ID()).Scan(&chunkCount)
	require.NoError(t, err)
	require.Zero(t, chunkCount, "No chunk of an aborted write may survive")
}

func TestWriterRejectsUseAfterFinalize(t *testing.T) {
	id := writeTestObject(t, []byte("done"), nil)
	require.NotEmpty(t, id)

	writer, err := testBlobStore.OpenWrite(context.Background(), "closed.png", "image/png", nil)
	require.NoError(t, err)
	_, err = writer.Finalize()
	require.NoError(t, err)

	_, err = writer.Write([]byte("more"))
	require.ErrorIs(t, err, ErrWriterClosed)

	_, err = writer.Finalize()
	require.ErrorIs(t, err, ErrWriterClosed)
}

func TestUpdateMetadata(t *testing.T) {
	id := writeTestObject(t, []byte("content"), map[string]any{
		"username": "pending",
		"mimetype": "image/png",
	})

	err := testBlobStore.UpdateMetadata(context.Background(), id, map[string]any{
		"username": "alice",
	})
	require.NoError(t, err)

	obj, err := testBlobStore.Stat(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, "alice", obj.Metadata["username"], "Patched key is replaced")
	require.Equal(t, "image/png", obj.Metadata["mimetype"], "Untouched keys survive the merge")
	require.Equal(t, int64(len("content")), obj.Length, "Content is untouched")
}

func TestUpdateMetadata_UnknownObject(t *testing.T) {
	err := testBlobStore.UpdateMetadata(context.Background(), "does-not-exist-id-xx", map[string]any{"a": "b"})
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestDelete(t *testing.T) {
	id := writeTestObject(t, make([]byte, ChunkSize+500), nil)

	require.NoError(t, testBlobStore.Delete(context.Background(), id))

	_, err := testBlobStore.Stat(context.Background(), id)
	require.ErrorIs(t, err, ErrObjectNotFound)

	var chunkCount int
	err = testBlobStore.pool.QueryRow(context.Background(),
		`SELECT count(*) FROM blob_chunks WHERE object_id = $1`, id).Scan(&chunkCount)
	require.NoError(t, err)
	require.Zero(t, chunkCount)

	require.ErrorIs(t, testBlobStore.Delete(context.Background(), id), ErrObjectNotFound)
}

func TestOpenRead_UnknownObject(t *testing.T) {
	_, _, err := testBlobStore.OpenRead(context.Background(), "no-such-object-id-xxx")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestIndependentWritersDoNotInterfere(t *testing.T) {
	w1, err := testBlobStore.OpenWrite(context.Background(), "first.png", "image/png", nil)
	require.NoError(t, err)
	w2, err := testBlobStore.OpenWrite(context.Background(), "second.png", "image/png", nil)
	require.NoError(t, err)

	_, err = w1.Write([]byte("first object"))
	require.NoError(t, err)
	_, err = w2.Write([]byte("second object"))
	require.NoError(t, err)

	id2, err := w2.Finalize()
	require.NoError(t, err)
	require.NoError(t, w1.Abort())

	obj, stream, err := testBlobStore.OpenRead(context.Background(), id2)
	require.NoError(t, err)
	defer stream.Close()

	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	require.Equal(t, []byte("second object"), got)
	require.Equal(t, int64(len("second object")), obj.Length)

	_, err = testBlobStore.Stat(context.Background(), w1.ID())
	require.ErrorIs(t, err, ErrObjectNotFound)
}
