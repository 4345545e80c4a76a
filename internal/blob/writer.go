package blob

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Writer is an io.Writer sink for one object. Fragments for a single object
// are appended strictly in arrival order inside one transaction; independent
// writers run on independent transactions and do not block each other.
type Writer struct {
	ctx         context.Context
	tx          pgx.Tx
	id          string
	name        string
	contentType string
	metadata    map[string]any
	buf         []byte
	seq         int
	length      int64
	err         error
	done        bool
}

// ID reports the identifier the object will have once finalized. The object
// is not addressable under it until Finalize returns.
func (w *Writer) ID() string {
	return w.id
}

func (w *Writer) Write(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if w.done {
		return 0, ErrWriterClosed
	}

	written := len(p)
	for len(p) > 0 {
		space := ChunkSize - len(w.buf)
		if space > len(p) {
			space = len(p)
		}
		w.buf = append(w.buf, p[:space]...)
		p = p[space:]

		if len(w.buf) == ChunkSize {
			if err := w.flushChunk(); err != nil {
				return 0, err
			}
		}
	}
	return written, nil
}

func (w *Writer) flushChunk() error {
	_, err := w.tx.Exec(w.ctx,
		`INSERT INTO blob_chunks (object_id, seq, data) VALUES ($1, $2, $3)`,
		w.id, w.seq, w.buf)
	if err != nil {
		w.fail(err)
		return w.err
	}
	w.length += int64(len(w.buf))
	w.seq++
	w.buf = w.buf[:0]
	return nil
}

// Finalize commits every fragment and the index row as one atomic unit and
// returns the assigned object identifier. After a failed Finalize the partial
// object is discarded, never half-committed.
func (w *Writer) Finalize() (string, error) {
	if w.err != nil {
		return "", w.err
	}
	if w.done {
		return "", ErrWriterClosed
	}

	if len(w.buf) > 0 {
		if err := w.flushChunk(); err != nil {
			return "", err
		}
	}

	_, err := w.tx.Exec(w.ctx, `
		INSERT INTO blob_objects (id, name, length, chunk_count, content_type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		w.id, w.name, w.length, w.seq, w.contentType, w.metadata)
	if err != nil {
		w.fail(err)
		return "", w.err
	}

	if err := w.tx.Commit(w.ctx); err != nil {
		w.fail(err)
		return "", w.err
	}

	w.done = true
	return w.id, nil
}

// Abort discards everything written so far. Safe to call after a failed
// Write or Finalize, and as a deferred cleanup after success.
func (w *Writer) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tx.Rollback(w.ctx); err != nil && w.err == nil {
		return err
	}
	return nil
}

// Close implements io.Closer as an alias for Abort, so a Writer handed to
// io.Copy plumbing never commits implicitly. Committing is always explicit
// via Finalize.
func (w *Writer) Close() error {
	return w.Abort()
}

func (w *Writer) fail(err error) {
	w.err = fmt.Errorf("blob write %s: %w", w.id, err)
	w.tx.Rollback(w.ctx)
	w.done = true
}
