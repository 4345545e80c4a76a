// Package blob is a chunked binary object store on Postgres. Content is split
// into fixed-size chunk rows correlated with an object index row; the index
// row is inserted only when a write is finalized, inside the same transaction
// as the chunks, so readers can never observe a partially written object.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
)

// ChunkSize matches the fragment size the avatars were originally stored with.
const ChunkSize = 255 * 1024

var (
	ErrObjectNotFound = errors.New("blob object not found")
	ErrWriterClosed   = errors.New("blob writer already finalized or aborted")
)

type Object struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Length      int64          `json:"length"`
	ChunkCount  int            `json:"chunk_count"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// OpenWrite begins a streamed write. The returned Writer buffers up to one
// chunk in memory; full chunks go straight to the database on the caller's
// goroutine, so a slow database stalls the producer instead of growing a
// buffer. Nothing is visible to readers until Finalize commits.
func (s *Store) OpenWrite(ctx context.Context, name, contentType string, metadata map[string]any) (*Writer, error) {
	generateID, err := nanoid.Standard(21)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize nanoid generator: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin blob transaction: %w", err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	return &Writer{
		ctx:         ctx,
		tx:          tx,
		id:          generateID(),
		name:        name,
		contentType: contentType,
		metadata:    metadata,
		buf:         make([]byte, 0, ChunkSize),
	}, nil
}

func (s *Store) Stat(ctx context.Context, id string) (*Object, error) {
	query := `
		SELECT id, name, length, chunk_count, content_type, metadata, created_at
		FROM blob_objects
		WHERE id = $1
	`
	var obj Object
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&obj.ID,
		&obj.Name,
		&obj.Length,
		&obj.ChunkCount,
		&obj.ContentType,
		&obj.Metadata,
		&obj.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return &obj, nil
}

// OpenRead returns the object's index entry and a stream over its chunks in
// insertion order. The caller must close the stream.
func (s *Store) OpenRead(ctx context.Context, id string) (*Object, io.ReadCloser, error) {
	obj, err := s.Stat(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT data FROM blob_chunks WHERE object_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, nil, err
	}

	return obj, &chunkReader{rows: rows}, nil
}

// UpdateMetadata merges the patch into the object's metadata without touching
// content. Used to attach the owning account after an upload has committed.
func (s *Store) UpdateMetadata(ctx context.Context, id string, patch map[string]any) error {
	query := `UPDATE blob_objects SET metadata = metadata || $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, patch)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrObjectNotFound
	}
	return nil
}

// Delete removes the object and all its chunks. A reader that already holds a
// chunk stream keeps its snapshot and may finish.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `DELETE FROM blob_objects WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrObjectNotFound
	}

	if _, err := tx.Exec(ctx, `DELETE FROM blob_chunks WHERE object_id = $1`, id); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

type chunkReader struct {
	rows pgx.Rows
	cur  []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.cur) == 0 {
		if !r.rows.Next() {
			if err := r.rows.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}
		if err := r.rows.Scan(&r.cur); err != nil {
			return 0, err
		}
	}

	n := copy(p, r.cur)
	r.cur = r.cur[n:]
	return n, nil
}

func (r *chunkReader) Close() error {
	r.rows.Close()
	return nil
}
