// Package pgmedium stores a filesystem image in a Postgres table as
// fixed-size chunks. Chunks which were never written read as zeros.
package pgmedium

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/weberc2/diskfs/pkg/medium"
	. "github.com/weberc2/diskfs/pkg/types"
)

const DefaultChunkSize Byte = 64 * 1024

type Medium struct {
	db        *sql.DB
	image     string
	size      Byte
	chunkSize Byte
}

var _ medium.Medium = (*Medium)(nil)

// Open connects to Postgres and returns a medium of `size` bytes for the
// image named `image`. A `chunkSize` of zero selects DefaultChunkSize.
func Open(dsn, image string, size, chunkSize Byte) (*Medium, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}

	if err := ping(db); err != nil {
		return nil, err
	}

	return New(db, image, size, chunkSize), nil
}

// ping checks the connection and closes `db` if it is unreachable.
func ping(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("pinging postgres database: %w", err)
	}
	return nil
}

func New(db *sql.DB, image string, size, chunkSize Byte) *Medium {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Medium{db: db, image: image, size: size, chunkSize: chunkSize}
}

func (m *Medium) EnsureTable() error {
	if _, err := m.db.Exec(
		"CREATE TABLE IF NOT EXISTS image_chunks (" +
			"image TEXT NOT NULL, " +
			"chunk BIGINT NOT NULL, " +
			"data BYTEA NOT NULL, " +
			"PRIMARY KEY (image, chunk))",
	); err != nil {
		return fmt.Errorf("creating `image_chunks` postgres table: %w", err)
	}
	return nil
}

// Drop deletes every chunk belonging to the image.
func (m *Medium) Drop() error {
	if _, err := m.db.Exec(
		"DELETE FROM image_chunks WHERE image = $1",
		m.image,
	); err != nil {
		return fmt.Errorf("deleting chunks for image `%s`: %w", m.image, err)
	}
	return nil
}

func (m *Medium) Size() Byte { return m.size }

func (m *Medium) Close() error { return m.db.Close() }

func (m *Medium) ReadAll(offset Byte, p []byte) error {
	if !m.contains(offset, len(p)) {
		return &medium.IOError{
			Op:     medium.OpRead,
			Offset: offset,
			Len:    len(p),
			Err:    ShortIOErr,
		}
	}

	for _, s := range chunkSpans(offset, Byte(len(p)), m.chunkSize) {
		chunk, err := m.readChunk(s.Chunk)
		if err != nil {
			return &medium.IOError{
				Op:     medium.OpRead,
				Offset: offset,
				Len:    len(p),
				Err:    err,
			}
		}
		copy(p[s.BufStart:s.BufStart+s.Len], chunk[s.Start:s.Start+s.Len])
	}
	return nil
}

func (m *Medium) WriteAll(offset Byte, p []byte) error {
	if !m.contains(offset, len(p)) {
		return &medium.IOError{
			Op:     medium.OpWrite,
			Offset: offset,
			Len:    len(p),
			Err:    ShortIOErr,
		}
	}

	for _, s := range chunkSpans(offset, Byte(len(p)), m.chunkSize) {
		chunk, err := m.readChunk(s.Chunk)
		if err == nil {
			copy(chunk[s.Start:s.Start+s.Len], p[s.BufStart:s.BufStart+s.Len])
			err = m.writeChunk(s.Chunk, chunk)
		}
		if err != nil {
			return &medium.IOError{
				Op:     medium.OpWrite,
				Offset: offset,
				Len:    len(p),
				Err:    err,
			}
		}
	}
	return nil
}

func (m *Medium) readChunk(chunk int64) ([]byte, error) {
	data := make([]byte, m.chunkSize)
	var stored []byte
	if err := m.db.QueryRow(
		"SELECT data FROM image_chunks WHERE image = $1 AND chunk = $2",
		m.image,
		chunk,
	).Scan(&stored); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return data, nil
		}
		return nil, fmt.Errorf(
			"reading chunk `%d` of image `%s`: %w",
			chunk,
			m.image,
			err,
		)
	}
	copy(data, stored)
	return data, nil
}

func (m *Medium) writeChunk(chunk int64, data []byte) error {
	if _, err := m.db.Exec(
		"INSERT INTO image_chunks (image, chunk, data) VALUES($1, $2, $3) "+
			"ON CONFLICT (image, chunk) DO UPDATE SET data = EXCLUDED.data",
		m.image,
		chunk,
		data,
	); err != nil {
		return fmt.Errorf(
			"writing chunk `%d` of image `%s`: %w",
			chunk,
			m.image,
			err,
		)
	}
	log.WithFields(log.Fields{
		"image": m.image,
		"chunk": chunk,
	}).Debug("wrote image chunk")
	return nil
}

func (m *Medium) contains(offset Byte, length int) bool {
	return offset >= 0 && offset+Byte(length) <= m.size
}

// span is the part of a single chunk covered by a byte range.
type span struct {
	Chunk    int64
	Start    Byte
	Len      Byte
	BufStart Byte
}

func chunkSpans(offset, length, chunkSize Byte) []span {
	var spans []span
	for done := Byte(0); done < length; {
		abs := offset + done
		start := abs % chunkSize
		n := chunkSize - start
		if remaining := length - done; n > remaining {
			n = remaining
		}
		spans = append(spans, span{
			Chunk:    int64(abs / chunkSize),
			Start:    start,
			Len:      n,
			BufStart: done,
		})
		done += n
	}
	return spans
}
