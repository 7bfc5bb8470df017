// Package csvstore implements a flat-file record store: one header line
// followed by one comma-delimited record per line.
//
// Reads are linear scans. Mutations other than Append load the whole file,
// transform it in memory and rewrite it in a single write, so a failed read
// never truncates the file. Concurrent processes are not coordinated.
package csvstore

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	apperrors "github.com/amirk1998/stockkeeper/pkg/errors"
)

// maxLineLength bounds a single record line. Longer lines are corrupt and
// skipped like any other undecodable line.
const maxLineLength = 64 * 1024

// Codec maps a record type to and from a single text line. Encoded lines
// must not contain a newline; field values are never escaped.
type Codec[T any] interface {
	Header() string
	Encode(rec T) string
	Decode(line string) (T, error)
}

// Store reads and writes records of type T in a single flat file.
type Store[T any] struct {
	path  string
	codec Codec[T]
}

// New creates a store over path. The file is created lazily on first write.
func New[T any](path string, codec Codec[T]) *Store[T] {
	return &Store[T]{path: path, codec: codec}
}

// Path returns the backing file location.
func (s *Store[T]) Path() string {
	return s.path
}

func storageErr(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", apperrors.ErrStorage, op, path, err)
}

// Append adds rec at the end of the file, writing the header first when
// the file is empty.
func (s *Store[T]) Append(ctx context.Context, rec T) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return storageErr("mkdir", filepath.Dir(s.path), err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return storageErr("open", s.path, err)
	}
	defer closeFile(f, s.path, &err)

	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return storageErr("seek", s.path, err)
	}

	var buf bytes.Buffer
	if size == 0 {
		buf.WriteString(s.codec.Header())
		buf.WriteByte('\n')
	}
	buf.WriteString(s.codec.Encode(rec))
	buf.WriteByte('\n')

	if _, err := f.Write(buf.Bytes()); err != nil {
		return storageErr("write", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return storageErr("sync", s.path, err)
	}

	return nil
}

// Scan decodes every record after the header and passes it to visit until
// visit returns false. Lines that fail to decode are skipped. A missing
// file is an empty store.
//
// The header is skipped by seeking past its byte length, so it must be
// written byte-identical every time.
func (s *Store[T]) Scan(ctx context.Context, visit func(rec T) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return storageErr("open", s.path, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(len(s.codec.Header())+1), io.SeekStart); err != nil {
		return storageErr("seek", s.path, err)
	}

	err = readLines(f, func(line string) bool {
		rec, err := s.codec.Decode(line)
		if err != nil {
			return true
		}
		return visit(rec)
	})
	if err != nil {
		return storageErr("read", s.path, err)
	}
	return nil
}

// readLines calls fn with every line of r, stripped of its line ending,
// until fn returns false. Lines over maxLineLength are dropped.
func readLines(r io.Reader, fn func(line string) bool) error {
	br := bufio.NewReaderSize(r, maxLineLength)
	for {
		line, err := br.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			for errors.Is(err, bufio.ErrBufferFull) {
				_, err = br.ReadSlice('\n')
			}
			switch {
			case errors.Is(err, io.EOF):
				return nil
			case err != nil:
				return err
			}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}

		if len(line) > 0 && !fn(strings.TrimRight(string(line), "\r\n")) {
			return nil
		}
		if err != nil {
			return nil
		}
	}
}

// ReadAll returns every decodable record in file order.
func (s *Store[T]) ReadAll(ctx context.Context) ([]T, error) {
	var recs []T
	err := s.Scan(ctx, func(rec T) bool {
		recs = append(recs, rec)
		return true
	})
	return recs, err
}

// Count returns the number of records matching pred.
func (s *Store[T]) Count(ctx context.Context, pred func(rec T) bool) (int, error) {
	n := 0
	err := s.Scan(ctx, func(rec T) bool {
		if pred(rec) {
			n++
		}
		return true
	})
	return n, err
}

// Exists reports whether any record matches pred, stopping at the first hit.
func (s *Store[T]) Exists(ctx context.Context, pred func(rec T) bool) (bool, error) {
	found := false
	err := s.Scan(ctx, func(rec T) bool {
		found = pred(rec)
		return !found
	})
	return found, err
}

// RewriteExcept drops every record matching pred and returns how many were
// removed. Nothing is written when no record matches.
func (s *Store[T]) RewriteExcept(ctx context.Context, pred func(rec T) bool) (int, error) {
	removed := 0
	err := s.rewrite(ctx, func(recs []T) ([]T, bool, error) {
		kept := recs[:0]
		for _, rec := range recs {
			if pred(rec) {
				removed++
				continue
			}
			kept = append(kept, rec)
		}
		return kept, removed > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// RewriteWithUpdate replaces each record matching match with update(rec).
// An error from update aborts the whole operation before anything is
// written. Nothing is written when no record matches.
func (s *Store[T]) RewriteWithUpdate(ctx context.Context, match func(rec T) bool, update func(rec T) (T, error)) (int, error) {
	updated := 0
	err := s.rewrite(ctx, func(recs []T) ([]T, bool, error) {
		for i, rec := range recs {
			if !match(rec) {
				continue
			}
			next, err := update(rec)
			if err != nil {
				return nil, false, err
			}
			recs[i] = next
			updated++
		}
		return recs, updated > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// RewriteSorted stores all records in the order given by cmp. The sort is
// stable.
func (s *Store[T]) RewriteSorted(ctx context.Context, cmp func(a, b T) int) error {
	return s.rewrite(ctx, func(recs []T) ([]T, bool, error) {
		slices.SortStableFunc(recs, cmp)
		return recs, len(recs) > 0, nil
	})
}

// Replace overwrites the file with the header followed by recs.
func (s *Store[T]) Replace(ctx context.Context, recs []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(recs)
}

// rewrite runs the read-transform-write cycle. transform reports whether
// the result must be written back.
func (s *Store[T]) rewrite(ctx context.Context, transform func(recs []T) ([]T, bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	exists := true
	if errors.Is(err, fs.ErrNotExist) {
		exists = false
	} else if err != nil {
		return storageErr("read", s.path, err)
	}

	recs, changed, err := transform(s.decodeAll(data))
	if err != nil {
		return err
	}
	if !changed || (!exists && len(recs) == 0) {
		return nil
	}

	return s.write(recs)
}

func (s *Store[T]) decodeAll(data []byte) []T {
	header := s.codec.Header()

	var recs []T
	first := true
	// Reading from memory cannot fail.
	_ = readLines(bytes.NewReader(data), func(line string) bool {
		isHeader := first && line == header
		first = false
		if isHeader {
			return true
		}
		if rec, err := s.codec.Decode(line); err == nil {
			recs = append(recs, rec)
		}
		return true
	})
	return recs
}

func (s *Store[T]) write(recs []T) (err error) {
	var buf bytes.Buffer
	buf.WriteString(s.codec.Header())
	buf.WriteByte('\n')
	for _, rec := range recs {
		buf.WriteString(s.codec.Encode(rec))
		buf.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return storageErr("mkdir", filepath.Dir(s.path), err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return storageErr("open", s.path, err)
	}
	defer closeFile(f, s.path, &err)

	if _, err := f.Write(buf.Bytes()); err != nil {
		return storageErr("write", s.path, err)
	}
	if err := f.Sync(); err != nil {
		return storageErr("sync", s.path, err)
	}
	return nil
}

func closeFile(f *os.File, path string, errp *error) {
	if cerr := f.Close(); cerr != nil && *errp == nil {
		*errp = storageErr("close", path, cerr)
	}
}
