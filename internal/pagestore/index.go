package pagestore

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

// Mode selects whether an Index may be written.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

func (m Mode) String() string {
	if m == ModeWrite {
		return "w"
	}
	return "r"
}

// Index is an open page file. ReadPage and WritePage may be called from
// several goroutines; callers serialize writers of the same page.
type Index struct {
	file   *os.File
	path   string
	mode   Mode
	meta   Metadata
	logger *slog.Logger
}

// Create writes a new, empty page file. Pages are left zeroed, which reads
// back as empty.
func Create(path string, numPages, pageSize, checksumSize int) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", apperrors.ErrIndexExists, path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking index file: %w", err)
	}
	meta := Metadata{
		Version:      FormatVersion,
		PageSize:     pageSize,
		NumPages:     numPages,
		ItemFactory:  ItemFactory,
		ChecksumSize: checksumSize,
	}
	if numPages <= 0 || checksumSize < 0 || checksumSize > 8 || meta.capacity() <= 0 {
		return fmt.Errorf("%w: %d pages of %d bytes with %d checksum bytes", apperrors.ErrInvalidInput, numPages, pageSize, checksumSize)
	}
	header, err := meta.Bytes()
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	if err := f.Truncate(meta.fileSize()); err != nil {
		return fmt.Errorf("sizing index file: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing index file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming index file: %w", err)
	}
	slog.Default().With("component", "pagestore").Info("index created",
		"path", path,
		"num_pages", numPages,
		"page_size", pageSize,
	)
	return nil
}

// Open opens an existing page file. Close must be called to sync and
// release it.
func Open(path string, mode Mode) (*Index, error) {
	flag := os.O_RDONLY
	if mode == ModeWrite {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	block := make([]byte, MetadataSize)
	if _, err := f.ReadAt(block, 0); err != nil {
		f.Close()
		return nil, fmt.Errorf("reading metadata: %w", err)
	}
	meta, err := ParseMetadata(block)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	ix := &Index{
		file:   f,
		path:   path,
		mode:   mode,
		meta:   meta,
		logger: slog.Default().With("component", "pagestore", "path", path),
	}
	ix.logger.Info("index opened",
		"mode", mode.String(),
		"num_pages", meta.NumPages,
		"page_size", meta.PageSize,
	)
	return ix, nil
}

func (ix *Index) Path() string { return ix.path }

func (ix *Index) NumPages() int { return ix.meta.NumPages }

func (ix *Index) PageSize() int { return ix.meta.PageSize }

func (ix *Index) Metadata() Metadata { return ix.meta }

// Locate maps a term to its page number. The mapping depends only on the
// term and the page count, so it is stable across runs and handles.
func (ix *Index) Locate(term string) int {
	return int(xxhash.Sum64String(term) % uint64(ix.meta.NumPages))
}

// ReadPage returns the postings stored on page. A page whose payload cannot
// be decompressed is logged and read as empty.
func (ix *Index) ReadPage(page int) (index.Page, error) {
	raw, err := ix.ReadRaw(page)
	if err != nil {
		return nil, err
	}
	postings, err := decodePage(ix.meta, raw)
	if err != nil {
		if errors.Is(err, apperrors.ErrChecksumMismatch) {
			return nil, fmt.Errorf("reading page %d: %w", page, err)
		}
		ix.logger.Error("unreadable page, treating as empty", "page", page, "error", err)
		return index.Page{}, nil
	}
	return postings, nil
}

// Retrieve returns the page that term is filed on.
func (ix *Index) Retrieve(term string) (index.Page, error) {
	return ix.ReadPage(ix.Locate(term))
}

// WritePage replaces the content of page. Postings that do not fit are
// dropped from the end of the list; the number stored is returned.
func (ix *Index) WritePage(page int, postings index.Page) (int, error) {
	if ix.mode != ModeWrite {
		return 0, apperrors.ErrReadOnly
	}
	if err := ix.checkPage(page); err != nil {
		return 0, err
	}
	data, stored, err := encodePage(ix.meta, postings)
	if err != nil {
		return 0, fmt.Errorf("encoding page %d: %w", page, err)
	}
	if _, err := ix.file.WriteAt(data, ix.meta.offset(page)); err != nil {
		return 0, fmt.Errorf("writing page %d: %w", page, err)
	}
	if stored < len(postings) {
		ix.logger.Debug("page truncated to capacity",
			"page", page,
			"requested", len(postings),
			"stored", stored,
		)
	}
	return stored, nil
}

// ReadRaw returns the undecoded bytes of page.
func (ix *Index) ReadRaw(page int) ([]byte, error) {
	if err := ix.checkPage(page); err != nil {
		return nil, err
	}
	raw := make([]byte, ix.meta.PageSize)
	if _, err := ix.file.ReadAt(raw, ix.meta.offset(page)); err != nil {
		return nil, fmt.Errorf("reading page %d: %w", page, err)
	}
	return raw, nil
}

// Sync flushes written pages to disk. It is a no-op for a read-only index.
func (ix *Index) Sync() error {
	if ix.mode != ModeWrite {
		return nil
	}
	if err := ix.file.Sync(); err != nil {
		return fmt.Errorf("syncing index: %w", err)
	}
	return nil
}

// Close syncs a writable index and closes the file.
func (ix *Index) Close() error {
	if ix.mode == ModeWrite {
		if err := ix.file.Sync(); err != nil {
			ix.file.Close()
			return fmt.Errorf("syncing index: %w", err)
		}
	}
	return ix.file.Close()
}

func (ix *Index) checkPage(page int) error {
	if page < 0 || page >= ix.meta.NumPages {
		return fmt.Errorf("%w: page %d of %d", apperrors.ErrPageOutOfRange, page, ix.meta.NumPages)
	}
	return nil
}

// With opens the index at path, runs fn and closes the index on every exit
// path. A close error is reported unless fn already failed.
func With(path string, mode Mode, fn func(ix *Index) error) (err error) {
	ix, err := Open(path, mode)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ix.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(ix)
}
