package pagestore

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

// CopyPages copies up to n raw pages starting at start from src to dst.
// Both indexes must share page size and page count. It returns the page to
// continue from, which equals src.NumPages() once everything is copied.
func CopyPages(src, dst *Index, start, n int) (int, error) {
	if dst.mode != ModeWrite {
		return start, apperrors.ErrReadOnly
	}
	if src.meta.PageSize != dst.meta.PageSize || src.meta.NumPages != dst.meta.NumPages ||
		src.meta.ChecksumSize != dst.meta.ChecksumSize {
		return start, fmt.Errorf("%w: copying between indexes of different geometry", apperrors.ErrInvalidInput)
	}
	end := start + n
	if end > src.meta.NumPages {
		end = src.meta.NumPages
	}
	for page := start; page < end; page++ {
		raw, err := src.ReadRaw(page)
		if err != nil {
			return page, err
		}
		if _, err := dst.file.WriteAt(raw, dst.meta.offset(page)); err != nil {
			return page, fmt.Errorf("copying page %d: %w", page, err)
		}
	}
	dst.logger.Info("pages copied", "from", src.path, "start", start, "next", end)
	return end, nil
}
