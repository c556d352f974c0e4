// Package pagestore implements the page file: a metadata block followed by
// a fixed number of fixed-size pages, each holding a zstd-compressed list of
// postings. Terms are assigned to pages by hashing.
package pagestore

import (
	"bytes"
	"fmt"

	gojson "github.com/goccy/go-json"

	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

const (
	FormatVersion   = 1
	MetadataSize    = 4096
	DefaultPageSize = 4096
	ItemFactory     = "Document"

	// lengthPrefixSize is the little-endian uint32 that precedes the
	// compressed payload inside a page.
	lengthPrefixSize = 4
)

var metadataMagic = []byte("tinyindex-page-file")

// Metadata is the JSON header stored in the first MetadataSize bytes of the
// file.
type Metadata struct {
	Version      int    `json:"version"`
	PageSize     int    `json:"page_size"`
	NumPages     int    `json:"num_pages"`
	ItemFactory  string `json:"item_factory"`
	ChecksumSize int    `json:"checksum_size"`
}

// Bytes encodes the metadata padded with zeros to MetadataSize.
func (m Metadata) Bytes() ([]byte, error) {
	body, err := gojson.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	data := append(append([]byte{}, metadataMagic...), body...)
	return pad(data, MetadataSize)
}

// capacity is the number of bytes available for the compressed payload.
func (m Metadata) capacity() int {
	return m.PageSize - m.ChecksumSize - lengthPrefixSize
}

func (m Metadata) offset(page int) int64 {
	return int64(MetadataSize) + int64(page)*int64(m.PageSize)
}

func (m Metadata) fileSize() int64 {
	return m.offset(m.NumPages)
}

// ParseMetadata decodes a metadata block read from the start of a file.
func ParseMetadata(block []byte) (Metadata, error) {
	if !bytes.HasPrefix(block, metadataMagic) {
		return Metadata{}, apperrors.ErrNotIndexFile
	}
	body := bytes.TrimRight(block[len(metadataMagic):], "\x00")
	var m Metadata
	if err := gojson.Unmarshal(body, &m); err != nil {
		return Metadata{}, fmt.Errorf("parsing metadata: %w", err)
	}
	if m.ItemFactory != ItemFactory {
		return Metadata{}, fmt.Errorf("%w: file has %q, expected %q", apperrors.ErrItemFactoryMismatch, m.ItemFactory, ItemFactory)
	}
	if m.NumPages <= 0 || m.PageSize <= m.ChecksumSize+lengthPrefixSize {
		return Metadata{}, fmt.Errorf("%w: bad geometry %d pages of %d bytes", apperrors.ErrNotIndexFile, m.NumPages, m.PageSize)
	}
	return m, nil
}

func pad(data []byte, size int) ([]byte, error) {
	if len(data) > size {
		return nil, fmt.Errorf("%w: %d bytes for %d", apperrors.ErrPageTooLarge, len(data), size)
	}
	out := make([]byte, size)
	copy(out, data)
	return out, nil
}
