package pagestore

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/cespare/xxhash/v2"
	gojson "github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/errors"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// postingTuple is the stored form of a posting:
// [title, url, extract, score, term?, state?] with trailing absent values
// trimmed.
func postingTuple(p index.Posting) []any {
	tuple := []any{p.Title, p.URL, p.Extract, p.Score}
	switch {
	case p.Curated():
		var term any
		if p.HasTerm() {
			term = p.Term
		}
		tuple = append(tuple, term, int(p.State))
	case p.HasTerm():
		tuple = append(tuple, p.Term)
	}
	return tuple
}

func tupleToPosting(tuple []any) (index.Posting, error) {
	if len(tuple) < 3 {
		return index.Posting{}, fmt.Errorf("posting tuple has %d fields, need at least 3", len(tuple))
	}
	var p index.Posting
	var ok bool
	if p.Title, ok = tuple[0].(string); !ok {
		return index.Posting{}, fmt.Errorf("posting title is %T", tuple[0])
	}
	if p.URL, ok = tuple[1].(string); !ok {
		return index.Posting{}, fmt.Errorf("posting url is %T", tuple[1])
	}
	if p.Extract, ok = tuple[2].(string); !ok {
		return index.Posting{}, fmt.Errorf("posting extract is %T", tuple[2])
	}
	if len(tuple) > 3 && tuple[3] != nil {
		score, ok := tuple[3].(float64)
		if !ok {
			return index.Posting{}, fmt.Errorf("posting score is %T", tuple[3])
		}
		p.Score = score
	}
	if len(tuple) > 4 && tuple[4] != nil {
		if p.Term, ok = tuple[4].(string); !ok {
			return index.Posting{}, fmt.Errorf("posting term is %T", tuple[4])
		}
	}
	if len(tuple) > 5 && tuple[5] != nil {
		state, ok := tuple[5].(float64)
		if !ok {
			return index.Posting{}, fmt.Errorf("posting state is %T", tuple[5])
		}
		p.State = index.DocumentState(state)
	}
	return p, nil
}

func compressTuples(tuples [][]any) ([]byte, error) {
	raw, err := gojson.Marshal(tuples)
	if err != nil {
		return nil, fmt.Errorf("marshaling page: %w", err)
	}
	enc := getZstdEncoder()
	defer zstdEncoderPool.Put(enc)
	return enc.EncodeAll(raw, nil), nil
}

// fitTuples finds the longest prefix of tuples whose compressed form fits
// in capacity bytes. It returns the prefix length and its compressed bytes,
// or -1 when not even the empty page fits.
func fitTuples(tuples [][]any, capacity int) (int, []byte, error) {
	lo, hi := 0, len(tuples)
	best := -1
	var bestData []byte
	for lo <= hi {
		mid := (lo + hi) / 2
		data, err := compressTuples(tuples[:mid])
		if err != nil {
			return -1, nil, err
		}
		if len(data) > capacity {
			hi = mid - 1
			continue
		}
		best, bestData = mid, data
		lo = mid + 1
	}
	return best, bestData, nil
}

// encodePage renders postings into exactly pageSize bytes. Postings that do
// not fit are dropped from the tail; stored reports how many were kept.
func encodePage(m Metadata, postings index.Page) (page []byte, stored int, err error) {
	tuples := make([][]any, len(postings))
	for i, p := range postings {
		tuples[i] = postingTuple(p)
	}
	stored, compressed, err := fitTuples(tuples, m.capacity())
	if err != nil {
		return nil, 0, err
	}
	if stored < 0 {
		return nil, 0, fmt.Errorf("%w: empty page does not fit in %d bytes", apperrors.ErrPageTooLarge, m.PageSize)
	}

	body := make([]byte, m.PageSize-m.ChecksumSize)
	binary.LittleEndian.PutUint32(body[0:lengthPrefixSize], uint32(len(compressed)))
	copy(body[lengthPrefixSize:], compressed)

	page = make([]byte, 0, m.PageSize)
	page = append(page, checksum(body, m.ChecksumSize)...)
	page = append(page, body...)
	return page, stored, nil
}

// decodePage parses a raw page. An all-zero page is an empty page.
func decodePage(m Metadata, raw []byte) (index.Page, error) {
	sum, body := raw[:m.ChecksumSize], raw[m.ChecksumSize:]
	length := int(binary.LittleEndian.Uint32(body[0:lengthPrefixSize]))
	if length == 0 {
		return index.Page{}, nil
	}
	if m.ChecksumSize > 0 {
		if want := checksum(body, m.ChecksumSize); string(want) != string(sum) {
			return nil, fmt.Errorf("%w: stored %x, computed %x", apperrors.ErrChecksumMismatch, sum, want)
		}
	}
	if length > len(body)-lengthPrefixSize {
		return nil, fmt.Errorf("%w: payload length %d exceeds page", apperrors.ErrPageTooLarge, length)
	}

	dec := getZstdDecoder()
	defer zstdDecoderPool.Put(dec)
	payload, err := dec.DecodeAll(body[lengthPrefixSize:lengthPrefixSize+length], nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing page: %w", err)
	}
	var tuples [][]any
	if err := gojson.Unmarshal(payload, &tuples); err != nil {
		return nil, fmt.Errorf("parsing page: %w", err)
	}
	page := make(index.Page, 0, len(tuples))
	for _, tuple := range tuples {
		p, err := tupleToPosting(tuple)
		if err != nil {
			return nil, err
		}
		page = append(page, p)
	}
	return page, nil
}

func checksum(data []byte, size int) []byte {
	if size == 0 {
		return nil
	}
	var sum [8]byte
	binary.BigEndian.PutUint64(sum[:], xxhash.Sum64(data))
	return sum[:size]
}
