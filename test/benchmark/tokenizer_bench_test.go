package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/tokenizer"
)

const extract = `A page-partitioned index files every term on one fixed-size page chosen
by hashing the term. Each run reads the pages its new documents touch, ranks the
new and existing postings for every term, interleaves the terms so that each gets
a fair share of the page, and writes the page back.`

func BenchmarkTokenizeDocument(b *testing.B) {
	tok := tokenizer.New()
	for _, words := range []int{8, 64, 512} {
		text := strings.Join(strings.Fields(strings.Repeat(extract+" ", words/40+1))[:words], " ")
		b.Run(fmt.Sprintf("words_%d", words), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				_ = tok.Tokenize("https://example.com/pages", "Page partitioned indexes", text, 0)
			}
		})
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	tok := tokenizer.New()
	b.ReportAllocs()
	b.SetBytes(int64(len(extract)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = tok.Tokenize("https://example.com/pages", "Page partitioned indexes", extract, 0)
		}
	})
}

func BenchmarkTermsAndWords(b *testing.B) {
	b.Run("terms", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = tokenizer.Terms(extract)
		}
	})
	b.Run("words", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = tokenizer.Words(extract)
		}
	})
}

func BenchmarkStem(b *testing.B) {
	words := tokenizer.Words(extract)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		for _, w := range words {
			_ = tokenizer.Stem(w)
		}
	}
}
