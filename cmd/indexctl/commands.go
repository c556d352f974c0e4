package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	gojson "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/batch"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pagestore"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/tinyindex/internal/ranker"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty page file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pages, _ := cmd.Flags().GetInt("pages")
		if pages <= 0 {
			pages = cfg.Index.NumPages
		}
		if err := pagestore.Create(cfg.Index.Path, pages, cfg.Index.PageSize, cfg.Index.ChecksumSize); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s with %d pages of %d bytes\n", cfg.Index.Path, pages, cfg.Index.PageSize)
		return nil
	},
}

var pageCmd = &cobra.Command{
	Use:   "page <number>",
	Short: "Print the postings stored on a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("page %q is not a number", args[0])
		}
		return pagestore.With(cfg.Index.Path, pagestore.ModeRead, func(ix *pagestore.Index) error {
			postings, err := ix.ReadPage(page)
			if err != nil {
				return err
			}
			return printPage(cmd.OutOrStdout(), page, postings)
		})
	},
}

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <term>",
	Short: "Print the page a term is filed on, ranked for the term",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		term := args[0]
		all, _ := cmd.Flags().GetBool("all")
		return pagestore.With(cfg.Index.Path, pagestore.ModeRead, func(ix *pagestore.Index) error {
			page := ix.Locate(term)
			postings, err := ix.ReadPage(page)
			if err != nil {
				return err
			}
			if !all {
				var matched index.Page
				for _, p := range postings {
					if p.Term == term {
						matched = append(matched, p)
					}
				}
				postings = ranker.New().Order([]string{term}, matched, false)
			}
			return printPage(cmd.OutOrStdout(), page, postings)
		})
	},
}

var repairTermsCmd = &cobra.Command{
	Use:   "repair-terms",
	Short: "Tie term-less postings to a term and drop postings filed on the wrong page",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt("start")
		count, _ := cmd.Flags().GetInt("count")
		return pagestore.With(cfg.Index.Path, pagestore.ModeWrite, func(ix *pagestore.Index) error {
			end := ix.NumPages()
			if count > 0 && start+count < end {
				end = start + count
			}
			engine := indexer.NewEngine(ix, ranker.New(), tokenizer.New(), indexer.Options{})
			var dropped, truncated int
			for page := start; page < end; page++ {
				stats, err := engine.RepairPage(cmd.Context(), page)
				if err != nil {
					return err
				}
				dropped += stats.Dropped
				truncated += stats.Truncated
			}
			fmt.Fprintf(cmd.OutOrStdout(), "repaired pages %d-%d: %d postings dropped, %d truncated\n", start, end-1, dropped, truncated)
			return nil
		})
	},
}

var copyPagesCmd = &cobra.Command{
	Use:   "copy-pages <source-index>",
	Short: "Copy raw pages from another index file of the same geometry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, _ := cmd.Flags().GetInt("start")
		count, _ := cmd.Flags().GetInt("count")
		return pagestore.With(args[0], pagestore.ModeRead, func(src *pagestore.Index) error {
			return pagestore.With(cfg.Index.Path, pagestore.ModeWrite, func(dst *pagestore.Index) error {
				if count <= 0 {
					count = src.NumPages() - start
				}
				next, err := pagestore.CopyPages(src, dst, start, count)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "copied pages %d-%d, next page %d\n", start, next-1, next)
				return nil
			})
		})
	},
}

var indexFileCmd = &cobra.Command{
	Use:   "index-file <batches.json>",
	Short: "Index a JSON array of crawl batches into the page file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading batches: %w", err)
		}
		var batches []batch.HashedBatch
		if err := gojson.Unmarshal(data, &batches); err != nil {
			return fmt.Errorf("parsing batches: %w", err)
		}
		workers, _ := cmd.Flags().GetInt("workers")
		if workers <= 0 {
			workers = cfg.Indexer.Workers
		}
		return pagestore.With(cfg.Index.Path, pagestore.ModeWrite, func(ix *pagestore.Index) error {
			engine := indexer.NewEngine(ix, ranker.New(), tokenizer.New(), indexer.Options{
				Workers:       workers,
				ProgressEvery: cfg.Indexer.ProgressEvery,
			})
			indexed, err := indexBatches(cmd.Context(), engine, batches, cfg.Indexer.ChunkSize)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d of %d batches\n", indexed, len(batches))
			return nil
		})
	},
}

// indexBatches runs batches through the index stage chunk by chunk. The URL
// stage is skipped, so batches start as URLS_UPDATED.
func indexBatches(ctx context.Context, engine *indexer.Engine, batches []batch.HashedBatch, chunkSize int) (int64, error) {
	source := batch.NewMemoryStore()
	for _, b := range batches {
		if _, err := source.Upsert(ctx, b, batch.StatusURLsUpdated); err != nil {
			return 0, err
		}
	}
	runner := pipeline.NewRunner(source, pipeline.Options{ChunkSize: chunkSize})
	stage := engine.Stage()
	var total int64
	for {
		moved, err := runner.Run(ctx, stage)
		if err != nil {
			return total, err
		}
		total += moved
		if moved == 0 {
			return total, nil
		}
	}
}

func printPage(w io.Writer, page int, postings index.Page) error {
	type row struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Extract string  `json:"extract,omitempty"`
		Score   float64 `json:"score"`
		Term    string  `json:"term,omitempty"`
		State   string  `json:"state,omitempty"`
	}
	rows := make([]row, len(postings))
	for i, p := range postings {
		rows[i] = row{Title: p.Title, URL: p.URL, Extract: p.Extract, Score: p.Score, Term: p.Term}
		if p.Curated() {
			rows[i].State = p.State.String()
		}
	}
	out, err := gojson.MarshalIndent(map[string]any{
		"page":     page,
		"count":    len(rows),
		"postings": rows,
	}, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

func init() {
	createCmd.Flags().Int("pages", 0, "number of pages (defaults to index.numPages)")
	retrieveCmd.Flags().Bool("all", false, "print the whole page instead of the term's ranked postings")
	repairTermsCmd.Flags().Int("start", 0, "first page to repair")
	repairTermsCmd.Flags().Int("count", 0, "number of pages to repair (0 for all)")
	copyPagesCmd.Flags().Int("start", 0, "first page to copy")
	copyPagesCmd.Flags().Int("count", 0, "number of pages to copy (0 for the rest)")
	indexFileCmd.Flags().Int("workers", 0, "pages merged in parallel (defaults to indexer.workers)")
}
