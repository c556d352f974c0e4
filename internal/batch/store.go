package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	gojson "github.com/goccy/go-json"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/postgres"
)

// Store persists batches and their status in Postgres.
type Store struct {
	client *postgres.Client
	logger *slog.Logger
}

func NewStore(client *postgres.Client) *Store {
	return &Store{
		client: client,
		logger: slog.Default().With("component", "batch-store"),
	}
}

// Upsert stores b with the given status. A batch that is already stored
// keeps its current status.
func (s *Store) Upsert(ctx context.Context, b HashedBatch, status Status) (bool, error) {
	items, err := gojson.Marshal(b.Items)
	if err != nil {
		return false, fmt.Errorf("encoding batch items: %w", err)
	}
	res, err := s.client.DB.ExecContext(ctx,
		`INSERT INTO batches (id, user_id_hash, timestamp, items, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		b.EnsureID(), b.UserIDHash, b.Timestamp, items, int(status),
	)
	if err != nil {
		return false, fmt.Errorf("inserting batch %s: %w", b.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking inserted batch %s: %w", b.ID, err)
	}
	return n == 1, nil
}

// FetchChunk returns up to limit batches in status, oldest first.
func (s *Store) FetchChunk(ctx context.Context, status Status, limit int) ([]HashedBatch, error) {
	rows, err := s.client.DB.QueryContext(ctx,
		`SELECT id, user_id_hash, timestamp, items
		 FROM batches
		 WHERE status = $1
		 ORDER BY timestamp, id
		 LIMIT $2`,
		int(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s batches: %w", status, err)
	}
	defer rows.Close()

	var batches []HashedBatch
	for rows.Next() {
		var (
			b     HashedBatch
			items []byte
		)
		if err := rows.Scan(&b.ID, &b.UserIDHash, &b.Timestamp, &items); err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}
		if err := gojson.Unmarshal(items, &b.Items); err != nil {
			s.logger.Error("skipping batch with undecodable items", "batch_id", b.ID, "error", err)
			continue
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batches: %w", err)
	}
	return batches, nil
}

// Advance moves the batches with ids from one status to the next in a single
// transaction. Batches no longer in from are left alone, which makes
// re-committing the same chunk a no-op. It returns how many rows moved.
func (s *Store) Advance(ctx context.Context, ids []string, from, to Status) (int64, error) {
	if err := CheckTransition(from, to); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	var moved int64
	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE batches SET status = $1, updated_at = now()
			 WHERE id = ANY($2) AND status = $3`,
			int(to), pq.Array(ids), int(from),
		)
		if err != nil {
			return fmt.Errorf("updating batch status: %w", err)
		}
		moved, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("batch status advanced",
		"from", from.String(),
		"to", to.String(),
		"requested", len(ids),
		"moved", moved,
	)
	return moved, nil
}
