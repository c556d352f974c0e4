package urls

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/tinyindex/pkg/postgres"
)

// PostgresStore keeps URLs in the urls table. Statuses only move forward
// and scores accumulate across runs.
type PostgresStore struct {
	client *postgres.Client
}

func NewPostgresStore(client *postgres.Client) *PostgresStore {
	return &PostgresStore{client: client}
}

const upsertURL = `INSERT INTO urls (url, domain, status, score, user_id_hash, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (url) DO UPDATE SET
	status = GREATEST(urls.status, EXCLUDED.status),
	score = urls.score + EXCLUDED.score,
	user_id_hash = EXCLUDED.user_id_hash,
	updated_at = EXCLUDED.updated_at`

// Record upserts found in one transaction. Rows are written in URL order so
// concurrent recorders lock them in the same order.
func (s *PostgresStore) Record(ctx context.Context, found []FoundURL) (int, error) {
	sorted := make([]FoundURL, len(found))
	copy(sorted, found)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].URL < sorted[j].URL })

	err := s.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertURL)
		if err != nil {
			return fmt.Errorf("preparing url upsert: %w", err)
		}
		defer stmt.Close()
		for _, f := range sorted {
			if _, err := stmt.ExecContext(ctx, f.URL, f.Domain, int(f.Status), f.Score, f.UserIDHash, f.Timestamp); err != nil {
				return fmt.Errorf("upserting url %s: %w", f.URL, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(sorted), nil
}
