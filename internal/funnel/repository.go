package funnel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turyasin/Proposal-App-Live/internal/platform/httpx"
)

var ErrNoSnapshot = fmt.Errorf("no snapshot stored: %w", httpx.ErrNotFound)

// Snapshot is one stored rendering of the full funnel.
type Snapshot struct {
	ID       uuid.UUID `json:"id"`
	TakenAt  time.Time `json:"taken_at"`
	RowCount int       `json:"row_count"`
	Payload  []byte    `json:"-"`
}

type SnapshotRepository interface {
	Insert(ctx context.Context, snapshot Snapshot) error
	Latest(ctx context.Context) (*Snapshot, error)
}

type snapshotRepository struct {
	pool *pgxpool.Pool
}

func NewSnapshotRepository(pool *pgxpool.Pool) SnapshotRepository {
	return &snapshotRepository{pool: pool}
}

func (r *snapshotRepository) Insert(ctx context.Context, snapshot Snapshot) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO funnel_snapshots (id, taken_at, row_count, payload)
		VALUES ($1, $2, $3, $4)
	`, snapshot.ID, snapshot.TakenAt, snapshot.RowCount, snapshot.Payload)
	return err
}

func (r *snapshotRepository) Latest(ctx context.Context) (*Snapshot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, taken_at, row_count, payload
		FROM funnel_snapshots
		ORDER BY taken_at DESC
		LIMIT 1
	`)

	var s Snapshot
	if err := row.Scan(&s.ID, &s.TakenAt, &s.RowCount, &s.Payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}
	return &s, nil
}
