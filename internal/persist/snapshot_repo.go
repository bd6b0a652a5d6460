package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/core/ecs"
)

var (
	ErrNoSnapshot = errors.New("persist: no such snapshot")
	ErrChecksum   = errors.New("persist: snapshot checksum mismatch")
)

// SnapshotInfo is a snapshot header row.
type SnapshotInfo struct {
	Label       string
	EntityCount int
	Checksum    []byte
	CreatedAt   time.Time
}

type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

// Save replaces the snapshot stored under label, header and rows in one
// transaction.
func (r *SnapshotRepo) Save(ctx context.Context, label string, snaps []EntitySnapshot) error {
	sum := Checksum(snaps)

	err := r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM snapshots WHERE label = $1`, label); err != nil {
			return fmt.Errorf("snapshot clear: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO snapshots (label, entity_count, checksum) VALUES ($1, $2, $3)`,
			label, len(snaps), sum,
		); err != nil {
			return fmt.Errorf("snapshot header: %w", err)
		}

		batch := &pgx.Batch{}
		for _, s := range snaps {
			tags := s.Tags
			if tags == nil {
				tags = []string{}
			}
			state := s.State
			if state == nil {
				state = map[string]float64{}
			}
			batch.Queue(
				`INSERT INTO snapshot_entities (label, entity_id, name, tags, active, pos_x, pos_y, state)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				label, int64(s.ID), s.Name, tags, s.Active, s.X, s.Y, state,
			)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("snapshot rows: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save snapshot %q: %w", label, err)
	}
	r.db.log.Info("snapshot saved", zap.String("label", label), zap.Int("entities", len(snaps)))
	return nil
}

// Load reads the snapshot stored under label and verifies its checksum.
func (r *SnapshotRepo) Load(ctx context.Context, label string) ([]EntitySnapshot, error) {
	info, err := r.Info(ctx, label)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT entity_id, name, tags, active, pos_x, pos_y, state
		 FROM snapshot_entities WHERE label = $1 ORDER BY entity_id`, label,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot query: %w", err)
	}
	defer rows.Close()

	snaps := make([]EntitySnapshot, 0, info.EntityCount)
	for rows.Next() {
		var (
			s  EntitySnapshot
			id int64
		)
		if err := rows.Scan(&id, &s.Name, &s.Tags, &s.Active, &s.X, &s.Y, &s.State); err != nil {
			return nil, fmt.Errorf("snapshot scan: %w", err)
		}
		s.ID = ecs.EntityID(id)
		if len(s.State) == 0 {
			s.State = nil
		}
		snaps = append(snaps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot rows: %w", err)
	}

	if !bytes.Equal(Checksum(snaps), info.Checksum) {
		return nil, fmt.Errorf("%w: %q", ErrChecksum, label)
	}
	return snaps, nil
}

// Info returns the header for label, or ErrNoSnapshot.
func (r *SnapshotRepo) Info(ctx context.Context, label string) (*SnapshotInfo, error) {
	info := &SnapshotInfo{Label: label}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT entity_count, checksum, created_at FROM snapshots WHERE label = $1`, label,
	).Scan(&info.EntityCount, &info.Checksum, &info.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNoSnapshot, label)
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot header: %w", err)
	}
	return info, nil
}

// List returns all snapshot headers, newest first.
func (r *SnapshotRepo) List(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT label, entity_count, checksum, created_at FROM snapshots ORDER BY created_at DESC, label`,
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot list: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		if err := rows.Scan(&info.Label, &info.EntityCount, &info.Checksum, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("snapshot list scan: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

// Delete removes a snapshot. Deleting a missing label is not an error.
func (r *SnapshotRepo) Delete(ctx context.Context, label string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM snapshots WHERE label = $1`, label)
	return err
}
