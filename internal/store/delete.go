package store

import (
	"context"
	"database/sql"
)

// DeleteSubCubesByCube removes every subcube row of a cube.
// Returns the number of rows removed.
func (s *Store) DeleteSubCubesByCube(ctx context.Context, windowID, cubeID string) (int, error) {
	n, err := deleteRows(ctx, s.db, `DELETE FROM subcubes WHERE window_id = ? AND cube_id = ?`, windowID, cubeID)
	return n, ioErr("delete subcubes", err)
}

// DeleteVerticesByCube removes every vertex row of a cube.
// Returns the number of rows removed.
func (s *Store) DeleteVerticesByCube(ctx context.Context, windowID, cubeID string) (int, error) {
	n, err := deleteRows(ctx, s.db, `DELETE FROM vertices WHERE window_id = ? AND cube_id = ?`, windowID, cubeID)
	return n, ioErr("delete vertices", err)
}

// DeleteCube removes a cube with its subcubes and vertices in one transaction.
func (s *Store) DeleteCube(ctx context.Context, windowID, cubeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("delete cube: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, q := range []string{
		`DELETE FROM vertices WHERE window_id = ? AND cube_id = ?`,
		`DELETE FROM subcubes WHERE window_id = ? AND cube_id = ?`,
		`DELETE FROM cubes WHERE window_id = ? AND id = ?`,
	} {
		if _, err := deleteRows(ctx, tx, q, windowID, cubeID); err != nil {
			return ioErr("delete cube", err)
		}
	}
	return ioErr("delete cube: commit", tx.Commit())
}

// DeleteWindow removes every row owned by a window instance.
func (s *Store) DeleteWindow(ctx context.Context, windowID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("delete window: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := deleteWindowRows(ctx, tx, windowID); err != nil {
		return ioErr("delete window", err)
	}
	return ioErr("delete window: commit", tx.Commit())
}

// PurgeStale deletes the data of every stored window not in live.
// Returns the purged window ids in ascending order.
func (s *Store) PurgeStale(ctx context.Context, live []string) ([]string, error) {
	stored, err := s.WindowIDs(ctx)
	if err != nil {
		return nil, err
	}

	keep := make(map[string]bool, len(live))
	for _, id := range live {
		keep[id] = true
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ioErr("purge stale: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	purged := []string{}
	for _, id := range stored {
		if keep[id] {
			continue
		}
		if err := deleteWindowRows(ctx, tx, id); err != nil {
			return nil, ioErr("purge stale", err)
		}
		purged = append(purged, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, ioErr("purge stale: commit", err)
	}
	return purged, nil
}

func deleteWindowRows(ctx context.Context, ex execer, windowID string) error {
	for _, q := range []string{
		`DELETE FROM vertices WHERE window_id = ?`,
		`DELETE FROM subcubes WHERE window_id = ?`,
		`DELETE FROM cubes WHERE window_id = ?`,
	} {
		if _, err := deleteRows(ctx, ex, q, windowID); err != nil {
			return err
		}
	}
	return nil
}

func deleteRows(ctx context.Context, ex execer, query string, args ...any) (int, error) {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

var _ execer = (*sql.Tx)(nil)
