package store

import (
	"context"
	"database/sql"
	"fmt"
)

// runMigrations applies incremental schema migrations based on user_version,
// then synthesizes legacy subcube rows.
func (s *Store) runMigrations(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// v0 and v1 only differ from v2 by tables and columns that applySchema
	// already created; legacy data is handled by the synthesis step below.
	if version < currentSchemaVersion {
		if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	if _, err := s.SynthesizeLegacySubCubes(ctx); err != nil {
		return err
	}
	return nil
}

// upgradeCubeColumns adds the columns v2 introduced to a legacy cubes table.
// No-op on new databases.
func upgradeCubeColumns(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info(cubes)")
	if err != nil {
		return fmt.Errorf("inspect cubes: %w", err)
	}
	have := map[string]bool{}
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			rows.Close()
			return fmt.Errorf("inspect cubes: %w", err)
		}
		have[name] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("inspect cubes: %w", err)
	}
	rows.Close()

	if len(have) == 0 {
		return nil // table does not exist yet
	}

	columns := []struct{ name, ddl string }{
		{"attrs", "ALTER TABLE cubes ADD COLUMN attrs TEXT"},
		{"updated_at", "ALTER TABLE cubes ADD COLUMN updated_at INTEGER NOT NULL DEFAULT 0"},
	}
	for _, c := range columns {
		if have[c.name] {
			continue
		}
		if _, err := db.ExecContext(ctx, c.ddl); err != nil {
			return fmt.Errorf("migrate to v2: add cubes.%s: %w", c.name, err)
		}
	}
	return nil
}

type legacyCube struct {
	windowID string
	id       string
	value    string
}

// SynthesizeLegacySubCubes creates subcube rows for every cube that has none,
// from the symbol list embedded in the cube value. List position becomes ord;
// center, blend policy and vertex ids stay empty. Existing rows are never
// overwritten and cubes that already have subcubes are skipped, so running
// it any number of times yields the same rows as running it once.
//
// Returns the number of rows inserted. Cubes with malformed values are
// skipped and reported in a *MigrationError.
func (s *Store) SynthesizeLegacySubCubes(ctx context.Context) (int, error) {
	pending, err := s.cubesWithoutSubCubes(ctx)
	if err != nil {
		return 0, &MigrationError{Version: currentSchemaVersion, Err: err}
	}

	var (
		inserted int
		failed   []string
		firstErr error
	)
	for _, c := range pending {
		n, err := s.synthesizeCube(ctx, c)
		if err != nil {
			failed = append(failed, c.windowID+"/"+c.id)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		inserted += n
	}

	if firstErr != nil {
		return inserted, &MigrationError{Version: currentSchemaVersion, Cubes: failed, Err: firstErr}
	}
	return inserted, nil
}

func (s *Store) cubesWithoutSubCubes(ctx context.Context) ([]legacyCube, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.window_id, c.id, c.value
		FROM cubes c
		WHERE NOT EXISTS (
			SELECT 1 FROM subcubes s
			WHERE s.window_id = c.window_id AND s.cube_id = c.id
		)
		ORDER BY c.window_id, c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("query legacy cubes: %w", err)
	}
	defer rows.Close()

	var out []legacyCube
	for rows.Next() {
		var c legacyCube
		if err := rows.Scan(&c.windowID, &c.id, &c.value); err != nil {
			return nil, fmt.Errorf("scan legacy cube: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy cubes: %w", err)
	}
	return out, nil
}

func (s *Store) synthesizeCube(ctx context.Context, c legacyCube) (int, error) {
	subIDs, err := legacySubIDs(c.value)
	if err != nil {
		return 0, fmt.Errorf("cube %s/%s: %w", c.windowID, c.id, err)
	}
	if len(subIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("synthesize subcubes: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted := 0
	for ord, sym := range subIDs {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO subcubes
			(window_id, cube_id, id, center, origin_id, blend_policy, vertex_ids, ord, updated_at)
			VALUES (?, ?, ?, NULL, ?, NULL, '[]', ?, 0)
			ON CONFLICT(window_id, cube_id, id) DO NOTHING
		`, c.windowID, c.id, sym, c.id, ord)
		if err != nil {
			return 0, fmt.Errorf("synthesize subcube %s: %w", sym, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("synthesize subcubes: commit: %w", err)
	}
	return inserted, nil
}
