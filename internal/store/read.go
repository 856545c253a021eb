package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/cubefield/internal/model"
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// GetCube returns one cube. Returns ErrNotFound if it does not exist.
func (s *Store) GetCube(ctx context.Context, windowID, id string) (model.Cube, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT window_id, id, value, attrs
		FROM cubes
		WHERE window_id = ? AND id = ?
	`, windowID, id)

	c, err := scanCube(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Cube{}, ErrNotFound
	}
	if err != nil {
		return model.Cube{}, ioErr("get cube", err)
	}
	return c, nil
}

// CubesByWindow returns every cube stored under a window, ordered by id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) CubesByWindow(ctx context.Context, windowID string) ([]model.Cube, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT window_id, id, value, attrs
		FROM cubes
		WHERE window_id = ?
		ORDER BY id COLLATE BINARY ASC
	`, windowID)
	if err != nil {
		return nil, ioErr("query cubes", err)
	}
	defer rows.Close()

	cubes := []model.Cube{}
	for rows.Next() {
		c, err := scanCube(rows)
		if err != nil {
			return nil, ioErr("scan cube", err)
		}
		cubes = append(cubes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate cubes", err)
	}
	return cubes, nil
}

func scanCube(r rowScanner) (model.Cube, error) {
	var (
		c     model.Cube
		value string
		attrs sql.NullString
	)
	if err := r.Scan(&c.WindowID, &c.ID, &value, &attrs); err != nil {
		return c, err
	}
	if err := unmarshalCubeValue(value, &c); err != nil {
		return c, err
	}
	if attrs.Valid && attrs.String != "" {
		if err := unmarshalCubeAttrs(attrs.String, &c); err != nil {
			return c, err
		}
	}
	return c, nil
}

// SubCubesByCube returns the subcubes of one cube ordered by ord, then id.
// Legacy rows come back with a nil Center and an empty Policy.
func (s *Store) SubCubesByCube(ctx context.Context, windowID, cubeID string) ([]model.SubCube, error) {
	return s.querySubCubes(ctx, "query subcubes", `
		SELECT window_id, cube_id, id, center, origin_id, blend_policy, vertex_ids, ord, updated_at
		FROM subcubes
		WHERE window_id = ? AND cube_id = ?
		ORDER BY ord ASC, id COLLATE BINARY ASC
	`, windowID, cubeID)
}

// SubCubesChangedSince returns subcubes of a window written after the given
// change marker, oldest first.
func (s *Store) SubCubesChangedSince(ctx context.Context, windowID string, since int64) ([]model.SubCube, error) {
	return s.querySubCubes(ctx, "query changed subcubes", `
		SELECT window_id, cube_id, id, center, origin_id, blend_policy, vertex_ids, ord, updated_at
		FROM subcubes
		WHERE window_id = ? AND updated_at > ?
		ORDER BY updated_at ASC, cube_id COLLATE BINARY ASC, ord ASC
	`, windowID, since)
}

func (s *Store) querySubCubes(ctx context.Context, op, query string, args ...any) ([]model.SubCube, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ioErr(op, err)
	}
	defer rows.Close()

	subs := []model.SubCube{}
	for rows.Next() {
		sub, err := scanSubCube(rows)
		if err != nil {
			return nil, ioErr(op, err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr(op, err)
	}
	return subs, nil
}

func scanSubCube(r rowScanner) (model.SubCube, error) {
	var (
		sub       model.SubCube
		center    sql.NullString
		policy    sql.NullString
		vertexIDs string
	)
	if err := r.Scan(&sub.WindowID, &sub.CubeID, &sub.ID, &center, &sub.OriginID,
		&policy, &vertexIDs, &sub.Order, &sub.UpdatedAt); err != nil {
		return sub, err
	}
	if center.Valid && center.String != "" && center.String != "null" {
		var v model.Vec3
		if err := json.Unmarshal([]byte(center.String), &v); err != nil {
			return sub, fmt.Errorf("unmarshal subcube center: %w", err)
		}
		sub.Center = &v
	}
	if policy.Valid {
		sub.Policy = policy.String
	}
	sub.VertexIDs = []string{}
	if err := json.Unmarshal([]byte(vertexIDs), &sub.VertexIDs); err != nil {
		return sub, fmt.Errorf("unmarshal vertex ids: %w", err)
	}
	if sub.VertexIDs == nil {
		sub.VertexIDs = []string{}
	}
	return sub, nil
}

// VerticesBySubCube returns the vertices of one subcube ordered by index.
func (s *Store) VerticesBySubCube(ctx context.Context, windowID, cubeID, subCubeID string) ([]model.Vertex, error) {
	return s.queryVertices(ctx, `
		SELECT window_id, cube_id, sub_cube_id, id, idx, value
		FROM vertices
		WHERE window_id = ? AND cube_id = ? AND sub_cube_id = ?
		ORDER BY idx ASC
	`, windowID, cubeID, subCubeID)
}

// VerticesByCube returns every vertex of a cube ordered by subcube, then index.
func (s *Store) VerticesByCube(ctx context.Context, windowID, cubeID string) ([]model.Vertex, error) {
	return s.queryVertices(ctx, `
		SELECT window_id, cube_id, sub_cube_id, id, idx, value
		FROM vertices
		WHERE window_id = ? AND cube_id = ?
		ORDER BY sub_cube_id COLLATE BINARY ASC, idx ASC
	`, windowID, cubeID)
}

func (s *Store) queryVertices(ctx context.Context, query string, args ...any) ([]model.Vertex, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ioErr("query vertices", err)
	}
	defer rows.Close()

	vs := []model.Vertex{}
	for rows.Next() {
		var (
			v     model.Vertex
			value string
		)
		if err := rows.Scan(&v.WindowID, &v.CubeID, &v.SubCubeID, &v.ID, &v.Index, &value); err != nil {
			return nil, ioErr("scan vertex", err)
		}
		if err := unmarshalVertexValue(value, &v); err != nil {
			return nil, ioErr("scan vertex", err)
		}
		vs = append(vs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate vertices", err)
	}
	return vs, nil
}

// WindowIDs returns every window id that owns at least one row in any table.
func (s *Store) WindowIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT window_id FROM cubes
		UNION SELECT window_id FROM subcubes
		UNION SELECT window_id FROM vertices
		ORDER BY 1
	`)
	if err != nil {
		return nil, ioErr("query windows", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, ioErr("scan window", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, ioErr("iterate windows", err)
	}
	return ids, nil
}
