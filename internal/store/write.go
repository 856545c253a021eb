package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/cubefield/internal/model"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutCube inserts or replaces a cube record.
func (s *Store) PutCube(ctx context.Context, c model.Cube) error {
	value, err := marshalCubeValue(c)
	if err != nil {
		return fmt.Errorf("put cube: %w", err)
	}
	attrs, err := marshalCubeAttrs(c)
	if err != nil {
		return fmt.Errorf("put cube: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cubes (window_id, id, value, attrs, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(window_id, id) DO UPDATE SET
			value = excluded.value,
			attrs = excluded.attrs,
			updated_at = excluded.updated_at
	`, c.WindowID, c.ID, value, attrs, s.stamp())
	return ioErr("put cube", err)
}

// PutSubCube inserts or replaces a subcube record as given.
// Use WriteSubCube to resolve the symbol against the parent cube.
func (s *Store) PutSubCube(ctx context.Context, sub model.SubCube) error {
	return ioErr("put subcube", s.putSubCube(ctx, s.db, sub))
}

func (s *Store) putSubCube(ctx context.Context, ex execer, sub model.SubCube) error {
	var center any
	if sub.Center != nil {
		data, err := json.Marshal(sub.Center)
		if err != nil {
			return fmt.Errorf("marshal subcube center: %w", err)
		}
		center = string(data)
	}
	var policy any
	if sub.Policy != "" {
		policy = sub.Policy
	}
	ids := sub.VertexIDs
	if ids == nil {
		ids = []string{}
	}
	vertexIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal vertex ids: %w", err)
	}
	origin := sub.OriginID
	if origin == "" {
		origin = sub.CubeID
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO subcubes
		(window_id, cube_id, id, center, origin_id, blend_policy, vertex_ids, ord, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(window_id, cube_id, id) DO UPDATE SET
			center = excluded.center,
			origin_id = excluded.origin_id,
			blend_policy = excluded.blend_policy,
			vertex_ids = excluded.vertex_ids,
			ord = excluded.ord,
			updated_at = excluded.updated_at
	`, sub.WindowID, sub.CubeID, sub.ID, center, origin, policy, string(vertexIDs), sub.Order, s.stamp())
	return err
}

// PutVertex inserts or replaces one vertex. An empty ID is derived from
// SubCubeID and Index.
func (s *Store) PutVertex(ctx context.Context, v model.Vertex) error {
	return ioErr("put vertex", s.putVertex(ctx, s.db, v))
}

// PutVertices writes all vertices in one transaction.
func (s *Store) PutVertices(ctx context.Context, vs []model.Vertex) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioErr("put vertices: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, v := range vs {
		if err := s.putVertex(ctx, tx, v); err != nil {
			return ioErr("put vertices", err)
		}
	}
	return ioErr("put vertices: commit", tx.Commit())
}

func (s *Store) putVertex(ctx context.Context, ex execer, v model.Vertex) error {
	if v.Index < 0 || v.Index >= model.VerticesPerSubCube {
		return fmt.Errorf("vertex index %d out of range", v.Index)
	}
	id := v.ID
	if id == "" {
		id = model.VertexID(v.SubCubeID, v.Index)
	} else if sym, idx, err := model.ParseVertexID(id); err != nil {
		return err
	} else if sym != v.SubCubeID || idx != v.Index {
		return fmt.Errorf("vertex id %q does not name vertex %d of subcube %q", id, v.Index, v.SubCubeID)
	}
	value, err := marshalVertexValue(v)
	if err != nil {
		return err
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO vertices (window_id, cube_id, sub_cube_id, id, idx, value, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(window_id, cube_id, id) DO UPDATE SET
			sub_cube_id = excluded.sub_cube_id,
			idx = excluded.idx,
			value = excluded.value,
			updated_at = excluded.updated_at
	`, v.WindowID, v.CubeID, v.SubCubeID, id, v.Index, value, s.stamp())
	return err
}

// WriteSubCube persists one subcube and its vertices atomically.
//
// The parent cube is re-read inside the transaction: when it exists and
// sub.Order indexes its symbol list, that symbol is the subcube id; otherwise
// sub.ID is kept. Vertex ids and parent references are rewritten to the
// resolved symbol. Either the subcube and every vertex are written or nothing is.
//
// Returns the resolved symbol.
func (s *Store) WriteSubCube(ctx context.Context, sub model.SubCube, vertices []model.Vertex) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", ioErr("write subcube: begin tx", err)
	}
	defer tx.Rollback() // No-op if committed

	sym, err := resolveSymbol(ctx, tx, sub)
	if err != nil {
		return "", ioErr("write subcube: read cube", err)
	}
	sub.ID = sym
	sub.VertexIDs = model.VertexIDs(sym)

	if err := s.putSubCube(ctx, tx, sub); err != nil {
		return "", ioErr("write subcube", err)
	}

	for _, v := range vertices {
		v.WindowID = sub.WindowID
		v.CubeID = sub.CubeID
		v.SubCubeID = sym
		v.ID = model.VertexID(sym, v.Index)
		if err := s.putVertex(ctx, tx, v); err != nil {
			return "", ioErr("write subcube: vertex", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", ioErr("write subcube: commit", err)
	}
	return sym, nil
}

func resolveSymbol(ctx context.Context, tx *sql.Tx, sub model.SubCube) (string, error) {
	var value string
	err := tx.QueryRowContext(ctx, `
		SELECT value FROM cubes WHERE window_id = ? AND id = ?
	`, sub.WindowID, sub.CubeID).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return sub.ID, nil
	}
	if err != nil {
		return "", err
	}

	ids, err := legacySubIDs(value)
	if err != nil {
		return "", err
	}
	if sub.Order >= 0 && sub.Order < len(ids) {
		return ids[sub.Order], nil
	}
	return sub.ID, nil
}
