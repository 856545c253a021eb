// Package store provides SQLite-backed durable storage for the cube hierarchy.
//
// Three collections mirror the live scene:
//   - cubes: one row per (window, cube), value [center, subIds, corners]
//   - subcubes: one row per (window, cube, symbol), with its traversal order
//   - vertices: one row per (window, cube, "{symbol}_{index}")
//
// Every row carries the owning window id so that instances sharing one
// database never overwrite each other and a whole window can be purged.
//
// # Patterns
//
// Idempotent upserts: every write is INSERT ... ON CONFLICT DO UPDATE on the
// natural key, so the last write for an identity wins.
//
// Atomic logical writes: operations that touch more than one collection
// (WriteSubCube, DeleteCube, DeleteWindow) run in one transaction.
//
// Order is a column, not a query property: callers that care about subcube
// order get rows sorted by ord, never by insertion.
//
// # Schema versions
//
//   - 1: cubes only; subcube symbols embedded in the cube value
//   - 2: subcubes and vertices tables; legacy subcube rows synthesized from
//     the embedded list (list position becomes ord)
//
// The synthesis step runs on every Open and skips cubes that already have
// subcube rows, so it is idempotent. A failed synthesis is reported as a
// *MigrationError next to a usable Store.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
package store
