// Package engine runs the live cube scene.
//
// A Scene holds one cube per peer window, each subdivided into a grid of
// subcubes with eight colored vertices. It is the authoritative copy of the
// hierarchy; the store is a durable cache kept in step through an async
// writer.
//
// # Frame pipeline
//
// Frame advances the scene by one tick:
//  1. ease every cube toward its window's center and apply velocity
//  2. step the compute engine once and sample the color field once
//  3. recolor field-driven cubes from the sample
//  4. blend every subcube's vertex colors into one color
//  5. queue coalesced cube writes
//
// # Threading
//
// Scene methods are safe for concurrent use but are meant to be called from
// one driver goroutine, in lock step with the frame clock. Store writes run on
// the writer's shard goroutines and only ever see copies of scene state.
//
// # Persistence keys
//
// Cube rows are keyed by (this window, peer window id). Subcube rows use the
// canonical symbol of the cell, vertices "{symbol}_{index}". Structural
// rebuilds (SyncWindows, Relayout) write synchronously after draining the
// writer so that deletes never race queued upserts.
package engine
