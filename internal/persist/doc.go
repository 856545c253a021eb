// Package persist runs store writes off the frame loop.
//
// A Writer owns a fixed set of shards, each drained by one goroutine. Every
// job carries an entity key; a key always hashes to the same shard, so writes
// for one entity run one at a time in submission order while writes for
// different entities proceed concurrently.
//
// A job still waiting for its turn is replaced when the same key is submitted
// again. Only the latest state of an entity reaches the store, and a burst of
// per-frame updates costs one write.
//
// Failures are logged, reported to the Observer and dropped. The live scene
// stays authoritative; the store is a durable cache.
package persist
