// Package redis provides Redis adapters: a ports.Sink that mirrors committed
// batches to Pub/Sub, and a ports.DistributedLocker that keeps a scene to a
// single authoritative server.
package redis
