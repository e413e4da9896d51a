// Package memory provides in-memory adapters: a FrameSource over preloaded
// frames, a synthetic capture generator for demos, and a Sink that records
// published batches for tests.
package memory
