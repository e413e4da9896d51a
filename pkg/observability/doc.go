/*
Package observability turns scene and playback lifecycle events into
structured logs and Prometheus metrics.

Both are exposed as domain.LifecycleHooks; Merge combines them so a single
value can be passed to the transaction manager, the playback controller and
the viewer hub.
*/
package observability
