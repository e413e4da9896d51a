/*
Package domain contains the data model of the scene server.

It defines the scene node variants, the mutations a transaction collects, the
batches handed to publish sinks, recorded frames, and the playback and control
state shared with viewers. The package is free of I/O and synchronization;
ownership and locking live in the scene package.

# Key Entities

  - Node: a path-addressed entry of the scene graph with a typed Payload.
  - Mutation / Batch: one committed transaction as published to viewers.
  - Snapshot: the full committed registry, parents first.
  - Frame: one timestep produced by a frame source.
  - PlaybackState / ControlState: transport and GUI state.
*/
package domain
