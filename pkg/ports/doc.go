/*
Package ports defines the driven ports (interfaces) of the scene server.

These interfaces decouple the core (scene, gui, playback) from the frame
loaders and transports that surround it.

# Key Interfaces

  - FrameSource: yields prerecorded frames by index (e.g., memory.Source).
  - Sink: receives each committed transaction as one Batch (e.g., the SSE hub, Redis, MQTT).
  - DistributedLocker: guards single-authority ownership of a scene across replicas.
*/
package ports
