/*
Package tableau serves a live 3D scene graph to remote viewers and plays back
prerecorded captures (point cloud, camera pose and image per frame) inside it.

# Concept

The scene is a tree of path-addressed nodes (frames, point clouds, camera
frustums, images). Every change goes through a transaction: the mutations it
collects are published to viewers as one ordered batch, or not at all, so a
viewer never sees a half-applied state. The playback controller relies on
this to hide one frame and show the next in the same batch, keeping exactly
one frame visible at all times.

# Usage

	src := memory.NewSynthetic(memory.SyntheticConfig{Frames: 60, Points: 2000, FPS: 30})
	srv := tableau.New(src, tableau.WithMetrics(observability.NewMetrics()))
	if err := srv.Start(ctx); err != nil {
		log.Fatal(err)
	}
	go srv.Run(ctx)
	http.ListenAndServe(":8080", srv.Handler())

Viewers connect to GET /events and receive the full scene, then every batch.
Controls are driven over HTTP (/gui, /playback) or MCP.

# Packages

  - pkg/scene: registry, transactions and node handles.
  - pkg/gui: sliders, checkboxes and buttons with change callbacks.
  - pkg/playback: the frame playback state machine.
  - pkg/adapters: HTTP/SSE, Redis, MQTT, MCP and in-memory adapters.
*/
package tableau
