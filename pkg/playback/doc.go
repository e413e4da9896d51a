/*
Package playback implements the playback controller: a small state machine
over a prerecorded capture that keeps exactly one frame subtree of the scene
visible.

Initialize loads every frame from a ports.FrameSource into its own subtree
under /frames and registers the Playback controls (Timestep, Next Frame,
Prev Frame, Playing, FPS) on a gui.Panel. Run ticks while Playing is set.

State lives in explicit fields of the Controller. The visible frame index is
only written when the transaction that swaps frame visibility commits, so it
never disagrees with what viewers have been sent.
*/
package playback
