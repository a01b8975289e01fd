// Package gpu records the two passes of the depth-of-field demo on a
// hal.Device.
//
// # Architecture Overview
//
//	ScenePass (cube grid) -> scene color + depth -> PostPass (DoF) -> Presenter target
//
// Key components:
//
//   - ScenePass: draws Count×Count cubes into offscreen color and depth
//     targets, one indexed draw per cube with a dynamic uniform offset
//   - PostPass: samples both targets and writes a full-screen quad into the
//     presentation target
//   - Frame: sequences the passes, hands the targets between them, and keeps
//     at most one submission in flight
//   - OffscreenPresenter, SurfacePresenter: where each frame ends up
//   - TrackingDevice: counts live objects per kind so teardown can be checked
//
// # Bind states
//
// Every RenderTarget carries a BindState. A target is Writable while a pass
// renders into it and Readable while a pass samples it, never both, and
// Unbound between passes. Passes refuse targets in the wrong state with a
// *BindingViolation.
//
// # Resource lifetime
//
// Objects are created through a resourceSet and destroyed in reverse order.
// Constructors release everything they created when any step fails, so a
// *ResourceCreationError never leaves objects behind.
package gpu
