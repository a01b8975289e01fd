// Package dofdemo renders an animated grid of cubes through a depth-of-field
// post effect on top of the gogpu/wgpu HAL.
//
// # Overview
//
// Each frame runs two passes:
//
//	Scene pass  -> offscreen color + depth (32×32 cubes, radial ripple)
//	Post pass   -> presentation target (pass-through, fixed or variable DoF)
//
// The scene targets are bound writable for the first pass, then released
// and rebound as shader inputs for the second. Only one frame is in flight.
//
// # Quick Start
//
//	demo, err := dofdemo.New(device, queue, 1280, 720)
//	if err != nil {
//	    return err
//	}
//	defer demo.Close()
//
//	keys := dofdemo.NewKeyController()
//	keys.Attach(eventSource)
//	clock := dofdemo.NewSystemClock()
//	for !keys.QuitRequested() {
//	    if err := demo.RenderFrame(clock.Elapsed(), keys.Snapshot()); err != nil {
//	        return err
//	    }
//	}
//
// # Controls
//
//   - F: fixed blur, each press increases the strength
//   - V: depth-dependent blur, each press increases the strength
//   - Space: effect off, focus depth reset to 100
//   - Up / Down: move the focus depth by one unit
//   - Escape: quit
//
// # Resources
//
// Every GPU object is created through a tracking device. After Close,
// [Demo.Live] reports zero objects; anything else is a leak.
//
// # Logging
//
// The package is silent by default. [SetLogger] enables structured logging
// for this package, its GPU layer, and the HAL.
package dofdemo
