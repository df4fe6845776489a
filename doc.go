// Package vela is a retained-mode vector animation engine.
//
// Vela turns a decoded vector document ([vdoc.Document]) into a scene graph
// of [Node] values, keeps paint inheritance, masks and cross-document
// references consistent as the tree changes, and drives per-frame rendering:
// world transforms, culling, lazy mask rendering, path morphing and draw
// command emission. Pixels are produced by a [Rasterizer]; two backends live
// under raster/: ggraster (CPU, gogpu/gg) and ebitenraster (GPU,
// [Ebitengine]).
//
// # Quick start
//
//	doc, err := vdoc.Decode(f, "anim.svg")
//	if err != nil { ... }
//	scene, err := vela.Build(doc, vela.DefaultOptions())
//	if err != nil { ... }
//	scene.Play()
//	ebitenraster.Run(scene, ebitenraster.RunConfig{Title: "anim"})
//
// For headless rendering, seek and draw into a CPU rasterizer:
//
//	r := ggraster.New(640, 480)
//	scene.GotoAndStop(1500 * time.Millisecond)
//	if err := scene.Draw(r); err != nil { ... }
//	r.SavePNG("frame.png")
//
// # Frames
//
// [Scene.Draw] runs one frame: apply finished external loads, recompute
// dirty world transforms, advance the timeline and every animated path,
// cull nodes outside the viewport, render referenced masks into offscreen
// surfaces, then submit the main tree's [DrawCommand] list to the screen.
// Culling is reverted before Draw returns, whatever happens.
//
// Time is quantized by [AnimationController] and the scene's MaxFPS, so two
// draws at the same timeline position produce the same geometry.
//
// # Paints and masks
//
// Fill and stroke are resolved through an inheritance chain of paint
// records; a node inherits only what it does not set itself. Masks are kept
// outside the main tree and rendered lazily, once per frame, into surfaces
// the [Rasterizer] allocates on demand.
//
// # External documents
//
// A use element that references another document is resolved through
// [Options].Loader in the background. The result is built into a shell scene
// on the next Update or Draw; loads that finish after [Scene.Destroy] are
// discarded.
//
// # Interaction
//
// Hosts feed pointer state with [Scene.Pointer]; callbacks registered with
// [Scene.OnClick], [Scene.OnDrag] and friends receive the topmost node under
// the pointer. [Script] replays clicks, drags, seeks and screenshots for
// automated runs.
//
// # Logging
//
// Vela logs through [log/slog]. Output is discarded until [SetLogger] is
// called; [Options].Logger overrides it per scene.
//
// [Ebitengine]: https://ebitengine.org
package vela
