// Package morph interpolates between vector paths.
//
// Paths are slices of absolute [Command] values, usually obtained from SVG
// path data with [Parse]. [Interpolate] builds a function that morphs one
// path into another even when the two have different numbers or kinds of
// commands:
//
//	from := morph.MustParse("M0,0 L10,0")
//	to := morph.MustParse("M0,0 L0,10")
//	mid := morph.Interpolate(from, to, nil)(0.5) // M0,0 L5,5
//
// The shorter path is lengthened by subdividing its longest segments with de
// Casteljau's algorithm, then each command pair is converted to a common kind
// and every numeric field is blended.
//
// Keyframed animations use [ClosestFractionalIndex] to turn a normalized time
// into a fractional keyframe index and [TweenedCommands] (or a cached
// [Tweener]) to evaluate the path there, easing each segment with its SMIL
// keySpline via [Spline]. Named easings from gween are available through
// [Named].
package morph
