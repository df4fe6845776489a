package morph

import (
	"fmt"
	"math"
)

// ClosestFractionalIndex locates keyTime within keyTimes. An exact match
// returns its index; otherwise the result lies between the neighbouring
// indices in proportion to keyTime's position. A keyTime beyond every entry
// returns len(keyTimes).
func ClosestFractionalIndex(keyTime float64, keyTimes []float64) float64 {
	for i, kt := range keyTimes {
		if kt == keyTime {
			return float64(i)
		}
		if kt > keyTime {
			if i == 0 {
				return 0
			}
			prev := keyTimes[i-1]
			return float64(i-1) + (keyTime-prev)/(kt-prev)
		}
	}
	return float64(len(keyTimes))
}

// TweenedCommands returns the path at a fractional keyframe index. Whole
// indices return the keyframe value itself without interpolating.
func TweenedCommands(fractionalIndex float64, keySplines [][4]float64, values [][]Command) ([]Command, error) {
	idx, frac, err := splitIndex(fractionalIndex, len(keySplines), len(values))
	if err != nil {
		return nil, err
	}
	if frac == 0 {
		return values[idx], nil
	}
	return Interpolate(values[idx], values[idx+1], SplineOf(keySplines[idx]))(frac), nil
}

func splitIndex(fi float64, nSplines, nValues int) (int, float64, error) {
	if nValues == 0 {
		return 0, 0, ErrEmptyKeyframes
	}
	if math.IsNaN(fi) || fi < 0 {
		return 0, 0, fmt.Errorf("morph: invalid keyframe index %v", fi)
	}
	idx := int(math.Floor(fi))
	frac := fi - float64(idx)
	if frac == 0 {
		if idx >= nValues {
			return 0, 0, fmt.Errorf("morph: keyframe index %d out of range [0, %d)", idx, nValues)
		}
		return idx, 0, nil
	}
	if idx+1 >= nValues {
		return 0, 0, fmt.Errorf("morph: keyframe index %v has no following keyframe (%d values)", fi, nValues)
	}
	if idx >= nSplines {
		return 0, 0, fmt.Errorf("morph: no keySpline for segment %d (%d splines)", idx, nSplines)
	}
	return idx, frac, nil
}

// Tweener evaluates a keyframed path repeatedly. It builds one interpolator
// per keyframe pair on first use and reuses it afterwards.
type Tweener struct {
	keySplines [][4]float64
	values     [][]Command
	segments   map[int]func(float64) []Command
}

// NewTweener creates a Tweener over the given keyframes.
func NewTweener(keySplines [][4]float64, values [][]Command) *Tweener {
	return &Tweener{
		keySplines: keySplines,
		values:     values,
		segments:   make(map[int]func(float64) []Command),
	}
}

// At returns the path at a fractional keyframe index.
func (tw *Tweener) At(fractionalIndex float64) ([]Command, error) {
	idx, frac, err := splitIndex(fractionalIndex, len(tw.keySplines), len(tw.values))
	if err != nil {
		return nil, err
	}
	if frac == 0 {
		return tw.values[idx], nil
	}
	fn, ok := tw.segments[idx]
	if !ok {
		fn = Interpolate(tw.values[idx], tw.values[idx+1], SplineOf(tw.keySplines[idx]))
		tw.segments[idx] = fn
	}
	return fn(frac), nil
}
