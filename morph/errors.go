package morph

import (
	"errors"
	"fmt"
)

// ErrEmptyKeyframes is returned by TweenedCommands when no keyframe values
// are supplied.
var ErrEmptyKeyframes = errors.New("morph: no keyframe values")

// Error reports malformed command data at a given command index.
type Error struct {
	Index int
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("morph: command %d: %s", e.Index, e.Msg)
}

// SyntaxError reports a path-data parse failure at a byte offset.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("morph: path data offset %d: %s", e.Offset, e.Msg)
}
