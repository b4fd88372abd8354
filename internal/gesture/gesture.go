package gesture

import (
	"errors"
	"fmt"
	"time"
)

// ErrEmptyPath is returned when a path has no points at all.
var ErrEmptyPath = errors.New("gesture: path has no points")

// Point is a screen coordinate in pixels.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Kind names the public operation a request was built for.
type Kind string

const (
	KindTap   Kind = "tap"
	KindSwipe Kind = "swipe"
	KindPath  Kind = "path"
)

// Stroke is a single continuous pointer path.
type Stroke struct {
	Path     []Point
	Delay    time.Duration
	Duration time.Duration
}

// Request is the unit submitted to the host primitive.
type Request struct {
	Kind    Kind
	Strokes []Stroke
}

// Terminal returns the last stroke of the request.
// The second return value is false for a request without strokes.
func (r Request) Terminal() (Stroke, bool) {
	if len(r.Strokes) == 0 {
		return Stroke{}, false
	}
	return r.Strokes[len(r.Strokes)-1], true
}

// DegenerateError describes a request that a host would drop.
type DegenerateError struct {
	Stroke int // index of the offending stroke
	Index  int // index of the repeated point, -1 for a short path
	Point  Point
}

func (e *DegenerateError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("gesture: stroke %d has fewer than 2 points", e.Stroke)
	}
	return fmt.Sprintf("gesture: stroke %d repeats point %s at index %d", e.Stroke, e.Point, e.Index)
}

// Validate checks the non-degeneracy invariants.
func (r Request) Validate() error {
	if len(r.Strokes) == 0 {
		return ErrEmptyPath
	}
	for si, s := range r.Strokes {
		if len(s.Path) < 2 {
			return &DegenerateError{Stroke: si, Index: -1}
		}
		for i := 1; i < len(s.Path); i++ {
			if s.Path[i] == s.Path[i-1] {
				return &DegenerateError{Stroke: si, Index: i, Point: s.Path[i]}
			}
		}
	}
	return nil
}

// IsDegenerate reports whether err came from Validate rejecting a path.
func IsDegenerate(err error) bool {
	var de *DegenerateError
	return errors.As(err, &de) || errors.Is(err, ErrEmptyPath)
}
