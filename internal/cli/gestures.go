package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/autotap/internal/engine"
	"github.com/roach88/autotap/internal/gesture"
)

// defaultGestures is what run dispatches when no gesture is named.
var defaultGestures = []string{
	"click:540,960",
	"swipe:540,1600:540,600",
	"path:200,800:540,600:880,800",
}

// gestureArg is a parsed gesture argument:
//
//	click:X,Y
//	swipe:X1,Y1:X2,Y2
//	path:X1,Y1:X2,Y2[:X3,Y3...]
type gestureArg struct {
	raw    string
	kind   gesture.Kind
	points []gesture.Point
}

func parseGestureArg(s string) (gestureArg, error) {
	name, rest, ok := strings.Cut(s, ":")
	if !ok {
		return gestureArg{}, fmt.Errorf("gesture %q: expected kind:points", s)
	}

	var pts []gesture.Point
	for _, field := range strings.Split(rest, ":") {
		p, err := parsePoint(field)
		if err != nil {
			return gestureArg{}, fmt.Errorf("gesture %q: %w", s, err)
		}
		pts = append(pts, p)
	}

	g := gestureArg{raw: s, points: pts}
	switch name {
	case "click", "tap":
		g.kind = gesture.KindTap
		if len(pts) != 1 {
			return gestureArg{}, fmt.Errorf("gesture %q: click takes one point, got %d", s, len(pts))
		}
	case "swipe":
		g.kind = gesture.KindSwipe
		if len(pts) != 2 {
			return gestureArg{}, fmt.Errorf("gesture %q: swipe takes two points, got %d", s, len(pts))
		}
	case "path":
		g.kind = gesture.KindPath
		if len(pts) < 2 {
			return gestureArg{}, fmt.Errorf("gesture %q: path takes at least two points, got %d", s, len(pts))
		}
	default:
		return gestureArg{}, fmt.Errorf("gesture %q: unknown kind %q (click, swipe, path)", s, name)
	}
	return g, nil
}

func parsePoint(s string) (gesture.Point, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return gesture.Point{}, fmt.Errorf("point %q: expected X,Y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return gesture.Point{}, fmt.Errorf("point %q: bad x: %w", s, err)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return gesture.Point{}, fmt.Errorf("point %q: bad y: %w", s, err)
	}
	return gesture.Pt(x, y), nil
}

func parseGestureArgs(args []string) ([]gestureArg, error) {
	if len(args) == 0 {
		args = defaultGestures
	}
	out := make([]gestureArg, 0, len(args))
	for _, a := range args {
		g, err := parseGestureArg(a)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// dispatch performs the gesture and reports the engine's verdict.
func (g gestureArg) dispatch(ctx context.Context, e *engine.Engine, opts ...engine.TimingOption) bool {
	switch g.kind {
	case gesture.KindTap:
		p := g.points[0]
		return e.Click(ctx, p.X, p.Y, opts...)
	case gesture.KindSwipe:
		from, to := g.points[0], g.points[1]
		return e.Swipe(ctx, from.X, from.Y, to.X, to.Y, opts...)
	default:
		return e.SwipePath(ctx, g.points, opts...)
	}
}
