package gesture

import "time"

const (
	// MinStrokeDuration is the shortest duration accepted by hosts.
	MinStrokeDuration = time.Millisecond

	// MinPathMove is the floor for the moving part of a multi-point path.
	// Shorter moves are reported as cancelled on some hosts.
	MinPathMove = 80 * time.Millisecond
)

func atLeast(d, floor time.Duration) time.Duration {
	if d < floor {
		return floor
	}
	return d
}

// NewTap builds a single-stroke tap at p held for press.
func NewTap(p Point, press, delay time.Duration) Request {
	return Request{
		Kind: KindTap,
		Strokes: []Stroke{{
			Path:     Tap(p),
			Delay:    atLeast(delay, 0),
			Duration: atLeast(press, MinStrokeDuration),
		}},
	}
}

// NewSwipe builds a straight single-stroke swipe.
func NewSwipe(from, to Point, duration, delay time.Duration) Request {
	return Request{
		Kind: KindSwipe,
		Strokes: []Stroke{{
			Path:     Swipe(from, to),
			Delay:    atLeast(delay, 0),
			Duration: atLeast(duration, MinStrokeDuration),
		}},
	}
}

// NewPath builds a multi-point swipe. The hold time is folded into the
// stroke duration instead of a continued stroke, which some hosts cancel.
func NewPath(points []Point, move, hold, delay time.Duration) (Request, error) {
	path, err := Path(points)
	if err != nil {
		return Request{}, err
	}
	total := atLeast(move, MinPathMove) + atLeast(hold, 0)
	return Request{
		Kind: KindPath,
		Strokes: []Stroke{{
			Path:     path,
			Delay:    atLeast(delay, 0),
			Duration: atLeast(total, MinPathMove),
		}},
	}, nil
}
