package gesture

// nudge shifts p by one unit on the X axis, towards the origin when it can.
func nudge(p Point) Point {
	if p.X > 0 {
		return Point{X: p.X - 1, Y: p.Y}
	}
	return Point{X: p.X + 1, Y: p.Y}
}

// Tap returns the two-point path used for a single tap at p.
// Hosts ignore zero-length paths, so the second point is nudged.
func Tap(p Point) []Point {
	return []Point{p, nudge(p)}
}

// Swipe returns the path from one point to another, nudging the end point
// when both are identical.
func Swipe(from, to Point) []Point {
	if from == to {
		to = nudge(to)
	}
	return []Point{from, to}
}

// Path collapses consecutive duplicate points and guarantees that the result
// has at least two points and a non-zero final segment.
// The input slice is never modified.
func Path(points []Point) ([]Point, error) {
	if len(points) == 0 {
		return nil, ErrEmptyPath
	}

	norm := make([]Point, 0, len(points))
	for _, p := range points {
		if n := len(norm); n > 0 && norm[n-1] == p {
			continue
		}
		norm = append(norm, p)
	}

	if len(norm) < 2 {
		return Tap(points[0]), nil
	}

	// Dedup already separates the last two points; the check stays so the
	// invariant does not depend on the loop above.
	if last := len(norm) - 1; norm[last] == norm[last-1] {
		norm[last] = nudge(norm[last])
	}
	return norm, nil
}

// Normalize rewrites every stroke of r with Path.
// A request that already satisfies the invariants is returned unchanged.
func Normalize(r Request) (Request, error) {
	if len(r.Strokes) == 0 {
		return r, ErrEmptyPath
	}
	out := Request{Kind: r.Kind, Strokes: make([]Stroke, len(r.Strokes))}
	for i, s := range r.Strokes {
		path, err := Path(s.Path)
		if err != nil {
			return Request{}, err
		}
		s.Path = path
		out.Strokes[i] = s
	}
	return out, nil
}
