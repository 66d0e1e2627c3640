package geometry

import "github.com/piwi3910/PitPlan/internal/model"

// ClipFootprintByHalfPlane clips the footprint against a single half-plane
// using the Sutherland-Hodgman algorithm, keeping the part where
// v·direction >= threshold. Returns nil when fewer than 3 vertices survive.
func ClipFootprintByHalfPlane(f model.Footprint, direction model.Vertex, threshold float64) model.Footprint {
	if !f.Valid() {
		return nil
	}

	n := len(f)
	output := make(model.Footprint, 0, n+1)
	for i := 0; i < n; i++ {
		current := f[i]
		next := f[(i+1)%n]
		curDist := current.Dot(direction) - threshold
		nextDist := next.Dot(direction) - threshold
		curInside := curDist >= 0
		nextInside := nextDist >= 0

		switch {
		case curInside && nextInside:
			output = append(output, next)
		case curInside && !nextInside:
			output = append(output, planeIntersection(current, next, curDist, nextDist))
		case !curInside && nextInside:
			output = append(output, planeIntersection(current, next, curDist, nextDist))
			output = append(output, next)
		}
	}

	output = dropDuplicates(output)
	if len(output) < 3 {
		return nil
	}
	return output
}

// planeIntersection returns the point on segment a->b where the signed
// distance to the clip line is zero.
func planeIntersection(a, b model.Vertex, da, db float64) model.Vertex {
	t := da / (da - db)
	return model.Vertex{
		X: a.X + t*(b.X-a.X),
		Y: a.Y + t*(b.Y-a.Y),
	}
}

// dropDuplicates removes consecutive repeated vertices, including the wrap
// from last to first, which appear when the clip line passes through a vertex.
func dropDuplicates(f model.Footprint) model.Footprint {
	const eps = 1e-9
	same := func(a, b model.Vertex) bool {
		dx, dy := a.X-b.X, a.Y-b.Y
		return dx*dx+dy*dy <= eps*eps
	}
	out := f[:0]
	for _, v := range f {
		if len(out) > 0 && same(out[len(out)-1], v) {
			continue
		}
		out = append(out, v)
	}
	for len(out) > 1 && same(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
	}
	return out
}
