package network

import "math"

// mobilityWindow is the number of recent positions kept for heading-change
// and curvature estimation.
const mobilityWindow = 5

type xy struct{ x, y float64 }

// mobilityTracker incrementally estimates heading-change rate and path
// curvature from a bounded window of recent 2D positions, and derives a
// stability score from both.
type mobilityTracker struct {
	buf []xy
}

func newMobilityTracker() *mobilityTracker {
	return &mobilityTracker{buf: make([]xy, 0, mobilityWindow)}
}

// update appends a new sample (dropping the oldest once the window is full)
// and returns the current (heading_change_rate, path_curvature, stability).
func (t *mobilityTracker) update(x, y float64) (headingChangeRate, pathCurvature, stability float64) {
	t.buf = append(t.buf, xy{x, y})
	if len(t.buf) > mobilityWindow {
		t.buf = t.buf[len(t.buf)-mobilityWindow:]
	}

	headingChangeRate = computeHeadingChangeRate(t.buf)
	pathCurvature = computePathCurvature(t.buf)
	stability = 1.0 / (1.0 + headingChangeRate + pathCurvature)
	return
}

func computeHeadingChangeRate(positions []xy) float64 {
	if len(positions) < 3 {
		return 0.0
	}

	headings := make([]float64, 0, len(positions)-1)
	hasHeading := make([]bool, 0, len(positions)-1)
	for i := 0; i < len(positions)-1; i++ {
		dx := positions[i+1].x - positions[i].x
		dy := positions[i+1].y - positions[i].y
		if dx == 0 && dy == 0 {
			hasHeading = append(hasHeading, false)
			headings = append(headings, 0)
			continue
		}
		headings = append(headings, math.Atan2(dy, dx))
		hasHeading = append(hasHeading, true)
	}

	var valid []float64
	for i, h := range headings {
		if hasHeading[i] {
			valid = append(valid, h)
		}
	}
	if len(valid) < 2 {
		return 0.0
	}

	var totalChange float64
	count := 0
	prev := valid[0]
	for _, h := range valid[1:] {
		diff := math.Mod(h-prev+math.Pi, 2*math.Pi) - math.Pi
		if diff < -math.Pi {
			diff += 2 * math.Pi
		}
		totalChange += math.Abs(diff)
		prev = h
		count++
	}
	if count == 0 {
		return 0.0
	}
	return totalChange / float64(count)
}

func computePathCurvature(positions []xy) float64 {
	if len(positions) < 3 {
		return 0.0
	}

	var pathLength float64
	for i := 1; i < len(positions); i++ {
		dx := positions[i].x - positions[i-1].x
		dy := positions[i].y - positions[i-1].y
		pathLength += math.Hypot(dx, dy)
	}
	if pathLength == 0 {
		return 0.0
	}

	var totalAngle float64
	for i := 1; i < len(positions)-1; i++ {
		v1x, v1y := positions[i].x-positions[i-1].x, positions[i].y-positions[i-1].y
		v2x, v2y := positions[i+1].x-positions[i].x, positions[i+1].y-positions[i].y
		len1, len2 := math.Hypot(v1x, v1y), math.Hypot(v2x, v2y)
		if len1 == 0 || len2 == 0 {
			continue
		}
		dot := v1x*v2x + v1y*v2y
		cosAngle := math.Max(-1.0, math.Min(1.0, dot/(len1*len2)))
		totalAngle += math.Abs(math.Acos(cosAngle))
	}
	return totalAngle / pathLength
}
