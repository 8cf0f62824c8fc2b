// Package lttb reduces long point sequences to a fixed visual budget with the
// Largest-Triangle-Three-Buckets algorithm.
package lttb

import (
	"math"

	"github.com/jwulff/sensorviz/internal/dataset"
)

// Producer caps, applied before and after downsampling.
const (
	RawLimit  = 100_000 // raw points read from rows
	DrawLimit = 2_000   // points kept after downsampling
)

// Point is an x/y pair.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Downsample returns at most threshold points from data, always keeping the
// first and last. Inputs within budget are returned unchanged. A threshold
// below 3 keeps only the endpoints.
func Downsample(data []Point, threshold int) []Point {
	if len(data) == 0 {
		return []Point{}
	}
	if len(data) <= threshold {
		return data
	}
	idx := Indices(data, threshold)
	out := make([]Point, len(idx))
	for i, j := range idx {
		out[i] = data[j]
	}
	return out
}

// Indices is Downsample reporting the positions of the kept points in data,
// ascending. Callers use it to carry labels alongside the points.
func Indices(data []Point, threshold int) []int {
	n := len(data)
	if n == 0 {
		return []int{}
	}
	if n <= threshold {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	if threshold < 3 {
		if n == 1 {
			return []int{0}
		}
		return []int{0, n - 1}
	}

	buckets := threshold - 2
	interior := n - 2
	// bound returns the first index of bucket i; bucket i spans [bound(i), bound(i+1)).
	bound := func(i int) int {
		return 1 + i*interior/buckets
	}

	sampled := make([]int, 0, threshold)
	sampled = append(sampled, 0)
	a := data[0]

	for i := 0; i < buckets; i++ {
		// Centroid of the next bucket; the last bucket looks at the final point.
		nextStart, nextEnd := bound(i+1), bound(i+2)
		if i == buckets-1 {
			nextStart, nextEnd = n-1, n
		}
		var avgX, avgY float64
		for _, p := range data[nextStart:nextEnd] {
			avgX += p.X
			avgY += p.Y
		}
		count := float64(nextEnd - nextStart)
		avgX /= count
		avgY /= count

		maxArea := -1.0
		chosen := bound(i)
		for j := bound(i); j < bound(i+1); j++ {
			p := data[j]
			area := math.Abs((a.X-avgX)*(p.Y-a.Y)-(a.X-p.X)*(avgY-a.Y)) * 0.5
			if area > maxArea {
				maxArea = area
				chosen = j
			}
		}
		sampled = append(sampled, chosen)
		a = data[chosen]
	}

	return append(sampled, n-1)
}

// ScatterPoints pairs two numeric columns row by row, skipping rows where
// either value is missing or non-finite, and stops after limit points.
func ScatterPoints(rows []dataset.Record, xCol, yCol string, limit int) []Point {
	points := []Point{}
	if xCol == "" || yCol == "" {
		return points
	}
	for _, r := range rows {
		if limit > 0 && len(points) >= limit {
			break
		}
		x, ok := r.Get(xCol).Float()
		if !ok {
			continue
		}
		y, ok := r.Get(yCol).Float()
		if !ok {
			continue
		}
		points = append(points, Point{X: x, Y: y})
	}
	return points
}

// Scatter builds a bounded scatter series for two columns.
func Scatter(rows []dataset.Record, xCol, yCol string) []Point {
	return Downsample(ScatterPoints(rows, xCol, yCol, RawLimit), DrawLimit)
}
