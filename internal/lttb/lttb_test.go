package lttb

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwulff/sensorviz/internal/dataset"
)

func TestDownsampleIdentityAtBudget(t *testing.T) {
	points := []Point{{1, 1}, {2, 5}, {3, 2}, {4, 9}, {5, 1}}

	got := Downsample(points, 5)

	assert.Equal(t, points, got)
}

func TestDownsampleEmpty(t *testing.T) {
	assert.Empty(t, Downsample(nil, 10))
	assert.NotNil(t, Downsample(nil, 10))
}

func TestDownsampleSmallThreshold(t *testing.T) {
	points := []Point{{0, 0}, {1, 3}, {2, 1}, {3, 4}}

	assert.Equal(t, []Point{{0, 0}, {3, 4}}, Downsample(points, 2))
	assert.Equal(t, []Point{{0, 0}, {3, 4}}, Downsample(points, 0))
	assert.Equal(t, []Point{{7, 7}}, Downsample([]Point{{7, 7}}, 0))
}

func TestDownsampleKeepsPeak(t *testing.T) {
	points := []Point{{0, 0}, {1, 0}, {2, 0}, {3, 10}, {4, 0}, {5, 0}, {6, 0}}

	got := Downsample(points, 3)

	require.Len(t, got, 3)
	assert.Equal(t, Point{3, 10}, got[1], "the spike dominates the single bucket")
}

func TestDownsampleProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, n := range []int{1, 2, 3, 10, 97, 1000, 5003} {
		points := make([]Point, n)
		for i := range points {
			points[i] = Point{X: float64(i), Y: math.Sin(float64(i)/7) + rng.Float64()}
		}
		for _, m := range []int{2, 3, 5, 50, 2000} {
			got := Downsample(points, m)

			want := n
			if m < n {
				want = m
			}
			require.Len(t, got, want, "n=%d m=%d", n, m)
			assert.Equal(t, points[0], got[0])
			assert.Equal(t, points[n-1], got[len(got)-1])

			// selected points keep input order
			for i := 1; i < len(got); i++ {
				assert.Less(t, got[i-1].X, got[i].X+1e-9)
			}
		}
	}
}

func TestScatterPoints(t *testing.T) {
	rows := []dataset.Record{
		{"a": dataset.Number(1), "b": dataset.Number(2)},
		{"a": dataset.Text("3"), "b": dataset.Text("4.5")},
		{"a": dataset.Missing(), "b": dataset.Number(1)},
		{"a": dataset.Number(math.NaN()), "b": dataset.Number(1)},
		{"a": dataset.Number(5), "b": dataset.Text("x")},
		{"a": dataset.Number(6), "b": dataset.Number(7)},
	}

	got := ScatterPoints(rows, "a", "b", 0)
	assert.Equal(t, []Point{{1, 2}, {3, 4.5}, {6, 7}}, got)

	limited := ScatterPoints(rows, "a", "b", 2)
	assert.Equal(t, []Point{{1, 2}, {3, 4.5}}, limited)

	assert.Empty(t, ScatterPoints(rows, "", "b", 0))
}

func TestScatterIsBounded(t *testing.T) {
	rows := make([]dataset.Record, 5000)
	for i := range rows {
		rows[i] = dataset.Record{"x": dataset.Number(float64(i)), "y": dataset.Number(float64(i % 13))}
	}

	got := Scatter(rows, "x", "y")

	assert.Len(t, got, DrawLimit)
	assert.Equal(t, Point{0, 0}, got[0])
	assert.Equal(t, Point{4999, float64(4999 % 13)}, got[len(got)-1])
}

func TestIndicesAscendingWithEndpoints(t *testing.T) {
	data := make([]Point, 500)
	for i := range data {
		data[i] = Point{X: float64(i), Y: float64((i * 37) % 11)}
	}

	idx := Indices(data, 40)

	require.Len(t, idx, 40)
	assert.Equal(t, 0, idx[0])
	assert.Equal(t, 499, idx[len(idx)-1])
	for i := 1; i < len(idx); i++ {
		assert.Less(t, idx[i-1], idx[i])
	}
	got := Downsample(data, 40)
	for i, j := range idx {
		assert.Equal(t, data[j], got[i])
	}
}
