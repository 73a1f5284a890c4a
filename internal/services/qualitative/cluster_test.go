package qualitative

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"mismatched lengths", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestGreedyCluster_SeparatesDistinctGroups(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	clusters := GreedyCluster([][]float32{a, a, b, b, a}, 0.6)

	require.Len(t, clusters, 2)
	assert.Equal(t, []int{0, 1, 4}, clusters[0].Members)
	assert.Equal(t, []int{2, 3}, clusters[1].Members)
	assert.InDelta(t, 1.0, clusters[0].Cohesion, 0.0001)
	assert.InDelta(t, 1.0, clusters[1].Cohesion, 0.0001)
}

func TestGreedyCluster_NearVectorJoins(t *testing.T) {
	clusters := GreedyCluster([][]float32{
		{1, 0},
		{0.9, 0.1},
	}, 0.6)

	require.Len(t, clusters, 1)
	assert.Equal(t, []int{0, 1}, clusters[0].Members)
	assert.Greater(t, clusters[0].Cohesion, 0.9)
}

func TestGreedyCluster_BelowThresholdSeedsNewCluster(t *testing.T) {
	clusters := GreedyCluster([][]float32{
		{1, 0},
		{0.3, 0.95},
	}, 0.6)

	require.Len(t, clusters, 2)
}

func TestGreedyCluster_SkipsEmptyVectors(t *testing.T) {
	clusters := GreedyCluster([][]float32{nil, {1, 0}}, 0.6)
	require.Len(t, clusters, 1)
	assert.Equal(t, []int{1}, clusters[0].Members)
}

func TestGreedyCluster_SingletonCohesionIsOne(t *testing.T) {
	clusters := GreedyCluster([][]float32{{0.2, 0.8}}, 0.6)
	require.Len(t, clusters, 1)
	assert.InDelta(t, 1.0, clusters[0].Cohesion, 0.0001)
}

func TestRepresentative_PicksMemberNearestCentroid(t *testing.T) {
	vectors := [][]float32{{1, 0}, {0, 1}}
	cl := Cluster{Members: []int{0, 1}, Centroid: []float32{1, 0}}
	assert.Equal(t, 0, cl.Representative(vectors))
}
