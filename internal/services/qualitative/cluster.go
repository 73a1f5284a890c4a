// -----------------------------------------------------------------------
// Greedy centroid clustering over chunk embeddings
// -----------------------------------------------------------------------

package qualitative

import (
	"math"
)

// DefaultSimilarityThreshold is the minimum cosine similarity for a
// chunk to join an existing cluster.
const DefaultSimilarityThreshold = 0.60

// Cluster groups chunk indices around a centroid.
type Cluster struct {
	Members  []int
	Centroid []float32
	Cohesion float64
}

// CosineSimilarity computes similarity between two embeddings.
// Returns 1.0 for identical vectors, 0.0 for orthogonal vectors or
// mismatched lengths.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// GreedyCluster assigns each vector, in input order, to the most
// similar existing cluster when that similarity clears the threshold,
// otherwise it seeds a new cluster. Centroids are running means.
// Cohesion is the mean similarity of members to the final centroid.
func GreedyCluster(vectors [][]float32, threshold float64) []Cluster {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	var clusters []Cluster
	for i, vec := range vectors {
		if len(vec) == 0 {
			continue
		}
		best := -1
		bestSim := 0.0
		for c := range clusters {
			sim := CosineSimilarity(vec, clusters[c].Centroid)
			if sim > bestSim {
				bestSim = sim
				best = c
			}
		}
		if best >= 0 && bestSim >= threshold {
			clusters[best].Members = append(clusters[best].Members, i)
			clusters[best].Centroid = updateCentroid(clusters[best].Centroid, vec, len(clusters[best].Members))
		} else {
			centroid := make([]float32, len(vec))
			copy(centroid, vec)
			clusters = append(clusters, Cluster{Members: []int{i}, Centroid: centroid})
		}
	}

	for c := range clusters {
		clusters[c].Cohesion = cohesion(clusters[c], vectors)
	}
	return clusters
}

// updateCentroid folds a new member into the running mean. n is the
// member count after the addition.
func updateCentroid(centroid, vec []float32, n int) []float32 {
	if len(centroid) != len(vec) || n <= 0 {
		return centroid
	}
	weight := float32(n)
	for i := range centroid {
		centroid[i] = (centroid[i]*(weight-1) + vec[i]) / weight
	}
	return centroid
}

// cohesion is the mean member-to-centroid similarity. A singleton
// cluster has cohesion 1.
func cohesion(cl Cluster, vectors [][]float32) float64 {
	if len(cl.Members) == 0 {
		return 0
	}
	if len(cl.Members) == 1 {
		return 1
	}
	var sum float64
	for _, idx := range cl.Members {
		sum += CosineSimilarity(vectors[idx], cl.Centroid)
	}
	return sum / float64(len(cl.Members))
}

// Representative returns the member index most similar to the
// centroid, the cluster's natural quote source.
func (cl Cluster) Representative(vectors [][]float32) int {
	best := cl.Members[0]
	bestSim := -1.0
	for _, idx := range cl.Members {
		if sim := CosineSimilarity(vectors[idx], cl.Centroid); sim > bestSim {
			bestSim = sim
			best = idx
		}
	}
	return best
}
