package rag

import "math"

// CosineSimilarity returns the cosine similarity of a and b:
// dot(a,b) / (norm(a) * norm(b)), in [-1, 1].
// Vectors of mismatched length or zero magnitude score 0 so they can never
// pass a positive relevance threshold.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance returns 1 - CosineSimilarity(a, b), matching the pgvector
// <=> operator so that in-process and database search agree on scores.
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}
