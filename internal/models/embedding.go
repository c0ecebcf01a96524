package models

// Document is a stored chunk returned by a similarity search.
type Document struct {
	ID      int64
	Content string
	Score   float32
}

// ZeroVector returns the fallback embedding used when a provider call fails.
func ZeroVector(dimension int) []float32 {
	return make([]float32, dimension)
}
