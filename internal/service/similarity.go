package service

import (
	"math"
	"sort"

	"kbchat/internal/models"
)

const (
	DefaultSimilarityThreshold = 0.3
	DefaultTopK                = 5
)

// ScoredEntry pairs a knowledge entry with its similarity to a query.
type ScoredEntry struct {
	Entry *models.KnowledgeEntry
	Score float64
}

func DotProduct(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func Magnitude(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// CosineSimilarity returns dot(a,b) / (|a|*|b|). Vectors of different
// length, empty vectors and zero-magnitude vectors score exactly 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	magA := Magnitude(a)
	magB := Magnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	score := DotProduct(a, b) / (magA * magB)
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0
	}
	return score
}

// FindSimilar scores every entry against the query vector, keeps those
// scoring strictly above threshold and returns at most topK of them, best
// first. Entries with equal scores keep their corpus order.
func FindSimilar(query []float32, entries []*models.KnowledgeEntry, threshold float64, topK int) []ScoredEntry {
	if topK <= 0 {
		return []ScoredEntry{}
	}

	scored := make([]ScoredEntry, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		score := CosineSimilarity(query, entry.Embedding)
		if score > threshold {
			scored = append(scored, ScoredEntry{Entry: entry, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
