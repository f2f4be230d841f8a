package memory

import (
	"hash/fnv"
	"math"

	"localize-from-source/internal/textutil"
)

// Dimensions is the length of a text vector.
const Dimensions = 256

// Vectorize embeds text as a hashed bag of words and word pairs, L2-normalized.
// Texts sharing vocabulary get a high cosine similarity; no model is needed.
func Vectorize(text string) []float32 {
	vec := make([]float32, Dimensions)
	words := textutil.Tokens(text)
	for i, w := range words {
		add(vec, w, 1)
		if i > 0 {
			add(vec, words[i-1]+" "+w, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func add(vec []float32, feature string, weight float32) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum32()
	// The top bit picks the sign so collisions tend to cancel out.
	if sum&(1<<31) != 0 {
		weight = -weight
	}
	vec[sum%Dimensions] += weight
}

// Cosine is the cosine similarity of two vectors of equal length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / math.Sqrt(na*nb)
}
