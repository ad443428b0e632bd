package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// HashVector derives a deterministic placeholder vector from the UTF-8 bytes
// of text. The SHA-256 digest is cut into big-endian uint32 chunks, each
// mapped to [-1, 1], repeated up to dim and L2-normalized.
//
// The result is reproducible but carries no meaning: two related texts are
// no closer to each other than two unrelated ones. Retrieval quality in
// degraded mode is therefore arbitrary.
func HashVector(text string, dim int) []float32 {
	if dim <= 0 {
		return []float32{}
	}

	sum := sha256.Sum256([]byte(text))
	chunks := make([]float64, 0, len(sum)/4)
	for i := 0; i+4 <= len(sum); i += 4 {
		v := binary.BigEndian.Uint32(sum[i : i+4])
		chunks = append(chunks, float64(v)/float64(math.MaxUint32)*2-1)
	}

	out := make([]float32, dim)
	for i := range out {
		out[i] = float32(chunks[i%len(chunks)])
	}

	Normalize(out)
	return out
}

// Normalize scales v in place to unit L2 norm; zero vectors are left as is
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// Norm returns the L2 norm of v
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
