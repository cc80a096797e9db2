package embedclient

import (
	"context"
	"hash/fnv"
)

// Deterministic is a dependency-free embedder for tests: it hashes byte
// 3-grams into a fixed-size vector and L2-normalizes the result, so the
// same input always produces the same vector without calling a real
// provider.
type Deterministic struct {
	dim  int
	seed uint64
}

func NewDeterministic(dim int, seed uint64) *Deterministic {
	if dim <= 0 {
		dim = 64
	}
	return &Deterministic{dim: dim, seed: seed}
}

func (d *Deterministic) Name() string   { return "deterministic" }
func (d *Deterministic) Dimension() int { return d.dim }
func (d *Deterministic) Ping(context.Context) error { return nil }

func (d *Deterministic) EmbedBatch(_ context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, s := range inputs {
		out[i] = Normalize(d.embedOne(s))
	}
	return out, nil
}

func (d *Deterministic) embedOne(s string) []float32 {
	v := make([]float32, d.dim)
	b := []byte(s)
	if len(b) == 0 {
		return v
	}
	if len(b) < 3 {
		d.addGram(b, v)
		return v
	}
	for i := 0; i <= len(b)-3; i++ {
		d.addGram(b[i:i+3], v)
	}
	return v
}

func (d *Deterministic) addGram(gram []byte, v []float32) {
	h := fnv.New64a()
	if d.seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(d.seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
