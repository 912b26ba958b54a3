package model

import (
	"encoding/binary"
	"math"
	"sync"
)

// Encoder produces per-position hidden states for a fixed-length id
// sequence. Encoders are frozen: the training loop never propagates
// gradients into them.
type Encoder interface {
	// Encode returns one vector of length Dim per input position.
	Encode(ids []int64) ([][]float64, error)
	// Dim is the hidden-state width.
	Dim() int
}

// HashEncoder is a deterministic, dependency-free encoder: each vocabulary
// id maps to a fixed pseudo-random unit vector, mixed with its neighbors so
// representations carry a little context. It stands in for a pretrained
// encoder in tests and offline runs.
type HashEncoder struct {
	dim  int
	seed uint64
}

// NewHashEncoder creates an encoder of the given hidden width.
func NewHashEncoder(dim int, seed int64) *HashEncoder {
	return &HashEncoder{dim: dim, seed: uint64(seed)}
}

// Dim returns the hidden-state width.
func (h *HashEncoder) Dim() int { return h.dim }

// Encode implements Encoder. Padding positions (id 0) map to zero vectors.
func (h *HashEncoder) Encode(ids []int64) ([][]float64, error) {
	raw := make([][]float64, len(ids))
	for i, id := range ids {
		raw[i] = h.embed(id)
	}
	out := make([][]float64, len(ids))
	for i := range raw {
		v := make([]float64, h.dim)
		if ids[i] != 0 {
			for d := 0; d < h.dim; d++ {
				v[d] = 0.6 * raw[i][d]
				if i > 0 && ids[i-1] != 0 {
					v[d] += 0.2 * raw[i-1][d]
				}
				if i+1 < len(raw) && ids[i+1] != 0 {
					v[d] += 0.2 * raw[i+1][d]
				}
			}
		}
		out[i] = v
	}
	return out, nil
}

func (h *HashEncoder) embed(id int64) []float64 {
	v := make([]float64, h.dim)
	if id == 0 {
		return v
	}
	state := splitmix64(h.seed ^ uint64(id)*0x9e3779b97f4a7c15)
	var norm float64
	for d := range v {
		state = splitmix64(state)
		// map to [-1, 1)
		v[d] = float64(int64(state>>11))/float64(1<<52) - 1
		norm += v[d] * v[d]
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for d := range v {
			v[d] /= norm
		}
	}
	return v
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// CachedEncoder memoizes Encode results keyed by the id sequence. Feature
// pipelines encode the same sequences repeatedly across epochs, so the
// cache turns most encoder calls into map lookups.
type CachedEncoder struct {
	enc   Encoder
	mu    sync.RWMutex
	cache map[string][][]float64
}

// NewCachedEncoder wraps enc with an in-memory cache.
func NewCachedEncoder(enc Encoder) *CachedEncoder {
	return &CachedEncoder{enc: enc, cache: make(map[string][][]float64)}
}

// Dim returns the wrapped encoder's width.
func (c *CachedEncoder) Dim() int { return c.enc.Dim() }

// Encode implements Encoder with memoization.
func (c *CachedEncoder) Encode(ids []int64) ([][]float64, error) {
	key := idKey(ids)
	c.mu.RLock()
	hit, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		return hit, nil
	}
	out, err := c.enc.Encode(ids)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.cache[key] = out
	c.mu.Unlock()
	return out, nil
}

// idKey serializes the id sequence verbatim so distinct sequences can never
// share a cache entry.
func idKey(ids []int64) string {
	buf := make([]byte, 8*len(ids))
	for i, id := range ids {
		binary.LittleEndian.PutUint64(buf[8*i:], uint64(id))
	}
	return string(buf)
}
