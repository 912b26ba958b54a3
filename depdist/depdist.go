// Package depdist estimates, for each token of a sentence, its syntactic
// distance from an aspect phrase. The estimate feeds the syntactic local
// context weighting of the lcfs model variants.
package depdist

import (
	"fmt"
	"math"
	"strings"

	"github.com/happyhackingspace/absa/internal/textutil"
)

// Estimator computes per-token distances from the aspect span.
type Estimator interface {
	// Distances returns the sentence tokens and, aligned with them, each
	// token's distance from the aspect. The aspect tokens themselves get
	// distance 0.
	Distances(text, aspect string) ([]string, []float64, error)
}

// Heuristic approximates dependency-tree distance without a full parser:
// the distance of a token is its token-position distance to the nearest
// aspect token, with a penalty added for every clause boundary crossed.
// Tokens in the same clause as the aspect therefore rank closer than
// equally distant tokens across a comma or full stop.
type Heuristic struct {
	// ClausePenalty is added per clause boundary between token and aspect.
	ClausePenalty float64
}

// NewHeuristic returns a Heuristic with the default clause penalty.
func NewHeuristic() *Heuristic {
	return &Heuristic{ClausePenalty: 2}
}

// Distances implements Estimator.
func (h *Heuristic) Distances(text, aspect string) ([]string, []float64, error) {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil, nil, fmt.Errorf("depdist: empty text")
	}
	aspectTokens := strings.Fields(aspect)
	if len(aspectTokens) == 0 {
		return nil, nil, fmt.Errorf("depdist: empty aspect")
	}

	begin := matchSpan(tokens, aspectTokens)
	if begin < 0 {
		return nil, nil, fmt.Errorf("depdist: aspect %q not found in text", aspect)
	}
	end := begin + len(aspectTokens) - 1

	// clause[i] is the clause index token i belongs to.
	clause := make([]int, len(tokens))
	c := 0
	for i, tok := range tokens {
		clause[i] = c
		if textutil.IsClauseBoundary(tok) {
			c++
		}
	}

	dist := make([]float64, len(tokens))
	for i := range tokens {
		if i >= begin && i <= end {
			dist[i] = 0
			continue
		}
		var hops, crossed float64
		if i < begin {
			hops = float64(begin - i)
			crossed = math.Abs(float64(clause[begin] - clause[i]))
		} else {
			hops = float64(i - end)
			crossed = math.Abs(float64(clause[i] - clause[end]))
		}
		dist[i] = hops + crossed*h.ClausePenalty
	}
	return tokens, dist, nil
}

// matchSpan finds the first occurrence of the aspect token span, comparing
// tokens with punctuation stripped and case folded.
func matchSpan(tokens, aspect []string) int {
	norm := func(s string) string {
		return strings.ToLower(textutil.StripPunct(s))
	}
	for i := 0; i+len(aspect) <= len(tokens); i++ {
		ok := true
		for j := range aspect {
			if norm(tokens[i+j]) != norm(aspect[j]) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}
