package training

import (
	"math/rand"

	"github.com/happyhackingspace/absa/model"
)

// partitions splits the indices 0..n-1 into k near-equal random parts.
// The remainder after integer division goes to the last part, so every
// index lands in exactly one partition.
func partitions(n, k int, rng *rand.Rand) [][]int {
	idx := rng.Perm(n)
	size := n / k
	parts := make([][]int, k)
	for f := 0; f < k; f++ {
		start := f * size
		end := start + size
		if f == k-1 {
			end = n
		}
		parts[f] = idx[start:end]
	}
	return parts
}

// foldSplit materializes one fold from the pooled records: the given
// partition is held out as test, everything else trains.
func foldSplit(pool []model.Record, holdout []int) (train, test []model.Record) {
	held := make(map[int]bool, len(holdout))
	for _, i := range holdout {
		held[i] = true
	}
	train = make([]model.Record, 0, len(pool)-len(holdout))
	test = make([]model.Record, 0, len(holdout))
	for i, rec := range pool {
		if held[i] {
			test = append(test, rec)
		} else {
			train = append(train, rec)
		}
	}
	return train, test
}
