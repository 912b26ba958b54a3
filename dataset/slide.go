package dataset

import "github.com/happyhackingspace/absa/model"

// similarityThreshold is the minimum shared-token ratio for two tokenized
// texts to count as neighboring views of the same sentence.
const similarityThreshold = 0.8

// LinkNeighbors produces a new record sequence in which each slide record's
// left and right context vectors come from its adjacent record when the two
// tokenized texts are similar enough, and from the record itself otherwise.
// The first record always self-copies on its left side and the last on its
// right. The input sequence is not mutated.
func LinkNeighbors(records []model.Record) []model.Record {
	out := make([]model.Record, len(records))
	for i, rec := range records {
		in, ok := rec.Inputs.(model.SlideInputs)
		if !ok {
			out[i] = rec
			continue
		}

		left := in.LCFVec
		if i > 0 {
			if prev, ok := records[i-1].Inputs.(model.SlideInputs); ok &&
				isSimilar(prev.TextIndices, in.TextIndices) {
				left = prev.LCFVec
			}
		}
		right := in.LCFVec
		if i+1 < len(records) {
			if next, ok := records[i+1].Inputs.(model.SlideInputs); ok &&
				isSimilar(in.TextIndices, next.TextIndices) {
				right = next.LCFVec
			}
		}

		linked := in
		linked.LeftLCFVec = cloneVec(left)
		linked.RightLCFVec = cloneVec(right)
		rec.Inputs = linked
		out[i] = rec
	}
	return out
}

// isSimilar compares two id sequences by multiset overlap of their
// non-padding ids.
func isSimilar(a, b []int64) bool {
	countsA := make(map[int64]int)
	na := 0
	for _, id := range a {
		if id != 0 {
			countsA[id]++
			na++
		}
	}
	nb := 0
	shared := 0
	for _, id := range b {
		if id == 0 {
			continue
		}
		nb++
		if countsA[id] > 0 {
			countsA[id]--
			shared++
		}
	}
	longest := max(na, nb)
	if longest == 0 {
		return false
	}
	return float64(shared)/float64(longest) >= similarityThreshold
}
