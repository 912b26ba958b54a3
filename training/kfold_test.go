package training

import (
	"math/rand"
	"testing"

	"github.com/happyhackingspace/absa/model"
)

func TestPartitionsNearEqual(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	parts := partitions(30, 3, rng)
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	seen := make(map[int]int)
	for f, part := range parts {
		if len(part) != 10 {
			t.Errorf("fold %d size = %d, want 10", f, len(part))
		}
		for _, idx := range part {
			seen[idx]++
		}
	}
	if len(seen) != 30 {
		t.Fatalf("covered %d indices, want 30", len(seen))
	}
	for idx, n := range seen {
		if n != 1 {
			t.Errorf("index %d held out %d times", idx, n)
		}
	}
}

func TestPartitionsRemainderToLast(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	parts := partitions(11, 3, rng)
	if len(parts[0]) != 3 || len(parts[1]) != 3 || len(parts[2]) != 5 {
		t.Errorf("sizes = %d, %d, %d; want 3, 3, 5",
			len(parts[0]), len(parts[1]), len(parts[2]))
	}
}

func TestFoldSplit(t *testing.T) {
	pool := make([]model.Record, 6)
	for i := range pool {
		pool[i].Polarity = i
	}
	train, test := foldSplit(pool, []int{1, 4})
	if len(train) != 4 || len(test) != 2 {
		t.Fatalf("sizes = %d, %d; want 4, 2", len(train), len(test))
	}
	if test[0].Polarity != 1 || test[1].Polarity != 4 {
		t.Errorf("test polarities = %d, %d", test[0].Polarity, test[1].Polarity)
	}
	for _, rec := range train {
		if rec.Polarity == 1 || rec.Polarity == 4 {
			t.Errorf("held-out record %d leaked into train", rec.Polarity)
		}
	}
}
