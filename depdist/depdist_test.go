package depdist

import "testing"

func TestHeuristicDistances(t *testing.T) {
	h := NewHeuristic()
	tokens, dist, err := h.Distances("the battery life is great", "battery life")
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 5 || len(dist) != 5 {
		t.Fatalf("lengths = %d, %d; want 5, 5", len(tokens), len(dist))
	}

	// aspect span itself is at distance 0
	if dist[1] != 0 || dist[2] != 0 {
		t.Errorf("aspect distances = %v, %v; want 0, 0", dist[1], dist[2])
	}
	// neighbors count hops from the span edges
	if dist[0] != 1 {
		t.Errorf("dist[0] = %v, want 1", dist[0])
	}
	if dist[3] != 1 || dist[4] != 2 {
		t.Errorf("right distances = %v, %v; want 1, 2", dist[3], dist[4])
	}
}

func TestHeuristicClausePenalty(t *testing.T) {
	h := NewHeuristic()
	_, dist, err := h.Distances("the battery is great, but the screen is dim", "battery")
	if err != nil {
		t.Fatal(err)
	}

	// "but" is three hops and one clause boundary past the aspect
	wantBut := 3 + h.ClausePenalty
	if dist[4] != wantBut {
		t.Errorf("dist[but] = %v, want %v", dist[4], wantBut)
	}
	// same-clause token stays penalty-free
	if dist[3] != 2 {
		t.Errorf("dist[great,] = %v, want 2", dist[3])
	}
}

func TestHeuristicAspectMatching(t *testing.T) {
	h := NewHeuristic()

	// punctuation and case do not block the span match
	tokens, dist, err := h.Distances("Great Battery, nice price", "battery")
	if err != nil {
		t.Fatal(err)
	}
	if tokens[1] != "Battery," {
		t.Errorf("tokens[1] = %q", tokens[1])
	}
	if dist[1] != 0 {
		t.Errorf("dist[1] = %v, want 0", dist[1])
	}
}

func TestHeuristicErrors(t *testing.T) {
	h := NewHeuristic()
	if _, _, err := h.Distances("", "battery"); err == nil {
		t.Error("empty text should error")
	}
	if _, _, err := h.Distances("the battery is great", ""); err == nil {
		t.Error("empty aspect should error")
	}
	if _, _, err := h.Distances("the battery is great", "keyboard"); err == nil {
		t.Error("missing aspect should error")
	}
}
