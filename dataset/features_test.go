package dataset

import (
	"strings"
	"testing"

	"github.com/happyhackingspace/absa/depdist"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
)

func testTokenizer(maxSeqLen int) *tokenize.Static {
	return tokenize.NewStatic([]string{
		"the", "battery", "life", "is", "great", "but", "screen", "dim",
		"wifi", "keyboard", "works", "and", "slow", "fast", "food", "service",
	}, maxSeqLen)
}

func testBuilder(variant model.Variant, mode model.LCFMode) *Builder {
	cfg := DefaultConfig()
	cfg.Variant = variant
	cfg.LCFMode = mode
	cfg.MaxSeqLen = 20
	return NewBuilder(testTokenizer(cfg.MaxSeqLen), depdist.NewHeuristic(), cfg)
}

func TestBuildAspIndex(t *testing.T) {
	b := testBuilder(model.LCFBert, model.CDW)
	records, err := b.BuildAll([]string{"the [ASP]battery[ASP] is great !sent! 2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("records = %d, want 1", len(records))
	}
	rec := records[0]

	// tokenized text: [CLS] the battery is great [SEP] battery [SEP]
	// battery first occurs at position 2 with token length 1
	if want := 2.5; rec.AspIndex != want {
		t.Errorf("AspIndex = %v, want %v", rec.AspIndex, want)
	}
	if rec.AspIndex < 0 || rec.AspIndex >= float64(b.Cfg.MaxSeqLen) {
		t.Errorf("AspIndex %v out of range [0, %d)", rec.AspIndex, b.Cfg.MaxSeqLen)
	}
	if rec.Aspect != "battery" {
		t.Errorf("Aspect = %q", rec.Aspect)
	}
	if label, ok := rec.Label(); !ok || label != 2 {
		t.Errorf("Label() = %d, %v; want 2, true", label, ok)
	}
}

func TestBuildUnlabeled(t *testing.T) {
	b := testBuilder(model.LCFBert, model.CDW)
	records, err := b.BuildAll([]string{"the [ASP]battery[ASP] is great"})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := records[0].Label(); ok {
		t.Error("record without reference sentiment should be unlabeled")
	}
	if records[0].Polarity != model.NoLabel {
		t.Errorf("Polarity = %d, want NoLabel", records[0].Polarity)
	}
}

func TestBuildRoundTrip(t *testing.T) {
	b := testBuilder(model.LCFBert, model.CDW)
	tok := b.Tok.(*tokenize.Static)
	records, err := b.BuildAll([]string{"the [ASP]battery[ASP] life is great but the screen is dim"})
	if err != nil {
		t.Fatal(err)
	}
	in := records[0].Inputs.(model.LCFInputs)

	decoded := tok.Decode(in.TextRawIndices)
	want := "[CLS] " + records[0].TextRaw + " [SEP]"
	if decoded != want {
		t.Errorf("decoded = %q, want %q", decoded, want)
	}
}

func TestCDWWeights(t *testing.T) {
	b := testBuilder(model.LCFBert, model.CDW)
	records, err := b.BuildAll([]string{"the [ASP]screen[ASP] is dim but the battery life is great but the wifi is slow"})
	if err != nil {
		t.Fatal(err)
	}
	in := records[0].Inputs.(model.LCFInputs)
	textLen := 0
	for i, id := range in.TextIndices {
		if id != 0 {
			textLen = i + 1
		}
	}

	// screen is at position 2 (after [CLS] the); SRD 3 puts the window at
	// [0, 5]
	for i := 0; i <= 5; i++ {
		if in.LCFVec[i] != 1 {
			t.Errorf("weight[%d] = %v, want 1 inside the local window", i, in.LCFVec[i])
		}
	}
	for i := 6; i < textLen; i++ {
		w := in.LCFVec[i]
		if w < 0 || w > 1 {
			t.Errorf("weight[%d] = %v, want within [0,1]", i, w)
		}
		if w >= 1 {
			t.Errorf("weight[%d] = %v, want < 1 outside the local window", i, w)
		}
		if i > 6 && w > in.LCFVec[i-1] {
			t.Errorf("weight[%d] = %v grew past weight[%d] = %v", i, w, i-1, in.LCFVec[i-1])
		}
	}
}

func TestCDMMask(t *testing.T) {
	b := testBuilder(model.LCABert, model.CDM)
	records, err := b.BuildAll([]string{"the [ASP]battery[ASP] is great !sent! 2"})
	if err != nil {
		t.Fatal(err)
	}
	in := records[0].Inputs.(model.LCAInputs)
	if len(in.LCAIds) != b.Cfg.MaxSeqLen || len(in.LCFVec) != b.Cfg.MaxSeqLen {
		t.Fatalf("mask lengths = %d, %d; want %d", len(in.LCAIds), len(in.LCFVec), b.Cfg.MaxSeqLen)
	}
	// window positions are always marked local
	for i := 0; i <= 5 && i < len(in.LCAIds); i++ {
		if in.LCAIds[i] != 1 {
			t.Errorf("lca id[%d] = %d, want 1", i, in.LCAIds[i])
		}
		if in.LCFVec[i] != 1 {
			t.Errorf("mask[%d] = %v, want 1", i, in.LCFVec[i])
		}
	}
}

func TestSyntacticBuild(t *testing.T) {
	b := testBuilder(model.LCFSBert, model.CDW)
	records, err := b.BuildAll([]string{"the [ASP]battery[ASP] is great but the screen is dim"})
	if err != nil {
		t.Fatal(err)
	}
	in := records[0].Inputs.(model.LCFInputs)
	for i, w := range in.LCFVec {
		if w < 0 || w > 1 {
			t.Errorf("weight[%d] = %v, want within [0,1]", i, w)
		}
	}
	// the aspect itself has distance 0 and keeps full weight
	if in.LCFVec[2] != 1 {
		t.Errorf("aspect weight = %v, want 1", in.LCFVec[2])
	}
}

func TestBuildSPCMask(t *testing.T) {
	b := testBuilder(model.SlideLCFBert, model.CDW)
	records, err := b.BuildAll([]string{"the [ASP]battery[ASP] is great !sent! 2"})
	if err != nil {
		t.Fatal(err)
	}
	in := records[0].Inputs.(model.SlideInputs)

	// raw sequence is [CLS] the battery is great [SEP]: six positions
	for i := 0; i < 6; i++ {
		if in.SPCMask[i] != 1 {
			t.Errorf("mask[%d] = %v, want 1", i, in.SPCMask[i])
		}
	}
	for i := 6; i < len(in.SPCMask); i++ {
		if in.SPCMask[i] != 0 {
			t.Errorf("mask[%d] = %v, want 0 over padding", i, in.SPCMask[i])
		}
	}
}

func TestBuildErrorPolicy(t *testing.T) {
	bad := "the [ASP] [ASP] is great"

	b := testBuilder(model.LCFBert, model.CDW)
	if _, err := b.BuildAll([]string{bad}); err == nil {
		t.Error("expected error for empty aspect span")
	} else if !strings.Contains(err.Error(), bad) {
		t.Errorf("error %q does not name the offending sample", err)
	}

	b.Cfg.IgnoreError = true
	records, err := b.BuildAll([]string{bad, "the [ASP]battery[ASP] is great"})
	if err != nil {
		t.Fatalf("IgnoreError should skip, got %v", err)
	}
	if len(records) != 1 {
		t.Errorf("records = %d, want 1 after skipping", len(records))
	}
}

func TestBuildAspectLongerThanSequence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 8

	long := "great [ASP]the battery life is slow and the wifi keyboard screen is dim[ASP] works !sent! 0"
	for _, ignore := range []bool{false, true} {
		cfg.IgnoreError = ignore
		b := NewBuilder(testTokenizer(cfg.MaxSeqLen), depdist.NewHeuristic(), cfg)
		records, err := b.BuildAll([]string{long})
		if err != nil {
			t.Fatalf("IgnoreError=%v: %v", ignore, err)
		}
		if len(records) != 1 {
			t.Fatalf("IgnoreError=%v: records = %d, want 1", ignore, len(records))
		}
		rec := records[0]
		if words := strings.Fields(rec.TextRaw); len(words) == 0 {
			t.Errorf("IgnoreError=%v: empty truncated text", ignore)
		}
		if rec.TextRaw != strings.TrimSpace(rec.TextRaw) {
			t.Errorf("IgnoreError=%v: untrimmed text %q", ignore, rec.TextRaw)
		}
	}
}

func TestBuildSymmetricTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSeqLen = 8
	b := NewBuilder(testTokenizer(cfg.MaxSeqLen), depdist.NewHeuristic(), cfg)

	long := "the battery life is great but the [ASP]screen[ASP] is dim and the wifi is slow and the keyboard works"
	records, err := b.BuildAll([]string{long})
	if err != nil {
		t.Fatal(err)
	}
	rec := records[0]
	if !strings.Contains(rec.TextRaw, "screen") {
		t.Fatalf("truncation dropped the aspect: %q", rec.TextRaw)
	}
	words := strings.Fields(rec.TextRaw)
	keep := (cfg.MaxSeqLen-1)/2 + 1
	if len(words) > 2*keep+1 {
		t.Errorf("truncated text has %d words, want at most %d: %q", len(words), 2*keep+1, rec.TextRaw)
	}
	if rec.AspIndex >= float64(cfg.MaxSeqLen) {
		t.Errorf("AspIndex %v out of range after truncation", rec.AspIndex)
	}
}
