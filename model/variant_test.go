package model

import (
	"errors"
	"testing"
)

func TestParseVariant(t *testing.T) {
	cases := []struct {
		name string
		want Variant
	}{
		{"bert_base", BertBase},
		{"bert_spc", BertSPC},
		{"lcf_bert", LCFBert},
		{"lcfs_bert", LCFSBert},
		{"lca_bert", LCABert},
		{"slide_lcf_bert", SlideLCFBert},
		{"slide_lcfs_bert", SlideLCFSBert},
	}
	for _, tc := range cases {
		v, err := ParseVariant(tc.name)
		if err != nil {
			t.Errorf("ParseVariant(%q): %v", tc.name, err)
			continue
		}
		if v != tc.want {
			t.Errorf("ParseVariant(%q) = %v, want %v", tc.name, v, tc.want)
		}
		if v.String() != tc.name {
			t.Errorf("String() = %q, want %q", v.String(), tc.name)
		}
	}
	if _, err := ParseVariant("lstm"); err == nil {
		t.Error("unknown variant should error")
	}
}

func TestVariantPredicates(t *testing.T) {
	if BertBase.UsesLCF() || BertSPC.UsesLCF() {
		t.Error("base variants must not use LCF")
	}
	if !LCFBert.UsesLCF() || !SlideLCFSBert.UsesLCF() {
		t.Error("lcf variants must use LCF")
	}
	if !LCABert.LCA() || LCFBert.LCA() {
		t.Error("LCA predicate wrong")
	}
	if !SlideLCFBert.Slide() || LCFBert.Slide() {
		t.Error("Slide predicate wrong")
	}
	if !LCFSBert.Syntactic() || !SlideLCFSBert.Syntactic() || LCFBert.Syntactic() {
		t.Error("Syntactic predicate wrong")
	}
}

func TestVariantColumns(t *testing.T) {
	cases := []struct {
		v    Variant
		want []Column
	}{
		{BertBase, []Column{ColTextRawIndices}},
		{LCFBert, []Column{ColTextIndices, ColTextRawIndices, ColLCFVec}},
		{LCABert, []Column{ColTextIndices, ColTextRawIndices, ColLCAIds, ColLCFVec}},
		{SlideLCFBert, []Column{ColTextIndices, ColSPCMask, ColLCFVec, ColLeftLCFVec, ColRightLCFVec}},
	}
	for _, tc := range cases {
		got := tc.v.Columns()
		if len(got) != len(tc.want) {
			t.Errorf("%v columns = %v, want %v", tc.v, got, tc.want)
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%v column %d = %v, want %v", tc.v, i, got[i], tc.want[i])
			}
		}
	}
}

func TestParseLCFMode(t *testing.T) {
	if m, err := ParseLCFMode("cdm"); err != nil || m != CDM {
		t.Errorf("cdm = %v, %v", m, err)
	}
	if m, err := ParseLCFMode("cdw"); err != nil || m != CDW {
		t.Errorf("cdw = %v, %v", m, err)
	}
	if _, err := ParseLCFMode("w2v"); err == nil {
		t.Error("invalid mode should error")
	}
}

func TestParseLCFModeFusion(t *testing.T) {
	_, err := ParseLCFMode("fusion")
	if !errors.Is(err, ErrFusionUnsupported) {
		t.Fatalf("fusion error = %v, want ErrFusionUnsupported", err)
	}
}
