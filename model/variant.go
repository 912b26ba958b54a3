package model

import (
	"errors"
	"fmt"
)

// Variant enumerates the supported model architectures. The feature
// pipeline and the loss composition dispatch on it exhaustively; there is
// no string matching past the parse step.
type Variant int

const (
	BertBase Variant = iota
	BertSPC
	LCFBert
	LCFSBert
	LCABert
	SlideLCFBert
	SlideLCFSBert
)

var variantNames = map[Variant]string{
	BertBase:      "bert_base",
	BertSPC:       "bert_spc",
	LCFBert:       "lcf_bert",
	LCFSBert:      "lcfs_bert",
	LCABert:       "lca_bert",
	SlideLCFBert:  "slide_lcf_bert",
	SlideLCFSBert: "slide_lcfs_bert",
}

// ParseVariant resolves a model name such as "slide_lcfs_bert".
func ParseVariant(name string) (Variant, error) {
	for v, n := range variantNames {
		if n == name {
			return v, nil
		}
	}
	return 0, fmt.Errorf("model: unknown variant %q", name)
}

func (v Variant) String() string { return variantNames[v] }

// UsesLCF reports whether the variant consumes a local-context weight
// vector.
func (v Variant) UsesLCF() bool { return v != BertBase && v != BertSPC }

// LCA reports whether the variant carries the auxiliary local-context
// prediction head.
func (v Variant) LCA() bool { return v == LCABert }

// Slide reports whether the variant links neighbor-aspect context vectors.
func (v Variant) Slide() bool { return v == SlideLCFBert || v == SlideLCFSBert }

// Syntactic reports whether local context is measured by dependency
// distance rather than token position.
func (v Variant) Syntactic() bool { return v == LCFSBert || v == SlideLCFSBert }

// Column names a model input tensor. The names match the corpus layout of
// the annotated datasets.
type Column string

const (
	ColTextIndices    Column = "text_bert_indices"
	ColTextRawIndices Column = "text_raw_bert_indices"
	ColAspectIndices  Column = "aspect_bert_indices"
	ColLCAIds         Column = "lca_ids"
	ColLCFVec         Column = "lcf_vec"
	ColSPCMask        Column = "spc_mask_vec"
	ColLeftLCFVec     Column = "left_lcf_vec"
	ColRightLCFVec    Column = "right_lcf_vec"
)

// Columns declares the input tensors the variant consumes, in call order.
func (v Variant) Columns() []Column {
	switch v {
	case BertBase, BertSPC:
		return []Column{ColTextRawIndices}
	case LCFBert, LCFSBert:
		return []Column{ColTextIndices, ColTextRawIndices, ColLCFVec}
	case LCABert:
		return []Column{ColTextIndices, ColTextRawIndices, ColLCAIds, ColLCFVec}
	case SlideLCFBert, SlideLCFSBert:
		return []Column{ColTextIndices, ColSPCMask, ColLCFVec, ColLeftLCFVec, ColRightLCFVec}
	}
	return nil
}

// LCFMode selects how local-context weights are computed.
type LCFMode int

const (
	// CDM is the binary context dynamic mask.
	CDM LCFMode = iota
	// CDW is the continuous, distance-decayed context weighting.
	CDW
)

// ErrFusionUnsupported is returned when the fusion context mode is
// requested. Fusion is rejected up front; it is a configuration mistake,
// never retried.
var ErrFusionUnsupported = errors.New("model: lcf fusion mode is not supported due to its low efficiency")

var lcfModeNames = map[LCFMode]string{
	CDM: "cdm",
	CDW: "cdw",
}

// ParseLCFMode resolves a context mode string. "fusion" fails fast with
// ErrFusionUnsupported.
func ParseLCFMode(name string) (LCFMode, error) {
	switch name {
	case "cdm":
		return CDM, nil
	case "cdw":
		return CDW, nil
	case "fusion":
		return 0, ErrFusionUnsupported
	}
	return 0, fmt.Errorf("model: invalid lcf mode %q", name)
}

func (m LCFMode) String() string { return lcfModeNames[m] }
