package model

// NoLabel marks a record without a reference polarity. File labels are in
// {0,1,2} and are stored shifted by +1 so the sentinel is unambiguous.
const NoLabel = -999

// NumPolarities is the number of declared sentiment classes.
const NumPolarities = 3

// Record is one feature record: a single aspect-marked sample turned into
// fixed-shape tensors. Which Inputs variant it carries is determined by the
// model variant the dataset was built for.
type Record struct {
	TextRaw  string
	Aspect   string
	AspIndex float64
	// Polarity is the shifted reference label, or NoLabel.
	Polarity int
	Inputs   Inputs
}

// Label returns the unshifted class index in [0, NumPolarities) and whether
// the record is labeled.
func (r Record) Label() (int, bool) {
	if r.Polarity == NoLabel {
		return 0, false
	}
	return r.Polarity - 1, true
}

// Inputs is the closed set of per-architecture-family input tensors. Each
// family carries only the tensors its variant consumes.
type Inputs interface {
	Columns() []Column
}

// BaseInputs feeds bert_base and bert_spc.
type BaseInputs struct {
	TextRawIndices []int64
}

func (BaseInputs) Columns() []Column { return []Column{ColTextRawIndices} }

// LCFInputs feeds lcf_bert and lcfs_bert.
type LCFInputs struct {
	TextIndices    []int64
	TextRawIndices []int64
	// LCFVec holds one weight per position; the embedding-dimension
	// broadcast happens when the weight is applied.
	LCFVec []float64
}

func (LCFInputs) Columns() []Column {
	return []Column{ColTextIndices, ColTextRawIndices, ColLCFVec}
}

// LCAInputs feeds lca_bert: LCF inputs plus the binary local-context ids
// used as auxiliary supervision.
type LCAInputs struct {
	TextIndices    []int64
	TextRawIndices []int64
	LCAIds         []int64
	LCFVec         []float64
}

func (LCAInputs) Columns() []Column {
	return []Column{ColTextIndices, ColTextRawIndices, ColLCAIds, ColLCFVec}
}

// SlideInputs feeds slide_lcf_bert and slide_lcfs_bert. Left and right
// vectors come from neighbor records when those are similar enough,
// otherwise from the record itself.
type SlideInputs struct {
	TextIndices []int64
	SPCMask     []float64
	LCFVec      []float64
	LeftLCFVec  []float64
	RightLCFVec []float64
}

func (SlideInputs) Columns() []Column {
	return []Column{ColTextIndices, ColSPCMask, ColLCFVec, ColLeftLCFVec, ColRightLCFVec}
}
