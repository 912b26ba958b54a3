// Package tokenize maps raw text to fixed-length integer index sequences
// for the BERT-family sentiment models.
//
// Two implementations are provided: Bert wraps a HuggingFace tokenizer file
// via the sugarme/tokenizer library, and Static is a self-contained
// wordpiece tokenizer built from an in-memory vocabulary, used in tests and
// for pre-tokenized corpora.
package tokenize

// Special token literals shared by all implementations. They appear
// verbatim in the text handed to TextToSequence, mirroring the annotated
// corpus format.
const (
	CLSToken      = "[CLS]"
	SEPToken      = "[SEP]"
	UNKToken      = "[UNK]"
	PadID         = 0
	subwordPrefix = "##"
)

// PadDistance is the syntactic distance assigned to padding positions. It
// is larger than any plausible SRD threshold so padding never counts as
// local context.
const PadDistance = 1 << 16

// Tokenizer converts text to zero-padded index sequences of a fixed
// maximum length.
type Tokenizer interface {
	// TextToSequence tokenizes text and returns exactly MaxSeqLen ids,
	// zero-padded on the right and truncated when over-long.
	TextToSequence(text string) []int64
	// TokenizeAligned sub-tokenizes raw tokens while keeping a per-token
	// value sequence aligned: each sub-token inherits the value of the raw
	// token it came from. Returns exactly MaxSeqLen aligned values, padded
	// with PadDistance.
	TokenizeAligned(tokens []string, values []float64) ([]string, []float64)
	// MaxSeqLen is the fixed sequence length produced by TextToSequence.
	MaxSeqLen() int
	// CLS and SEP return the class and separator marker tokens.
	CLS() string
	SEP() string
}

// Saver is implemented by tokenizers that can persist themselves into a
// checkpoint directory.
type Saver interface {
	Save(dir string) error
}

func padIDs(ids []int64, maxLen int) []int64 {
	out := make([]int64, maxLen)
	copy(out, ids)
	return out
}

func padValues(vals []float64, maxLen int) []float64 {
	out := make([]float64, maxLen)
	for i := range out {
		if i < len(vals) {
			out[i] = vals[i]
		} else {
			out[i] = PadDistance
		}
	}
	return out
}
