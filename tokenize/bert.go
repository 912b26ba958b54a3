package tokenize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

// Bert wraps a pretrained HuggingFace tokenizer file. Special markers are
// expected to be registered as added tokens in the file, so they pass
// through segmentation atomically.
type Bert struct {
	tk        *tokenizer.Tokenizer
	path      string
	maxSeqLen int
}

// NewBert loads a tokenizer.json file.
func NewBert(path string, maxSeqLen int) (*Bert, error) {
	tk, err := pretrained.FromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer %s: %w", path, err)
	}
	return &Bert{tk: tk, path: path, maxSeqLen: maxSeqLen}, nil
}

// MaxSeqLen returns the fixed output length.
func (b *Bert) MaxSeqLen() int { return b.maxSeqLen }

// CLS returns the class marker token.
func (b *Bert) CLS() string { return CLSToken }

// SEP returns the separator marker token.
func (b *Bert) SEP() string { return SEPToken }

// TextToSequence tokenizes text into exactly MaxSeqLen ids. Special-token
// insertion is left to the caller, which writes the markers into the text.
func (b *Bert) TextToSequence(text string) []int64 {
	en, err := b.tk.EncodeSingle(text, false)
	if err != nil {
		return make([]int64, b.maxSeqLen)
	}
	ids := make([]int64, 0, len(en.Ids))
	for _, id := range en.Ids {
		ids = append(ids, int64(id))
		if len(ids) == b.maxSeqLen {
			break
		}
	}
	return padIDs(ids, b.maxSeqLen)
}

// TokenizeAligned sub-tokenizes tokens one by one, replicating each token's
// value over the sub-tokens it produces.
func (b *Bert) TokenizeAligned(tokens []string, values []float64) ([]string, []float64) {
	var pieces []string
	var aligned []float64
	for i, tok := range tokens {
		v := float64(PadDistance)
		if i < len(values) {
			v = values[i]
		}
		en, err := b.tk.EncodeSingle(tok, false)
		if err != nil || len(en.Tokens) == 0 {
			pieces = append(pieces, UNKToken)
			aligned = append(aligned, v)
			continue
		}
		for _, p := range en.Tokens {
			pieces = append(pieces, p)
			aligned = append(aligned, v)
		}
	}
	if len(pieces) > b.maxSeqLen {
		pieces = pieces[:b.maxSeqLen]
	}
	return pieces, padValues(aligned, b.maxSeqLen)
}

// Save copies the tokenizer file into dir so a checkpoint can be reloaded
// without the original path.
func (b *Bert) Save(dir string) error {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "tokenizer.json"), data, 0o644)
}
