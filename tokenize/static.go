package tokenize

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/happyhackingspace/absa/internal/textutil"
)

// Static is a wordpiece tokenizer over an in-memory vocabulary. It performs
// greedy longest-match segmentation with "##" continuation pieces, the same
// scheme BERT vocab files use. Index 0 is reserved for padding.
type Static struct {
	vocab     map[string]int64
	inverse   []string
	maxSeqLen int
}

// NewStatic builds a tokenizer from an ordered token list. The list must
// not contain "[PAD]"; id 0 is reserved for it implicitly.
func NewStatic(tokens []string, maxSeqLen int) *Static {
	s := &Static{
		vocab:     make(map[string]int64, len(tokens)+4),
		inverse:   []string{"[PAD]"},
		maxSeqLen: maxSeqLen,
	}
	for _, t := range []string{UNKToken, CLSToken, SEPToken} {
		s.add(t)
	}
	for _, t := range tokens {
		s.add(t)
	}
	return s
}

// StaticFromCorpus builds a vocabulary from whole words observed in the
// given lines. Useful for tests and toy corpora where a pretrained vocab is
// unavailable.
func StaticFromCorpus(lines []string, maxSeqLen int) *Static {
	seen := make(map[string]bool)
	var tokens []string
	for _, line := range lines {
		for _, w := range textutil.Tokenize(textutil.Normalize(line)) {
			if seen[w] {
				continue
			}
			seen[w] = true
			tokens = append(tokens, w)
		}
	}
	sort.Strings(tokens)
	return NewStatic(tokens, maxSeqLen)
}

// LoadVocab reads a BERT vocab.txt (one token per line) into a Static
// tokenizer.
func LoadVocab(path string, maxSeqLen int) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	s := &Static{
		vocab:     make(map[string]int64, 32768),
		inverse:   []string{"[PAD]"},
		maxSeqLen: maxSeqLen,
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tok := strings.TrimSpace(scanner.Text())
		if tok == "" || tok == "[PAD]" {
			continue
		}
		s.add(tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	for _, t := range []string{UNKToken, CLSToken, SEPToken} {
		s.add(t)
	}
	return s, nil
}

func (s *Static) add(token string) {
	if _, ok := s.vocab[token]; ok {
		return
	}
	s.vocab[token] = int64(len(s.inverse))
	s.inverse = append(s.inverse, token)
}

// MaxSeqLen returns the fixed output length.
func (s *Static) MaxSeqLen() int { return s.maxSeqLen }

// CLS returns the class marker token.
func (s *Static) CLS() string { return CLSToken }

// SEP returns the separator marker token.
func (s *Static) SEP() string { return SEPToken }

// TextToSequence tokenizes text into exactly MaxSeqLen ids.
func (s *Static) TextToSequence(text string) []int64 {
	var ids []int64
	for _, word := range strings.Fields(text) {
		for _, piece := range s.wordpiece(word) {
			ids = append(ids, s.id(piece))
			if len(ids) == s.maxSeqLen {
				return padIDs(ids, s.maxSeqLen)
			}
		}
	}
	return padIDs(ids, s.maxSeqLen)
}

// TokenizeAligned sub-tokenizes tokens, replicating each token's value over
// its sub-tokens.
func (s *Static) TokenizeAligned(tokens []string, values []float64) ([]string, []float64) {
	var pieces []string
	var aligned []float64
	for i, tok := range tokens {
		v := float64(PadDistance)
		if i < len(values) {
			v = values[i]
		}
		for _, p := range s.wordpiece(tok) {
			pieces = append(pieces, p)
			aligned = append(aligned, v)
		}
	}
	if len(pieces) > s.maxSeqLen {
		pieces = pieces[:s.maxSeqLen]
	}
	return pieces, padValues(aligned, s.maxSeqLen)
}

// Decode maps ids back to text, dropping padding and joining continuation
// pieces. Special markers are kept verbatim.
func (s *Static) Decode(ids []int64) string {
	var b strings.Builder
	for _, id := range ids {
		if id == PadID || int(id) >= len(s.inverse) {
			continue
		}
		tok := s.inverse[id]
		if strings.HasPrefix(tok, subwordPrefix) {
			b.WriteString(strings.TrimPrefix(tok, subwordPrefix))
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// Save writes the vocabulary as vocab.txt into dir.
func (s *Static) Save(dir string) error {
	var b strings.Builder
	for _, tok := range s.inverse {
		b.WriteString(tok)
		b.WriteByte('\n')
	}
	return os.WriteFile(filepath.Join(dir, "vocab.txt"), []byte(b.String()), 0o644)
}

func (s *Static) id(token string) int64 {
	if id, ok := s.vocab[token]; ok {
		return id
	}
	return s.vocab[UNKToken]
}

// wordpiece splits a single word into greedy longest-match pieces. Words
// with no matching prefix map to a single [UNK].
func (s *Static) wordpiece(word string) []string {
	if word == CLSToken || word == SEPToken {
		return []string{word}
	}
	if _, ok := s.vocab[word]; ok {
		return []string{word}
	}
	lower := strings.ToLower(word)
	if _, ok := s.vocab[lower]; ok {
		return []string{lower}
	}

	runes := []rune(lower)
	var pieces []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		var match string
		for end > start {
			cand := string(runes[start:end])
			if start > 0 {
				cand = subwordPrefix + cand
			}
			if _, ok := s.vocab[cand]; ok {
				match = cand
				break
			}
			end--
		}
		if match == "" {
			return []string{UNKToken}
		}
		pieces = append(pieces, match)
		start = end
	}
	return pieces
}
