package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v2"

	"github.com/happyhackingspace/absa/depdist"
	"github.com/happyhackingspace/absa/internal/textutil"
	"github.com/happyhackingspace/absa/model"
	"github.com/happyhackingspace/absa/tokenize"
)

// Builder turns single-aspect-marked samples into fixed-shape feature
// records for the configured model variant.
type Builder struct {
	Tok tokenize.Tokenizer
	Est depdist.Estimator
	Cfg Config
	// Progress renders a progress bar while building, the CLI paths set it.
	Progress bool
}

// NewBuilder wires a feature assembler. The estimator may be nil for
// non-syntactic variants.
func NewBuilder(tok tokenize.Tokenizer, est depdist.Estimator, cfg Config) *Builder {
	return &Builder{Tok: tok, Est: est, Cfg: cfg}
}

// BuildAll assembles records for every sample. With IgnoreError set,
// records that fail are skipped and logged; otherwise the first failure
// aborts. For slide variants the neighbor-linkage pass runs after all
// records are built.
func (b *Builder) BuildAll(samples []string) ([]model.Record, error) {
	if err := b.Cfg.Validate(); err != nil {
		return nil, err
	}
	var bar *progressbar.ProgressBar
	if b.Progress && len(samples) > 1 {
		bar = progressbar.New(len(samples))
	}

	records := make([]model.Record, 0, len(samples))
	for _, sample := range samples {
		if bar != nil {
			_ = bar.Add(1)
		}
		rec, err := b.build(sample)
		if err != nil {
			if errors.Is(err, model.ErrFusionUnsupported) {
				return nil, err
			}
			if b.Cfg.IgnoreError {
				slog.Warn("Ignoring error while processing sample", "sample", sample, "err", err)
				continue
			}
			return nil, fmt.Errorf("error while processing %q: %w", sample, err)
		}
		records = append(records, rec)
	}
	if bar != nil {
		_ = bar.Finish()
	}

	if b.Cfg.Variant.Slide() {
		records = LinkNeighbors(records)
	}
	return records, nil
}

// build assembles one record.
func (b *Builder) build(sample string) (model.Record, error) {
	sample = strings.TrimSpace(sample)
	if sample == "" {
		return model.Record{}, errors.New("empty input")
	}

	text := sample
	polarity := model.NoLabel
	if body, refPart, ok := strings.Cut(sample, PolaritySep); ok {
		text = strings.TrimSpace(body)
		ref := strings.TrimSpace(refPart)
		if ref != "" {
			v, err := strconv.Atoi(ref)
			if err != nil {
				return model.Record{}, fmt.Errorf("parse reference sentiment %q: %w", ref, err)
			}
			polarity = v + 1
		}
	}

	parts := strings.Split(text, AspectMarker)
	if len(parts) != 3 {
		return model.Record{}, fmt.Errorf("expected exactly one marked aspect, found %d markers", len(parts)-1)
	}
	left := strings.ReplaceAll(parts[0], paddingMark, "")
	aspect := strings.TrimSpace(parts[1])
	right := strings.ReplaceAll(parts[2], paddingMark, "")
	if aspect == "" {
		return model.Record{}, errors.New("empty aspect span")
	}

	// symmetric dynamic truncation: keep the aspect whole and split the
	// remaining budget evenly between the two context sides
	aspectWords := strings.Fields(aspect)
	keep := (b.Cfg.MaxSeqLen-len(aspectWords))/2 + 1
	if keep < 0 {
		// the aspect alone exceeds the sequence length; drop both contexts
		// and let the tokenizer truncate the aspect
		keep = 0
	}
	leftWords := strings.Fields(left)
	if len(leftWords) > keep {
		leftWords = leftWords[len(leftWords)-keep:]
	}
	rightWords := strings.Fields(right)
	if len(rightWords) > keep {
		rightWords = rightWords[:keep]
	}
	textRaw := strings.TrimSpace(textutil.NormalizeWhitespaces(
		strings.Join(leftWords, " ") + " " + aspect + " " + strings.Join(rightWords, " ")))

	cls, sep := b.Tok.CLS(), b.Tok.SEP()
	textIDs := b.Tok.TextToSequence(cls + " " + textRaw + " " + sep + " " + aspect + " " + sep)
	rawIDs := b.Tok.TextToSequence(cls + " " + textRaw + " " + sep)
	aspectIDs := b.Tok.TextToSequence(cls + " " + aspect + " " + sep)

	aspIndex, aspBegin, aspectLen, err := aspectIndex(textIDs, aspectIDs)
	if err != nil {
		return model.Record{}, err
	}

	rec := model.Record{
		TextRaw:  textRaw,
		Aspect:   aspect,
		AspIndex: aspIndex,
		Polarity: polarity,
	}

	switch {
	case !b.Cfg.Variant.UsesLCF():
		rec.Inputs = model.BaseInputs{TextRawIndices: rawIDs}

	case b.Cfg.Variant.LCA():
		lcaIDs, lcf, err := b.cdmVec(textIDs, textRaw, aspect, aspBegin, aspectLen)
		if err != nil {
			return model.Record{}, err
		}
		rec.Inputs = model.LCAInputs{
			TextIndices:    textIDs,
			TextRawIndices: rawIDs,
			LCAIds:         lcaIDs,
			LCFVec:         lcf,
		}

	case b.Cfg.Variant.Slide():
		lcf, err := b.lcfVec(textIDs, textRaw, aspect, aspBegin, aspectLen)
		if err != nil {
			return model.Record{}, err
		}
		rec.Inputs = model.SlideInputs{
			TextIndices: textIDs,
			SPCMask:     spcMaskVec(rawIDs, b.Cfg.MaxSeqLen),
			LCFVec:      lcf,
			LeftLCFVec:  cloneVec(lcf),
			RightLCFVec: cloneVec(lcf),
		}

	default:
		lcf, err := b.lcfVec(textIDs, textRaw, aspect, aspBegin, aspectLen)
		if err != nil {
			return model.Record{}, err
		}
		rec.Inputs = model.LCFInputs{
			TextIndices:    textIDs,
			TextRawIndices: rawIDs,
			LCFVec:         lcf,
		}
	}
	return rec, nil
}

// lcfVec dispatches on the active context-weighting mode.
func (b *Builder) lcfVec(textIDs []int64, textRaw, aspect string, aspBegin, aspectLen int) ([]float64, error) {
	switch b.Cfg.LCFMode {
	case model.CDM:
		_, cdm, err := b.cdmVec(textIDs, textRaw, aspect, aspBegin, aspectLen)
		return cdm, err
	case model.CDW:
		return b.cdwVec(textIDs, textRaw, aspect, aspBegin, aspectLen)
	}
	return nil, fmt.Errorf("invalid lcf mode %d", b.Cfg.LCFMode)
}

// cdmVec builds the binary local-context ids and the context dynamic mask.
// Positions outside the local window keep the ones baseline the original
// weighting defines; see the design notes on this choice.
func (b *Builder) cdmVec(textIDs []int64, textRaw, aspect string, aspBegin, aspectLen int) ([]int64, []float64, error) {
	n := b.Cfg.MaxSeqLen
	lcaIDs := make([]int64, n)
	cdm := make([]float64, n)
	for i := range cdm {
		lcaIDs[i] = 1
		cdm[i] = 1
	}

	if b.Cfg.Variant.Syntactic() {
		dist, err := b.syntacticDistances(textRaw, aspect)
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < n; i++ {
			if dist[i] <= float64(b.Cfg.SRD) {
				lcaIDs[i] = 1
				cdm[i] = 1
			}
		}
		return lcaIDs, cdm, nil
	}

	begin := max(0, aspBegin-b.Cfg.SRD)
	end := aspBegin + aspectLen + b.Cfg.SRD - 1
	for i := begin; i <= end && i < n; i++ {
		lcaIDs[i] = 1
		cdm[i] = 1
	}
	return lcaIDs, cdm, nil
}

// cdwVec builds the context dynamic weighting vector: full weight inside
// the local window, linear decay with distance outside, clamped to [0,1].
func (b *Builder) cdwVec(textIDs []int64, textRaw, aspect string, aspBegin, aspectLen int) ([]float64, error) {
	n := b.Cfg.MaxSeqLen
	cdw := make([]float64, n)
	textLen := effectiveLen(textIDs)
	if textLen == 0 {
		return cdw, nil
	}

	if b.Cfg.Variant.Syntactic() {
		dist, err := b.syntacticDistances(textRaw, aspect)
		if err != nil {
			return nil, err
		}
		for i := 0; i < textLen && i < n; i++ {
			if dist[i] > float64(b.Cfg.SRD) {
				cdw[i] = clamp01(1 - dist[i]/float64(textLen))
			} else {
				cdw[i] = 1
			}
		}
		return cdw, nil
	}

	begin := max(0, aspBegin-b.Cfg.SRD)
	end := aspBegin + aspectLen + b.Cfg.SRD - 1
	for i := 0; i < textLen && i < n; i++ {
		switch {
		case i < begin:
			cdw[i] = clamp01(1 - float64(begin-i)/float64(textLen))
		case i <= end:
			cdw[i] = 1
		default:
			cdw[i] = clamp01(1 - float64(i-end)/float64(textLen))
		}
	}
	return cdw, nil
}

// syntacticDistances aligns estimator distances with the sub-tokenized
// sequence: the class and separator markers get distance 0, every
// sub-token inherits its raw token's distance.
func (b *Builder) syntacticDistances(textRaw, aspect string) ([]float64, error) {
	if b.Est == nil {
		return nil, errors.New("syntactic variant requires a dependency-distance estimator")
	}
	tokens, dist, err := b.Est.Distances(textRaw, aspect)
	if err != nil {
		return nil, fmt.Errorf("dependency distance: %w", err)
	}
	tokens = append([]string{b.Tok.CLS()}, tokens...)
	dist = append([]float64{0}, dist...)
	tokens = append(tokens, b.Tok.SEP())
	dist = append(dist, 0)
	_, aligned := b.Tok.TokenizeAligned(tokens, dist)
	return aligned, nil
}

// spcMaskVec marks every non-padding position of the raw sequence.
func spcMaskVec(rawIDs []int64, maxSeqLen int) []float64 {
	mask := make([]float64, maxSeqLen)
	for i, id := range rawIDs {
		if i >= maxSeqLen {
			break
		}
		if id != 0 {
			mask[i] = 1
		}
	}
	return mask
}

// aspectIndex locates the aspect span inside the tokenized text and
// returns the averaged (possibly fractional) aspect index together with
// the first-occurrence position and the aspect token length.
func aspectIndex(textIDs, aspectIDs []int64) (float64, int, int, error) {
	aspectLen := countNonzero(aspectIDs) - 2
	if aspectLen < 1 {
		return 0, 0, 0, errors.New("aspect tokenized to nothing")
	}
	begin := -1
	for i, id := range textIDs {
		if id == aspectIDs[1] {
			begin = i
			break
		}
	}
	if begin < 0 {
		return 0, 0, 0, errors.New("aspect not found in tokenized text")
	}
	return float64(begin*2+aspectLen) / 2, begin, aspectLen, nil
}

func countNonzero(ids []int64) int {
	n := 0
	for _, id := range ids {
		if id != 0 {
			n++
		}
	}
	return n
}

// effectiveLen is the index just past the last non-padding position.
func effectiveLen(ids []int64) int {
	n := 0
	for i, id := range ids {
		if id != 0 {
			n = i + 1
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func cloneVec(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
